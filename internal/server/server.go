// Package server exposes the capture pipeline over HTTP: batch ingestion,
// a WebSocket ingest stream, manual flush and the health/status surface.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/ingest"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/observability"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
)

// Server wires the ingest manager and stores to HTTP handlers.
type Server struct {
	manager   *ingest.Manager
	decisions storage.DecisionStore
	runs      storage.IngestRunStore
	logger    *log.Logger
	startedAt time.Time
}

// Options configures a Server.
type Options struct {
	Manager   *ingest.Manager
	Decisions storage.DecisionStore
	Runs      storage.IngestRunStore
	Logger    *log.Logger
}

// New creates a server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		manager:   opts.Manager,
		decisions: opts.Decisions,
		runs:      opts.Runs,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/ingest/ws", s.handleIngestWS)
	mux.HandleFunc("/flush", s.handleFlush)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", observability.Handler())
	return mux
}

// writeJSON encodes a response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// errorBody is the uniform failure response shape.
type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{OK: false, Error: msg})
}
