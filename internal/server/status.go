package server

import (
	"net/http"
	"time"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
)

// handleFlush force-flushes every origin buffer. Also invoked internally on
// graceful shutdown so partial accumulations are not lost.
func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := s.manager.FlushAll(r.Context())
	s.logger.Printf("[server] manual flush: %d flushed, %d discarded", res.Flushes, res.Discarded)
	writeJSON(w, http.StatusOK, toIngestResponse(res))
}

type healthResponse struct {
	Status    string `json:"status"`
	Decisions int64  `json:"decisions"`
}

// handleHealth is the liveness probe; it exercises the decision store so a
// dead database surfaces here rather than on the first ingest.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.decisions.Count(r.Context())
	if err != nil {
		s.logger.Printf("[server] health check store error: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Decisions: count})
}

// StatusResponse is the JSON body for /status.
type StatusResponse struct {
	Status           string            `json:"status"`
	Uptime           string            `json:"uptime"`
	Decisions        int64             `json:"decisions"`
	DecisionsByModel map[string]int64  `json:"decisions_by_model"`
	IngestRuns       int64             `json:"ingest_runs"`
	LastRun          *domain.IngestRun `json:"last_run,omitempty"`
	BufferedOrigins  []string          `json:"buffered_origins"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.startedAt).Round(time.Second).String(),
		BufferedOrigins: s.manager.BufferedOrigins(),
	}

	if count, err := s.decisions.Count(ctx); err == nil {
		resp.Decisions = count
	}
	if byModel, err := s.decisions.CountByModel(ctx); err == nil {
		resp.DecisionsByModel = byModel
	}
	if s.runs != nil {
		if count, err := s.runs.Count(ctx); err == nil {
			resp.IngestRuns = count
		}
		if recent, err := s.runs.GetRecent(ctx, 1); err == nil && len(recent) > 0 {
			resp.LastRun = recent[0]
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
