package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/ingest"
)

// ingestResponse is the success body for an accepted batch.
type ingestResponse struct {
	OK        bool `json:"ok"`
	Events    int  `json:"events"`
	Inserted  int  `json:"inserted"`
	Merged    int  `json:"merged"`
	FastPath  int  `json:"fastpath"`
	Flushes   int  `json:"flushes"`
	Discarded int  `json:"discarded"`
}

func toIngestResponse(res ingest.BatchResult) ingestResponse {
	return ingestResponse{
		OK:        true,
		Events:    res.EventsProcessed,
		Inserted:  res.RowsInserted,
		Merged:    res.RowsMerged,
		FastPath:  res.FastPathRows,
		Flushes:   res.Flushes,
		Discarded: res.Discarded,
	}
}

// handleIngest accepts one capture batch per POST.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var batch ingest.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json: "+err.Error())
		return
	}

	res, err := s.manager.ProcessBatch(r.Context(), &batch)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidBatch) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Printf("[server] ingest failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toIngestResponse(res))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 16,
	WriteBufferSize: 1 << 16,
	// The capture agent runs as a browser extension, so cross-origin
	// upgrades are the normal case.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleIngestWS accepts a WebSocket connection carrying one batch per text
// message. Each message gets one JSON reply, mirroring the POST contract.
func (s *Server) handleIngestWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[server] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("[server] websocket read failed: %v", err)
			}
			return
		}

		var batch ingest.Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			s.writeWS(conn, errorBody{OK: false, Error: "malformed json: " + err.Error()})
			continue
		}

		res, err := s.manager.ProcessBatch(r.Context(), &batch)
		if err != nil {
			s.writeWS(conn, errorBody{OK: false, Error: err.Error()})
			continue
		}
		s.writeWS(conn, toIngestResponse(res))
	}
}

func (s *Server) writeWS(conn *websocket.Conn, body any) {
	if err := conn.WriteJSON(body); err != nil {
		s.logger.Printf("[server] websocket write failed: %v", err)
	}
}
