package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/consolidate"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/ingest"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.DecisionStore) {
	t.Helper()

	decisions := memory.NewDecisionStore()
	runs := memory.NewIngestRunStore()
	logger := log.New(io.Discard, "", 0)

	manager := ingest.NewManager(ingest.Options{
		Buffers: ingest.NewBufferStore(ingest.DefaultFlushPolicy(), ingest.SystemClock{}),
		Engine:  consolidate.New(decisions, memory.NewExtractionEventStore(), logger),
		Runs:    runs,
		Logger:  logger,
	})

	srv := New(Options{Manager: manager, Decisions: decisions, Runs: runs, Logger: logger})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, decisions
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

const fastPathBatch = `{"events": [{
	"url": "https://nof1.ai/arena",
	"payload": {"kind": "json_payload", "data": {"conversations": [
		{"id": "c1", "model": "gpt-5", "action": "buy", "confidence": 0.8},
		{"id": "c2", "model": "grok-4", "action": "sell", "confidence": 0.6}
	]}}
}]}`

func TestHandleIngest_FastPathBatch(t *testing.T) {
	ts, decisions := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/ingest", fastPathBatch)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", resp.StatusCode, body)
	}
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
	if body["fastpath"] != float64(2) {
		t.Errorf("fastpath = %v, want 2", body["fastpath"])
	}

	count, _ := decisions.Count(context.Background())
	if count != 2 {
		t.Errorf("decision count = %d, want 2", count)
	}
}

func TestHandleIngest_InvalidEnvelope(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/ingest", `{"events": [{"url": "", "payload": {"kind": "json_payload", "data": {}}}]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["ok"] != false {
		t.Errorf("ok = %v, want false", body["ok"])
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "invalid batch envelope") {
		t.Errorf("error = %v", body["error"])
	}
}

func TestHandleIngest_MalformedJSON(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/ingest", `{"events": [`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleIngest_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ingest")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHandleFlush_DrainsBuffers(t *testing.T) {
	ts, decisions := newTestServer(t)

	buffered := `{"events": [{
		"url": "https://nof1.ai/arena",
		"payload": {"kind": "visible_text_snapshot", "data": "GPT 5 decided to hold with confidence: 60% after reviewing the market"}
	}]}`
	if resp, _ := postJSON(t, ts.URL+"/ingest", buffered); resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest status = %d", resp.StatusCode)
	}

	count, _ := decisions.Count(context.Background())
	if count != 0 {
		t.Fatalf("count = %d before flush, want 0", count)
	}

	resp, body := postJSON(t, ts.URL+"/flush", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("flush status = %d", resp.StatusCode)
	}
	if body["flushes"] != float64(1) {
		t.Errorf("flushes = %v, want 1", body["flushes"])
	}

	count, _ = decisions.Count(context.Background())
	if count != 1 {
		t.Errorf("count = %d after flush, want 1", count)
	}
}

func TestHandleHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
}

func TestHandleStatus(t *testing.T) {
	ts, _ := newTestServer(t)

	if resp, _ := postJSON(t, ts.URL+"/ingest", fastPathBatch); resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest failed")
	}

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()

	var body StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "running" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Decisions != 2 {
		t.Errorf("decisions = %d, want 2", body.Decisions)
	}
	if body.DecisionsByModel["gpt-5"] != 1 || body.DecisionsByModel["grok-4"] != 1 {
		t.Errorf("decisions_by_model = %v", body.DecisionsByModel)
	}
	if body.IngestRuns != 1 {
		t.Errorf("ingest_runs = %d, want 1", body.IngestRuns)
	}
	if body.LastRun == nil {
		t.Error("last_run missing")
	}
}

func TestHandleIngestWS(t *testing.T) {
	ts, decisions := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ingest/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s failed: %v", wsURL, err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(fastPathBatch)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var reply ingestResponse
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !reply.OK || reply.FastPath != 2 {
		t.Errorf("reply = %+v, want ok with 2 fastpath rows", reply)
	}

	// A malformed message gets an error reply but keeps the connection open.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{broken")); err != nil {
		t.Fatalf("write (2) failed: %v", err)
	}
	var errReply errorBody
	if err := conn.ReadJSON(&errReply); err != nil {
		t.Fatalf("read (2) failed: %v", err)
	}
	if errReply.OK {
		t.Error("malformed message must produce an error reply")
	}

	count, _ := decisions.Count(context.Background())
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
