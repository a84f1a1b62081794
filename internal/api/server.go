package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ronthekiehn/gpt-river/internal/contrib"
	"github.com/ronthekiehn/gpt-river/internal/driver"
	"github.com/ronthekiehn/gpt-river/internal/logging"
	"github.com/ronthekiehn/gpt-river/internal/riverlog"
	"github.com/ronthekiehn/gpt-river/internal/stream"
)

// Engine is the generation backend surface the API reports on.
type Engine interface {
	Healthy() bool
	Stats() map[string]int
}

// Server exposes the river over HTTP: the polled stream, the contribution
// endpoint, and health/stats. It only ever reads the buffer and submits to
// the queue; the driver stays the sole writer.
type Server struct {
	buf     *stream.Buffer
	queue   *contrib.Queue
	drv     *driver.Driver
	engine  Engine
	events  *riverlog.Log
	started time.Time
}

// NewServer wires the handlers to the shared state owners.
func NewServer(buf *stream.Buffer, queue *contrib.Queue, drv *driver.Driver, engine Engine, events *riverlog.Log) *Server {
	return &Server{
		buf:     buf,
		queue:   queue,
		drv:     drv,
		engine:  engine,
		events:  events,
		started: time.Now(),
	}
}

// Routes returns the HTTP handler for the service.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /text", s.handleText)
	mux.HandleFunc("POST /contribute", s.handleContribute)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

// ─── Text ────────────────────────────────────────────────────────────────────

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	window := 0
	if q := r.URL.Query().Get("window"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window must be a non-negative integer"})
			return
		}
		window = n
	}
	writeJSON(w, http.StatusOK, s.buf.Snapshot(window))
}

// ─── Contribute ──────────────────────────────────────────────────────────────

// ContributeRequest is the request body for POST /contribute.
type ContributeRequest struct {
	Word string `json:"word"`
}

// ContributeResponse reports whether the word entered the queue.
type ContributeResponse struct {
	Accepted bool   `json:"accepted"`
	Word     string `json:"word,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ContributeResponse{Accepted: false, Reason: "invalid JSON: " + err.Error()})
		return
	}

	word, err := s.queue.Submit(req.Word)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ContributeResponse{Accepted: false, Reason: err.Error()})
		return
	}

	s.events.Contribution(word)
	logging.Debug("api", "accepted contribution %q", word)
	writeJSON(w, http.StatusOK, ContributeResponse{Accepted: true, Word: word})
}

// ─── Health ──────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	drvStats := s.drv.Stats()
	health := map[string]any{
		"status":         "ok",
		"ollama":         s.engine.Healthy(),
		"sequence":       s.buf.Sequence(),
		"cycles":         drvStats["cycles"],
		"failures":       drvStats["failures"],
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	writeJSON(w, http.StatusOK, health)
}

// ─── Stats ───────────────────────────────────────────────────────────────────

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.buf.Snapshot(0)
	stats := map[string]any{
		"stream":         s.buf.Stats(),
		"queue":          s.queue.Stats(),
		"driver":         s.drv.Stats(),
		"engine":         s.engine.Stats(),
		"text":           analyzeText(stream.StripMarkers(snap.Text)),
		"process":        processStats(),
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	writeJSON(w, http.StatusOK, stats)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
