// Package control exposes the HTTP surface of the streamer: transport
// control (play/stop/tempo/resync) and a status endpoint reporting per-target
// streaming statistics. It writes only through the state store and the timing
// accumulators; rendering and streaming read that state on their own clocks.
package control

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"laserd/internal/platform/metrics"
	"laserd/internal/state"
	"laserd/internal/stream"
	"laserd/internal/timing"
)

// Target bundles the per-output handles the API reports on and controls.
type Target struct {
	Name        string
	Engine      *stream.Engine
	Accumulator *timing.Accumulator
}

// Handler exposes the control endpoints using go-chi.
type Handler struct {
	store   *state.Store
	targets []Target
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler over the given store and targets.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(store *state.Store, targets []Target, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{store: store, targets: targets, log: log, metrics: m}
}

type targetStatus struct {
	Name          string    `json:"name"`
	Running       bool      `json:"running"`
	FramesSent    uint64    `json:"frames_sent"`
	ActualFPS     float64   `json:"actual_fps"`
	LastFrameTime time.Time `json:"last_frame_time"`
}

type statusResponse struct {
	Playing bool           `json:"playing"`
	BPM     float64        `json:"bpm"`
	Targets []targetStatus `json:"targets"`
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Playing: h.store.Playing(),
		BPM:     h.store.BPM(),
		Targets: make([]targetStatus, 0, len(h.targets)),
	}
	for _, t := range h.targets {
		st := t.Engine.Stats()
		resp.Targets = append(resp.Targets, targetStatus{
			Name:          t.Name,
			Running:       t.Engine.Running(),
			FramesSent:    st.FramesSent,
			ActualFPS:     st.ActualFPS,
			LastFrameTime: st.LastFrameTime,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// StartTransport handles POST /transport/start. The trigger timestamp is the
// request time; accumulated beat counters reset so modulator phases retrigger.
func (h *Handler) StartTransport(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	h.store.Play(now)
	for _, t := range h.targets {
		t.Accumulator.Reset()
	}
	h.log.Info("transport started", slog.Time("trigger", now))
	w.WriteHeader(http.StatusOK)
}

// StopTransport handles POST /transport/stop.
func (h *Handler) StopTransport(w http.ResponseWriter, r *http.Request) {
	h.store.Stop()
	h.log.Info("transport stopped")
	w.WriteHeader(http.StatusOK)
}

// SetBPM handles PUT /transport/bpm. Body: { "bpm": 128 }.
func (h *Handler) SetBPM(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BPM float64 `json:"bpm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid bpm body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body.BPM <= 0 || body.BPM > 1000 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.store.SetBPM(body.BPM)
	for _, t := range h.targets {
		t.Accumulator.SetBPM(body.BPM)
	}
	h.log.Info("bpm changed", slog.Float64("bpm", body.BPM))
	w.WriteHeader(http.StatusOK)
}

// Resync handles POST /transport/resync. Body: { "offset": 0.5 } in beats.
// The phase offset approaches the target exponentially instead of snapping.
func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Offset float64 `json:"offset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid resync body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	for _, t := range h.targets {
		t.Accumulator.Resync(body.Offset)
	}
	h.log.Info("resync requested", slog.Float64("offset", body.Offset))
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
