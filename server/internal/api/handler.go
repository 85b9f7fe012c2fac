package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/pkg/types"
)

// ClientCounter reports how many WebSocket clients are connected.
// *ws.Hub implements it.
type ClientCounter interface {
	Count() int
}

// SampleReader exposes the broadcaster's most recent sample.
// *broadcast.Broadcaster implements it.
type SampleReader interface {
	Last() (types.Sample, time.Time, bool)
	Ticks() uint64
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	clients ClientCounter
	samples SampleReader
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(clients ClientCounter, samples SampleReader) http.Handler {
	h := &Handler{clients: clients, samples: samples, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/sample", h.sample)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: client count and broadcast progress.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		State:   StateStarting,
		Clients: h.clients.Count(),
		Ticks:   h.samples.Ticks(),
	}
	if _, at, ok := h.samples.Last(); ok {
		resp.State = StateOK
		resp.LastTick = at.UTC().Format(time.RFC3339)
	}
	jsonResp(w, http.StatusOK, resp)
}

// sample returns GET /api/v1/sample: the last broadcast sample; 404 before
// the first tick.
func (h *Handler) sample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s, at, ok := h.samples.Last()
	if !ok {
		jsonErr(w, http.StatusNotFound, "no sample broadcast yet")
		return
	}
	jsonResp(w, http.StatusOK, SampleResponse{
		Azimuth:     s.Azimuth,
		Elevation:   s.Elevation,
		GeneratedAt: at.UTC().Format(time.RFC3339),
	})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
