package api

// Health states.
const (
	StateStarting = "starting" // no tick has completed yet
	StateOK       = "ok"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State    string `json:"state"`
	Clients  int    `json:"clients"`
	Ticks    uint64 `json:"ticks"`
	LastTick string `json:"last_tick"` // RFC3339, empty before the first tick
}

// SampleResponse is the payload for GET /api/v1/sample.
type SampleResponse struct {
	Azimuth     float64 `json:"azimuth"`
	Elevation   float64 `json:"elevation"`
	GeneratedAt string  `json:"generated_at"` // RFC3339
}

type errorResponse struct {
	Error string `json:"error"`
}
