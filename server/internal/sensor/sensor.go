package sensor

import (
	"context"
	"errors"
	"sync"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/pkg/types"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/store"
)

// ErrNoReading is returned by Latest when no fresh reading is available.
var ErrNoReading = errors.New("sensor: no fresh reading")

// Source produces the sample for the next broadcast tick.
type Source interface {
	Next(ctx context.Context) (types.Sample, error)
}

// FullCircle is the azimuth at which the simulator wraps back to 0.
const FullCircle = 360.0

// Simulator is a counter standing in for a real rotator sensor.
type Simulator struct {
	mu     sync.Mutex
	sample types.Sample
	step   float64
}

// NewSimulator returns a Simulator starting at initial that moves azimuth by
// step on each Next call.
func NewSimulator(initial types.Sample, step float64) *Simulator {
	return &Simulator{sample: initial, step: step}
}

// Next advances azimuth and returns the new sample. The rule is not a true
// modulo: an incremented value >= 360 becomes exactly 0, so 355+5 gives 0 and
// 357+7 also gives 0 rather than 4.
func (s *Simulator) Next(context.Context) (types.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.sample.Azimuth + s.step
	if next >= FullCircle {
		next = 0
	}
	s.sample.Azimuth = next
	return s.sample, nil
}

// Latest is a Source backed by a store of externally received readings.
type Latest struct {
	store *store.Store
}

// NewLatest returns a Source reading from st.
func NewLatest(st *store.Store) *Latest {
	return &Latest{store: st}
}

// Next returns the newest reading, or ErrNoReading if there is none or it is stale.
func (l *Latest) Next(context.Context) (types.Sample, error) {
	e, ok := l.store.Latest()
	if !ok {
		return types.Sample{}, ErrNoReading
	}
	return e.Sample, nil
}
