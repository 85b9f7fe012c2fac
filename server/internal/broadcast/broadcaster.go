package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/pkg/types"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/metrics"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/sensor"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/ws"
)

// Transport is the part of the WebSocket endpoint the broadcaster needs.
// *ws.Hub implements it.
type Transport interface {
	List() ([]uuid.UUID, error)
	Send(id uuid.UUID, msg []byte) error
}

// Round summarises one tick.
type Round struct {
	Sample    types.Sample
	Attempts  int
	Delivered int
	Gone      int
	Failed    int

	// Skipped is set when nothing was sent because the source, the encoder or
	// the registry snapshot failed. Reason names which one.
	Skipped bool
	Reason  string
}

// Broadcaster pulls a sample from its Source on every tick and fans it out
// to every connection open at that moment.
type Broadcaster struct {
	transport Transport
	source    sensor.Source
	metrics   *metrics.BroadcastMetrics
	clock     clockwork.Clock
	resetCh   chan time.Duration

	mu       sync.RWMutex
	interval time.Duration
	last     types.Sample
	lastAt   time.Time
	ticks    uint64
}

// New creates a Broadcaster. interval must be positive.
func New(t Transport, src sensor.Source, interval time.Duration, m *metrics.BroadcastMetrics, clock clockwork.Clock) *Broadcaster {
	return &Broadcaster{
		transport: t,
		source:    src,
		metrics:   m,
		clock:     clock,
		resetCh:   make(chan time.Duration, 1),
		interval:  interval,
	}
}

// Run ticks every interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	// A change made before Run is already reflected in Interval().
	select {
	case <-b.resetCh:
	default:
	}
	ticker := b.clock.NewTicker(b.Interval())
	defer ticker.Stop()

	slog.Info("broadcast: started", "interval", b.Interval())

	for {
		select {
		case <-ctx.Done():
			slog.Info("broadcast: stopped", "ticks", b.Ticks())
			return
		case d := <-b.resetCh:
			ticker.Reset(d)
			slog.Info("broadcast: interval changed", "interval", d)
		case <-ticker.Chan():
			b.Tick(ctx)
		}
	}
}

// SetInterval changes the tick period of a running loop. Non-positive
// values are ignored.
func (b *Broadcaster) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	b.mu.Lock()
	if d == b.interval {
		b.mu.Unlock()
		return
	}
	b.interval = d
	b.mu.Unlock()

	// Keep only the newest pending change.
	select {
	case <-b.resetCh:
	default:
	}
	b.resetCh <- d
}

// Interval returns the current tick period.
func (b *Broadcaster) Interval() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.interval
}

// Tick runs one generate-and-send cycle. Per-connection failures are counted
// and never stop the round.
func (b *Broadcaster) Tick(ctx context.Context) Round {
	start := b.clock.Now()
	b.metrics.Ticks.Inc()
	defer func() {
		b.metrics.TickDuration.Observe(b.clock.Since(start).Seconds())
	}()

	sample, err := b.source.Next(ctx)
	if err != nil {
		slog.Debug("broadcast: no sample, skipping tick", "err", err)
		return b.skip(metrics.ReasonSource)
	}

	frame, err := sample.Encode()
	if err != nil {
		slog.Warn("broadcast: encode failed, skipping tick", "err", err)
		return b.skip(metrics.ReasonEncode)
	}

	round := Round{Sample: sample}

	ids, err := b.transport.List()
	if err != nil {
		slog.Warn("broadcast: registry snapshot failed, skipping tick", "err", err)
		round.Skipped = true
		round.Reason = metrics.ReasonSnapshot
		b.metrics.TicksSkipped.WithLabelValues(metrics.ReasonSnapshot).Inc()
		return round
	}

	for _, id := range ids {
		round.Attempts++
		err := b.transport.Send(id, frame)
		switch {
		case err == nil:
			round.Delivered++
		case errors.Is(err, ws.ErrConnectionGone):
			round.Gone++
			b.metrics.SendFailures.WithLabelValues(metrics.ReasonGone).Inc()
			slog.Debug("broadcast: connection gone", "conn", id)
		default:
			round.Failed++
			b.metrics.SendFailures.WithLabelValues(metrics.ReasonFailed).Inc()
			slog.Warn("broadcast: send failed", "conn", id, "err", err)
		}
	}
	b.metrics.SendAttempts.Add(float64(round.Attempts))
	b.metrics.Azimuth.Set(sample.Azimuth)
	b.metrics.Elevation.Set(sample.Elevation)

	b.mu.Lock()
	b.last = sample
	b.lastAt = start
	b.ticks++
	b.mu.Unlock()

	if round.Attempts > 0 {
		slog.Debug("broadcast: tick",
			"azimuth", sample.Azimuth,
			"elevation", sample.Elevation,
			"attempts", round.Attempts,
			"delivered", round.Delivered,
			"gone", round.Gone,
			"failed", round.Failed,
		)
	}
	return round
}

// Last returns the most recently broadcast sample and when its tick started.
// ok is false before the first completed tick.
func (b *Broadcaster) Last() (sample types.Sample, at time.Time, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.lastAt, b.ticks > 0
}

// Ticks returns the number of completed (not skipped) ticks.
func (b *Broadcaster) Ticks() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ticks
}

func (b *Broadcaster) skip(reason string) Round {
	b.metrics.TicksSkipped.WithLabelValues(reason).Inc()
	return Round{Skipped: true, Reason: reason}
}
