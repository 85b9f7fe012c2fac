package broadcast_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/pkg/types"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/broadcast"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/metrics"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/sensor"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/ws"
)

type harness struct {
	hub   *ws.Hub
	b     *broadcast.Broadcaster
	clock clockwork.FakeClock
	url   string
}

// startHarness wires a real hub behind httptest to a broadcaster driven by
// a fake clock. The broadcaster loop is not started.
func startHarness(t *testing.T) *harness {
	t.Helper()

	reg := prometheus.NewRegistry()
	hub := ws.New(ws.Options{}, metrics.NewWebSocketMetrics(reg))
	srv := httptest.NewServer(hub)
	clock := clockwork.NewFakeClock()
	src := sensor.NewSimulator(types.Sample{Azimuth: 0, Elevation: 45}, 5)
	b := broadcast.New(hub, src, time.Second, metrics.NewBroadcastMetrics(reg), clock)

	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return &harness{
		hub:   hub,
		b:     b,
		clock: clock,
		url:   "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (h *harness) waitForClients(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.hub.Count() == n }, 2*time.Second, time.Millisecond)
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.b.Run(ctx)
	h.clock.BlockUntil(1)
}

// tick advances the fake clock by one interval.
func (h *harness) tick() {
	h.clock.BlockUntil(1)
	h.clock.Advance(time.Second)
}

func read(t *testing.T, conn *websocket.Conn) (int, string) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return mt, string(msg)
}

func TestE2E_FirstTickDeliversInitialStep(t *testing.T) {
	h := startHarness(t)
	conn := h.dial(t)
	h.waitForClients(t, 1)
	h.run(t)

	h.tick()

	mt, msg := read(t, conn)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, `{"azimuth":5,"elevation":45}`, msg)
}

func TestE2E_WrapsAfter72Ticks(t *testing.T) {
	h := startHarness(t)
	conn := h.dial(t)
	h.waitForClients(t, 1)
	h.run(t)

	var last string
	for i := 1; i <= 72; i++ {
		h.tick()
		_, last = read(t, conn)
		if i == 71 {
			assert.Equal(t, `{"azimuth":355,"elevation":45}`, last)
		}
	}
	assert.Equal(t, `{"azimuth":0,"elevation":45}`, last)
}

func TestE2E_AllClientsReceiveSameFrame(t *testing.T) {
	h := startHarness(t)
	conns := make([]*websocket.Conn, 5)
	for i := range conns {
		conns[i] = h.dial(t)
	}
	h.waitForClients(t, 5)

	round := h.b.Tick(context.Background())
	assert.Equal(t, 5, round.Attempts)
	assert.Equal(t, 5, round.Delivered)

	for _, c := range conns {
		_, msg := read(t, c)
		assert.Equal(t, `{"azimuth":5,"elevation":45}`, msg)
	}
}

func TestE2E_LateJoinerSeesOnlyLaterSamples(t *testing.T) {
	h := startHarness(t)
	early := h.dial(t)
	h.waitForClients(t, 1)

	h.b.Tick(context.Background())
	h.b.Tick(context.Background())
	_, _ = read(t, early)
	_, _ = read(t, early)

	late := h.dial(t)
	h.waitForClients(t, 2)

	h.b.Tick(context.Background())
	_, msg := read(t, late)
	assert.Equal(t, `{"azimuth":15,"elevation":45}`, msg, "no backlog on connect")
}

func TestE2E_DeadClientDoesNotBlockOthers(t *testing.T) {
	h := startHarness(t)
	dead := h.dial(t)
	alive := h.dial(t)
	h.waitForClients(t, 2)

	require.NoError(t, dead.Close())

	// Whether the hub has noticed the close yet or not, the live client still gets every tick.
	for i := 1; i <= 3; i++ {
		round := h.b.Tick(context.Background())
		assert.GreaterOrEqual(t, round.Attempts, 1)
		_, msg := read(t, alive)
		assert.Contains(t, msg, `"elevation":45`)
	}
	h.waitForClients(t, 1)
}

func TestE2E_ChurnDuringTicks(t *testing.T) {
	h := startHarness(t)
	stable := h.dial(t)
	h.waitForClients(t, 1)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
				if err != nil {
					return
				}
				time.Sleep(time.Millisecond)
				conn.Close()
			}
		}()
	}

	for i := 1; i <= 20; i++ {
		round := h.b.Tick(context.Background())
		assert.False(t, round.Skipped)
		assert.Equal(t, round.Attempts, round.Delivered+round.Gone+round.Failed)
		_, msg := read(t, stable)
		assert.Contains(t, msg, `"azimuth"`)
	}
	close(stop)
	wg.Wait()

	h.waitForClients(t, 1)
}

func TestE2E_HubClosedSkipsTicks(t *testing.T) {
	h := startHarness(t)
	h.hub.Close()

	round := h.b.Tick(context.Background())
	assert.True(t, round.Skipped)
	assert.Equal(t, metrics.ReasonSnapshot, round.Reason)
}
