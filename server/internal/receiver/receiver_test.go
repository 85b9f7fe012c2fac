package receiver

import (
	"errors"
	"testing"
	"time"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/pkg/types"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/config"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/store"
)

// --- helpers ----------------------------------------------------------------

// fakeMessage implements mqtt.Message for driving the subscription callback.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// fakeToken implements mqtt.Token. It completes when done is closed.
type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{done: done, err: err}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

func newReceiver() (*Receiver, *store.Store) {
	st := store.New(time.Minute)
	cfg := config.Default().Server.Sensor.MQTT
	return New(cfg, st), st
}

// --- subscription callback --------------------------------------------------

func TestHandle_StoresValidReading(t *testing.T) {
	r, st := newReceiver()

	r.handle(nil, &fakeMessage{topic: "rotator/position", payload: []byte(`{"azimuth":187.5,"elevation":12}`)})

	e, ok := st.Latest()
	if !ok {
		t.Fatal("expected a stored reading")
	}
	if want := (types.Sample{Azimuth: 187.5, Elevation: 12}); e.Sample != want {
		t.Errorf("sample: got %+v, want %+v", e.Sample, want)
	}
	if n := r.Rejected(); n != 0 {
		t.Errorf("Rejected: got %d, want 0", n)
	}
}

func TestHandle_RejectsMalformed(t *testing.T) {
	r, st := newReceiver()

	r.handle(nil, &fakeMessage{topic: "rotator/position", payload: []byte(`garbage`)})
	r.handle(nil, &fakeMessage{topic: "rotator/position", payload: []byte(`{"azimuth":10}`)})

	if _, ok := st.Latest(); ok {
		t.Error("malformed payloads must not be stored")
	}
	if n := r.Rejected(); n != 2 {
		t.Errorf("Rejected: got %d, want 2", n)
	}
}

func TestHandle_RejectedKeepsPrevious(t *testing.T) {
	r, st := newReceiver()

	r.handle(nil, &fakeMessage{payload: []byte(`{"azimuth":90,"elevation":5}`)})
	r.handle(nil, &fakeMessage{payload: []byte(`{"azimuth":"east","elevation":5}`)})

	e, ok := st.Latest()
	if !ok {
		t.Fatal("expected the earlier reading to remain")
	}
	if e.Sample.Azimuth != 90 {
		t.Errorf("azimuth: got %v, want 90", e.Sample.Azimuth)
	}
	if n := st.Updates(); n != 1 {
		t.Errorf("Updates: got %d, want 1", n)
	}
}

func TestValidate(t *testing.T) {
	s, err := Validate([]byte(`{"elevation":-5,"azimuth":400}`))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// No range check on either field.
	if want := (types.Sample{Azimuth: 400, Elevation: -5}); s != want {
		t.Errorf("sample: got %+v, want %+v", s, want)
	}

	if _, err := Validate([]byte(`{}`)); err == nil {
		t.Error("expected error for empty object")
	}
}

// --- subscribe acknowledgement ----------------------------------------------

func TestSubscribed_Acknowledged(t *testing.T) {
	r, _ := newReceiver()
	if !r.subscribed(completedToken(nil), time.Second) {
		t.Error("acknowledged subscription reported as failed")
	}
}

func TestSubscribed_BrokerError(t *testing.T) {
	r, _ := newReceiver()
	if r.subscribed(completedToken(errors.New("not authorized")), time.Second) {
		t.Error("rejected subscription reported as confirmed")
	}
}

func TestSubscribed_TimeoutIsNotSuccess(t *testing.T) {
	r, _ := newReceiver()
	pending := &fakeToken{done: make(chan struct{})}

	if r.subscribed(pending, 10*time.Millisecond) {
		t.Error("unacknowledged subscription reported as confirmed")
	}
}
