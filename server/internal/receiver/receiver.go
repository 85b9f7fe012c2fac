package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/pkg/types"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/config"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/store"
)

const (
	connectTimeout = 10 * time.Second
	retryInterval  = 5 * time.Second
)

// Receiver subscribes to the configured MQTT topic and writes accepted
// readings to the store.
type Receiver struct {
	cfg      config.MQTTConfig
	store    *store.Store
	rejected atomic.Uint64
}

// New creates a Receiver that writes accepted readings to st.
func New(cfg config.MQTTConfig, st *store.Store) *Receiver {
	return &Receiver{cfg: cfg, store: st}
}

// Rejected returns how many payloads failed validation.
func (r *Receiver) Rejected() uint64 {
	return r.rejected.Load()
}

// Run connects to the broker, subscribes, and blocks until ctx is cancelled.
// The client reconnects and resubscribes on its own after a lost connection.
func (r *Receiver) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(r.cfg.Broker)
	opts.SetClientID(r.cfg.ClientID)
	if r.cfg.Username != "" {
		opts.SetUsername(r.cfg.Username)
		opts.SetPassword(r.cfg.Password())
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(retryInterval)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		// Subscriptions do not survive a reconnect with a clean session.
		r.subscribed(c.Subscribe(r.cfg.Topic, r.cfg.QoS, r.handle), connectTimeout)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("receiver: connection lost", "broker", r.cfg.Broker, "err", err)
	})

	slog.Info("receiver: connecting",
		"broker", r.cfg.Broker,
		"topic", r.cfg.Topic,
		"max_age", r.store.MaxAge(),
	)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-ctx.Done():
		client.Disconnect(250)
		return nil
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("receiver: connect %s: %w", r.cfg.Broker, err)
	}

	<-ctx.Done()
	client.Disconnect(250)
	return nil
}

// subscribed waits up to timeout for the subscribe token and logs the outcome.
// It reports whether the subscription is confirmed.
func (r *Receiver) subscribed(token mqtt.Token, timeout time.Duration) bool {
	if !token.WaitTimeout(timeout) {
		slog.Warn("receiver: subscribe not acknowledged", "topic", r.cfg.Topic, "timeout", timeout)
		return false
	}
	if err := token.Error(); err != nil {
		slog.Error("receiver: subscribe failed", "topic", r.cfg.Topic, "err", err)
		return false
	}
	slog.Info("receiver: subscribed", "broker", r.cfg.Broker, "topic", r.cfg.Topic)
	return true
}

// handle is the subscription callback. It validates the payload and stores it.
func (r *Receiver) handle(_ mqtt.Client, msg mqtt.Message) {
	sample, err := Validate(msg.Payload())
	if err != nil {
		r.rejected.Add(1)
		slog.Warn("receiver: reading rejected", "topic", msg.Topic(), "err", err)
		return
	}

	r.store.Put(sample)

	slog.Debug("receiver: reading stored",
		"topic", msg.Topic(),
		"azimuth", sample.Azimuth,
		"elevation", sample.Elevation,
	)
}

// Validate decodes a reading and checks it can be broadcast.
func Validate(payload []byte) (types.Sample, error) {
	s, err := types.Decode(payload)
	if err != nil {
		return types.Sample{}, err
	}
	if !s.Finite() {
		return types.Sample{}, fmt.Errorf("reading has non-finite values")
	}
	return s, nil
}
