package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/pkg/types"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/api"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/broadcast"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/config"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/metrics"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/page"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/receiver"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/sensor"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/store"
	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file; empty runs with built-in defaults")
	addr := flag.String("addr", "", "listen address, overrides server.http_port (e.g. 127.0.0.1:8080)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "rotator-server: %v\n", err)
			os.Exit(1)
		}
	}

	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Server.Log.Level))
	slog.SetDefault(newLogger(os.Stdout, cfg.Server.Log.Format, level))

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	}

	slog.Info("rotator-server starting",
		"config", *configPath,
		"addr", listenAddr,
		"source", cfg.Server.Sensor.Source,
		"interval", cfg.Server.Broadcast.Interval,
		"metrics", cfg.Server.Metrics.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := newServer(cfg, clockwork.NewRealClock())

	// MQTT feed, only when sensor.source is mqtt.
	if srv.receiver != nil {
		go func() {
			if err := srv.receiver.Run(ctx); err != nil {
				slog.Error("mqtt receiver stopped", "err", err)
			}
		}()
	}

	// Hot reload of log level and broadcast interval.
	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(c *config.Config) {
				level.Set(parseLevel(c.Server.Log.Level))
				srv.broadcaster.SetInterval(c.Server.Broadcast.Interval)
			})
			if err != nil {
				slog.Warn("config watcher stopped", "err", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", listenAddr, "err", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "addr", lis.Addr().String())
		if err := httpSrv.Serve(lis); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	// Blocks until SIGINT/SIGTERM.
	srv.broadcaster.Run(ctx)

	slog.Info("rotator-server shutting down")
	srv.hub.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "err", err)
	}
}

// server holds the long-lived components main wires together.
type server struct {
	hub         *ws.Hub
	broadcaster *broadcast.Broadcaster
	receiver    *receiver.Receiver // nil unless sensor.source is mqtt
	handler     http.Handler
}

// newServer builds every component from cfg. Nothing is started.
func newServer(cfg *config.Config, clock clockwork.Clock) *server {
	sc := cfg.Server
	reg := metrics.NewRegistry()

	hub := ws.New(ws.Options{
		SendBuffer:   sc.WebSocket.SendBuffer,
		WriteTimeout: sc.WebSocket.WriteTimeout,
		PongWait:     sc.WebSocket.PongWait,
		ReadLimit:    sc.WebSocket.ReadLimit,
	}, metrics.NewWebSocketMetrics(reg))

	s := &server{hub: hub}

	var src sensor.Source
	switch sc.Sensor.Source {
	case config.SourceMQTT:
		st := store.New(sc.Sensor.MaxAge)
		s.receiver = receiver.New(sc.Sensor.MQTT, st)
		src = sensor.NewLatest(st)
	default:
		src = sensor.NewSimulator(
			types.Sample{Azimuth: sc.Broadcast.InitialAzimuth, Elevation: sc.Broadcast.Elevation},
			sc.Broadcast.Step,
		)
	}

	s.broadcaster = broadcast.New(hub, src, sc.Broadcast.Interval, metrics.NewBroadcastMetrics(reg), clock)

	mux := http.NewServeMux()
	mux.Handle("/", page.New())
	mux.Handle("/ws", hub)
	mux.Handle("/api/", api.New(hub, s.broadcaster))
	if sc.Metrics.Enabled {
		mux.Handle(sc.Metrics.Path, metrics.Handler(reg))
	}
	s.handler = mux

	return s
}

// parseLevel maps a config log level to slog. Unknown values fall back to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
