package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort = 8080

	DefaultSendBuffer   = 16
	DefaultWriteTimeout = 10 * time.Second
	DefaultPongWait     = 60 * time.Second
	MinPongWait         = time.Second
	DefaultReadLimit    = 512

	DefaultInterval       = time.Second
	DefaultStep           = 5.0
	DefaultInitialAzimuth = 0.0
	DefaultElevation      = 45.0

	DefaultSensorMaxAge = 10 * time.Second
	DefaultMQTTBroker   = "tcp://localhost:1883"
	DefaultMQTTTopic    = "rotator/position"
	DefaultMQTTClientID = "rotator-server"

	DefaultMetricsPath = "/metrics"
)

// Sensor source kinds.
const (
	SourceSimulated = "simulated"
	SourceMQTT      = "mqtt"
)

// Config holds the configuration parsed from the `server:` section of the
// config file.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the page, WebSocket endpoint and REST API listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	Log       LogConfig       `yaml:"log"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LogConfig controls the process-wide slog logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error. Reloadable.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// WebSocketConfig tunes per-connection behaviour of the hub.
type WebSocketConfig struct {
	// SendBuffer is the per-client outgoing frame buffer depth. A client whose
	// buffer is full when a frame is sent is disconnected.
	SendBuffer int `yaml:"send_buffer"`

	// WriteTimeout is the deadline for a single frame write to a client.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PongWait is how long to wait for a pong before treating the peer as dead.
	// Pings are sent every 9/10 of PongWait.
	PongWait time.Duration `yaml:"pong_wait"`

	// ReadLimit caps the size of inbound frames, which are discarded anyway.
	ReadLimit int64 `yaml:"read_limit"`
}

// BroadcastConfig controls the tick loop and the simulated sensor.
type BroadcastConfig struct {
	// Interval is the period between ticks (default 1s). Reloadable.
	Interval time.Duration `yaml:"interval"`

	// Step is the simulated azimuth increment per tick.
	Step float64 `yaml:"step"`

	// InitialAzimuth is the simulated azimuth before the first tick.
	InitialAzimuth float64 `yaml:"initial_azimuth"`

	// Elevation is the constant simulated elevation.
	Elevation float64 `yaml:"elevation"`
}

// SensorConfig selects where samples come from.
type SensorConfig struct {
	// Source is one of: simulated | mqtt.
	Source string `yaml:"source"`

	// MaxAge is how old an external reading may be and still be broadcast.
	// Zero disables the check.
	MaxAge time.Duration `yaml:"max_age"`

	MQTT MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig configures the optional MQTT position feed.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
	Username string `yaml:"username"`

	// PasswordEnv is the name of the environment variable that holds the broker password.
	PasswordEnv string `yaml:"password_env"`
}

// Password returns the broker password resolved from the environment.
func (m MQTTConfig) Password() string {
	if m.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(m.PasswordEnv)
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data on top of the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values. It is what the
// server runs with when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Log: LogConfig{
				Level:  "info",
				Format: "json",
			},
			WebSocket: WebSocketConfig{
				SendBuffer:   DefaultSendBuffer,
				WriteTimeout: DefaultWriteTimeout,
				PongWait:     DefaultPongWait,
				ReadLimit:    DefaultReadLimit,
			},
			Broadcast: BroadcastConfig{
				Interval:       DefaultInterval,
				Step:           DefaultStep,
				InitialAzimuth: DefaultInitialAzimuth,
				Elevation:      DefaultElevation,
			},
			Sensor: SensorConfig{
				Source: SourceSimulated,
				MaxAge: DefaultSensorMaxAge,
				MQTT: MQTTConfig{
					Broker:   DefaultMQTTBroker,
					Topic:    DefaultMQTTTopic,
					ClientID: DefaultMQTTClientID,
				},
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    DefaultMetricsPath,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("server.log.level %q unknown: want debug|info|warn|error", s.Log.Level)
	}
	switch s.Log.Format {
	case "json", "text", "":
	default:
		return fmt.Errorf("server.log.format %q unknown: want json|text", s.Log.Format)
	}
	if s.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("server.websocket.send_buffer must be positive")
	}
	if s.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("server.websocket.write_timeout must be positive")
	}
	if s.WebSocket.PongWait < MinPongWait {
		return fmt.Errorf("server.websocket.pong_wait %v is below the minimum %v", s.WebSocket.PongWait, MinPongWait)
	}
	if s.WebSocket.ReadLimit <= 0 {
		return fmt.Errorf("server.websocket.read_limit must be positive")
	}
	if s.Broadcast.Interval <= 0 {
		return fmt.Errorf("server.broadcast.interval must be positive")
	}
	for name, v := range map[string]float64{
		"step":            s.Broadcast.Step,
		"initial_azimuth": s.Broadcast.InitialAzimuth,
		"elevation":       s.Broadcast.Elevation,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("server.broadcast.%s must be a finite number, got %v", name, v)
		}
	}
	switch s.Sensor.Source {
	case SourceSimulated:
	case SourceMQTT:
		if s.Sensor.MQTT.Broker == "" {
			return fmt.Errorf("server.sensor.mqtt.broker is required when source is mqtt")
		}
		if s.Sensor.MQTT.Topic == "" {
			return fmt.Errorf("server.sensor.mqtt.topic is required when source is mqtt")
		}
		if s.Sensor.MQTT.QoS > 2 {
			return fmt.Errorf("server.sensor.mqtt.qos %d is out of range [0, 2]", s.Sensor.MQTT.QoS)
		}
	default:
		return fmt.Errorf("server.sensor.source %q unknown: want simulated|mqtt", s.Sensor.Source)
	}
	if s.Sensor.MaxAge < 0 {
		return fmt.Errorf("server.sensor.max_age must not be negative")
	}
	if s.Metrics.Enabled && !strings.HasPrefix(s.Metrics.Path, "/") {
		return fmt.Errorf("server.metrics.path %q must start with /", s.Metrics.Path)
	}
	if s.Metrics.Enabled {
		switch p := s.Metrics.Path; {
		case p == "/", p == "/ws", strings.HasPrefix(p, "/api/"):
			return fmt.Errorf("server.metrics.path %q collides with a built-in route", p)
		}
	}
	return nil
}
