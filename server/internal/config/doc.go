// Package config loads the server configuration from the `server:` section
// of a YAML file.
//
// Config fields:
//   - HTTPPort            — port for the page, /ws and the REST API (default 8080)
//   - Log.Level/Format    — slog level (reloadable) and handler (json|text)
//   - WebSocket.*         — per-client send buffer, write timeout, pong wait, read limit
//   - Broadcast.Interval  — tick period (default 1s, reloadable)
//   - Broadcast.Step      — simulated azimuth increment (default 5)
//   - Sensor.Source       — "simulated" or "mqtt"; MQTT.* configures the feed
//   - Metrics.Enabled/Path — Prometheus exposition endpoint (default /metrics)
//
// Load(path) applies defaults before unmarshalling, then validates. Default()
// is used when the server is started without a config file.
//
// Watch(ctx, path, onChange) uses fsnotify to reload the file whenever it is
// written and hands the new Config to onChange.
package config
