// Package page serves the single static page of rotator-server.
//
// The page is embedded at build time. It opens a WebSocket to /ws on the
// same host, draws azimuth on a dial and elevation on a bar clamped to
// -10..90 degrees, and reconnects five seconds after the socket closes.
package page
