// Package ws implements the WebSocket transport endpoint of rotator-server.
//
// Hub owns the connection registry: a map from a random per-session id to the
// session's runtime handle, guarded by an RWMutex and mutated only by the
// hub's own connect/disconnect paths.
//
// New(opts, metrics) creates a Hub.
// Hub.ServeHTTP upgrades a GET request to WebSocket, registers the session,
// and discards anything the client sends. Nothing is sent on connect.
// Hub.List() returns a snapshot of open ids; Hub.Send(id, frame) queues one
// text frame without waiting for the network. Send reports ErrConnectionGone
// for ids that are no longer open and ErrSendFailed (disconnecting the client)
// when the per-client buffer is full.
// Hub.Close() disconnects everyone; List fails with ErrHubClosed afterwards.
//
// The upgrader accepts all origins. The endpoint is mounted at /ws.
package ws
