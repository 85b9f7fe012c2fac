// Package broadcast drives the periodic position broadcast.
//
// Broadcaster.Run ticks on a clockwork ticker. Each Tick pulls one sample from
// a sensor.Source, encodes it once, takes a snapshot of open connections from
// the Transport and queues the same frame on each of them. Per-connection
// failures are counted in the returned Round and in metrics; they never stop
// the round or the loop. A connection opened after the snapshot is taken
// first hears from the next tick.
//
// SetInterval retunes a running loop, used by config hot reload.
package broadcast
