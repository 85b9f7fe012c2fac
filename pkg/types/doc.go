// Package types defines shared Go types used by the server packages.
// Sample is the canonical in-memory orientation reading and also owns its
// JSON wire encoding, so the broadcaster and the sensor feed agree on shape.
package types
