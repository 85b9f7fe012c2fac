// Package sensor provides the sample sources the broadcaster pulls from.
//
// Simulator advances azimuth by a fixed step per call and resets it to 0
// once the incremented value reaches 360; elevation stays constant.
// Latest serves the newest fresh reading from a store fed by an external
// sensor (see package receiver), failing with ErrNoReading otherwise.
package sensor
