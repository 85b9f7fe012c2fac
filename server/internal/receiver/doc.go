// Package receiver implements the optional MQTT position feed. It subscribes
// to one topic, validates each payload as a {"azimuth","elevation"} JSON
// object with finite numbers, and stores accepted readings for the
// broadcaster to pick up on its next tick.
package receiver
