// Package store holds the most recent sample received from an external
// sensor feed. Readings older than the configured max age are reported as
// absent so a dead feed stops producing broadcasts instead of repeating the
// last position forever.
package store
