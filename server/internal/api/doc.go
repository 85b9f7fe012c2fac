// Package api implements the HTTP REST API for rotator-server.
//
// New(clients, samples) returns an http.Handler that serves:
//
//	GET /api/v1/health  — state, connected clients, completed ticks, last tick time
//	GET /api/v1/sample  — last broadcast sample + generated_at; 404 before the first tick
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Report errors as {"error": "..."}
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
