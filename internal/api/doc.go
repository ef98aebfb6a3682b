// Package api implements the gateway's read-only HTTP status API.
//
// This package provides:
//   - Health and runtime status of the gateway process
//   - The current mood of every known city
//   - Recent lookups served for a city, from the history database
//   - Prometheus metrics at /metrics
//   - A WebSocket feed of mood updates and published replies at /api/v1/ws
//
// # Graceful Degradation
//
// History and metrics are optional. Without a history database the
// history endpoint answers 503; everything else keeps working.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
