// Package history records every reply the gateway serves in SQLite and
// reads the most recent ones back for the status API.
package history
