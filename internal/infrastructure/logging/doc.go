// Package logging provides structured logging for the Moodcast gateway and
// station.
//
// It wraps log/slog so both processes emit the same fields. Every entry
// carries "service" (moodcast-gateway or moodcast-station) and "version".
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "gateway", version)
//	logger.Info("request served", "city", city, "request_id", id)
//
// Never log the weather API key or broker credentials.
package logging
