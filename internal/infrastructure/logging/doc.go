// Package logging provides structured logging for Roofwatch Core.
//
// It wraps log/slog so every component logs the same way:
//
//   - JSON output for production, text output for development
//   - Default fields (service, version) on every entry
//   - Level-based filtering (debug, info, warn, error)
//
// Configured from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log bearer tokens, CSRF tokens or passwords. Identity ids and
// request ids are fine.
package logging
