// Package logging provides structured logging utilities shared by all
// imgvault components.
//
// It wraps the standard library slog package with project defaults: JSON
// output to stderr, environment-based log level configuration (LOG_LEVEL),
// module/version context injection, and source location tracking for debug
// logs.
//
// Setting the default logger (recommended):
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("imgvault", version)
//
//	    slog.Info("processing image", "image", "alpine", "tag", "3.18")
//	}
//
// The LOG_LEVEL environment variable controls verbosity (debug, info, warn,
// error; case-insensitive). If unset, INFO is used.
package logging
