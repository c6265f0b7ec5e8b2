// Package logging provides a simple leveled logging interface for
// media-compressor.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information, including libav and libvips output
//   - INFO: Job start and finish lines, batch summaries
//   - WARN: Degraded jobs (audio dropped, encoder fallback)
//   - ERROR: Failed jobs
//   - FATAL: Startup errors that terminate the process
//
// The level comes from the DEBUG or LOG_LEVEL environment variables and can be
// overridden with SetLevel (the -log-level flag). For returns a Scoped logger
// that tags every line with a job id.
package logging
