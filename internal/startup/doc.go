// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// Defaults come from the environment ([DefaultConfig]) and command-line
// flags override them ([ParseFlags]):
//
//   - QUALITY / -quality, -q: 1-100 (default: 50)
//   - OUTPUT_DIR / -output-dir, -o: write outputs here instead of next to the input
//   - OUTPUT_SUFFIX / -suffix: inserted before the extension (default: _compressed)
//   - COMPRESS_WORKERS / -workers: jobs run at once (default: 1)
//   - MAX_FILES / -max-files: files per batch, negative for no limit (default: 10)
//   - METRICS_FILE / -metrics-file: Prometheus textfile written after each batch
//   - WATCH_DIR / -watch: keep running and compress files that appear in a directory
//   - VERIFY / -verify: re-read video outputs and check timestamps
//   - LOG_LEVEL / -log-level: debug, info, warn, error (default: info)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//
// Example:
//
//	go build -ldflags "-X media-compressor/internal/startup.Version=1.0.0"
package startup
