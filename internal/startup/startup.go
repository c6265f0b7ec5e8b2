package startup

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"media-compressor/internal/logging"
	"media-compressor/internal/transcoder"

	"github.com/shirou/gopsutil/v4/mem"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
	OS        string
	Arch      string
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// bytesPerWorker is a rough peak for one HD transcode.
const bytesPerWorker = 512 << 20

// LogConfig prints the banner, host information and the effective settings.
func LogConfig(cfg *Config, workers int) {
	printBanner()
	logSystemInfo(workers)

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  QUALITY:           %d", cfg.Quality)
	logging.Info("  OUTPUT_DIR:        %s", orDefault(cfg.OutputDir, "(next to input)"))
	logging.Info("  OUTPUT_SUFFIX:     %s", cfg.Suffix)
	logging.Info("  WORKERS:           %d", workers)
	if cfg.MaxFiles < 0 {
		logging.Info("  MAX_FILES:         unlimited")
	} else {
		logging.Info("  MAX_FILES:         %d", cfg.MaxFiles)
	}
	logging.Info("  METRICS_FILE:      %s", orDefault(cfg.MetricsFile, "(disabled)"))
	logging.Info("  WATCH_DIR:         %s", orDefault(cfg.WatchDir, "(disabled)"))
	logging.Info("  VERIFY:            %v", cfg.Verify)
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())
	if len(cfg.Files) > 0 {
		logging.Info("  Files:             %d", len(cfg.Files))
	}
	logging.Info("")
}

// LogCapabilities reports which encoders and image backends are usable.
func LogCapabilities(caps []transcoder.Capability, vips bool) {
	logging.Info("------------------------------------------------------------")
	logging.Info("ENCODERS")
	logging.Info("------------------------------------------------------------")
	for _, c := range caps {
		logging.Info("  %-6s %-8s %s", c.Role, c.Name, availableString(c.Available))
	}
	if vips {
		logging.Info("  image  libvips  %s", availableString(true))
	} else {
		logging.Info("  image  imaging  %s (libvips unavailable, WebP output disabled)", availableString(true))
	}
	logging.Info("")
}

// PrintCapabilities writes the encoder table to stdout for -codecs.
func PrintCapabilities(caps []transcoder.Capability, vips bool) {
	for _, c := range caps {
		fmt.Printf("%-6s %-8s %s\n", c.Role, c.Name, availableString(c.Available))
	}
	fmt.Printf("%-6s %-8s %s\n", "image", "libvips", availableString(vips))
}

// LogShutdownInitiated logs the start of graceful shutdown
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (signal: %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownComplete logs successful shutdown
func LogShutdownComplete() {
	logging.Info("Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   __  __          _ _
  |  \/  | ___  __| (_) __ _
  | |\/| |/ _ \/ _  | |/ _  |
  | |  | |  __/ (_| | | (_| |   c o m p r e s s o r
  |_|  |_|\___|\__,_|_|\__,_|

------------------------------------------------------------`
	fmt.Fprintln(os.Stderr, banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo(workers int) {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		logging.Info("  Memory:          %s available of %s", formatBytes(int64(vm.Available)), formatBytes(int64(vm.Total)))
		if need := uint64(workers) * bytesPerWorker; workers > 1 && vm.Available < need {
			logging.Warn("  %d workers may need about %s; consider fewer", workers, formatBytes(int64(need)))
		}
	} else {
		logging.Debug("  Memory:          unavailable (%v)", err)
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func availableString(ok bool) string {
	if ok {
		return "AVAILABLE"
	}
	return "MISSING"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
