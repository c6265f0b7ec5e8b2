package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"media-compressor/internal/logging"
	"media-compressor/internal/quality"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsThreshold returns the lowest vips level forwarded at the current
// application log level.
func vipsThreshold(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelWarn:
		return vips.LogLevelError
	case logging.LevelError:
		return vips.LogLevelCritical
	default:
		return vips.LogLevelWarning
	}
}

func vipsLogHandler(domain string, level vips.LogLevel, msg string) {
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// InitVips initializes the libvips library
// This should be called once at startup
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Logging must be configured before Startup
	vips.LoggingSettings(vipsLogHandler, vipsThreshold(logging.GetLevel()))

	// One image at a time; jobs already run on their own workers
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// compressWithVips re-encodes input into output in the format named by ext.
func compressWithVips(input, output, ext string, p quality.StillParameters) (*ImageResult, error) {
	ref, err := vips.LoadImageFromFile(input, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		logging.Debug("vips auto-rotate skipped for %s: %v", filepath.Base(input), err)
	}

	var buf []byte
	switch ext {
	case ".jpg", ".jpeg":
		params := vips.NewJpegExportParams()
		params.Quality = p.JPEGQuality
		params.OptimizeCoding = true
		params.StripMetadata = true
		buf, _, err = ref.ExportJpeg(params)
	case ".png":
		params := vips.NewPngExportParams()
		params.Compression = p.PNGCompression
		params.StripMetadata = true
		buf, _, err = ref.ExportPng(params)
	case ".webp":
		params := vips.NewWebpExportParams()
		params.Quality = p.WebPQuality
		params.StripMetadata = true
		buf, _, err = ref.ExportWebp(params)
	default:
		return nil, fmt.Errorf("vips cannot export %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	if err := os.WriteFile(output, buf, 0o644); err != nil {
		return nil, err
	}

	logging.Debug("vips compressed %s: %dx%d, %d bytes", filepath.Base(input), ref.Width(), ref.Height(), len(buf))
	return &ImageResult{Width: ref.Width(), Height: ref.Height(), Encoder: EncoderVips}, nil
}
