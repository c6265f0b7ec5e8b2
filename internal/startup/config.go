package startup

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"media-compressor/internal/logging"
	"media-compressor/internal/mediatypes"
	"media-compressor/internal/quality"
	"media-compressor/internal/runner"
)

// DefaultQuality is used when neither QUALITY nor -quality is given.
const DefaultQuality = 50

// ErrNoInput means there was nothing to compress and nothing to watch.
var ErrNoInput = errors.New("no input files and no watch directory")

// Config holds all application configuration
type Config struct {
	Quality     int
	OutputDir   string
	Suffix      string
	Workers     int
	MaxFiles    int
	MetricsFile string
	WatchDir    string
	Verify      bool
	LogLevel    string

	// Files are the positional arguments.
	Files []string

	ShowVersion bool
	ShowCaps    bool
}

// DefaultConfig reads environment defaults. Flags parsed later override them.
func DefaultConfig() *Config {
	return &Config{
		Quality:     getEnvInt("QUALITY", DefaultQuality),
		OutputDir:   getEnv("OUTPUT_DIR", ""),
		Suffix:      getEnv("OUTPUT_SUFFIX", mediatypes.DefaultSuffix),
		Workers:     getEnvInt("COMPRESS_WORKERS", 0),
		MaxFiles:    getEnvInt("MAX_FILES", runner.DefaultMaxFiles),
		MetricsFile: getEnv("METRICS_FILE", ""),
		WatchDir:    getEnv("WATCH_DIR", ""),
		Verify:      getEnvBool("VERIFY", false),
		LogLevel:    getEnv("LOG_LEVEL", ""),
	}
}

// ParseFlags parses args (without the program name) into cfg.
// On -h it prints usage and returns flag.ErrHelp.
func ParseFlags(args []string, cfg *Config, output io.Writer) error {
	fs := flag.NewFlagSet("media-compressor", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { printUsage(fs, output) }

	fs.IntVar(&cfg.Quality, "quality", cfg.Quality, "Quality 1-100; lower means smaller files")
	fs.IntVar(&cfg.Quality, "q", cfg.Quality, "Same as -quality")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Write outputs here instead of next to each input")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "Same as -output-dir")
	fs.StringVar(&cfg.Suffix, "suffix", cfg.Suffix, "Inserted before the extension of output names")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Jobs run at once (0 = sequential or COMPRESS_WORKERS, -1 = one per CPU)")
	fs.IntVar(&cfg.MaxFiles, "max-files", cfg.MaxFiles, "Files per batch, negative for no limit; more are split into several batches")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus metrics here after each batch")
	fs.StringVar(&cfg.WatchDir, "watch", cfg.WatchDir, "Watch a directory and compress new files until interrupted")
	fs.BoolVar(&cfg.Verify, "verify", cfg.Verify, "Re-read video outputs and check their timestamps")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&cfg.ShowCaps, "codecs", false, "List available encoders and exit")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Files = fs.Args()
	return nil
}

// Validate checks ranges and that there is work to do.
func (c *Config) Validate() error {
	if !quality.Valid(c.Quality) {
		return fmt.Errorf("quality %d out of range %d-%d", c.Quality, quality.Min, quality.Max)
	}
	if c.MaxFiles == 0 {
		return errors.New("max-files must be positive, or negative for no limit")
	}
	if c.Suffix == "" {
		return errors.New("suffix must not be empty")
	}
	if c.ShowVersion || c.ShowCaps {
		return nil
	}
	if len(c.Files) == 0 && c.WatchDir == "" {
		return ErrNoInput
	}
	if c.WatchDir != "" {
		info, err := os.Stat(c.WatchDir)
		if err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("watch directory %s is not a directory", c.WatchDir)
		}
	}
	return nil
}

// LoadConfig builds the configuration from the environment and args, applies
// the log level and validates the result.
func LoadConfig(args []string, output io.Writer) (*Config, error) {
	cfg := DefaultConfig()
	if err := ParseFlags(args, cfg, output); err != nil {
		return nil, err
	}
	if cfg.LogLevel != "" {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logging.SetLevel(level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "media-compressor %s\n\n", Version)
	fmt.Fprintln(w, "Usage: media-compressor [flags] FILE...")
	fmt.Fprintln(w, "       media-compressor [flags] -watch DIR")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Video (.mp4 .webm .mkv .avi .mov .flv .m4v) is re-encoded at a lower bit rate,")
	fmt.Fprintln(w, "GIFs are scaled and decimated, JPEG/PNG/WebP are re-encoded.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment: QUALITY, OUTPUT_DIR, OUTPUT_SUFFIX, COMPRESS_WORKERS, MAX_FILES,")
	fmt.Fprintln(w, "METRICS_FILE, WATCH_DIR, VERIFY, LOG_LEVEL, DEBUG")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
