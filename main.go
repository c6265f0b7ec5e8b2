package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-compressor/internal/compressor"
	"media-compressor/internal/logging"
	"media-compressor/internal/media"
	"media-compressor/internal/metrics"
	"media-compressor/internal/progress"
	"media-compressor/internal/runner"
	"media-compressor/internal/startup"
	"media-compressor/internal/transcoder"
	"media-compressor/internal/watcher"
	"media-compressor/internal/workers"
)

func main() {
	os.Exit(run())
}

func run() int {
	config, err := startup.LoadConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return 2
	}
	if config.ShowVersion {
		info := startup.GetBuildInfo()
		fmt.Printf("media-compressor %s (%s, %s %s/%s)\n", info.Version, info.Commit, info.GoVersion, info.OS, info.Arch)
		return 0
	}

	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, falling back to imaging: %v", err)
	}
	defer media.ShutdownVips()

	trans := transcoder.New()
	if config.ShowCaps {
		startup.PrintCapabilities(transcoder.Capabilities(), media.IsVipsAvailable())
		return 0
	}

	numWorkers := workers.Resolve(config.Workers, 0)
	startup.LogConfig(config, numWorkers)
	startup.LogCapabilities(transcoder.Capabilities(), media.IsVipsAvailable())

	metrics.InitializeMetrics()
	info := startup.GetBuildInfo()
	metrics.SetAppInfo(info.Version, info.Commit, info.GoVersion)
	metrics.Workers.Set(float64(numWorkers))

	collector := metrics.NewCollector(5 * time.Second)
	collector.Start()
	defer collector.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(
		compressor.New(trans, compressor.Options{Verify: config.Verify}),
		runner.Config{
			Workers:   numWorkers,
			MaxFiles:  config.MaxFiles,
			Suffix:    config.Suffix,
			OutputDir: config.OutputDir,
		},
		progress.New(os.Stderr),
		metrics.NewObserver(config.MetricsFile),
	)
	r.Start(ctx)

	batches := submitFiles(r, config)

	var watchErr error
	if config.WatchDir != "" {
		w := watcher.New(watcher.Config{
			Dir:      config.WatchDir,
			Quality:  config.Quality,
			Suffix:   config.Suffix,
			MaxFiles: config.MaxFiles,
		}, r)
		watchErr = w.Run(ctx)
		if watchErr != nil {
			logging.Error("Watch failed: %v", watchErr)
		} else {
			startup.LogShutdownInitiated("interrupt")
		}
		batches = append(batches, w.Batches()...)
	}

	// waits for every queued batch; cancellation makes the rest fail fast
	r.Stop()

	failed := 0
	for _, b := range batches {
		failed += b.Summary().Failed
	}
	if config.WatchDir != "" {
		startup.LogShutdownComplete()
	}
	if failed > 0 || watchErr != nil {
		return 1
	}
	return 0
}

// submitFiles queues the positional arguments, split by the batch limit.
func submitFiles(r *runner.Runner, config *startup.Config) []*runner.Batch {
	items := make([]runner.Item, len(config.Files))
	for i, f := range config.Files {
		items[i] = runner.Item{Input: f}
	}

	var batches []*runner.Batch
	for _, chunk := range runner.Split(items, config.MaxFiles) {
		b, err := r.Submit(chunk, config.Quality)
		if err != nil {
			logging.Error("Failed to submit %d files: %v", len(chunk), err)
			continue
		}
		batches = append(batches, b)
	}
	return batches
}
