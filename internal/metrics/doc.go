// Package metrics provides Prometheus instrumentation for media-compressor.
//
// All metrics are prefixed with "media_compressor_" and registered on the
// default registry through promauto. There is no HTTP endpoint: a batch run
// is short lived, so metrics are written to a file in the text exposition
// format (WriteTextfile) for node_exporter's textfile collector to pick up.
//
// # Metric Categories
//
// ## Job Metrics
//
//   - JobsTotal: Counter of jobs by media kind and result (success or error kind)
//   - JobDuration: Histogram of job duration by media kind
//   - JobsInProgress: Gauge of running jobs
//   - InputBytesTotal, OutputBytesTotal: Counters of bytes for successful jobs
//   - CompressionRatio: Histogram of output/input size
//   - FramesEncodedTotal: Counter of frames written
//
// ## Batch Metrics
//
//   - BatchesTotal, BatchDuration, BatchLastTimestamp
//   - BatchLastFiles: Gauge of succeeded and failed files in the last batch
//   - Workers: Gauge of the configured pool size
//
// ## Transcoder Metrics
//
//   - TranscoderStepFailures: Counter of setup failures by open step
//   - TranscoderFramesDropped: Counter of frames skipped by decimation
//   - TranscoderAudioDropped: Counter of jobs that lost their audio track
//
// ## Watcher Metrics
//
//   - WatcherEventsTotal, WatcherErrors, WatchedDirectories
//
// ## Process Metrics
//
// Sampled by Collector on an interval:
//   - MemoryHeapBytes, Goroutines
//   - HostMemoryAvailableBytes (gopsutil)
//
// # Usage
//
//	metrics.InitializeMetrics()
//	r := runner.New(proc, cfg, metrics.NewObserver("/var/lib/node_exporter/media_compressor.prom"))
//
// InitializeMetrics pre-populates label combinations so every series appears
// in the first export.
package metrics
