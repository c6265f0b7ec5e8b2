package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_compressor_jobs_total",
			Help: "Total number of compression jobs by media kind and result",
		},
		[]string{"kind", "result"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_compressor_job_duration_seconds",
			Help:    "Compression job duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_compressor_jobs_in_progress",
			Help: "Number of jobs currently running",
		},
	)

	InputBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_compressor_input_bytes_total",
			Help: "Bytes read from inputs of successful jobs",
		},
		[]string{"kind"},
	)

	OutputBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_compressor_output_bytes_total",
			Help: "Bytes written to outputs of successful jobs",
		},
		[]string{"kind"},
	)

	CompressionRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_compressor_compression_ratio",
			Help:    "Output size divided by input size for successful jobs",
			Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1, 1.25, 1.5},
		},
		[]string{"kind"},
	)

	FramesEncodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_compressor_frames_encoded_total",
			Help: "Frames written by successful jobs",
		},
		[]string{"kind"},
	)
)

// Batch metrics
var (
	BatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_compressor_batches_total",
			Help: "Total number of completed batches",
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_compressor_batch_duration_seconds",
			Help:    "Batch duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 1800},
		},
	)

	BatchLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_compressor_batch_last_timestamp",
			Help: "Unix timestamp of the last completed batch",
		},
	)

	BatchLastFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_compressor_batch_last_files",
			Help: "Files in the last completed batch by result",
		},
		[]string{"result"},
	)

	Workers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_compressor_workers",
			Help: "Number of jobs a batch may run at once",
		},
	)
)

// Transcoder metrics
var (
	TranscoderStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_compressor_transcoder_step_failures_total",
			Help: "Pipeline setup failures by step",
		},
		[]string{"step"},
	)

	TranscoderFramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_compressor_transcoder_frames_dropped_total",
			Help: "Decoded frames skipped by decimation",
		},
	)

	TranscoderAudioDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_compressor_transcoder_audio_dropped_total",
			Help: "Jobs whose audio could not be carried into the output",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_compressor_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_compressor_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_compressor_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Process metrics, sampled by Collector
var (
	MemoryHeapBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_compressor_memory_heap_bytes",
			Help: "Go heap bytes in use",
		},
	)

	HostMemoryAvailableBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_compressor_host_memory_available_bytes",
			Help: "Memory available on the host",
		},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_compressor_goroutines",
			Help: "Number of goroutines",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_compressor_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
