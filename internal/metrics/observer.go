package metrics

import (
	"time"

	"media-compressor/internal/logging"
	"media-compressor/internal/runner"
	"media-compressor/internal/transcoder"

	"github.com/prometheus/client_golang/prometheus"
)

// jobObserver implements runner.Observer using the Prometheus metrics
// declared in this package.
type jobObserver struct {
	textfile string
}

// NewObserver creates an observer that records job and batch metrics. When
// textfile is set, the default registry is written there after every batch.
func NewObserver(textfile string) runner.Observer {
	return &jobObserver{textfile: textfile}
}

func (o *jobObserver) JobStarted(_ *runner.Job) {
	JobsInProgress.Inc()
}

func (o *jobObserver) JobFinished(p runner.Progress) {
	JobsInProgress.Dec()

	res := p.Result
	kind := res.Kind.String()
	JobDuration.WithLabelValues(kind).Observe(res.Duration.Seconds())

	if res.State != runner.StateSucceeded {
		JobsTotal.WithLabelValues(kind, res.ErrorKind.String()).Inc()
		if step, ok := transcoder.FailedStep(res.Err); ok {
			TranscoderStepFailures.WithLabelValues(step).Inc()
		}
		return
	}

	JobsTotal.WithLabelValues(kind, ResultSuccess).Inc()
	InputBytesTotal.WithLabelValues(kind).Add(float64(res.InputBytes))
	OutputBytesTotal.WithLabelValues(kind).Add(float64(res.OutputBytes))
	FramesEncodedTotal.WithLabelValues(kind).Add(float64(res.Frames))
	if ratio := res.Ratio(); ratio > 0 {
		CompressionRatio.WithLabelValues(kind).Observe(ratio)
	}
}

func (o *jobObserver) BatchFinished(s runner.Summary) {
	BatchesTotal.Inc()
	BatchDuration.Observe(s.Elapsed.Seconds())
	BatchLastTimestamp.Set(float64(time.Now().Unix()))
	BatchLastFiles.WithLabelValues("succeeded").Set(float64(s.Succeeded))
	BatchLastFiles.WithLabelValues("failed").Set(float64(s.Failed))

	if o.textfile == "" {
		return
	}
	if err := WriteTextfile(o.textfile); err != nil {
		logging.Warn("failed to write metrics textfile %s: %v", o.textfile, err)
	}
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
