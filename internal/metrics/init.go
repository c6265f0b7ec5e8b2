package metrics

import (
	"media-compressor/internal/mediatypes"
	"media-compressor/internal/transcoder"
)

// ResultSuccess is the result label of a successful job.
const ResultSuccess = "success"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first write.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, kind := range mediatypes.AllKinds {
		k := kind.String()
		JobsTotal.WithLabelValues(k, ResultSuccess)
		for _, ek := range mediatypes.AllErrorKinds {
			JobsTotal.WithLabelValues(k, ek.String())
		}
		JobDuration.WithLabelValues(k)
		InputBytesTotal.WithLabelValues(k)
		OutputBytesTotal.WithLabelValues(k)
		CompressionRatio.WithLabelValues(k)
		FramesEncodedTotal.WithLabelValues(k)
	}

	for _, result := range []string{"succeeded", "failed"} {
		BatchLastFiles.WithLabelValues(result)
	}

	for _, step := range transcoder.Steps {
		TranscoderStepFailures.WithLabelValues(step)
	}

	for _, event := range []string{"create", "write", "rename", "remove"} {
		WatcherEventsTotal.WithLabelValues(event)
	}
}
