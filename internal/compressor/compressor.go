package compressor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"media-compressor/internal/logging"
	"media-compressor/internal/media"
	"media-compressor/internal/mediatypes"
	"media-compressor/internal/metrics"
	"media-compressor/internal/runner"
	"media-compressor/internal/transcoder"
)

// Pipeline transcodes video and animated-image jobs.
type Pipeline interface {
	Transcode(ctx context.Context, req transcoder.Request) (*transcoder.Stats, error)
}

// StillEncoder re-encodes a still image.
type StillEncoder func(input, output string, q int) (*media.ImageResult, error)

// Inspector reads back a finished output.
type Inspector func(ctx context.Context, path string) (*transcoder.Report, error)

// Options tunes a Compressor.
type Options struct {
	// Verify re-reads pipeline outputs and fails jobs whose timestamps go backwards.
	Verify bool
}

// Compressor is the runner.Processor that routes a job by media kind and
// owns its output file: the parent directory is created up front and a
// partial file is removed when the job fails.
type Compressor struct {
	pipeline Pipeline
	still    StillEncoder
	inspect  Inspector
	opts     Options
}

// New creates a Compressor around pipeline, using media.CompressImage for
// still images and transcoder.Inspect for verification.
func New(pipeline Pipeline, opts Options) *Compressor {
	return &Compressor{
		pipeline: pipeline,
		still:    media.CompressImage,
		inspect:  transcoder.Inspect,
		opts:     opts,
	}
}

// Process implements runner.Processor.
func (c *Compressor) Process(ctx context.Context, job *runner.Job) (runner.Outcome, error) {
	var out runner.Outcome

	if job.Kind == mediatypes.KindUnsupported {
		return out, mediatypes.Errorf(mediatypes.ErrUnsupportedMedia, "classify", job.Input,
			"unrecognized extension %q", filepath.Ext(job.Input))
	}

	info, err := os.Stat(job.Input)
	if err != nil {
		return out, mediatypes.NewError(mediatypes.ErrOpenFailure, "stat input", job.Input, err)
	}
	if info.IsDir() {
		return out, mediatypes.Errorf(mediatypes.ErrOpenFailure, "stat input", job.Input, "is a directory")
	}
	out.InputBytes = info.Size()

	if samePath(job.Input, job.Output) {
		return out, mediatypes.Errorf(mediatypes.ErrIOFailure, "prepare output", job.Output,
			"output would overwrite the input")
	}
	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		return out, mediatypes.NewError(mediatypes.ErrIOFailure, "create output directory", job.Output, err)
	}

	if err := c.dispatch(ctx, job, &out); err != nil {
		removePartial(job.Output)
		return out, err
	}

	outInfo, err := os.Stat(job.Output)
	if err != nil {
		return out, mediatypes.NewError(mediatypes.ErrIOFailure, "stat output", job.Output, err)
	}
	out.OutputBytes = outInfo.Size()
	return out, nil
}

func (c *Compressor) dispatch(ctx context.Context, job *runner.Job, out *runner.Outcome) error {
	if job.Kind == mediatypes.KindStillImage {
		if err := ctx.Err(); err != nil {
			return mediatypes.NewError(mediatypes.ErrCanceled, "compress image", job.Input, err)
		}
		res, err := c.still(job.Input, job.Output, job.Quality)
		if err != nil {
			return err
		}
		out.Encoder = res.Encoder
		out.Frames = 1
		return nil
	}

	stats, err := c.pipeline.Transcode(ctx, transcoder.Request{
		Input:   job.Input,
		Output:  job.Output,
		Kind:    job.Kind,
		Quality: job.Quality,
		JobID:   job.ID,
	})
	if err != nil {
		return err
	}
	out.Encoder = stats.VideoEncoder
	out.Frames = stats.FramesEncoded
	if stats.Scaled {
		logging.Debug("%s: scaled %dx%d -> %dx%d", job.Input, stats.Input.Width, stats.Input.Height, stats.Width, stats.Height)
	}
	metrics.TranscoderFramesDropped.Add(float64(stats.FramesDropped))
	if stats.AudioDropped {
		metrics.TranscoderAudioDropped.Inc()
		logging.Warn("%s: audio could not be carried over, output is video only", job.Input)
	}

	if c.opts.Verify {
		return c.verify(ctx, job.Output)
	}
	return nil
}

func (c *Compressor) verify(ctx context.Context, path string) error {
	report, err := c.inspect(ctx, path)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !report.Monotonic {
		return mediatypes.Errorf(mediatypes.ErrTranscodeFailure, "verify", path,
			"timestamps go backwards: %s", strings.Join(report.Violations, "; "))
	}
	logging.Debug("Verified %s: %s, %v, %d streams", path, report.Format, report.Duration, len(report.Streams))
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// removePartial deletes whatever a failed job left behind.
func removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("failed to remove partial output %s: %v", path, err)
		return
	}
	logging.Debug("Removed partial output %s", path)
}
