package compressor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"media-compressor/internal/media"
	"media-compressor/internal/mediatypes"
	"media-compressor/internal/runner"
	"media-compressor/internal/transcoder"
)

// fakePipeline writes a few bytes, then returns err.
type fakePipeline struct {
	calls []transcoder.Request
	err   error
	stats transcoder.Stats
}

func (f *fakePipeline) Transcode(ctx context.Context, req transcoder.Request) (*transcoder.Stats, error) {
	f.calls = append(f.calls, req)
	if werr := os.WriteFile(req.Output, []byte("partial"), 0o644); werr != nil {
		return nil, werr
	}
	if f.err != nil {
		return nil, f.err
	}
	stats := f.stats
	return &stats, nil
}

func newJob(input, output string, q int) *runner.Job {
	return &runner.Job{
		ID:      "job-1",
		Input:   input,
		Output:  output,
		Kind:    mediatypes.Classify(input),
		Quality: q,
	}
}

func writeInput(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProcessRoutesByKind(t *testing.T) {
	tmpDir := t.TempDir()
	video := filepath.Join(tmpDir, "clip.mp4")
	anim := filepath.Join(tmpDir, "loop.gif")
	still := filepath.Join(tmpDir, "cat.jpg")
	for _, p := range []string{video, anim, still} {
		writeInput(t, p, 1000)
	}

	pipe := &fakePipeline{stats: transcoder.Stats{VideoEncoder: "libx264", FramesEncoded: 42}}
	c := New(pipe, Options{})
	var stillCalls int
	c.still = func(input, output string, q int) (*media.ImageResult, error) {
		stillCalls++
		return &media.ImageResult{Width: 10, Height: 10, Encoder: media.EncoderImaging},
			os.WriteFile(output, []byte("jpg"), 0o644)
	}

	out, err := c.Process(context.Background(), newJob(video, filepath.Join(tmpDir, "clip_c.mp4"), 50))
	if err != nil {
		t.Fatalf("video: %v", err)
	}
	if out.Encoder != "libx264" || out.Frames != 42 || out.InputBytes != 1000 || out.OutputBytes != int64(len("partial")) {
		t.Errorf("video outcome = %+v", out)
	}

	if _, err := c.Process(context.Background(), newJob(anim, filepath.Join(tmpDir, "loop_c.gif"), 20)); err != nil {
		t.Fatalf("animated: %v", err)
	}
	if len(pipe.calls) != 2 || pipe.calls[1].Kind != mediatypes.KindAnimatedImage || pipe.calls[1].Quality != 20 {
		t.Errorf("pipeline calls = %+v", pipe.calls)
	}

	out, err = c.Process(context.Background(), newJob(still, filepath.Join(tmpDir, "cat_c.jpg"), 70))
	if err != nil {
		t.Fatalf("still: %v", err)
	}
	if stillCalls != 1 || out.Encoder != media.EncoderImaging || out.Frames != 1 {
		t.Errorf("still outcome = %+v, calls = %d", out, stillCalls)
	}
	if len(pipe.calls) != 2 {
		t.Error("still image must not reach the pipeline")
	}
}

func TestProcessFailures(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "clip.mp4")
	writeInput(t, input, 10)

	tests := []struct {
		name string
		job  *runner.Job
		want mediatypes.ErrorKind
	}{
		{
			name: "unsupported extension",
			job:  newJob(filepath.Join(tmpDir, "notes.txt"), filepath.Join(tmpDir, "x.txt"), 50),
			want: mediatypes.ErrUnsupportedMedia,
		},
		{
			name: "missing input",
			job:  newJob(filepath.Join(tmpDir, "missing.mp4"), filepath.Join(tmpDir, "out.mp4"), 50),
			want: mediatypes.ErrOpenFailure,
		},
		{
			name: "output equals input",
			job:  newJob(input, input, 50),
			want: mediatypes.ErrIOFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipe := &fakePipeline{}
			_, err := New(pipe, Options{}).Process(context.Background(), tt.job)
			if got := mediatypes.KindOf(err); got != tt.want {
				t.Errorf("error kind = %v, want %v (err %v)", got, tt.want, err)
			}
			if len(pipe.calls) != 0 {
				t.Error("pipeline should not run")
			}
		})
	}
}

func TestProcessRemovesPartialOutput(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "clip.mp4")
	output := filepath.Join(tmpDir, "nested", "dir", "clip_c.mp4")
	writeInput(t, input, 10)

	pipe := &fakePipeline{err: mediatypes.Errorf(mediatypes.ErrTranscodeFailure, "encode", input, "rejected frame")}
	_, err := New(pipe, Options{}).Process(context.Background(), newJob(input, output, 50))
	if mediatypes.KindOf(err) != mediatypes.ErrTranscodeFailure {
		t.Fatalf("error = %v", err)
	}
	if _, statErr := os.Stat(output); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("partial output still present: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Dir(output)); statErr != nil {
		t.Errorf("output directory was not created: %v", statErr)
	}
}

func TestProcessVerify(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "clip.mp4")
	output := filepath.Join(tmpDir, "clip_c.mp4")
	writeInput(t, input, 10)

	tests := []struct {
		name    string
		report  *transcoder.Report
		wantErr bool
	}{
		{"monotonic", &transcoder.Report{Monotonic: true}, false},
		{"backwards", &transcoder.Report{Monotonic: false, Violations: []string{"stream 0: 9 -> 3"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakePipeline{}, Options{Verify: true})
			c.inspect = func(ctx context.Context, path string) (*transcoder.Report, error) {
				return tt.report, nil
			}
			_, err := c.Process(context.Background(), newJob(input, output, 50))
			if tt.wantErr {
				if mediatypes.KindOf(err) != mediatypes.ErrTranscodeFailure {
					t.Errorf("error = %v, want transcode failure", err)
				}
				if _, statErr := os.Stat(output); !errors.Is(statErr, os.ErrNotExist) {
					t.Error("unverified output should be removed")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestProcessCanceledStillImage(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "cat.png")
	writeInput(t, input, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(&fakePipeline{}, Options{})
	c.still = func(input, output string, q int) (*media.ImageResult, error) {
		t.Error("encoder should not run after cancel")
		return nil, nil
	}
	_, err := c.Process(ctx, newJob(input, filepath.Join(tmpDir, "cat_c.png"), 50))
	if mediatypes.KindOf(err) != mediatypes.ErrCanceled {
		t.Errorf("error = %v, want canceled", err)
	}
}

func TestProcessRealStillImage(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping image encode in short mode")
	}

	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "gradient.png")
	img := image.NewRGBA(image.Rect(0, 0, 128, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 128; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 2), G: uint8(y * 2), B: uint8(x ^ y), A: 255})
		}
	}
	f, err := os.Create(input)
	if err != nil {
		t.Fatal(err)
	}
	if err := (&png.Encoder{CompressionLevel: png.NoCompression}).Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	output := mediatypes.OutputPath(input, mediatypes.KindStillImage, "", filepath.Join(tmpDir, "out"))
	out, err := New(&fakePipeline{}, Options{}).Process(context.Background(), newJob(input, output, 10))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.OutputBytes == 0 || out.OutputBytes >= out.InputBytes {
		t.Errorf("output %d bytes, input %d bytes", out.OutputBytes, out.InputBytes)
	}
}
