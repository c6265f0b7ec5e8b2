package progress

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"media-compressor/internal/mediatypes"
	"media-compressor/internal/runner"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBarString(t *testing.T) {
	if got := bar(1, 4, 8); got != "[##......]" {
		t.Errorf("bar(1,4,8) = %q", got)
	}
	if got := bar(0, 0, 4); got != "[....]" {
		t.Errorf("bar(0,0,4) = %q", got)
	}
}

func TestShorten(t *testing.T) {
	long := strings.Repeat("a", 60) + ".mp4"
	got := shorten(long)
	if len([]rune(got)) != maxNameWidth || !strings.HasSuffix(got, "…") {
		t.Errorf("shorten() = %q", got)
	}
	if shorten("clip.mp4") != "clip.mp4" {
		t.Error("short names should be unchanged")
	}
}

func TestPlainOutputOneLinePerJob(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(&buf, false, 80)

	b.JobFinished(runner.Progress{Completed: 1, Total: 2, Succeeded: 1, Result: runner.Result{
		Input: "/in/clip.mp4",
		State: runner.StateSucceeded,
		Outcome: runner.Outcome{
			InputBytes:  4096,
			OutputBytes: 1024,
		},
	}})
	b.JobFinished(runner.Progress{Completed: 2, Total: 2, Succeeded: 1, Failed: 1, Result: runner.Result{
		Input:     "/in/missing.gif",
		State:     runner.StateFailed,
		ErrorKind: mediatypes.ErrOpenFailure,
	}})
	b.BatchFinished(runner.Summary{Total: 2, Succeeded: 1, Failed: 1, InputBytes: 4096, OutputBytes: 1024, Elapsed: time.Second})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	if lines[0] != "[1/2] ok clip.mp4 (4.0 KiB -> 1.0 KiB, 25%)" {
		t.Errorf("line 1 = %q", lines[0])
	}
	if lines[1] != "[2/2] FAILED missing.gif: open_failure" {
		t.Errorf("line 2 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Done: 1/2 succeeded, 1 failed, 4.0 KiB -> 1.0 KiB") {
		t.Errorf("summary = %q", lines[2])
	}
	if strings.Contains(buf.String(), "\r") {
		t.Error("plain output must not use carriage returns")
	}
}

func TestTerminalOutputRedraws(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(&buf, true, 100)

	b.JobFinished(runner.Progress{Completed: 1, Total: 3, Succeeded: 1, Result: runner.Result{
		Input: "a.mp4", State: runner.StateSucceeded,
	}})
	b.JobFinished(runner.Progress{Completed: 2, Total: 3, Succeeded: 1, Failed: 1, Result: runner.Result{
		Input: "b.mp4", State: runner.StateFailed, ErrorKind: mediatypes.ErrCodecUnavailable,
	}})
	b.BatchFinished(runner.Summary{Total: 3, Succeeded: 2, Failed: 1})

	out := buf.String()
	if !strings.Contains(out, "\r") {
		t.Error("terminal output should redraw in place")
	}
	if !strings.Contains(out, "FAILED b.mp4: codec_unavailable\n") {
		t.Errorf("failure line missing from %q", out)
	}
	if !strings.Contains(out, "(1 failed)") {
		t.Errorf("failed count missing from %q", out)
	}
	if !strings.HasSuffix(out, "\n") || !strings.Contains(out, "Done: 2/3 succeeded") {
		t.Errorf("summary missing from %q", out)
	}
}

func TestRedrawTruncatesOnRunes(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(&buf, true, 12)

	b.redraw("[3/9] ☃☃☃☃☃☃☃☃☃☃")
	out := strings.TrimPrefix(buf.String(), "\r")
	if !utf8.ValidString(out) {
		t.Fatalf("truncated line is not valid UTF-8: %q", out)
	}
	if n := utf8.RuneCountInString(out); n != 11 {
		t.Errorf("line has %d characters, want 11", n)
	}

	buf.Reset()
	b.redraw("ok")
	if got := buf.String(); got != "\rok"+strings.Repeat(" ", 9) {
		t.Errorf("redraw = %q, want padding over the previous 11 characters", got)
	}
}

func TestBarAsRunnerObserver(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(&buf, true, 80)

	proc := runner.ProcessorFunc(func(ctx context.Context, job *runner.Job) (runner.Outcome, error) {
		return runner.Outcome{}, nil
	})
	r := runner.New(proc, runner.Config{}, b)
	r.Start(context.Background())
	defer r.Stop()

	batch, err := r.Submit([]runner.Item{{Input: "a.mp4"}, {Input: "b.gif"}}, 50)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-batch.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not finish")
	}

	if !strings.Contains(buf.String(), "Done: 2/2 succeeded") {
		t.Errorf("output = %q", buf.String())
	}
}
