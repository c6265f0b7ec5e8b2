package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"media-compressor/internal/runner"

	"golang.org/x/term"
)

const (
	defaultWidth = 80
	maxBarWidth  = 30
	maxNameWidth = 40
)

// Bar is a runner.Observer that shows batch progress. On a terminal it keeps
// one line redrawn in place; otherwise it prints one line per finished job.
type Bar struct {
	mu    sync.Mutex
	w     io.Writer
	tty   bool
	width int
	last  int
}

// New creates a Bar writing to f, detecting whether f is a terminal.
func New(f *os.File) *Bar {
	fd := int(f.Fd())
	tty := term.IsTerminal(fd)
	width := defaultWidth
	if tty {
		if w, _, err := term.GetSize(fd); err == nil && w > 20 {
			width = w
		}
	}
	return NewWriter(f, tty, width)
}

// NewWriter creates a Bar over any writer.
func NewWriter(w io.Writer, tty bool, width int) *Bar {
	if width <= 0 {
		width = defaultWidth
	}
	return &Bar{w: w, tty: tty, width: width}
}

func (b *Bar) JobStarted(job *runner.Job) {
	if !b.tty {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	completed, total := job.BatchProgress()
	b.redraw(fmt.Sprintf("%s %d/%d  %s", bar(completed, total, b.barWidth()), completed, total,
		shorten(filepath.Base(job.Input))))
}

func (b *Bar) JobFinished(p runner.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := p.Result
	name := shorten(filepath.Base(res.Input))

	if !b.tty {
		fmt.Fprintf(b.w, "[%d/%d] %s\n", p.Completed, p.Total, describe(res, name))
		return
	}

	if res.State != runner.StateSucceeded {
		// failures stay visible above the bar
		b.clear()
		fmt.Fprintf(b.w, "%s\n", describe(res, name))
	}

	status := fmt.Sprintf("%s %d/%d", bar(p.Completed, p.Total, b.barWidth()), p.Completed, p.Total)
	if p.Failed > 0 {
		status += fmt.Sprintf(" (%d failed)", p.Failed)
	}
	b.redraw(status + "  " + name)
}

func (b *Bar) BatchFinished(s runner.Summary) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tty {
		b.clear()
	}
	line := fmt.Sprintf("Done: %d/%d succeeded", s.Succeeded, s.Total)
	if s.Failed > 0 {
		line += fmt.Sprintf(", %d failed", s.Failed)
	}
	if s.InputBytes > 0 && s.OutputBytes > 0 {
		line += fmt.Sprintf(", %s -> %s", formatBytes(s.InputBytes), formatBytes(s.OutputBytes))
	}
	line += fmt.Sprintf(" in %v", s.Elapsed.Round(10*time.Millisecond))
	fmt.Fprintln(b.w, line)
}

func (b *Bar) barWidth() int {
	return min(maxBarWidth, max(10, b.width/4))
}

// redraw must be called with b.mu held.
func (b *Bar) redraw(line string) {
	r := []rune(line)
	if len(r) > b.width-1 {
		r = r[:b.width-1]
		line = string(r)
	}
	pad := ""
	if n := b.last - len(r); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(b.w, "\r%s%s", line, pad)
	b.last = len(r)
}

// clear must be called with b.mu held.
func (b *Bar) clear() {
	if b.last == 0 {
		return
	}
	fmt.Fprintf(b.w, "\r%s\r", strings.Repeat(" ", b.last))
	b.last = 0
}

func describe(res runner.Result, name string) string {
	if res.State != runner.StateSucceeded {
		return fmt.Sprintf("FAILED %s: %s", name, res.ErrorKind)
	}
	msg := "ok " + name
	if ratio := res.Ratio(); ratio > 0 {
		msg += fmt.Sprintf(" (%s -> %s, %.0f%%)", formatBytes(res.InputBytes), formatBytes(res.OutputBytes), ratio*100)
	}
	return msg
}

func bar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func shorten(name string) string {
	r := []rune(name)
	if len(r) <= maxNameWidth {
		return name
	}
	return string(r[:maxNameWidth-1]) + "…"
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
