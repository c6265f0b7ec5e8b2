package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"media-compressor/internal/runner"

	"github.com/fsnotify/fsnotify"
)

// fakeSubmitter records submitted batches.
type fakeSubmitter struct {
	mu      sync.Mutex
	batches [][]string
	quality []int
}

func (f *fakeSubmitter) Submit(items []runner.Item, q int) (*runner.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Input)
	}
	f.batches = append(f.batches, paths)
	f.quality = append(f.quality, q)
	return &runner.Batch{}, nil
}

func (f *fakeSubmitter) submitted() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.batches...)
}

func TestWants(t *testing.T) {
	w := New(Config{Dir: "/watch"}, &fakeSubmitter{})
	tests := map[string]bool{
		"/watch/clip.mp4":            true,
		"/watch/loop.gif":            true,
		"/watch/cat.JPG":             true,
		"/watch/clip_compressed.mp4": false,
		"/watch/loop_compressed.gif": false,
		"/watch/notes.txt":           false,
	}
	for path, want := range tests {
		if got := w.wants(path); got != want {
			t.Errorf("wants(%q) = %v, want %v", path, got, want)
		}
	}

	custom := New(Config{Dir: "/watch", Suffix: "-small"}, &fakeSubmitter{})
	if custom.wants("/watch/clip-small.mp4") {
		t.Error("custom suffix output should be ignored")
	}
	if !custom.wants("/watch/clip_compressed.mp4") {
		t.Error("default suffix is not special when a custom one is set")
	}
}

func TestHidden(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
		want bool
	}{
		{"dotfile", "/watch", "/watch/.partial.mp4", true},
		{"file in dot directory", "/watch", "/watch/.cache/clip.mp4", true},
		{"nested dot directory", "/watch", "/watch/a/.tmp/b/clip.mp4", true},
		{"plain file", "/watch", "/watch/clip.mp4", false},
		{"subdirectory", "/watch", "/watch/2024/clip.mp4", false},
		{"root under dot directory", "/home/user/.config/inbox", "/home/user/.config/inbox/clip.mp4", false},
		{"root under dot directory, dotfile", "/home/user/.local/share/inbox", "/home/user/.local/share/inbox/.clip.mp4", true},
		{"root itself", "/home/user/.config/inbox", "/home/user/.config/inbox", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(Config{Dir: filepath.FromSlash(tt.root)}, &fakeSubmitter{})
			if got := w.hidden(filepath.FromSlash(tt.path)); got != tt.want {
				t.Errorf("hidden(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDebounceAndBatching(t *testing.T) {
	sub := &fakeSubmitter{}
	w := New(Config{Dir: "/watch", Quality: 35, Debounce: time.Second, MaxFiles: 2}, sub)

	t0 := time.Unix(1_700_000_000, 0)
	for _, name := range []string{"c.mp4", "a.mp4", "b.gif"} {
		w.handleEvent(nil, fsnotify.Event{Name: "/watch/" + name, Op: fsnotify.Create}, t0)
	}
	w.handleEvent(nil, fsnotify.Event{Name: "/watch/a_compressed.mp4", Op: fsnotify.Create}, t0)
	w.handleEvent(nil, fsnotify.Event{Name: "/watch/readme.md", Op: fsnotify.Create}, t0)
	// still being written
	w.handleEvent(nil, fsnotify.Event{Name: "/watch/d.mkv", Op: fsnotify.Create}, t0)
	w.handleEvent(nil, fsnotify.Event{Name: "/watch/d.mkv", Op: fsnotify.Write}, t0.Add(900*time.Millisecond))
	// appeared then vanished
	w.handleEvent(nil, fsnotify.Event{Name: "/watch/e.mp4", Op: fsnotify.Create}, t0)
	w.handleEvent(nil, fsnotify.Event{Name: "/watch/e.mp4", Op: fsnotify.Remove}, t0)

	w.flush(t0.Add(500 * time.Millisecond))
	if got := sub.submitted(); len(got) != 0 {
		t.Fatalf("nothing should be ready yet, got %v", got)
	}

	w.flush(t0.Add(time.Second))
	want := [][]string{{"/watch/a.mp4", "/watch/b.gif"}, {"/watch/c.mp4"}}
	if got := sub.submitted(); !reflect.DeepEqual(got, want) {
		t.Fatalf("submitted = %v, want %v", got, want)
	}

	w.flush(t0.Add(2 * time.Second))
	got := sub.submitted()
	if len(got) != 3 || !reflect.DeepEqual(got[2], []string{"/watch/d.mkv"}) {
		t.Errorf("submitted = %v, want d.mkv in a third batch", got)
	}
	for _, q := range sub.quality {
		if q != 35 {
			t.Errorf("quality = %d, want 35", q)
		}
	}
	if len(w.Batches()) != 3 {
		t.Errorf("Batches() = %d, want 3", len(w.Batches()))
	}
}

func TestUnlimitedMaxFiles(t *testing.T) {
	sub := &fakeSubmitter{}
	w := New(Config{Dir: "/watch", Debounce: time.Second, MaxFiles: -1}, sub)

	t0 := time.Unix(1_700_000_000, 0)
	for i := 0; i < runner.DefaultMaxFiles+5; i++ {
		name := filepath.Join("/watch", fmt.Sprintf("clip%02d.mp4", i))
		w.handleEvent(nil, fsnotify.Event{Name: name, Op: fsnotify.Create}, t0)
	}
	w.flush(t0.Add(time.Second))

	got := sub.submitted()
	if len(got) != 1 || len(got[0]) != runner.DefaultMaxFiles+5 {
		t.Errorf("want one batch of %d, got %d batches", runner.DefaultMaxFiles+5, len(got))
	}
}

func TestRootUnderDotDirectory(t *testing.T) {
	sub := &fakeSubmitter{}
	root := filepath.FromSlash("/home/user/.config/inbox")
	w := New(Config{Dir: root, Debounce: time.Second}, sub)

	t0 := time.Unix(1_700_000_000, 0)
	clip := filepath.Join(root, "clip.mp4")
	w.handleEvent(nil, fsnotify.Event{Name: clip, Op: fsnotify.Create}, t0)
	w.handleEvent(nil, fsnotify.Event{Name: filepath.Join(root, ".clip.mp4"), Op: fsnotify.Create}, t0)
	w.flush(t0.Add(time.Second))

	want := [][]string{{clip}}
	if got := sub.submitted(); !reflect.DeepEqual(got, want) {
		t.Errorf("submitted = %v, want %v", got, want)
	}
}

func TestRunPicksUpNewFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping filesystem watcher test in short mode")
	}

	dir := t.TempDir()
	sub := &fakeSubmitter{}
	w := New(Config{Dir: dir, Quality: 50, Debounce: 100 * time.Millisecond}, sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	sub1 := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub1, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	files := []string{
		filepath.Join(dir, "clip.mp4"),
		filepath.Join(dir, "clip_compressed.mp4"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(sub1, "photo.png"),
	}
	for _, f := range files {
		if err := os.WriteFile(f, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.After(5 * time.Second)
	for {
		var all []string
		for _, b := range sub.submitted() {
			all = append(all, b...)
		}
		if len(all) >= 2 {
			want := map[string]bool{files[0]: true, files[3]: true}
			for _, p := range all {
				if !want[p] {
					t.Errorf("unexpected submission %s", p)
				}
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out; submitted %v", all)
		case <-time.After(50 * time.Millisecond):
		}
	}
}
