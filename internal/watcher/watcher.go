package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"media-compressor/internal/logging"
	"media-compressor/internal/mediatypes"
	"media-compressor/internal/metrics"
	"media-compressor/internal/runner"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is queued.
const DefaultDebounce = 2 * time.Second

// Submitter accepts batches; *runner.Runner satisfies it.
type Submitter interface {
	Submit(items []runner.Item, q int) (*runner.Batch, error)
}

// Config controls what is watched and how files are batched.
type Config struct {
	Dir      string
	Quality  int
	Suffix   string
	Debounce time.Duration
	// MaxFiles splits ready files into batches of at most this many.
	// 0 means runner.DefaultMaxFiles, negative means one batch.
	MaxFiles int
}

// Watcher submits new media files that appear under a directory tree.
type Watcher struct {
	cfg Config
	sub Submitter

	mu      sync.Mutex
	pending map[string]time.Time
	batches []*runner.Batch
}

// New creates a Watcher. Run starts it.
func New(cfg Config, sub Submitter) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = runner.DefaultMaxFiles
	}
	return &Watcher{
		cfg:     cfg,
		sub:     sub,
		pending: make(map[string]time.Time),
	}
}

// Run watches until ctx is done. Files already present are left alone.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := fw.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
		metrics.WatchedDirectories.Set(0)
	}()

	count, err := w.addDirectories(fw)
	if err != nil {
		return err
	}
	logging.Info("Watching %s (%d directories), debounce %v", w.cfg.Dir, count, w.cfg.Debounce)
	metrics.WatchedDirectories.Set(float64(count))

	ticker := time.NewTicker(w.cfg.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, event, time.Now())

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// Batches returns every batch submitted so far.
func (w *Watcher) Batches() []*runner.Batch {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*runner.Batch(nil), w.batches...)
}

// addDirectories adds the watch root and every non-hidden directory below it.
func (w *Watcher) addDirectories(fw *fsnotify.Watcher) (int, error) {
	count := 0
	err := filepath.Walk(w.cfg.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.cfg.Dir && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := fw.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		metrics.WatcherErrors.Inc()
		return count, fmt.Errorf("failed to walk %s: %w", w.cfg.Dir, err)
	}
	return count, nil
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event, now time.Time) {
	if w.hidden(event.Name) {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		delete(w.pending, event.Name)
		w.mu.Unlock()

	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if event.Op&fsnotify.Create != 0 && fw != nil {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := fw.Add(event.Name); err != nil {
					logging.Warn("failed to add new directory to watcher %s: %v", event.Name, err)
					metrics.WatcherErrors.Inc()
				} else {
					logging.Debug("Added new directory to watcher: %s", event.Name)
					metrics.WatchedDirectories.Inc()
				}
				return
			}
		}
		if !w.wants(event.Name) {
			return
		}
		w.mu.Lock()
		w.pending[event.Name] = now
		w.mu.Unlock()
	}
}

// wants reports whether path is a compressible input and not one of our outputs.
func (w *Watcher) wants(path string) bool {
	if !mediatypes.IsMediaFile(mediatypes.Ext(path)) {
		return false
	}
	return !mediatypes.HasSuffix(path, w.cfg.Suffix)
}

// flush submits files that have been quiet for the debounce interval.
func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	var ready []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.cfg.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return
	}
	sort.Strings(ready)

	all := make([]runner.Item, len(ready))
	for i, p := range ready {
		all[i] = runner.Item{Input: p}
	}
	for _, items := range runner.Split(all, w.cfg.MaxFiles) {
		b, err := w.sub.Submit(items, w.cfg.Quality)
		if err != nil {
			logging.Error("failed to submit %d watched files: %v", len(items), err)
			continue
		}
		logging.Info("Submitted %d new file(s) from %s", len(items), w.cfg.Dir)

		w.mu.Lock()
		w.batches = append(w.batches, b)
		w.mu.Unlock()
	}
}

// hidden reports whether path, or a directory between the watch root and
// path, starts with a dot. The root itself may live under a dot directory.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.cfg.Dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return strings.HasPrefix(filepath.Base(path), ".")
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part != "." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// eventType returns a string representation of the fsnotify operation
func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
