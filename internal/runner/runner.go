package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-compressor/internal/logging"
	"media-compressor/internal/mediatypes"
	"media-compressor/internal/quality"

	"github.com/google/uuid"
)

// DefaultMaxFiles caps the number of jobs accepted in one batch.
const DefaultMaxFiles = 10

var (
	ErrStopped        = errors.New("runner stopped")
	ErrNotStarted     = errors.New("runner not started")
	ErrEmptyBatch     = errors.New("batch has no files")
	ErrTooManyFiles   = errors.New("batch exceeds file limit")
	ErrInvalidQuality = errors.New("quality out of range")
)

// Processor performs one job. Returned errors should carry a
// mediatypes.ErrorKind; untyped errors are reported as transcode failures.
type Processor interface {
	Process(ctx context.Context, job *Job) (Outcome, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job *Job) (Outcome, error)

func (f ProcessorFunc) Process(ctx context.Context, job *Job) (Outcome, error) {
	return f(ctx, job)
}

// Config controls batching and naming.
type Config struct {
	// Workers is the number of jobs run at once. Values below 1 mean 1.
	Workers int
	// MaxFiles limits a batch. 0 means DefaultMaxFiles, negative means no limit.
	MaxFiles int
	// Suffix and OutputDir derive output names for items without one.
	Suffix    string
	OutputDir string
}

// Runner drains submitted batches in order on a background goroutine.
type Runner struct {
	cfg  Config
	proc Processor
	obs  Observer

	mu      sync.Mutex
	pending []*Batch
	started bool
	stopped bool
	wake    chan struct{}
	exited  chan struct{}
}

// New creates a Runner. Call Start before submitting.
func New(proc Processor, cfg Config, observers ...Observer) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	return &Runner{
		cfg:    cfg,
		proc:   proc,
		obs:    Observers(observers),
		wake:   make(chan struct{}, 1),
		exited: make(chan struct{}),
	}
}

// Workers returns the effective worker count.
func (r *Runner) Workers() int {
	return r.cfg.Workers
}

// Start launches the background loop. Canceling ctx fails the running job and
// everything still queued with ErrCanceled; batches still complete.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	go r.loop(ctx)
}

// Stop refuses further submissions, waits for queued batches to finish and
// returns once the loop has exited.
func (r *Runner) Stop() {
	r.mu.Lock()
	started := r.started
	if !r.stopped {
		r.stopped = true
		r.signal()
	}
	r.mu.Unlock()

	if started {
		<-r.exited
	}
}

// Submit validates and enqueues a batch. It never blocks on running work.
func (r *Runner) Submit(items []Item, q int) (*Batch, error) {
	if !quality.Valid(q) {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidQuality, q, quality.Min, quality.Max)
	}
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	if r.cfg.MaxFiles > 0 && len(items) > r.cfg.MaxFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(items), r.cfg.MaxFiles)
	}

	b := &Batch{
		ID:      uuid.NewString(),
		Quality: q,
		Jobs:    make([]*Job, 0, len(items)),
		done:    make(chan struct{}),
	}
	for i, it := range items {
		kind := mediatypes.Classify(it.Input)
		out := it.Output
		if out == "" {
			out = mediatypes.OutputPath(it.Input, kind, r.cfg.Suffix, r.cfg.OutputDir)
		}
		b.Jobs = append(b.Jobs, &Job{
			ID:      uuid.NewString(),
			Index:   i,
			Input:   it.Input,
			Output:  out,
			Kind:    kind,
			Quality: q,
			batch:   b,
			state:   StatePending,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil, ErrStopped
	}
	if !r.started {
		return nil, ErrNotStarted
	}
	r.pending = append(r.pending, b)
	r.signal()

	logging.Debug("Queued batch %s with %d jobs at quality %d", shortID(b.ID), len(b.Jobs), q)
	return b, nil
}

// signal must be called with r.mu held.
func (r *Runner) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) next() (*Batch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil, r.stopped
	}
	b := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	return b, false
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.exited)
	for {
		b, stop := r.next()
		if b != nil {
			r.runBatch(ctx, b)
			continue
		}
		if stop {
			return
		}
		<-r.wake
	}
}

func (r *Runner) runBatch(ctx context.Context, b *Batch) {
	log := logging.For("batch " + shortID(b.ID))
	b.mu.Lock()
	b.started = time.Now()
	b.mu.Unlock()

	log.Info("Starting %d jobs with %d worker(s)", len(b.Jobs), r.cfg.Workers)

	jobs := make(chan *Job)
	var wg sync.WaitGroup
	workers := min(r.cfg.Workers, len(b.Jobs))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				r.runJob(ctx, b, job)
			}
		}()
	}
	for _, job := range b.Jobs {
		jobs <- job
	}
	close(jobs)
	wg.Wait()

	s := b.close()
	log.Info("Finished: %d/%d succeeded, %d failed in %v", s.Succeeded, s.Total, s.Failed, s.Elapsed.Round(time.Millisecond))

	b.notifyMu.Lock()
	r.obs.BatchFinished(s)
	b.notifyMu.Unlock()
	close(b.done)
}

func (r *Runner) runJob(ctx context.Context, b *Batch, job *Job) {
	log := logging.For("job " + shortID(job.ID))

	b.mu.Lock()
	job.state = StateRunning
	b.mu.Unlock()

	b.notifyMu.Lock()
	r.obs.JobStarted(job)
	b.notifyMu.Unlock()

	start := time.Now()
	res := Result{
		JobID:  job.ID,
		Input:  job.Input,
		Output: job.Output,
		Kind:   job.Kind,
	}

	var err error
	if ctx.Err() != nil {
		err = mediatypes.NewError(mediatypes.ErrCanceled, "start job", job.Input, ctx.Err())
	} else {
		res.Outcome, err = r.process(ctx, job)
	}
	res.Duration = time.Since(start)

	if err != nil {
		res.State = StateFailed
		res.ErrorKind = mediatypes.KindOf(err)
		res.Err = err
		log.Warn("Failed %s: %v", job.Input, err)
	} else {
		res.State = StateSucceeded
		log.Info("Compressed %s -> %s in %v", job.Input, job.Output, res.Duration.Round(time.Millisecond))
	}

	b.notifyMu.Lock()
	p := b.finish(job, res)
	r.obs.JobFinished(p)
	b.notifyMu.Unlock()
}

// process keeps a panicking processor from taking the batch down.
func (r *Runner) process(ctx context.Context, job *Job) (out Outcome, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = mediatypes.Errorf(mediatypes.ErrTranscodeFailure, "process", job.Input, "panic: %v", v)
		}
	}()
	return r.proc.Process(ctx, job)
}

// Split breaks items into batches of at most size, keeping their order.
func Split(items []Item, size int) [][]Item {
	var out [][]Item
	for size > 0 && len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
