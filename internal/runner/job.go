package runner

import (
	"sync"
	"time"

	"media-compressor/internal/mediatypes"
)

// State is the lifecycle position of a job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Item is one input handed to Submit. An empty Output derives the name from
// the runner's suffix and output directory.
type Item struct {
	Input  string
	Output string
}

// Job is a single compression task. Everything except the state is fixed at
// submission; the state belongs to the worker once the batch is queued.
type Job struct {
	ID      string
	Index   int
	Input   string
	Output  string
	Kind    mediatypes.Kind
	Quality int

	batch *Batch
	state State
}

// State returns the current state of the job.
func (j *Job) State() State {
	j.batch.mu.Lock()
	defer j.batch.mu.Unlock()
	return j.state
}

// Completed reports whether the job reached a terminal state.
func (j *Job) Completed() bool {
	return j.State().Terminal()
}

// BatchProgress returns the completed and total counts of the job's batch.
func (j *Job) BatchProgress() (completed, total int) {
	return j.batch.Progress()
}

// Outcome is what a Processor reports about a finished job.
type Outcome struct {
	InputBytes  int64
	OutputBytes int64
	Frames      int64
	Encoder     string
}

// Result is the structured completion record for one job.
type Result struct {
	JobID     string
	Input     string
	Output    string
	Kind      mediatypes.Kind
	State     State
	ErrorKind mediatypes.ErrorKind
	Err       error
	Duration  time.Duration
	Outcome
}

// Ratio returns output size over input size, or 0 when unknown.
func (r Result) Ratio() float64 {
	if r.InputBytes <= 0 || r.OutputBytes <= 0 {
		return 0
	}
	return float64(r.OutputBytes) / float64(r.InputBytes)
}

// Progress is delivered after every job reaches a terminal state.
type Progress struct {
	BatchID   string
	Completed int
	Total     int
	Succeeded int
	Failed    int
	Result    Result
}

// Summary is delivered once every job of a batch is terminal.
type Summary struct {
	BatchID     string
	Total       int
	Succeeded   int
	Failed      int
	Results     []Result
	Elapsed     time.Duration
	InputBytes  int64
	OutputBytes int64
}

// Batch groups the jobs of one Submit call. Its counters are guarded by a
// single mutex shared between the worker and anyone reading progress.
type Batch struct {
	ID      string
	Quality int
	Jobs    []*Job

	mu        sync.Mutex
	completed int
	succeeded int
	failed    int
	results   []Result
	started   time.Time
	summary   Summary

	// serializes observer calls so they arrive in completion order
	notifyMu sync.Mutex
	done     chan struct{}
}

// Done is closed after the batch summary has been delivered.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Progress returns completed and total job counts.
func (b *Batch) Progress() (completed, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completed, len(b.Jobs)
}

// Results returns the results recorded so far in completion order.
func (b *Batch) Results() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Result, len(b.results))
	copy(out, b.results)
	return out
}

// Summary returns the final summary. It is only meaningful after Done.
func (b *Batch) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary
}

// finish records a terminal result and returns the progress snapshot.
func (b *Batch) finish(job *Job, res Result) Progress {
	b.mu.Lock()
	defer b.mu.Unlock()

	job.state = res.State
	b.completed++
	if res.State == StateSucceeded {
		b.succeeded++
	} else {
		b.failed++
	}
	b.results = append(b.results, res)

	return Progress{
		BatchID:   b.ID,
		Completed: b.completed,
		Total:     len(b.Jobs),
		Succeeded: b.succeeded,
		Failed:    b.failed,
		Result:    res,
	}
}

func (b *Batch) close() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Summary{
		BatchID:   b.ID,
		Total:     len(b.Jobs),
		Succeeded: b.succeeded,
		Failed:    b.failed,
		Results:   append([]Result(nil), b.results...),
		Elapsed:   time.Since(b.started),
	}
	for _, r := range b.results {
		s.InputBytes += r.InputBytes
		s.OutputBytes += r.OutputBytes
	}
	b.summary = s
	return s
}
