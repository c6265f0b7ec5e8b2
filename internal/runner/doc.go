// Package runner executes batches of compression jobs off the caller's
// goroutine.
//
// Each job moves Pending → Running → Succeeded or Failed and never leaves a
// terminal state. Batches run one after another; within a batch one worker
// drains jobs sequentially unless Config.Workers asks for a bounded pool. A
// failed job never stops its batch.
//
// Observers are told when a job starts, when it finishes (with the running
// completed/total counts and a structured Result) and when the whole batch
// is done:
//
//	r := runner.New(proc, runner.Config{}, progressBar, metricsObserver)
//	r.Start(ctx)
//	b, err := r.Submit([]runner.Item{{Input: "clip.mp4"}}, 50)
//	<-b.Done()
//
// Canceling the context passed to Start fails the running job and every job
// still waiting with mediatypes.ErrCanceled, so Done still fires.
package runner
