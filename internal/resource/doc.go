// Package resource tracks native handles (format contexts, codec contexts,
// scalers, frames, packets, IO contexts) owned by one compression job.
//
// A Scope is created when a job opens its input and closed exactly once when
// the job ends, on success, failure or cancellation. Handles are released in
// reverse order of acquisition, so an encoder is freed before the output
// container it feeds and the output sink is closed after the trailer was
// written.
//
//	scope := resource.NewScope("job-1")
//	defer scope.Close()
//
//	fc := astiav.AllocFormatContext()
//	scope.Track("input format", fc.Free)
//
// The package has no cgo dependency, which lets the release-ordering and
// leak accounting be tested without libav installed.
package resource
