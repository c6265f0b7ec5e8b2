package resource

import (
	"errors"
	"fmt"
	"sync"
)

// Scope owns a set of native handles and releases them in reverse order of
// acquisition. Every handle is released exactly once, whichever way the
// owning job ends.
type Scope struct {
	mu       sync.Mutex
	name     string
	entries  []entry
	acquired int
	released int
	closed   bool
}

type entry struct {
	name    string
	release func() error
}

// NewScope creates an empty scope. The name only appears in error messages.
func NewScope(name string) *Scope {
	return &Scope{name: name}
}

// Track registers a handle whose release cannot fail (Free-style).
func (s *Scope) Track(name string, release func()) {
	s.TrackErr(name, func() error {
		release()
		return nil
	})
}

// TrackErr registers a handle whose release may fail (Close-style).
// Registering on a closed scope releases the handle immediately.
func (s *Scope) TrackErr(name string, release func() error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.acquireLate(name, release)
		return
	}
	s.entries = append(s.entries, entry{name: name, release: release})
	s.acquired++
	s.mu.Unlock()
}

func (s *Scope) acquireLate(name string, release func() error) {
	s.mu.Lock()
	s.acquired++
	s.released++
	s.mu.Unlock()
	_ = release()
}

// Close releases every tracked handle, most recent first. All release errors
// are joined; a second Close is a no-op.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := release(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: release %s: %w", s.name, e.name, err))
		}
		s.mu.Lock()
		s.released++
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}

// release runs one release func and turns a panic into an error so the
// remaining handles are still released.
func release(e entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.release()
}

// Live returns the number of handles acquired but not yet released.
func (s *Scope) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired - s.released
}

// Acquired returns how many handles were ever tracked.
func (s *Scope) Acquired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

// Released returns how many handles have been released.
func (s *Scope) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Names returns the names of live handles in acquisition order.
func (s *Scope) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Closed reports whether Close has run.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
