// Package bot implements the relay automation core: the correlation registry
// that pairs administrative replies with in-flight requests, the line router
// and dispatch engine, the chat command surface, and the BNC provisioning
// workflow built on top of them.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrLabelPending is returned by Register when a live slot already exists for
// the label. Two outstanding requests with the same label would make the
// eventual reply ambiguous, so the second registration fails loudly instead
// of silently replacing the first waiter.
var ErrLabelPending = errors.New("correlation label already pending")

// Future is a single-assignment result slot. It is fulfilled at most once and
// consumed at most once.
type Future struct {
	ch chan string
}

// Wait blocks until the future is fulfilled or ctx is done.
func (f *Future) Wait(ctx context.Context) (string, error) {
	select {
	case value := <-f.ch:
		return value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Registry maps correlation labels to pending result slots. The remote
// control interface carries no correlation identifiers, so a reply can only
// be matched to its request by the label the requester registered before
// sending the triggering line. The registry does no I/O itself.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*Future
}

func NewRegistry() *Registry {
	return &Registry{pending: map[string]*Future{}}
}

// Register creates the pending slot for label. The caller must send the
// triggering request line immediately after registering.
func (r *Registry) Register(label string) (*Future, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[label]; exists {
		return nil, ErrLabelPending
	}

	fut := &Future{ch: make(chan string, 1)}
	r.pending[label] = fut
	return fut, nil
}

// Fulfill resolves the pending slot for label and removes it. Fulfilling a
// label with no live slot is a no-op; the return value reports whether a
// waiter existed.
func (r *Registry) Fulfill(label, value string) bool {
	r.mu.Lock()
	fut, ok := r.pending[label]
	if ok {
		delete(r.pending, label)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	fut.ch <- value
	return true
}

// FulfillMatching resolves every pending slot whose label satisfies match,
// all with the same value. Returns the number of slots resolved. Used for
// terminator replies that close out whole families of lookups (a whois end
// line resolves any identity lookup still open for that nick).
func (r *Registry) FulfillMatching(match func(label string) bool, value string) int {
	r.mu.Lock()
	var futures []*Future
	for label, fut := range r.pending {
		if match(label) {
			futures = append(futures, fut)
			delete(r.pending, label)
		}
	}
	r.mu.Unlock()

	for _, fut := range futures {
		fut.ch <- value
	}
	return len(futures)
}

// Cancel removes a pending slot without fulfilling it. Used when a waiter
// gives up (timeout) so the label becomes registerable again.
func (r *Registry) Cancel(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[label]; !ok {
		return false
	}
	delete(r.pending, label)
	return true
}

// Pending reports whether a live slot exists for label.
func (r *Registry) Pending(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[label]
	return ok
}

// HasPrefix is a convenience matcher for FulfillMatching.
func HasPrefix(prefix string) func(string) bool {
	return func(label string) bool {
		return strings.HasPrefix(label, prefix)
	}
}

// LockSet is a collection of named mutual-exclusion gates, created lazily and
// never destroyed. A named lock is held for the full duration of a correlated
// request/response pair whenever the remote side cannot distinguish
// overlapping conversations of the same kind.
type LockSet struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLockSet() *LockSet {
	return &LockSet{locks: map[string]*sync.Mutex{}}
}

func (s *LockSet) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// With runs body while holding the named lock.
func (s *LockSet) With(name string, body func() error) error {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return body()
}

// TryWith runs body if the named lock is free, returning false without
// running it otherwise. Used by the periodic resync to avoid piling up
// behind an in-progress run.
func (s *LockSet) TryWith(name string, body func() error) (bool, error) {
	l := s.lock(name)
	if !l.TryLock() {
		return false, nil
	}
	defer l.Unlock()
	return true, body()
}
