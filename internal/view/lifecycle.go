// Package view holds the screen controllers: the per-page state and the
// fetch lifecycle behind every page, independent of HTTP.
//
// A controller is created when a page is opened, starts its mount-time
// fetches in the background and answers View() with a snapshot that the
// handler renders. Follow-up actions (search, like, comment, upload) are
// methods on the controller.
package view

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/vidshare/internal/logging"
)

// Phase is where a fetch is in idle → loading → {succeeded, failed}.
type Phase int

const (
	Idle Phase = iota
	Loading
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is what a data-driven section of a page shows. Exactly one applies.
type State int

const (
	StateLoading State = iota
	StateEmpty
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateEmpty:
		return "empty"
	default:
		return "populated"
	}
}

// Render derives the render state. A failed fetch renders as empty.
func Render(loading bool, count int, err error) State {
	switch {
	case loading:
		return StateLoading
	case err != nil, count == 0:
		return StateEmpty
	default:
		return StatePopulated
	}
}

// Fetch tracks one background request and its result.
//
// Starting a fetch again supersedes the earlier one: when the older request
// finishes, its result is dropped. Edits made while a request is in flight
// are queued and replayed on its result. The zero value is idle and ready to
// use.
type Fetch[T any] struct {
	mu      sync.Mutex
	phase   Phase
	gen     uint64
	data    T
	err     error
	done    chan struct{}
	pending []edit[T]
}

// edit is a change queued behind an in-flight request. A forced edit is
// applied even when the request fails.
type edit[T any] struct {
	fn     func(T) T
	forced bool
}

// Snapshot is a consistent read of a Fetch.
type Snapshot[T any] struct {
	Phase Phase
	Data  T
	Err   error
}

// Loading reports whether the fetch has not settled yet. An idle fetch
// counts as loading: nothing has been shown for it.
func (s Snapshot[T]) Loading() bool {
	return s.Phase == Idle || s.Phase == Loading
}

// Start runs fn in its own goroutine. The goroutine is detached from ctx's
// cancellation, so a browser navigating away does not abort the request,
// but keeps ctx's values (request logger, trace). A failure is logged at
// Warn under name.
func (f *Fetch[T]) Start(ctx context.Context, name string, fn func(context.Context) (T, error)) {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.phase = Loading
	f.pending = nil
	done := make(chan struct{})
	f.done = done
	f.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		v, err := fn(detached)
		if err != nil {
			logging.FromContext(detached).Warn("background fetch failed",
				slog.String("fetch", name),
				slog.String("error", err.Error()),
			)
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.gen != gen {
			return
		}
		f.settle(v, err)
	}()
}

// settle stores a finished request's result and replays the queued edits.
// Must be called with f.mu held.
func (f *Fetch[T]) settle(v T, err error) {
	pending := f.pending
	f.pending = nil

	if err != nil {
		var zero T
		f.data, f.err, f.phase = zero, err, Failed
		for _, e := range pending {
			if e.forced {
				f.data, f.err, f.phase = e.fn(f.data), nil, Succeeded
			}
		}
		return
	}
	f.data, f.err, f.phase = v, nil, Succeeded
	for _, e := range pending {
		f.data = e.fn(f.data)
	}
}

// Wait blocks until the current fetch settles, d elapses or ctx is done, and
// reports whether it settled.
func (f *Fetch[T]) Wait(ctx context.Context, d time.Duration) bool {
	f.mu.Lock()
	done, phase := f.done, f.phase
	f.mu.Unlock()
	if phase != Loading || done == nil {
		return true
	}
	select {
	case <-done:
		return true
	default:
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
	case <-ctx.Done():
	}
	return false
}

// Snapshot returns the current phase, data and error.
func (f *Fetch[T]) Snapshot() Snapshot[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot[T]{Phase: f.phase, Data: f.data, Err: f.err}
}

// Update applies fn to loaded data and reports whether it did or will. While
// a request is in flight fn is queued and applied if that request succeeds.
// Idle or failed data is left alone.
func (f *Fetch[T]) Update(fn func(T) T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.phase {
	case Succeeded:
		f.data = fn(f.data)
		return true
	case Loading:
		f.pending = append(f.pending, edit[T]{fn: fn})
		return true
	default:
		return false
	}
}

// Override applies fn to whatever data is held and marks the fetch
// succeeded. While a request is in flight fn is queued and applied to its
// result, or to the zero value if the request fails.
func (f *Fetch[T]) Override(fn func(T) T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.phase {
	case Loading:
		f.pending = append(f.pending, edit[T]{fn: fn, forced: true})
		return
	case Succeeded:
	default:
		f.err = nil
		f.phase = Succeeded
	}
	f.data = fn(f.data)
}

// waitAll waits for every wait func in turn within one overall budget of d.
func waitAll(ctx context.Context, d time.Duration, waits ...func(context.Context, time.Duration) bool) bool {
	deadline := time.Now().Add(d)
	settled := true
	for _, w := range waits {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		if !w(ctx, remaining) {
			settled = false
		}
	}
	return settled
}
