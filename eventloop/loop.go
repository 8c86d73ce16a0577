// Package eventloop is the single-goroutine scheduler a session runs on:
// display refresh callbacks, timers, and completions posted from other
// goroutines. Everything except Post must be called from the loop goroutine.
package eventloop

import (
	"sort"
	"sync"
	"time"
)

// Cancel cancels a scheduled callback. Calling it after the callback ran,
// or twice, does nothing.
type Cancel func()

type entry struct {
	fn       func()
	deadline time.Time
	canceled bool
}

// Loop queues callbacks until the host runs them.
type Loop struct {
	now  func() time.Time
	wake func()

	mu     sync.Mutex
	posted []func()

	frames []*entry
	timers []*entry
}

type Option func(*Loop)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithWake sets a function called after every Post, to interrupt a host
// blocked waiting for events.
func WithWake(wake func()) Option {
	return func(l *Loop) { l.wake = wake }
}

func New(opts ...Option) *Loop {
	l := &Loop{now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Now returns the loop clock's current time.
func (l *Loop) Now() time.Time { return l.now() }

// Post queues fn to run on the loop goroutine. Safe for concurrent use.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	if l.wake != nil {
		l.wake()
	}
}

// RequestFrame runs fn on the next display refresh.
func (l *Loop) RequestFrame(fn func()) Cancel {
	e := &entry{fn: fn}
	l.frames = append(l.frames, e)
	return func() { e.canceled = true }
}

// AfterFunc runs fn once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Cancel {
	e := &entry{fn: fn, deadline: l.now().Add(d)}
	i := sort.Search(len(l.timers), func(i int) bool {
		return l.timers[i].deadline.After(e.deadline)
	})
	l.timers = append(l.timers, nil)
	copy(l.timers[i+1:], l.timers[i:])
	l.timers[i] = e
	return func() { e.canceled = true }
}

// RunPending runs every posted callback, then every timer that is due.
// Callbacks queued while running wait for the next call.
func (l *Loop) RunPending() {
	l.mu.Lock()
	posted := l.posted
	l.posted = nil
	l.mu.Unlock()
	for _, fn := range posted {
		fn()
	}

	now := l.now()
	n := 0
	for n < len(l.timers) && !l.timers[n].deadline.After(now) {
		n++
	}
	due := append([]*entry(nil), l.timers[:n]...)
	l.timers = l.timers[n:]
	for _, e := range due {
		if !e.canceled {
			e.fn()
		}
	}
}

// VSync runs the callbacks requested before this call.
func (l *Loop) VSync() {
	frames := l.frames
	l.frames = nil
	for _, e := range frames {
		if !e.canceled {
			e.fn()
		}
	}
}

// HasFrameRequests reports whether a live refresh callback is waiting.
func (l *Loop) HasFrameRequests() bool {
	for _, e := range l.frames {
		if !e.canceled {
			return true
		}
	}
	return false
}

// HasPosted reports whether posted callbacks are waiting.
func (l *Loop) HasPosted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posted) > 0
}

// NextDeadline returns the earliest live timer deadline.
func (l *Loop) NextDeadline() (time.Time, bool) {
	for _, e := range l.timers {
		if !e.canceled {
			return e.deadline, true
		}
	}
	return time.Time{}, false
}

// Idle reports whether nothing at all is scheduled.
func (l *Loop) Idle() bool {
	_, timers := l.NextDeadline()
	return !timers && !l.HasFrameRequests() && !l.HasPosted()
}
