package eventloop

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTimersRunInDeadlineOrder(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := New(WithClock(c.now))
	var got []string
	l.AfterFunc(20*time.Millisecond, func() { got = append(got, "b") })
	l.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	l.AfterFunc(20*time.Millisecond, func() { got = append(got, "c") })

	l.RunPending()
	assert.Empty(t, got)

	d, ok := l.NextDeadline()
	assert.True(t, ok)
	assert.Equal(t, time.Unix(0, 0).Add(10*time.Millisecond), d)

	c.advance(25 * time.Millisecond)
	l.RunPending()
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.True(t, l.Idle())
}

func TestCancel(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := New(WithClock(c.now))
	ran := 0
	cancelTimer := l.AfterFunc(0, func() { ran++ })
	cancelFrame := l.RequestFrame(func() { ran++ })
	assert.True(t, l.HasFrameRequests())

	cancelTimer()
	cancelFrame()
	assert.False(t, l.HasFrameRequests())
	_, ok := l.NextDeadline()
	assert.False(t, ok)

	l.RunPending()
	l.VSync()
	assert.Equal(t, 0, ran)
}

func TestFramesRequestedDuringVSyncWait(t *testing.T) {
	l := New()
	n := 0
	var tick func()
	tick = func() {
		n++
		l.RequestFrame(tick)
	}
	l.RequestFrame(tick)
	l.VSync()
	assert.Equal(t, 1, n)
	l.VSync()
	assert.Equal(t, 2, n)
}

func TestTimersScheduledWhileRunningWait(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := New(WithClock(c.now))
	n := 0
	var tick func()
	tick = func() {
		n++
		l.AfterFunc(0, tick)
	}
	l.AfterFunc(0, tick)
	l.RunPending()
	assert.Equal(t, 1, n)
	l.RunPending()
	assert.Equal(t, 2, n)
}

func TestPostFromGoroutines(t *testing.T) {
	woken := make(chan struct{}, 16)
	l := New(WithWake(func() { woken <- struct{}{} }))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() {})
		}()
	}
	wg.Wait()
	assert.Len(t, woken, 8)
	assert.True(t, l.HasPosted())

	ran := 0
	l.Post(func() { ran++ })
	l.RunPending()
	assert.Equal(t, 1, ran)
	assert.False(t, l.HasPosted())
}
