package playback

import "time"

// Clock is the monotonic audio clock the scheduler times playback against.
// Now returns seconds since an arbitrary epoch and never decreases.
type Clock interface {
	Now() float64
	After(seconds float64) <-chan time.Time
}

// realClock measures time from its creation using the runtime's monotonic
// clock.
type realClock struct {
	start time.Time
}

// NewClock returns a Clock backed by real time.
func NewClock() Clock {
	return &realClock{start: time.Now()}
}

func (c *realClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

func (c *realClock) After(seconds float64) <-chan time.Time {
	return time.After(time.Duration(seconds * float64(time.Second)))
}
