package keypad

import "time"

// Clock provides a monotonic millisecond counter for timeout deadlines.
//
// The counter is allowed to wrap at the uint32 boundary (about 49.7 days);
// deadlines are computed with wrapping subtraction, which stays correct
// across a single wrap.
type Clock interface {
	Millis() uint32
}

// wallClock counts milliseconds since construction using the runtime's
// monotonic clock.
type wallClock struct {
	start time.Time
}

func newWallClock() Clock {
	return &wallClock{start: time.Now()}
}

func (w *wallClock) Millis() uint32 {
	return uint32(time.Since(w.start).Milliseconds())
}
