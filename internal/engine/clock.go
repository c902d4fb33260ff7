package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the logical sequence used to order outward entries.
//
// Entry order is defined by seq, never by wall time: two entries produced
// in the same millisecond still have a strict order.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though only the Dispatcher's tick goroutine calls Next in practice.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// TimeSource returns the current time in milliseconds.
// Production code uses NowMs; tests drive a manual source.
type TimeSource func() int64

// NowMs returns wall-clock Unix time in milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}
