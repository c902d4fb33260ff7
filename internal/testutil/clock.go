package testutil

import "sync"

// ManualClock is a millisecond time source driven by the test.
//
// Its Now method satisfies engine.TimeSource, so a dispatcher can be run
// against scripted time instead of the wall clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock creates a clock reading start.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by ms and returns the new reading.
func (c *ManualClock) Advance(ms int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
	return c.now
}

// Set jumps to an absolute reading. Moving backwards is allowed; the code
// under test is expected to tolerate it.
func (c *ManualClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ms
}

// SequenceJitter returns scripted values in order, repeating the last one
// once exhausted. Each value is clamped into the requested range.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceJitter struct {
	mu     sync.Mutex
	values []int64
	idx    int
	draws  int
}

// NewSequenceJitter creates a jitter that yields values in order.
// With no values it always returns the lower bound.
func NewSequenceJitter(values ...int64) *SequenceJitter {
	return &SequenceJitter{values: values}
}

// Between returns the next scripted value clamped to [lo, hi].
func (j *SequenceJitter) Between(lo, hi int64) int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.draws++

	if len(j.values) == 0 {
		return lo
	}
	v := j.values[j.idx]
	if j.idx < len(j.values)-1 {
		j.idx++
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Draws returns how many times Between was called.
func (j *SequenceJitter) Draws() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.draws
}
