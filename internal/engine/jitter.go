package engine

import (
	"math/rand"
	"sync"
	"time"
)

// Jitter draws a randomized delay, in milliseconds, from an inclusive range.
// Implementations must return a value in [lo, hi] whenever lo <= hi.
type Jitter interface {
	Between(lo, hi int64) int64
}

// RandJitter is a seeded pseudo-random Jitter.
//
// Thread-safety: RandJitter is safe for concurrent use via internal mutex.
type RandJitter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// ResolveSeed returns seed unchanged unless it is zero, in which case a
// non-zero seed is taken from the wall clock. Record the resolved value to
// reproduce a session.
func ResolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	if seed = time.Now().UnixNano(); seed == 0 {
		seed = 1
	}
	return seed
}

// NewRandJitter creates a jitter source. A zero seed seeds from the wall clock;
// any other seed gives a reproducible sequence.
func NewRandJitter(seed int64) *RandJitter {
	return &RandJitter{rng: rand.New(rand.NewSource(ResolveSeed(seed)))}
}

// Between returns a uniformly drawn value in [lo, hi].
func (j *RandJitter) Between(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return lo + j.rng.Int63n(hi-lo+1)
}

// FixedJitter always returns the same value, clamped into the requested range.
type FixedJitter int64

// Between returns the fixed value clamped to [lo, hi].
func (f FixedJitter) Between(lo, hi int64) int64 {
	v := int64(f)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
