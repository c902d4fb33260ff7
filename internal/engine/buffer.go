package engine

import (
	"log/slog"
	"sync"

	"github.com/roach88/combo/internal/move"
)

// InputBuffer is a thread-safe FIFO of input events, stamped with the delay
// since the previous admitted event.
//
// Add may be called from listener goroutines at any time. Pop and Clear are
// called only by the Dispatcher's tick loop.
//
// The buffer is unbounded unless WithCapacity is given. When a bound is set
// and exceeded, the oldest pending event is dropped; overflow is never an error.
type InputBuffer struct {
	mu       sync.Mutex
	events   []move.Event
	last     int64
	hasLast  bool
	capacity int
	dropped  int64
	signal   chan struct{} // Signals event availability (buffered, size 1)
	logger   *slog.Logger
}

// BufferOption configures an InputBuffer.
type BufferOption func(*InputBuffer)

// WithCapacity bounds the number of pending events. Zero means unbounded.
func WithCapacity(n int) BufferOption {
	return func(b *InputBuffer) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithBufferLogger sets the logger used for overflow warnings.
func WithBufferLogger(l *slog.Logger) BufferOption {
	return func(b *InputBuffer) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewInputBuffer creates an empty buffer.
func NewInputBuffer(opts ...BufferOption) *InputBuffer {
	b := &InputBuffer{
		events: make([]move.Event, 0, 64),
		signal: make(chan struct{}, 1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add stores an event for symbol observed at ts (milliseconds).
//
// The first event after construction or Clear has delay 0. A timestamp
// older than the previous one is clamped to delay 0 rather than producing
// a negative delay.
func (b *InputBuffer) Add(symbol string, ts int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var delay int64
	if b.hasLast {
		delay = ts - b.last
		if delay < 0 {
			delay = 0
		}
	}
	b.last = ts
	b.hasLast = true

	b.events = append(b.events, move.Event{Symbol: symbol, DelayMs: delay})

	if b.capacity > 0 && len(b.events) > b.capacity {
		dropped := b.events[0]
		b.events = b.events[1:]
		b.dropped++
		b.logger.Warn("input buffer full, dropping oldest event",
			"symbol", dropped.Symbol,
			"capacity", b.capacity,
			"dropped_total", b.dropped,
		)
	}

	// Non-blocking: buffer of 1 coalesces multiple signals
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest pending event.
// Returns (move.Event{}, false) if the buffer is empty. Never blocks.
func (b *InputBuffer) Pop() (move.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 {
		return move.Event{}, false
	}

	e := b.events[0]
	if len(b.events) == 1 {
		b.events = b.events[:0]
	} else {
		b.events = b.events[1:]
	}
	return e, true
}

// Clear discards all pending events and resets the delay baseline.
func (b *InputBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = b.events[:0]
	b.hasLast = false
	b.last = 0
}

// Len returns the number of pending events.
func (b *InputBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Dropped returns how many events were discarded due to the capacity bound.
func (b *InputBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Wait returns a channel that signals when events may be available.
// Use with select for loops that park instead of polling:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-buf.Wait():
//	    // Try Pop
//	}
func (b *InputBuffer) Wait() <-chan struct{} {
	return b.signal
}
