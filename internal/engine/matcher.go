package engine

import (
	"github.com/roach88/combo/internal/move"
)

// Matcher tracks the progress of one move definition against the live
// event stream.
//
// The cursor position is in [0, len(steps)). Reaching len(steps) means the
// move completed; Advance reports the recognition and resets to 0 before
// returning, so the next event always starts from a consistent state.
//
// A Matcher is owned by the Dispatcher's tick goroutine and is not safe
// for concurrent use.
type Matcher struct {
	def         move.Definition
	position    int
	accumulated int64
}

// NewMatcher creates a matcher positioned at the first step.
func NewMatcher(def move.Definition) *Matcher {
	return &Matcher{def: def}
}

// Advance feeds one event to the automaton and reports whether the move
// was recognized by it.
//
// Evaluation is strictly left to right:
//  1. At position 0 the event is tested against the first step.
//  2. Otherwise it is tested against the current step; a match advances
//     the cursor and adds the event delay to the accumulated delay.
//  3. If the continuation fails, the cursor resets and the same event gets
//     exactly one chance to start a fresh attempt at the first step.
//     Intermediate positions are never retried.
func (m *Matcher) Advance(e move.Event) bool {
	steps := m.def.Steps
	if len(steps) == 0 {
		return false
	}

	advanced := false
	if m.position > 0 && m.position < len(steps) && steps[m.position].Accepts(e) {
		m.position++
		m.accumulated += e.DelayMs
		advanced = true
	}

	if !advanced {
		// Fresh start, either because nothing was in progress or because
		// the continuation failed. Single-shot: no further retries.
		m.position = 0
		if !steps[0].Accepts(e) {
			return false
		}
		m.position = 1
		m.accumulated = 0
	}

	if m.position == len(steps) {
		m.position = 0
		return true
	}
	return false
}

// Name returns the name of the tracked definition.
func (m *Matcher) Name() string {
	return m.def.Name
}

// Position returns the index of the next step to satisfy.
func (m *Matcher) Position() int {
	return m.position
}

// Accumulated returns the sum of delays between the steps of the current or
// most recently completed attempt. The first step's delay is not included.
func (m *Matcher) Accumulated() int64 {
	return m.accumulated
}

// Reset abandons any attempt in progress.
func (m *Matcher) Reset() {
	m.position = 0
}
