package testutil

import (
	"fmt"
	"sync"
)

// Action is one recorded injection.
type Action struct {
	Kind   string // "press" or "release"
	Symbol string
	Ts     int64 // clock reading at the time of the call, if a clock is attached
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s @%d", a.Kind, a.Symbol, a.Ts)
}

// RecordingInjector records presses and releases instead of touching the OS.
// It satisfies engine.Injector.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingInjector struct {
	mu      sync.Mutex
	actions []Action
	clock   *ManualClock
	failOn  map[string]error
}

// NewRecordingInjector creates an injector. If clock is non-nil each action
// is stamped with its current reading.
func NewRecordingInjector(clock *ManualClock) *RecordingInjector {
	return &RecordingInjector{clock: clock, failOn: map[string]error{}}
}

// FailOn makes every action of the given kind ("press" or "release") return err.
func (r *RecordingInjector) FailOn(kind string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOn[kind] = err
}

// Press records a press.
func (r *RecordingInjector) Press(symbol string) error {
	return r.record("press", symbol)
}

// Release records a release.
func (r *RecordingInjector) Release(symbol string) error {
	return r.record("release", symbol)
}

func (r *RecordingInjector) record(kind, symbol string) error {
	var ts int64
	if r.clock != nil {
		ts = r.clock.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, Action{Kind: kind, Symbol: symbol, Ts: ts})
	return r.failOn[kind]
}

// Actions returns a snapshot of the recorded actions.
func (r *RecordingInjector) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}
