package engine

import (
	"github.com/roach88/combo/internal/move"
)

// Release window bounds, in milliseconds. A pressed symbol is held for a
// freshly drawn jitter value in this range before it is released.
const (
	ReleaseWindowMin int64 = 50
	ReleaseWindowMax int64 = 100
)

// Injector issues synthetic presses and releases to the operating system.
// Symbols are logical action symbols; mapping them to physical keys is the
// injector's concern.
type Injector interface {
	Press(symbol string) error
	Release(symbol string) error
}

// PlayerState names the phase of the current step.
type PlayerState int

const (
	// PlayerIdle waits for the step's minimum delay before pressing.
	PlayerIdle PlayerState = iota
	// PlayerPressed holds the symbol until the jittered release window passes.
	PlayerPressed
	// PlayerDone has replayed every step.
	PlayerDone
)

// String returns the human-readable name of the state.
func (s PlayerState) String() string {
	switch s {
	case PlayerIdle:
		return "idle"
	case PlayerPressed:
		return "pressed"
	case PlayerDone:
		return "done"
	default:
		return "unknown"
	}
}

// Player replays one move as press/release cycles. It advances on ticks
// (time), not on events.
//
// Only the first accepted symbol of each step is injected. A Player is
// owned by the Dispatcher's tick goroutine and is not safe for concurrent use.
type Player struct {
	name         string
	steps        []move.Step
	jitter       Jitter
	cursor       int
	pressed      bool
	lastActionTs int64
}

// NewPlayer creates a player positioned before the first step.
// The last-action timestamp starts at 0, so the first press happens on the
// first tick whose timestamp exceeds the first step's minimum delay.
func NewPlayer(name string, steps []move.Step, jitter Jitter) *Player {
	if jitter == nil {
		jitter = NewRandJitter(0)
	}
	return &Player{name: name, steps: steps, jitter: jitter}
}

// Name returns the name of the move being replayed.
func (p *Player) Name() string {
	return p.name
}

// State returns the current phase.
func (p *Player) State() PlayerState {
	switch {
	case p.cursor >= len(p.steps):
		return PlayerDone
	case p.pressed:
		return PlayerPressed
	default:
		return PlayerIdle
	}
}

// Cursor returns the index of the step being replayed.
func (p *Player) Cursor() int {
	return p.cursor
}

// Step evaluates one tick at timestamp ts and reports whether the replay
// has finished. At most one press or release is issued per call.
//
// An injector failure is returned, but the state machine still advances
// as if the action had succeeded, so a broken injector cannot wedge the
// replay slot.
func (p *Player) Step(ts int64, inj Injector) (bool, error) {
	if p.cursor >= len(p.steps) {
		return true, nil
	}

	step := p.steps[p.cursor]
	symbol := step.First()

	if p.pressed {
		// Fresh draw every time the check is made
		if ts-p.lastActionTs > p.jitter.Between(ReleaseWindowMin, ReleaseWindowMax) {
			p.pressed = false
			p.cursor++
			if err := inj.Release(symbol); err != nil {
				return false, &InjectionError{Action: "release", Symbol: symbol, Err: err}
			}
		}
		return false, nil
	}

	if ts-p.lastActionTs > step.MinDelayMs {
		p.pressed = true
		p.lastActionTs = ts
		if err := inj.Press(symbol); err != nil {
			return false, &InjectionError{Action: "press", Symbol: symbol, Err: err}
		}
	}
	return false, nil
}

// Abort ends the replay early. If a symbol is currently held it is released
// so that no key is left stuck down.
func (p *Player) Abort(inj Injector) error {
	if !p.pressed || p.cursor >= len(p.steps) {
		p.cursor = len(p.steps)
		return nil
	}
	symbol := p.steps[p.cursor].First()
	p.pressed = false
	p.cursor = len(p.steps)
	if err := inj.Release(symbol); err != nil {
		return &InjectionError{Action: "release", Symbol: symbol, Err: err}
	}
	return nil
}
