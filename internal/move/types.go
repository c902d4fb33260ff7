package move

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxDelayMs is the "practically unbounded" upper delay of a Step.
// It is compared like any other bound; there is no special infinite case.
const DefaultMaxDelayMs int64 = 1 << 33

// DerivedDelayMs is the delay reported for events synthesized from a recognition.
const DerivedDelayMs int64 = 1

// Event is one logical input occurrence.
// DelayMs is the time since the previous event entered the input buffer.
type Event struct {
	Symbol  string `json:"symbol"`
	DelayMs int64  `json:"delay_ms"`
	Derived bool   `json:"derived,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d)", e.Symbol, e.DelayMs)
}

// Step is one position in a move's required sequence.
type Step struct {
	Accepted   []string `json:"accepted"`
	MinDelayMs int64    `json:"min_delay_ms"`
	MaxDelayMs int64    `json:"max_delay_ms"`
}

// NewStep returns a step accepting the given symbols with default delay bounds.
func NewStep(symbols ...string) Step {
	return Step{Accepted: symbols, MinDelayMs: 0, MaxDelayMs: DefaultMaxDelayMs}
}

// Accepts reports whether e satisfies both the symbol set and the delay window.
func (s Step) Accepts(e Event) bool {
	if e.DelayMs < s.MinDelayMs || e.DelayMs > s.MaxDelayMs {
		return false
	}
	for _, sym := range s.Accepted {
		if sym == e.Symbol {
			return true
		}
	}
	return false
}

// First returns the symbol used when the step is replayed.
// Alternatives only matter for recognition.
func (s Step) First() string {
	if len(s.Accepted) == 0 {
		return ""
	}
	return s.Accepted[0]
}

func (s Step) String() string {
	return fmt.Sprintf("%v(%d-%d)", s.Accepted, s.MinDelayMs, s.MaxDelayMs)
}

// Definition is a named, ordered sequence of steps.
// Definitions are loaded once and shared read-only.
type Definition struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

func (d Definition) String() string {
	out := d.Name + ":"
	for i, s := range d.Steps {
		if i == 0 {
			out += " "
		} else {
			out += " + "
		}
		out += s.String()
	}
	return out
}

// Find returns the definition with the given name.
func Find(defs []Definition, name string) (Definition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Entry is one outward record handed to the presentation collaborator.
type Entry struct {
	Seq     int64  `json:"seq"`
	Symbol  string `json:"symbol"`
	DelayMs int64  `json:"delay_ms"`
	Derived bool   `json:"derived"`
}

// Frame is the output of a single dispatcher tick.
type Frame struct {
	Entries []Entry `json:"entries"`
	Clear   bool    `json:"clear"`
	Running bool    `json:"running"`
}

// Empty reports whether the frame carries nothing a presenter must act on.
func (f Frame) Empty() bool {
	return len(f.Entries) == 0 && !f.Clear && f.Running
}

// DerivedSymbol formats the symbol of a recognition event: "[<accumulated>]<name>".
func DerivedSymbol(name string, accumulatedMs int64) string {
	return fmt.Sprintf("[%d]%s", accumulatedMs, name)
}

// ParseDerivedSymbol is the inverse of DerivedSymbol. It reports false for
// symbols that do not have the derived shape.
func ParseDerivedSymbol(symbol string) (name string, accumulatedMs int64, ok bool) {
	if !strings.HasPrefix(symbol, "[") {
		return "", 0, false
	}
	end := strings.IndexByte(symbol, ']')
	if end < 2 || end == len(symbol)-1 {
		return "", 0, false
	}
	acc, err := strconv.ParseInt(symbol[1:end], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return symbol[end+1:], acc, true
}
