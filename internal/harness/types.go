package harness

import (
	"fmt"

	"github.com/roach88/combo/internal/move"
)

// Trace event kinds.
const (
	KindEntry   = "entry"
	KindPress   = "press"
	KindRelease = "release"
	KindClear   = "clear"
	KindStop    = "stop"
)

// TraceEvent is one observable effect of a scenario run: a history entry,
// an injected press or release, or a clear/stop point.
type TraceEvent struct {
	Kind    string `json:"kind"`
	Ts      int64  `json:"ts"`
	Seq     int64  `json:"seq,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	DelayMs int64  `json:"delay_ms,omitempty"`
	Derived bool   `json:"derived,omitempty"`
}

// String renders the event as one golden trace line.
func (e TraceEvent) String() string {
	switch e.Kind {
	case KindEntry:
		line := fmt.Sprintf("t=%d entry #%d %s +%d", e.Ts, e.Seq, e.Symbol, e.DelayMs)
		if e.Derived {
			line += " derived"
		}
		return line
	case KindPress, KindRelease:
		return fmt.Sprintf("t=%d %s %s", e.Ts, e.Kind, e.Symbol)
	default:
		return fmt.Sprintf("t=%d %s", e.Ts, e.Kind)
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains every event in the order it happened.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Recognized counts recognitions per move name.
	Recognized map[string]int `json:"recognized"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		Errors:     []string{},
		Recognized: make(map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEntry appends a history entry and counts it if it is a recognition.
func (r *Result) addEntry(ts int64, e move.Entry) {
	r.Trace = append(r.Trace, TraceEvent{
		Kind:    KindEntry,
		Ts:      ts,
		Seq:     e.Seq,
		Symbol:  e.Symbol,
		DelayMs: e.DelayMs,
		Derived: e.Derived,
	})
	if e.Derived {
		if name, _, ok := move.ParseDerivedSymbol(e.Symbol); ok {
			r.Recognized[name]++
		}
	}
}

// History returns the symbols of all history entries in order.
func (r *Result) History() []string {
	out := []string{}
	for _, ev := range r.Trace {
		if ev.Kind == KindEntry {
			out = append(out, ev.Symbol)
		}
	}
	return out
}

// Injected returns the injected actions as "press X" / "release X".
func (r *Result) Injected() []string {
	out := []string{}
	for _, ev := range r.Trace {
		if ev.Kind == KindPress || ev.Kind == KindRelease {
			out = append(out, ev.Kind+" "+ev.Symbol)
		}
	}
	return out
}
