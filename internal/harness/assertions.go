package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/combo/internal/move"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", event)
	}

	return buf.String()
}

// evaluateAssertion dispatches to the checker for the assertion type.
func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertRecognized:
		return assertRecognized(result, a)
	case AssertHistory:
		return assertHistory(result, a)
	case AssertHistoryContains:
		return assertHistoryContains(result, a)
	case AssertInjected:
		return assertInjected(result, a)
	case AssertStopped:
		return assertStopped(result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertRecognized checks the recognition count of a move and, if given,
// the accumulated delay of its last recognition.
func assertRecognized(result *Result, a Assertion) error {
	got := result.Recognized[a.Move]
	if got != a.Count {
		return &AssertionError{
			Type:     AssertRecognized,
			Expected: fmt.Sprintf("%s recognized %d time(s)", a.Move, a.Count),
			Actual:   fmt.Sprintf("recognized %d time(s)", got),
			Trace:    result.Trace,
		}
	}

	if a.Accumulated == nil {
		return nil
	}
	var (
		last  int64
		found bool
	)
	for _, ev := range result.Trace {
		if ev.Kind != KindEntry || !ev.Derived {
			continue
		}
		if name, acc, ok := move.ParseDerivedSymbol(ev.Symbol); ok && name == a.Move {
			last, found = acc, true
		}
	}
	if !found || last != *a.Accumulated {
		actual := "no recognition"
		if found {
			actual = fmt.Sprintf("%d ms", last)
		}
		return &AssertionError{
			Type:     AssertRecognized,
			Expected: fmt.Sprintf("%s accumulated %d ms", a.Move, *a.Accumulated),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertHistory checks the full ordered list of history symbols.
func assertHistory(result *Result, a Assertion) error {
	got := result.History()
	want := a.Symbols
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertHistory,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertHistoryContains checks that a symbol appears in the history.
func assertHistoryContains(result *Result, a Assertion) error {
	if slices.Contains(result.History(), a.Symbol) {
		return nil
	}
	return &AssertionError{
		Type:     AssertHistoryContains,
		Expected: fmt.Sprintf("history contains %s", a.Symbol),
		Actual:   "not found in history",
		Trace:    result.Trace,
	}
}

// assertInjected checks the full ordered list of injected actions.
func assertInjected(result *Result, a Assertion) error {
	got := result.Injected()
	want := a.Actions
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertInjected,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertStopped checks that the run ended on the stop control.
func assertStopped(result *Result) error {
	n := len(result.Trace)
	if n > 0 && result.Trace[n-1].Kind == KindStop {
		return nil
	}
	return &AssertionError{
		Type:     AssertStopped,
		Expected: "session stopped",
		Actual:   "session still running at end of run",
		Trace:    result.Trace,
	}
}
