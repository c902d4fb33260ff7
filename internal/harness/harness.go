package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/combo/internal/engine"
	"github.com/roach88/combo/internal/move"
	"github.com/roach88/combo/internal/testutil"
)

// idleCap bounds a run without an explicit Until: the run is abandoned this
// many ms after the last input if a replay is still going.
const idleCap int64 = 60_000

// Harness drives a Dispatcher through scripted time.
// One tick per millisecond; inputs due at a timestamp are handed to the
// dispatcher before that timestamp's tick.
type Harness struct {
	dispatcher *engine.Dispatcher
	clock      *testutil.ManualClock
	injector   *testutil.RecordingInjector
	logger     *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  0. Validate the scenario (hand-built scenarios skip LoadScenario)
//  1. Compile the move library
//  2. Build a dispatcher with a manual clock, fixed jitter and a recording injector
//  3. Tick every millisecond, feeding inputs as they come due
//  4. Evaluate assertions against the trace
func Run(scenario *Scenario) (*Result, error) {
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	defs, err := scenario.LoadLibrary()
	if err != nil {
		return nil, fmt.Errorf("failed to load moves: %w", err)
	}

	h := newHarness(scenario, defs)
	result := NewResult()
	h.run(scenario, result)

	for _, a := range scenario.Assertions {
		if err := evaluateAssertion(result, a); err != nil {
			result.AddError(err.Error())
		}
	}

	return result, nil
}

func newHarness(s *Scenario, defs []move.Definition) *Harness {
	clock := testutil.NewManualClock(0)
	injector := testutil.NewRecordingInjector(clock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	jitter := engine.ReleaseWindowMin
	if s.Jitter != nil {
		jitter = *s.Jitter
	}

	opts := []engine.DispatcherOption{
		engine.WithJitter(engine.FixedJitter(jitter)),
		engine.WithBuffer(engine.NewInputBuffer(
			engine.WithCapacity(s.Capacity),
			engine.WithBufferLogger(logger),
		)),
		engine.WithLogger(logger),
	}
	if s.KeyMap != nil {
		opts = append(opts, engine.WithKeyMap(engine.KeyMap(s.KeyMap)))
	}
	if s.Controls != nil {
		opts = append(opts, engine.WithControls(engine.Controls{
			Clear:      s.Controls.Clear,
			Stop:       s.Controls.Stop,
			Replay:     s.Controls.Replay,
			ReplayMove: s.Controls.ReplayMove,
		}))
	}

	return &Harness{
		dispatcher: engine.NewDispatcher(defs, injector, opts...),
		clock:      clock,
		injector:   injector,
		logger:     logger,
	}
}

func (h *Harness) run(s *Scenario, result *Result) {
	lastInput := s.Inputs[len(s.Inputs)-1].At
	next := 0
	seen := 0

	for ts := int64(0); ; ts++ {
		h.clock.Set(ts)

		for next < len(s.Inputs) && s.Inputs[next].At == ts {
			h.dispatcher.HandleKey(s.Inputs[next].Key, ts)
			next++
		}

		frame := h.dispatcher.Tick(ts)

		// The replay slot is driven before input within a tick
		actions := h.injector.Actions()
		for _, a := range actions[seen:] {
			result.Trace = append(result.Trace, TraceEvent{Kind: a.Kind, Ts: a.Ts, Symbol: a.Symbol})
		}
		seen = len(actions)

		for _, e := range frame.Entries {
			result.addEntry(ts, e)
		}
		if frame.Clear {
			result.Trace = append(result.Trace, TraceEvent{Kind: KindClear, Ts: ts})
		}
		if !frame.Running {
			result.Trace = append(result.Trace, TraceEvent{Kind: KindStop, Ts: ts})
			return
		}

		if s.Until > 0 {
			if ts >= s.Until {
				return
			}
			continue
		}
		if ts >= lastInput && h.dispatcher.Buffer().Len() == 0 && !h.dispatcher.Replaying() {
			return
		}
		if ts >= lastInput+idleCap {
			return
		}
	}
}
