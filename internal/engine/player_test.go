package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/combo/internal/move"
	"github.com/roach88/combo/internal/testutil"
)

// runPlayer ticks p once per millisecond from start until it reports done
// or until limit is reached. Returns the timestamp of the done tick.
func runPlayer(t *testing.T, p *Player, clock *testutil.ManualClock, inj Injector, limit int64) int64 {
	t.Helper()
	for clock.Now() <= limit {
		done, err := p.Step(clock.Now(), inj)
		require.NoError(t, err)
		if done {
			return clock.Now()
		}
		clock.Advance(1)
	}
	t.Fatalf("player did not finish by ts=%d", limit)
	return 0
}

func TestPlayer_AutomationTiming(t *testing.T) {
	clock := testutil.NewManualClock(0)
	inj := testutil.NewRecordingInjector(clock)
	p := NewPlayer("Tap", []move.Step{move.NewStep("X")}, FixedJitter(60))

	doneAt := runPlayer(t, p, clock, inj, 1000)

	actions := inj.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, testutil.Action{Kind: "press", Symbol: "X", Ts: 1}, actions[0],
		"press on the first tick where ts > last action ts")

	release := actions[1]
	assert.Equal(t, "release", release.Kind)
	held := release.Ts - actions[0].Ts
	assert.GreaterOrEqual(t, held, ReleaseWindowMin)
	assert.LessOrEqual(t, held, ReleaseWindowMax)
	assert.Equal(t, release.Ts+1, doneAt, "done is reported on the tick after the release")
}

func TestPlayer_StatesAndCursor(t *testing.T) {
	inj := testutil.NewRecordingInjector(nil)
	p := NewPlayer("Tap", []move.Step{move.NewStep("X")}, FixedJitter(50))

	assert.Equal(t, PlayerIdle, p.State())

	_, err := p.Step(10, inj)
	require.NoError(t, err)
	assert.Equal(t, PlayerPressed, p.State())
	assert.Equal(t, 0, p.Cursor())

	_, err = p.Step(61, inj)
	require.NoError(t, err)
	assert.Equal(t, PlayerDone, p.State())
	assert.Equal(t, 1, p.Cursor())

	done, err := p.Step(62, inj)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "done", p.State().String())
}

func TestPlayer_MinDelayMeasuredFromPreviousPress(t *testing.T) {
	clock := testutil.NewManualClock(0)
	inj := testutil.NewRecordingInjector(clock)
	steps := []move.Step{
		move.NewStep("X"),
		{Accepted: []string{"Y"}, MinDelayMs: 200, MaxDelayMs: move.DefaultMaxDelayMs},
	}
	p := NewPlayer("Two", steps, FixedJitter(60))

	runPlayer(t, p, clock, inj, 1000)

	actions := inj.Actions()
	require.Len(t, actions, 4)
	assert.Equal(t, []string{"press X", "release X", "press Y", "release Y"}, []string{
		actions[0].Kind + " " + actions[0].Symbol,
		actions[1].Kind + " " + actions[1].Symbol,
		actions[2].Kind + " " + actions[2].Symbol,
		actions[3].Kind + " " + actions[3].Symbol,
	})
	assert.Equal(t, int64(1), actions[0].Ts)
	assert.Equal(t, int64(62), actions[1].Ts)
	assert.Equal(t, int64(202), actions[2].Ts, "Y waits until ts > press(X) + 200")
	assert.Equal(t, int64(263), actions[3].Ts)
}

func TestPlayer_HugeMinDelayNeverPresses(t *testing.T) {
	inj := testutil.NewRecordingInjector(nil)
	steps := []move.Step{{Accepted: []string{"X"}, MinDelayMs: math.MaxInt64 - 10, MaxDelayMs: math.MaxInt64}}
	p := NewPlayer("Never", steps, FixedJitter(60))

	for ts := int64(0); ts <= 1000; ts++ {
		done, err := p.Step(ts, inj)
		require.NoError(t, err)
		require.False(t, done)
	}
	assert.Empty(t, inj.Actions())
	assert.Equal(t, PlayerIdle, p.State())
}

func TestPlayer_OnlyFirstAlternativeIsInjected(t *testing.T) {
	inj := testutil.NewRecordingInjector(nil)
	p := NewPlayer("Alt", []move.Step{move.NewStep("A", "B")}, FixedJitter(50))

	for ts := int64(1); ts < 100; ts++ {
		if done, _ := p.Step(ts, inj); done {
			break
		}
	}

	for _, a := range inj.Actions() {
		assert.Equal(t, "A", a.Symbol)
	}
}

func TestPlayer_FreshJitterDrawPerCheck(t *testing.T) {
	inj := testutil.NewRecordingInjector(nil)
	jitter := testutil.NewSequenceJitter(100, 100, 50)
	p := NewPlayer("Tap", []move.Step{move.NewStep("X")}, jitter)

	_, _ = p.Step(1, inj)  // press
	_, _ = p.Step(40, inj) // draw 100: hold
	_, _ = p.Step(45, inj) // draw 100: hold
	assert.Equal(t, PlayerPressed, p.State())

	_, _ = p.Step(60, inj) // draw 50: 59 > 50, release
	assert.Equal(t, PlayerDone, p.State())
	assert.Equal(t, 3, jitter.Draws())
}

func TestPlayer_InjectionErrorStillAdvances(t *testing.T) {
	inj := testutil.NewRecordingInjector(nil)
	inj.FailOn("press", errors.New("device gone"))
	p := NewPlayer("Tap", []move.Step{move.NewStep("X")}, FixedJitter(50))

	_, err := p.Step(1, inj)
	require.Error(t, err)

	var ie *InjectionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "press", ie.Action)
	assert.Equal(t, "X", ie.Symbol)
	assert.Equal(t, PlayerPressed, p.State(), "state advances so the slot cannot wedge")
}

func TestPlayer_AbortReleasesHeldSymbol(t *testing.T) {
	inj := testutil.NewRecordingInjector(nil)
	p := NewPlayer("Tap", []move.Step{move.NewStep("X"), move.NewStep("Y")}, FixedJitter(50))

	_, _ = p.Step(1, inj)
	require.NoError(t, p.Abort(inj))

	actions := inj.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, "release", actions[1].Kind)
	assert.Equal(t, "X", actions[1].Symbol)
	assert.Equal(t, PlayerDone, p.State())

	require.NoError(t, p.Abort(inj))
	assert.Len(t, inj.Actions(), 2, "abort of a finished replay does nothing")
}

func TestPlayer_EmptyStepsDoneImmediately(t *testing.T) {
	p := NewPlayer("Empty", nil, FixedJitter(50))
	done, err := p.Step(1, testutil.NewRecordingInjector(nil))
	require.NoError(t, err)
	assert.True(t, done)
}
