package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/combo/internal/move"
)

// DefaultTickInterval is the sleep between two ticks of the Run loop.
const DefaultTickInterval = 500 * time.Microsecond

// Presenter consumes the frames produced by the Dispatcher.
// Implementations must not block for long; the tick loop waits on them.
type Presenter interface {
	Present(frame move.Frame) error
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(frame move.Frame) error

// Present calls f(frame).
func (f PresenterFunc) Present(frame move.Frame) error {
	return f(frame)
}

// KeyMap maps physical keys to logical action symbols. It is read-only
// once handed to a Dispatcher.
type KeyMap map[string]string

// Controls names the physical keys handled by the Dispatcher itself,
// independent of move matching. An empty key disables that control.
type Controls struct {
	Clear      string // discard pending input and tell the presenter to clear history
	Stop       string // end the session
	Replay     string // start replaying ReplayMove
	ReplayMove string
}

func (c Controls) isControl(key string) bool {
	return key != "" && (key == c.Clear || key == c.Stop || key == c.Replay)
}

// Dispatcher ties the input buffer, one Matcher per move definition and the
// single replay slot together, once per tick.
//
// Thread-safety model:
//   - HandleKey(), TriggerReplay(), Stop(): safe from any goroutine
//   - Tick() / Run(): must be called from exactly one goroutine, which owns
//     the matchers and the replay slot
//
// INVARIANTS:
//   - matchers are evaluated in declaration order of the definitions
//   - at most one replay is live; a new trigger replaces it outright
type Dispatcher struct {
	defs     []move.Definition
	matchers []*Matcher
	buffer   *InputBuffer
	injector Injector
	jitter   Jitter
	keyMap   KeyMap
	controls Controls
	clock    *Clock
	interval time.Duration
	logger   *slog.Logger

	running    atomic.Bool
	clear      atomic.Bool
	pending    atomic.Pointer[move.Definition]
	recognized atomic.Int64

	// Owned by the tick goroutine.
	player *Player
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithJitter sets the jitter source used for replay release timing.
func WithJitter(j Jitter) DispatcherOption {
	return func(d *Dispatcher) { d.jitter = j }
}

// WithBuffer uses an existing input buffer (e.g. one with a capacity bound).
func WithBuffer(b *InputBuffer) DispatcherOption {
	return func(d *Dispatcher) { d.buffer = b }
}

// WithKeyMap sets the physical key to action symbol table.
// Without a key map every non-control key is its own action symbol.
func WithKeyMap(m KeyMap) DispatcherOption {
	return func(d *Dispatcher) { d.keyMap = m }
}

// WithControls sets the control keys.
func WithControls(c Controls) DispatcherOption {
	return func(d *Dispatcher) { d.controls = c }
}

// WithTickInterval sets the sleep between ticks of Run.
func WithTickInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a dispatcher for the given library.
//
// The defs slice is copied so that external mutation cannot change the
// evaluation order.
func NewDispatcher(defs []move.Definition, injector Injector, opts ...DispatcherOption) *Dispatcher {
	defsCopy := make([]move.Definition, len(defs))
	copy(defsCopy, defs)

	d := &Dispatcher{
		defs:     defsCopy,
		injector: injector,
		clock:    NewClock(),
		interval: DefaultTickInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.injector == nil {
		d.injector = discardInjector{}
	}
	if d.jitter == nil {
		d.jitter = NewRandJitter(0)
	}
	if d.buffer == nil {
		d.buffer = NewInputBuffer(WithBufferLogger(d.logger))
	}

	d.matchers = make([]*Matcher, len(d.defs))
	for i, def := range d.defs {
		d.matchers[i] = NewMatcher(def)
	}
	d.running.Store(true)

	return d
}

// Buffer returns the input buffer fed by HandleKey.
func (d *Dispatcher) Buffer() *InputBuffer {
	return d.buffer
}

// Definitions returns the library in declaration order.
func (d *Dispatcher) Definitions() []move.Definition {
	out := make([]move.Definition, len(d.defs))
	copy(out, d.defs)
	return out
}

// HandleKey is the listener entry point. It never blocks.
//
// A mapped key is added to the input buffer as its action symbol; an
// unmapped key is only logged as a diagnostic. Control keys are then
// handled regardless of mapping.
func (d *Dispatcher) HandleKey(key string, ts int64) {
	key = move.NormalizeSymbol(key)

	if action, ok := d.resolve(key); ok {
		d.buffer.Add(action, ts)
	} else if !d.controls.isControl(key) {
		d.logger.Debug("unmapped key", "key", key, "ts", ts)
	}

	switch {
	case key == "":
	case key == d.controls.Clear:
		d.buffer.Clear()
		d.clear.Store(true)
		d.logger.Debug("history cleared", "ts", ts)
	case key == d.controls.Stop:
		d.Stop()
	case key == d.controls.Replay:
		if err := d.TriggerReplay(d.controls.ReplayMove); err != nil {
			d.logger.Warn("replay not started", "error", err)
		}
	}
}

func (d *Dispatcher) resolve(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if d.keyMap == nil {
		return key, !d.controls.isControl(key)
	}
	action, ok := d.keyMap[key]
	return action, ok
}

// TriggerReplay requests a replay of the named move. The request is picked
// up on the next tick and replaces any replay in progress.
//
// Returns *LookupError if the library has no move with that name.
func (d *Dispatcher) TriggerReplay(name string) error {
	def, ok := move.Find(d.defs, name)
	if !ok {
		return &LookupError{Name: name}
	}
	d.pending.Store(&def)
	d.logger.Info("replay requested", "move", name)
	return nil
}

// Stop asks the session to end. Run returns after the current tick.
func (d *Dispatcher) Stop() {
	if d.running.Swap(false) {
		d.logger.Info("session stop requested")
	}
}

// Running reports whether the session is still running.
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// Recognized returns the number of moves recognized so far.
func (d *Dispatcher) Recognized() int64 {
	return d.recognized.Load()
}

// Replaying reports whether a replay occupies the slot.
// Must be called from the tick goroutine.
func (d *Dispatcher) Replaying() bool {
	return d.player != nil
}

// Tick runs one iteration at timestamp ts (milliseconds).
//
// The replay slot is driven first, on every tick, whether or not input is
// pending. Then at most one event is popped and fanned out to every matcher
// in declaration order; each recognition adds a derived entry after the
// original one.
func (d *Dispatcher) Tick(ts int64) move.Frame {
	d.driveReplay(ts)

	var frame move.Frame
	if e, ok := d.buffer.Pop(); ok {
		frame.Entries = append(frame.Entries, d.entry(e))

		for _, m := range d.matchers {
			if !m.Advance(e) {
				continue
			}
			d.recognized.Add(1)
			derived := move.Event{
				Symbol:  move.DerivedSymbol(m.Name(), m.Accumulated()),
				DelayMs: move.DerivedDelayMs,
				Derived: true,
			}
			frame.Entries = append(frame.Entries, d.entry(derived))
			d.logger.Info("move recognized",
				"move", m.Name(),
				"accumulated_ms", m.Accumulated(),
				"ts", ts,
			)
		}
	}

	frame.Clear = d.clear.Swap(false)
	frame.Running = d.running.Load()
	return frame
}

func (d *Dispatcher) entry(e move.Event) move.Entry {
	return move.Entry{
		Seq:     d.clock.Next(),
		Symbol:  e.Symbol,
		DelayMs: e.DelayMs,
		Derived: e.Derived,
	}
}

// driveReplay installs a pending replay request and advances the slot.
// Called only from the tick goroutine.
func (d *Dispatcher) driveReplay(ts int64) {
	if def := d.pending.Swap(nil); def != nil {
		if d.player != nil {
			d.logger.Info("replacing active replay", "old", d.player.Name(), "new", def.Name)
			if err := d.player.Abort(d.injector); err != nil {
				d.logger.Warn("injection failed", "move", d.player.Name(), "error", err)
			}
		}
		d.player = NewPlayer(def.Name, def.Steps, d.jitter)
	}
	if d.player == nil {
		return
	}

	done, err := d.player.Step(ts, d.injector)
	if err != nil {
		// Log and continue: the player has already advanced past the action
		d.logger.Warn("injection failed", "move", d.player.Name(), "error", err)
	}
	if done {
		d.logger.Info("replay finished", "move", d.player.Name())
		d.player = nil
	}
}

// Run starts the cooperative tick loop. Blocks until ctx is cancelled or
// Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// The loop ticks on every interval and also as soon as the input buffer
// signals a new event. Each tick runs at now() and any non-empty frame is
// handed to the presenter. Presenter errors are logged and the
// loop continues. On exit an in-flight replay is discarded, not completed.
func (d *Dispatcher) Run(ctx context.Context, presenter Presenter, now TimeSource) error {
	if now == nil {
		now = NowMs
	}
	d.logger.Info("dispatcher starting", "moves", len(d.defs), "interval", d.interval)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.discardReplay()
			d.logger.Info("dispatcher stopping: context cancelled")
			return ctx.Err()
		case <-ticker.C:
		case <-d.buffer.Wait():
		}

		frame := d.Tick(now())
		if presenter != nil && !frame.Empty() {
			if err := presenter.Present(frame); err != nil {
				d.logger.Error("presenter failed", "error", err)
			}
		}

		if !frame.Running {
			d.discardReplay()
			d.logger.Info("dispatcher stopping: stop requested")
			return nil
		}
	}
}

func (d *Dispatcher) discardReplay() {
	d.pending.Store(nil)
	if d.player != nil {
		d.logger.Info("discarding in-flight replay", "move", d.player.Name(), "step", d.player.Cursor())
		if err := d.player.Abort(d.injector); err != nil {
			d.logger.Warn("injection failed", "move", d.player.Name(), "error", err)
		}
		d.player = nil
	}
}

// discardInjector drops every action. Used when no injector is configured.
type discardInjector struct{}

func (discardInjector) Press(string) error   { return nil }
func (discardInjector) Release(string) error { return nil }
