package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/combo/internal/compiler"
	"github.com/roach88/combo/internal/move"
)

// Scenario defines a timed input script and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Moves lists move files to load, in order.
	// Paths are relative to the scenario file location.
	Moves []string `yaml:"moves,omitempty"`

	// Library is an inline move library in the YAML move file format.
	// Inline moves come after those loaded from Moves.
	Library yaml.Node `yaml:"library,omitempty"`

	// KeyMap maps physical keys to action symbols. Without it every key is
	// its own symbol.
	KeyMap map[string]string `yaml:"keymap,omitempty"`

	// Controls overrides the control keys. Unset controls are disabled.
	Controls *ControlKeys `yaml:"controls,omitempty"`

	// Jitter is the fixed release window (ms) used for replays.
	// Defaults to the lower release window bound.
	Jitter *int64 `yaml:"jitter,omitempty"`

	// Capacity bounds the input buffer. 0 means unbounded.
	Capacity int `yaml:"capacity,omitempty"`

	// Until is the last tick timestamp. If 0 the run ends once all input is
	// consumed and no replay is active.
	Until int64 `yaml:"until,omitempty"`

	// Inputs are the key events, by timestamp.
	Inputs []Input `yaml:"inputs"`

	// Assertions validate the resulting trace.
	Assertions []Assertion `yaml:"assertions"`
}

// ControlKeys names the control keys of a scenario.
type ControlKeys struct {
	Clear      string `yaml:"clear,omitempty"`
	Stop       string `yaml:"stop,omitempty"`
	Replay     string `yaml:"replay,omitempty"`
	ReplayMove string `yaml:"replay_move,omitempty"`
}

// Input is one key arriving at a given timestamp (ms).
type Input struct {
	At  int64  `yaml:"at"`
	Key string `yaml:"key"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "recognized": Move was recognized exactly Count times
	// - "history": History symbols equal Symbols exactly
	// - "history_contains": History contains Symbol
	// - "injected": Injected actions equal Actions exactly ("press X", "release X")
	// - "stopped": The session was stopped by the stop control
	Type string `yaml:"type"`

	// Move is the move name (used by recognized).
	Move string `yaml:"move,omitempty"`

	// Count is the expected number of recognitions (used by recognized).
	Count int `yaml:"count,omitempty"`

	// Accumulated is the expected accumulated delay of the last
	// recognition (used by recognized, optional).
	Accumulated *int64 `yaml:"accumulated,omitempty"`

	// Symbol is the expected history symbol (used by history_contains).
	Symbol string `yaml:"symbol,omitempty"`

	// Symbols is the expected history (used by history).
	Symbols []string `yaml:"symbols,omitempty"`

	// Actions is the expected injection sequence (used by injected).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertRecognized      = "recognized"
	AssertHistory         = "history"
	AssertHistoryContains = "history_contains"
	AssertInjected        = "injected"
	AssertStopped         = "stopped"
)

// LoadScenario reads and parses a scenario YAML file. Move paths are
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Moves {
		if !filepath.IsAbs(p) {
			scenario.Moves[i] = filepath.Join(base, p)
		}
	}

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// Validate checks that required fields are present and valid.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Moves) == 0 && s.Library.Kind == 0 {
		return fmt.Errorf("moves or library is required")
	}

	if len(s.Inputs) == 0 {
		return fmt.Errorf("inputs list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range s.Moves {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("move file not found: %s", p)
		}
	}

	var last int64
	for i, in := range s.Inputs {
		if in.Key == "" {
			return fmt.Errorf("inputs[%d]: key is required", i)
		}
		if in.At < 0 {
			return fmt.Errorf("inputs[%d]: at must be non-negative", i)
		}
		if in.At < last {
			return fmt.Errorf("inputs[%d]: at %d is before the previous input (%d)", i, in.At, last)
		}
		last = in.At
	}

	if s.Until < 0 {
		return fmt.Errorf("until must be non-negative")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecognized:
		if a.Move == "" {
			return fmt.Errorf("assertions[%d]: move is required for recognized", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for recognized", index)
		}
	case AssertHistory:
		// An empty list asserts an empty history
	case AssertHistoryContains:
		if a.Symbol == "" {
			return fmt.Errorf("assertions[%d]: symbol is required for history_contains", index)
		}
	case AssertInjected:
		// An empty list asserts that nothing was injected
	case AssertStopped:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// LoadLibrary compiles the scenario's move files followed by its inline
// library. Move names must be unique across both.
func (s *Scenario) LoadLibrary() ([]move.Definition, error) {
	var defs []move.Definition
	for _, p := range s.Moves {
		fileDefs, err := compiler.CompileFile(p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}

	if s.Library.Kind != 0 {
		data, err := yaml.Marshal(&s.Library)
		if err != nil {
			return nil, fmt.Errorf("failed to encode inline library: %w", err)
		}
		inline, err := compiler.CompileYAML(data, s.Name+" (inline library)")
		if err != nil {
			return nil, err
		}
		defs = append(defs, inline...)
	}

	if err := compiler.CheckDuplicates(defs); err != nil {
		return nil, err
	}
	return defs, nil
}
