// Package compiler turns move files into validated move definitions.
// JSON and CUE sources go through the CUE SDK; YAML sources through yaml.v3.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/combo/internal/move"
)

// Step field names as they appear in move files.
const (
	FieldInput    = "input"
	FieldMaxDelay = "max.delay"
	FieldMinDelay = "min.delay"
)

var knownStepFields = map[string]bool{
	FieldInput:    true,
	FieldMaxDelay: true,
	FieldMinDelay: true,
}

// rawStep is one step as read from a source, before validation.
// Nil pointers mean the key was absent.
type rawStep struct {
	input    *string
	maxDelay *int64
	minDelay *int64
}

// CompileMoves parses a CUE value whose fields are moves into definitions,
// in declaration order.
//
// The value is the top-level struct of a move file, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`"Dash": [{input: "→"}, {input: "→", "max.delay": 200}]`)
//	defs, err := CompileMoves(v)
func CompileMoves(v cue.Value) ([]move.Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &ConfigError{
			Field:   "moves",
			Message: "top level must map move names to step lists",
			Code:    ErrShape,
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []move.Definition
	for iter.Next() {
		name := iter.Selector().Unquoted()
		def, err := compileMove(name, iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}

func compileMove(name string, v cue.Value) (move.Definition, error) {
	if v.IncompleteKind() != cue.ListKind {
		return move.Definition{}, &ConfigError{
			Field:   name,
			Message: "move must be a list of steps",
			Code:    ErrShape,
			Pos:     v.Pos(),
		}
	}

	list, err := v.List()
	if err != nil {
		return move.Definition{}, formatCUEError(err)
	}

	def := move.Definition{Name: name}
	for i := 0; list.Next(); i++ {
		field := fmt.Sprintf("%s[%d]", name, i)
		raw, err := readCUEStep(field, list.Value())
		if err != nil {
			return move.Definition{}, err
		}
		step, bad := buildStep(raw)
		if bad != nil {
			bad.Field = field + "." + bad.Field
			bad.Pos = list.Value().Pos()
			return move.Definition{}, bad
		}
		def.Steps = append(def.Steps, step)
	}

	if len(def.Steps) == 0 {
		return move.Definition{}, &ConfigError{
			Field:   name,
			Message: "move has no steps",
			Code:    ErrNoSteps,
			Pos:     v.Pos(),
		}
	}
	return def, nil
}

func readCUEStep(field string, v cue.Value) (rawStep, error) {
	var raw rawStep

	if v.IncompleteKind() != cue.StructKind {
		return raw, &ConfigError{
			Field:   field,
			Message: "step must be an object",
			Code:    ErrShape,
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return raw, formatCUEError(err)
	}
	for iter.Next() {
		key := iter.Selector().Unquoted()
		if !knownStepFields[key] {
			return raw, &ConfigError{
				Field:   field + "." + key,
				Message: "unknown step field",
				Code:    ErrUnknownField,
				Pos:     iter.Value().Pos(),
			}
		}
	}

	if in := v.LookupPath(cue.MakePath(cue.Str(FieldInput))); in.Exists() {
		s, err := in.String()
		if err != nil {
			return raw, &ConfigError{
				Field:   field + "." + FieldInput,
				Message: "input must be a string",
				Code:    ErrInvalidInput,
				Pos:     in.Pos(),
			}
		}
		raw.input = &s
	}

	for _, key := range []string{FieldMaxDelay, FieldMinDelay} {
		dv := v.LookupPath(cue.MakePath(cue.Str(key)))
		if !dv.Exists() {
			continue
		}
		if dv.Kind() != cue.IntKind {
			return raw, &ConfigError{
				Field:   field + "." + key,
				Message: "delay must be an integer number of milliseconds",
				Code:    ErrInvalidDelay,
				Pos:     dv.Pos(),
			}
		}
		n, err := dv.Int64()
		if err != nil {
			return raw, &ConfigError{
				Field:   field + "." + key,
				Message: err.Error(),
				Code:    ErrInvalidDelay,
				Pos:     dv.Pos(),
			}
		}
		if key == FieldMaxDelay {
			raw.maxDelay = &n
		} else {
			raw.minDelay = &n
		}
	}

	return raw, nil
}

// buildStep validates a raw step. On failure it returns an error whose
// Field is the offending key; the caller completes the location.
func buildStep(raw rawStep) (move.Step, *ConfigError) {
	if raw.input == nil {
		return move.Step{}, &ConfigError{Field: FieldInput, Message: "input is required", Code: ErrMissingInput}
	}
	symbols, err := move.ParseAlternatives(*raw.input)
	if err != nil {
		return move.Step{}, &ConfigError{Field: FieldInput, Message: err.Error(), Code: ErrInvalidInput}
	}

	step := move.NewStep(symbols...)
	if raw.maxDelay != nil {
		step.MaxDelayMs = *raw.maxDelay
	}
	if raw.minDelay != nil {
		step.MinDelayMs = *raw.minDelay
	}

	if step.MaxDelayMs < 0 {
		return move.Step{}, &ConfigError{Field: FieldMaxDelay, Message: "delay must not be negative", Code: ErrInvalidDelay}
	}
	if step.MinDelayMs < 0 {
		return move.Step{}, &ConfigError{Field: FieldMinDelay, Message: "delay must not be negative", Code: ErrInvalidDelay}
	}
	if step.MinDelayMs > step.MaxDelayMs {
		return move.Step{}, &ConfigError{
			Field:   FieldMinDelay,
			Message: fmt.Sprintf("min.delay %d exceeds max.delay %d", step.MinDelayMs, step.MaxDelayMs),
			Code:    ErrDelayRange,
		}
	}
	return step, nil
}
