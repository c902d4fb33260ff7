package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Move file error codes (E100-E199)
const (
	ErrSyntax          = "E101" // file does not parse
	ErrShape           = "E102" // wrong structure: top level, move or step
	ErrMissingInput    = "E103" // step has no input
	ErrInvalidInput    = "E104" // input is not a string or has an empty alternative
	ErrNoSteps         = "E105" // move has an empty step list
	ErrInvalidDelay    = "E106" // delay is not a non-negative integer
	ErrDelayRange      = "E107" // min.delay exceeds max.delay
	ErrUnknownField    = "E108" // step has a key other than input/max.delay/min.delay
	ErrDuplicateMove   = "E109" // move name used twice in a library
	ErrUnsupportedFile = "E110" // file extension has no parser
)

// ConfigError reports a malformed move file. It is raised at load time and
// aborts the load.
//
// Pos is set for sources compiled through CUE (.json, .cue). YAML sources
// carry File and Line instead.
type ConfigError struct {
	Field   string
	Message string
	Code    string
	Pos     token.Pos
	File    string
	Line    int
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Field, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Location returns "file:line" for the error, or "" when unknown.
func (e *ConfigError) Location() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d", e.Pos.Filename(), e.Pos.Line())
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d", e.File, e.Line)
	default:
		return e.File
	}
}

// IsConfigError checks if err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &ConfigError{
			Field:   "cue",
			Message: first.Error(),
			Code:    ErrSyntax,
			Pos:     positions[0],
		}
	}

	return &ConfigError{Field: "cue", Message: first.Error(), Code: ErrSyntax}
}
