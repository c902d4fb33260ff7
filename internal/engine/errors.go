package engine

import (
	"errors"
	"fmt"
)

// LookupError reports that a replay was requested for a move that is not
// part of the loaded library. The session continues unaffected.
type LookupError struct {
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("move %q not found", e.Name)
}

// IsLookupError returns true if err is or wraps a LookupError.
func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

// InjectionError wraps a failure of the injection collaborator.
type InjectionError struct {
	Action string // "press" or "release"
	Symbol string
	Err    error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Action, e.Symbol, e.Err)
}

func (e *InjectionError) Unwrap() error {
	return e.Err
}
