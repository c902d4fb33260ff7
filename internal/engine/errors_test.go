package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupError(t *testing.T) {
	err := fmt.Errorf("replay: %w", &LookupError{Name: "Hadoken"})

	assert.True(t, IsLookupError(err))
	assert.False(t, IsLookupError(errors.New("move \"Hadoken\" not found")))
	assert.Equal(t, `move "Hadoken" not found`, (&LookupError{Name: "Hadoken"}).Error())
}

func TestInjectionError_Unwrap(t *testing.T) {
	cause := errors.New("device busy")
	err := &InjectionError{Action: "press", Symbol: "X", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `press "X": device busy`, err.Error())
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a := gen.Generate()
	b := gen.Generate()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "UUIDv7 ids sort by creation time")
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("s1", "s2")
	assert.Equal(t, "s1", gen.Generate())
	assert.Equal(t, "s2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
