package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/combo/internal/move"
)

func TestCompileYAML(t *testing.T) {
	src := `
Zeta:
  - input: "X|Z"
  - input: "Y"
    max.delay: 300
Alpha:
  - input: "↑"
    min.delay: 5
    max.delay: 80
`
	defs, err := CompileYAML([]byte(src), "moves.yaml")
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "Zeta", defs[0].Name)
	assert.Equal(t, []string{"X", "Z"}, defs[0].Steps[0].Accepted)
	assert.Equal(t, move.DefaultMaxDelayMs, defs[0].Steps[0].MaxDelayMs)
	assert.Equal(t, int64(300), defs[0].Steps[1].MaxDelayMs)

	assert.Equal(t, "Alpha", defs[1].Name)
	assert.Equal(t, int64(5), defs[1].Steps[0].MinDelayMs)
	assert.Equal(t, int64(80), defs[1].Steps[0].MaxDelayMs)
}

func TestCompileYAMLMatchesJSON(t *testing.T) {
	fromJSON, err := compileJSON(t, `{"M": [{"input": "A|B", "max.delay": 50}, {"input": "C", "min.delay": 3}]}`)
	require.NoError(t, err)

	fromYAML, err := CompileBytes([]byte(`
M:
  - {input: "A|B", max.delay: 50}
  - {input: C, min.delay: 3}
`), "moves.yml")
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
}

func TestCompileYAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		field   string
		message string
		line    int
	}{
		{
			name:    "duplicate move",
			src:     "A:\n  - input: x\nA:\n  - input: y\n",
			field:   "A",
			message: "duplicate move name",
			line:    3,
		},
		{
			name:    "quoted delay",
			src:     "A:\n  - input: x\n    max.delay: \"50\"\n",
			field:   "A[0].max.delay",
			message: "integer",
			line:    3,
		},
		{
			name:    "missing input",
			src:     "A:\n  - min.delay: 5\n",
			field:   "A[0].input",
			message: "required",
			line:    2,
		},
		{
			name:    "unknown key",
			src:     "A:\n  - input: x\n    delay: 5\n",
			field:   "A[0].delay",
			message: "unknown step field",
			line:    3,
		},
		{
			name:    "empty move",
			src:     "A: []\n",
			field:   "A",
			message: "no steps",
			line:    1,
		},
		{
			name:    "top level list",
			src:     "- input: x\n",
			field:   "moves",
			message: "top level",
			line:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileYAML([]byte(tt.src), "moves.yaml")
			require.Error(t, err)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.message)
			assert.Equal(t, tt.line, ce.Line)
			assert.Equal(t, "moves.yaml", ce.File)
		})
	}
}

func TestCompileYAMLEmpty(t *testing.T) {
	_, err := CompileYAML([]byte(""), "empty.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty move file")
}

func TestCompileYAMLSyntaxError(t *testing.T) {
	_, err := CompileYAML([]byte("A: [\n"), "bad.yaml")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "bad.yaml")
}
