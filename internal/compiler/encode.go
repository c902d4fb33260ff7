package compiler

import (
	"bytes"
	"encoding/json"

	"github.com/roach88/combo/internal/move"
)

// MarshalMoves renders a library as a JSON move file.
//
// Moves keep their declaration order and step keys are always written as
// input, max.delay, min.delay. Delays equal to the defaults are omitted, so
// compiling the output yields the same definitions.
func MarshalMoves(defs []move.Definition) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")

	for i, def := range defs {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		if err := writeString(&buf, def.Name); err != nil {
			return nil, err
		}
		buf.WriteString(": [")

		for j, step := range def.Steps {
			if j > 0 {
				buf.WriteString(",")
			}
			buf.WriteString("\n    {")
			if err := writeKey(&buf, FieldInput); err != nil {
				return nil, err
			}
			if err := writeString(&buf, move.JoinAlternatives(step.Accepted)); err != nil {
				return nil, err
			}
			if step.MaxDelayMs != move.DefaultMaxDelayMs {
				buf.WriteString(", ")
				if err := writeKey(&buf, FieldMaxDelay); err != nil {
					return nil, err
				}
				buf.WriteString(jsonInt(step.MaxDelayMs))
			}
			if step.MinDelayMs != 0 {
				buf.WriteString(", ")
				if err := writeKey(&buf, FieldMinDelay); err != nil {
					return nil, err
				}
				buf.WriteString(jsonInt(step.MinDelayMs))
			}
			buf.WriteString("}")
		}
		if len(def.Steps) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteString("]")
	}

	if len(defs) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	if err := writeString(buf, key); err != nil {
		return err
	}
	buf.WriteString(": ")
	return nil
}

// writeString writes s as a JSON string without HTML escaping, so arrow
// glyphs and other symbols stay readable.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
