package compiler

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/combo/internal/move"
)

// CompileYAML parses a YAML move file. The document is walked as a
// yaml.Node so that moves keep the order in which they are written.
func CompileYAML(data []byte, filename string) ([]move.Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ConfigError{Field: "yaml", Message: err.Error(), Code: ErrSyntax, File: filename}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, &ConfigError{Field: "moves", Message: "empty move file", Code: ErrShape, File: filename}
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, &ConfigError{
			Field:   "moves",
			Message: "top level must map move names to step lists",
			Code:    ErrShape,
			File:    filename,
			Line:    doc.Line,
		}
	}

	seen := make(map[string]int)
	var defs []move.Definition
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode, valNode := doc.Content[i], doc.Content[i+1]
		name := keyNode.Value

		if line, dup := seen[name]; dup {
			return nil, &ConfigError{
				Field:   name,
				Message: fmt.Sprintf("duplicate move name (first defined on line %d)", line),
				Code:    ErrDuplicateMove,
				File:    filename,
				Line:    keyNode.Line,
			}
		}
		seen[name] = keyNode.Line

		def, err := compileYAMLMove(name, valNode, filename)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}

func compileYAMLMove(name string, n *yaml.Node, filename string) (move.Definition, error) {
	if n.Kind != yaml.SequenceNode {
		return move.Definition{}, &ConfigError{
			Field:   name,
			Message: "move must be a list of steps",
			Code:    ErrShape,
			File:    filename,
			Line:    n.Line,
		}
	}

	def := move.Definition{Name: name}
	for i, item := range n.Content {
		field := fmt.Sprintf("%s[%d]", name, i)
		raw, err := readYAMLStep(field, item, filename)
		if err != nil {
			return move.Definition{}, err
		}
		step, bad := buildStep(raw)
		if bad != nil {
			bad.Field = field + "." + bad.Field
			bad.File = filename
			bad.Line = item.Line
			return move.Definition{}, bad
		}
		def.Steps = append(def.Steps, step)
	}

	if len(def.Steps) == 0 {
		return move.Definition{}, &ConfigError{
			Field:   name,
			Message: "move has no steps",
			Code:    ErrNoSteps,
			File:    filename,
			Line:    n.Line,
		}
	}
	return def, nil
}

func readYAMLStep(field string, n *yaml.Node, filename string) (rawStep, error) {
	var raw rawStep

	if n.Kind != yaml.MappingNode {
		return raw, &ConfigError{
			Field:   field,
			Message: "step must be an object",
			Code:    ErrShape,
			File:    filename,
			Line:    n.Line,
		}
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		key := keyNode.Value
		fail := func(code, msg string) error {
			return &ConfigError{Field: field + "." + key, Message: msg, Code: code, File: filename, Line: valNode.Line}
		}

		switch key {
		case FieldInput:
			if valNode.Kind != yaml.ScalarNode || valNode.ShortTag() != "!!str" {
				return raw, fail(ErrInvalidInput, "input must be a string")
			}
			s := valNode.Value
			raw.input = &s
		case FieldMaxDelay, FieldMinDelay:
			if valNode.Kind != yaml.ScalarNode || valNode.ShortTag() != "!!int" {
				return raw, fail(ErrInvalidDelay, "delay must be an integer number of milliseconds")
			}
			var d int64
			if err := valNode.Decode(&d); err != nil {
				return raw, fail(ErrInvalidDelay, err.Error())
			}
			if key == FieldMaxDelay {
				raw.maxDelay = &d
			} else {
				raw.minDelay = &d
			}
		default:
			return raw, &ConfigError{
				Field:   field + "." + key,
				Message: "unknown step field",
				Code:    ErrUnknownField,
				File:    filename,
				Line:    keyNode.Line,
			}
		}
	}

	return raw, nil
}
