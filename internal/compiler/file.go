package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"

	"github.com/roach88/combo/internal/move"
)

// Extensions lists the move file extensions understood by CompileFile.
var Extensions = []string{".json", ".cue", ".yaml", ".yml"}

// IsMoveFile reports whether path has a move file extension.
func IsMoveFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// CompileFile reads and compiles one move file.
func CompileFile(path string) ([]move.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading move file: %w", err)
	}
	return CompileBytes(data, path)
}

// CompileBytes compiles move file contents. The filename selects the
// parser and is used in error positions.
//
// JSON is a subset of CUE, so .json and .cue share the CUE path. Move names
// are checked on the syntax tree, before CUE unifies repeated fields.
func CompileBytes(data []byte, filename string) ([]move.Definition, error) {
	var (
		defs []move.Definition
		err  error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".cue":
		f, parseErr := parser.ParseFile(filename, data)
		if parseErr != nil {
			return nil, formatCUEError(parseErr)
		}
		if err := checkDuplicateLabels(f); err != nil {
			return nil, err
		}
		ctx := cuecontext.New()
		defs, err = CompileMoves(ctx.BuildFile(f))
	case ".yaml", ".yml":
		defs, err = CompileYAML(data, filename)
	default:
		return nil, &ConfigError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported move file extension %q", filepath.Ext(filename)),
			Code:    ErrUnsupportedFile,
			File:    filename,
		}
	}
	if err != nil {
		return nil, err
	}

	if err := CheckDuplicates(defs); err != nil {
		if ce, ok := err.(*ConfigError); ok && ce.File == "" {
			ce.File = filename
		}
		return nil, err
	}
	return defs, nil
}

// CheckDuplicates rejects a library with two moves of the same name.
// Move names are the lookup key for replays, so they must be unique across
// every file of a library.
func CheckDuplicates(defs []move.Definition) error {
	seen := make(map[string]int, len(defs))
	for i, d := range defs {
		if first, dup := seen[d.Name]; dup {
			return &ConfigError{
				Field:   d.Name,
				Message: fmt.Sprintf("duplicate move name (moves %d and %d)", first, i),
				Code:    ErrDuplicateMove,
			}
		}
		seen[d.Name] = i
	}
	return nil
}

// checkDuplicateLabels rejects a move file that declares the same move name
// twice at the top level.
func checkDuplicateLabels(f *ast.File) error {
	seen := make(map[string]token.Pos)
	for _, field := range topLevelFields(f.Decls) {
		name, _, err := ast.LabelName(field.Label)
		if err != nil {
			// Dynamic labels are left to the evaluator
			continue
		}
		if first, dup := seen[name]; dup {
			return &ConfigError{
				Field:   name,
				Message: fmt.Sprintf("duplicate move name (first defined at line %d)", first.Line()),
				Code:    ErrDuplicateMove,
				Pos:     field.Label.Pos(),
			}
		}
		seen[name] = field.Label.Pos()
	}
	return nil
}

// topLevelFields returns the fields of a file, looking through the outer
// braces of a JSON document.
func topLevelFields(decls []ast.Decl) []*ast.Field {
	var fields []*ast.Field
	for _, d := range decls {
		switch x := d.(type) {
		case *ast.Field:
			fields = append(fields, x)
		case *ast.EmbedDecl:
			if s, ok := x.Expr.(*ast.StructLit); ok {
				fields = append(fields, topLevelFields(s.Elts)...)
			}
		}
	}
	return fields
}
