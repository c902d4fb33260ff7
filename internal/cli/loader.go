package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/token"

	"github.com/roach88/combo/internal/compiler"
	"github.com/roach88/combo/internal/move"
)

// LoadMode controls how errors are handled during move loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the move library loaded from a directory.
type LoadResult struct {
	Moves     []move.Definition
	Files     []string // move files, in load order
	FileCount int
	Hash      string // move.DefinitionsHash of Moves
}

// LoadError represents an error that occurred during move loading.
type LoadError struct {
	Code    string
	Message string
	Field   string
	Pos     token.Pos // CUE position if available
	File    string
	Line    int
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LineNumber returns the line the error points at, or 0.
func (e *LoadError) LineNumber() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return e.Line
}

// LoadMoves loads every move file under dir, in sorted path order, into one
// library. If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
//
// A nil result means the directory itself could not be used.
func LoadMoves(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("moves directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing moves directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindMoveFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no move files found in %s", dir)}}
	}

	result := &LoadResult{Files: files, FileCount: len(files)}

	// Move names are unique across the whole library, not just per file.
	origin := make(map[string]string)
	for _, path := range files {
		defs, compileErr := compiler.CompileFile(path)
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, path))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		for _, d := range defs {
			if first, dup := origin[d.Name]; dup {
				errs = append(errs, &LoadError{
					Code:    compiler.ErrDuplicateMove,
					Field:   d.Name,
					Message: fmt.Sprintf("%s: duplicate move name (first defined in %s)", d.Name, first),
					File:    path,
				})
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			origin[d.Name] = path
			result.Moves = append(result.Moves, d)
		}
	}

	if len(result.Moves) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoMoves, Message: "no moves defined in move files"})
	}

	if len(errs) == 0 {
		hash, hashErr := move.DefinitionsHash(result.Moves)
		if hashErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing library: %v", hashErr)})
			return result, errs
		}
		result.Hash = hash
	}

	return result, errs
}

// FindMoveFiles walks the directory and returns all move file paths, sorted.
func FindMoveFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && compiler.IsMoveFile(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, path string) *LoadError {
	var cfgErr *compiler.ConfigError
	if errors.As(err, &cfgErr) {
		file := cfgErr.File
		if file == "" && !cfgErr.Pos.IsValid() {
			file = path
		}
		return &LoadError{
			Code:    cfgErr.Code,
			Field:   cfgErr.Field,
			Message: fmt.Sprintf("%s: %s", cfgErr.Field, cfgErr.Message),
			Pos:     cfgErr.Pos,
			File:    file,
			Line:    cfgErr.Line,
		}
	}
	return &LoadError{
		Code:    ErrCodeReadFailed,
		Message: fmt.Sprintf("%s: %v", path, err),
	}
}

// Error code constants shared by all CLI commands. Move file errors use the
// compiler's E1xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No move files found
	ErrCodeReadFailed  = "E004" // Move file could not be read
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeNoMoves     = "E006" // Move files define no moves
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeTestFailed  = "E008" // One or more scenarios failed
)

// loadLibrary loads a move directory fail-fast and returns the first error
// as-is, for commands that only need a usable library.
func loadLibrary(dir string) (*LoadResult, error) {
	result, errs := LoadMoves(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result, nil
}
