package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationError is one problem found in a move library.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Moves  []string          `json:"moves,omitempty"`
	Hash   string            `json:"hash,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <moves-dir>",
		Short: "Validate a move library",
		Long: `Validate every move file (.json, .cue, .yaml, .yml) under a directory.

All files are checked and every error is reported, including move names
defined twice across files.

Exit codes:
  0 - Library is valid
  1 - Library has errors
  2 - Command error (directory missing, no move files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, movesDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadMoves(movesDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d move file(s) in %s", loadResult.FileCount, movesDir)
	for _, path := range loadResult.Files {
		formatter.VerboseLog("Checked %s", path)
	}

	if len(loadErrors) > 0 {
		return outputValidationErrors(formatter, toValidationErrors(loadErrors))
	}

	return outputValidateSuccess(formatter, loadResult)
}

func toValidationErrors(errs []error) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			file := loadErr.File
			if loadErr.Pos.IsValid() {
				file = loadErr.Pos.Filename()
			}
			out = append(out, ValidationError{
				Code:    loadErr.Code,
				Field:   loadErr.Field,
				Message: loadErr.Message,
				File:    file,
				Line:    loadErr.LineNumber(),
			})
			continue
		}
		out = append(out, ValidationError{Code: ErrCodeGeneric, Message: err.Error()})
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, loaded *LoadResult) error {
	names := make([]string, len(loaded.Moves))
	for i, d := range loaded.Moves {
		names[i] = d.Name
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid: true,
			Files: loaded.FileCount,
			Moves: names,
			Hash:  loaded.Hash,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d move(s) valid\n", len(loaded.Moves))
	for _, d := range loaded.Moves {
		fmt.Fprintf(formatter.Writer, "  %s (%d step(s))\n", d.Name, len(d.Steps))
	}
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		switch {
		case err.File != "" && err.Line > 0:
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		case err.File != "":
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
