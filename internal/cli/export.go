package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/combo/internal/compiler"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <moves-dir>",
		Short: "Write the move library as one JSON move file",
		Long: `Load every move file under a directory and write the whole library as a
single JSON move file, moves in load order, default delays omitted.

The output compiles back to the same library.

Examples:
  combo export ./moves
  combo export ./moves -o library.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *ExportOptions, movesDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	library, err := loadLibrary(movesDir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Error(), nil)
		}
		return WrapExitError(ExitCommandError, "failed to load moves", err)
	}
	formatter.VerboseLog("Loaded %d move(s) from %d file(s)", len(library.Moves), library.FileCount)

	data, err := compiler.MarshalMoves(library.Moves)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode moves", err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"output": opts.Output,
			"moves":  len(library.Moves),
			"hash":   library.Hash,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d move(s) to %s\n", len(library.Moves), opts.Output)
	return nil
}
