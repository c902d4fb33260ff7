package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/combo/internal/config"
	"github.com/roach88/combo/internal/engine"
	"github.com/roach88/combo/internal/move"
	"github.com/roach88/combo/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
	Seed     int64

	// SessionGenerator allows overriding the session ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionGenerator engine.SessionIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <moves-dir>",
		Short: "Start a recognition session",
		Long: `Start a session over the move library in the given directory.

Keys are read from stdin, one per line, and timestamped on arrival.
Recognized moves are printed after the input that completed them. The
replay control key replays the configured move; presses and releases are
printed with the physical key they map to.

With --db, the session history is recorded to a SQLite database and can be
inspected later with "combo trace".

Example:
  combo run ./moves
  combo run --config combo.toml --db ./combo.db ./moves
  combo run --seed 42 --format json ./moves`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to session config (.toml, .yaml or .yml)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for session history")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "jitter seed (overrides config; 0 keeps config value)")

	return cmd
}

func runSession(opts *RunOptions, movesDir string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Load moves
	slog.Info("loading moves", "dir", movesDir)
	library, err := loadLibrary(movesDir)
	if err != nil {
		// A library that does not load never starts a session
		return WrapExitError(ExitCommandError, "failed to load moves", err)
	}
	slog.Info("moves loaded", "moves", len(library.Moves), "files", library.FileCount, "hash", library.Hash)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid session config", err)
	}
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	cfg.Seed = engine.ResolveSeed(cfg.Seed)
	slog.Debug("jitter seed", "seed", cfg.Seed)
	if cfg.Controls.ReplayMove != "" {
		if _, ok := move.Find(library.Moves, cfg.Controls.ReplayMove); !ok {
			slog.Warn("replay move not in library", "move", cfg.Controls.ReplayMove)
		}
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	out := cmd.OutOrStdout()
	var presenters multiPresenter
	if opts.Format == "json" {
		presenters = append(presenters, newJSONPresenter(out))
	} else {
		presenters = append(presenters, newTextPresenter(out, cfg.Colors()))
	}

	var sessionID string
	if opts.Database != "" {
		slog.Info("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		gen := opts.SessionGenerator
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		sessionID = gen.Generate()
		if err := st.CreateSession(ctx, store.Session{
			ID:          sessionID,
			LibraryHash: library.Hash,
			MoveCount:   len(library.Moves),
			Seed:        cfg.Seed,
		}); err != nil {
			return WrapExitError(ExitCommandError, "failed to create session", err)
		}
		presenters = append(presenters, &storePresenter{ctx: context.WithoutCancel(ctx), st: st, sessionID: sessionID})
		slog.Info("recording session", "session", sessionID)
	}

	buffer := engine.NewInputBuffer(
		engine.WithCapacity(cfg.BufferCapacity),
		engine.WithBufferLogger(logger),
	)
	dispatcher := engine.NewDispatcher(library.Moves,
		newLogInjector(out, cfg.ReverseMap(), logger),
		engine.WithBuffer(buffer),
		engine.WithJitter(engine.NewRandJitter(cfg.Seed)),
		engine.WithKeyMap(cfg.KeyMap()),
		engine.WithControls(cfg.EngineControls()),
		engine.WithTickInterval(cfg.Tick),
		engine.WithLogger(logger),
	)

	go func() {
		if err := listenLines(ctx, cmd.InOrStdin(), dispatcher, engine.NowMs, logger); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("input listener failed", "error", err)
		}
	}()

	if opts.Format != "json" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Session started with %d move(s). One key per line; %q stops.\n",
			len(library.Moves), cfg.Controls.Stop)
	}

	if err := dispatcher.Run(ctx, presenters, engine.NowMs); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "session error", err)
	}

	slog.Info("session ended", "recognized", dispatcher.Recognized(), "session", sessionID)
	return nil
}
