package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/combo/internal/move"
	"github.com/roach88/combo/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	List     bool
	Move     string // optional - only show recognitions of this move
}

// TraceEvent represents a single line of a session timeline.
type TraceEvent struct {
	Seq         int64  `json:"seq,omitempty"`
	Type        string `json:"type"` // "input", "recognition", "clear" or "stop"
	Symbol      string `json:"symbol,omitempty"`
	DelayMs     int64  `json:"delay_ms,omitempty"`
	Move        string `json:"move,omitempty"`
	Accumulated int64  `json:"accumulated_ms,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  store.Session `json:"session"`
	Timeline []TraceEvent  `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the session.
type TraceStats struct {
	Inputs       int            `json:"inputs"`
	Recognitions int            `json:"recognitions"`
	ByMove       map[string]int `json:"by_move,omitempty"`
	Clears       int            `json:"clears"`
	Stopped      bool           `json:"stopped"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [session-id]",
		Short: "Show the recorded history of a session",
		Long: `Show the history recorded by "combo run --db" for one session.

The timeline lists every input and recognition in order, with the points
where the history was cleared or the session stopped. With --list, shows
every recorded session instead.

Examples:
  combo trace --db ./combo.db --list
  combo trace --db ./combo.db 01920c1e-7f7e-7b3a-9a5e-6c1d2e3f4a5b
  combo trace --db ./combo.db --move Reloadshot <session-id>
  combo trace --db ./combo.db --format json <session-id>`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.List {
				return runTraceList(opts, cmd)
			}
			if len(args) == 0 {
				return NewExitError(ExitCommandError, "session id is required (or use --list)")
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded sessions")
	cmd.Flags().StringVar(&opts.Move, "move", "", "only show recognitions of this move")

	return cmd
}

func runTrace(opts *TraceOptions, sessionID string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sess, err := st.ReadSession(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", sessionID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	entries, err := st.ReadEntries(ctx, sessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}
	markers, err := st.ReadMarkers(ctx, sessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read markers", err)
	}

	result := TraceResult{
		Session:  sess,
		Timeline: buildTimeline(entries, markers, opts.Move),
		Stats:    buildStats(entries, markers),
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd.OutOrStdout(), result)
	}
	return outputTraceText(cmd.OutOrStdout(), result)
}

// buildTimeline merges entries and markers in seq order. A marker follows
// the entry it was recorded after. When moveFilter is set, plain inputs and
// other moves' recognitions are left out.
func buildTimeline(entries []move.Entry, markers []store.Marker, moveFilter string) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(entries)+len(markers))

	m := 0
	flushMarkers := func(upTo int64) {
		for m < len(markers) && markers[m].AfterSeq <= upTo {
			timeline = append(timeline, TraceEvent{Seq: markers[m].AfterSeq, Type: markers[m].Kind})
			m++
		}
	}

	for _, e := range entries {
		flushMarkers(e.Seq - 1)

		ev := TraceEvent{Seq: e.Seq, Type: "input", Symbol: e.Symbol, DelayMs: e.DelayMs}
		if name, acc, ok := move.ParseDerivedSymbol(e.Symbol); ok && e.Derived {
			ev.Type = "recognition"
			ev.Move = name
			ev.Accumulated = acc
		}

		if moveFilter == "" || ev.Move == moveFilter {
			timeline = append(timeline, ev)
		}
	}
	flushMarkers(math.MaxInt64)

	return timeline
}

func buildStats(entries []move.Entry, markers []store.Marker) TraceStats {
	stats := TraceStats{ByMove: make(map[string]int)}
	for _, e := range entries {
		if name, _, ok := move.ParseDerivedSymbol(e.Symbol); ok && e.Derived {
			stats.Recognitions++
			stats.ByMove[name]++
			continue
		}
		stats.Inputs++
	}
	for _, mk := range markers {
		switch mk.Kind {
		case store.MarkerClear:
			stats.Clears++
		case store.MarkerStop:
			stats.Stopped = true
		}
	}
	return stats
}

func runTraceList(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		if sessions == nil {
			sessions = []store.SessionSummary{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: sessions})
	}

	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  moves=%d entries=%d recognitions=%d\n",
			s.ID, s.MoveCount, s.Entries, s.Recognitions)
	}
	return nil
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(w io.Writer, result TraceResult) error {
	response := CLIResponse{
		Status:    "ok",
		Data:      result,
		SessionID: result.Session.ID,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult) error {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session.ID)
	fmt.Fprintf(w, "Library: %s (%d moves)\n", truncateID(result.Session.LibraryHash), result.Session.MoveCount)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		formatTimelineEvent(w, ev)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Inputs:       %d\n", result.Stats.Inputs)
	fmt.Fprintf(w, "  Recognitions: %d\n", result.Stats.Recognitions)
	names := make([]string, 0, len(result.Stats.ByMove))
	for name := range result.Stats.ByMove {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "    %s: %d\n", name, result.Stats.ByMove[name])
	}
	fmt.Fprintf(w, "  Clears:       %d\n", result.Stats.Clears)
	fmt.Fprintf(w, "  Stopped:      %t\n", result.Stats.Stopped)

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, ev TraceEvent) {
	switch ev.Type {
	case "input":
		fmt.Fprintf(w, "  [%d] %s +%dms\n", ev.Seq, ev.Symbol, ev.DelayMs)
	case "recognition":
		fmt.Fprintf(w, "  [%d] MOVE %s (%dms)\n", ev.Seq, ev.Move, ev.Accumulated)
	case store.MarkerClear:
		fmt.Fprintln(w, "  -- clear --")
	case store.MarkerStop:
		fmt.Fprintln(w, "  -- stop --")
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
