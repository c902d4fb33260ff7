package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/combo/internal/move"
	"github.com/roach88/combo/internal/store"
)

const traceSessionID = "019a0000-0000-7000-8000-000000000001"

// setupTraceDB records one session: A, B, the AB recognition, a clear, X, stop.
func setupTraceDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "combo.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.CreateSession(ctx, store.Session{
		ID:          traceSessionID,
		LibraryHash: "f3a1c9e07b2d4e58a6c1d0b9e8f7a6b5",
		MoveCount:   2,
		Seed:        42,
	}))

	frames := []move.Frame{
		{Entries: []move.Entry{{Seq: 1, Symbol: "A"}}, Running: true},
		{Entries: []move.Entry{
			{Seq: 2, Symbol: "B", DelayMs: 60},
			{Seq: 3, Symbol: "[60]AB", DelayMs: 1, Derived: true},
		}, Clear: true, Running: true},
		{Entries: []move.Entry{{Seq: 4, Symbol: "X"}}, Running: true},
		{Running: false},
	}
	for _, f := range frames {
		require.NoError(t, st.WriteFrame(ctx, traceSessionID, f))
	}
	return dbPath
}

func executeTrace(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceText(t *testing.T) {
	dbPath := setupTraceDB(t)

	output, err := executeTrace(t, "text", "--db", dbPath, traceSessionID)
	require.NoError(t, err)

	expected := "=== Timeline ===\n" +
		"  [1] A +0ms\n" +
		"  [2] B +60ms\n" +
		"  [3] MOVE AB (60ms)\n" +
		"  -- clear --\n" +
		"  [4] X +0ms\n" +
		"  -- stop --\n"
	assert.Contains(t, output, "Trace for Session: "+traceSessionID)
	assert.Contains(t, output, "Library: f3a1c9e0...e8f7a6b5 (2 moves)")
	assert.Contains(t, output, expected)
	assert.Contains(t, output, "  Inputs:       3\n")
	assert.Contains(t, output, "  Recognitions: 1\n")
	assert.Contains(t, output, "    AB: 1\n")
	assert.Contains(t, output, "  Clears:       1\n")
	assert.Contains(t, output, "  Stopped:      true\n")
}

func TestTraceJSON(t *testing.T) {
	dbPath := setupTraceDB(t)

	output, err := executeTrace(t, "json", "--db", dbPath, traceSessionID)
	require.NoError(t, err)

	var resp struct {
		Status    string      `json:"status"`
		SessionID string      `json:"session_id"`
		Data      TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, traceSessionID, resp.SessionID)
	assert.Equal(t, int64(42), resp.Data.Session.Seed)

	require.Len(t, resp.Data.Timeline, 6)
	assert.Equal(t, TraceEvent{Seq: 3, Type: "recognition", Symbol: "[60]AB", DelayMs: 1, Move: "AB", Accumulated: 60}, resp.Data.Timeline[2])
	assert.Equal(t, TraceEvent{Seq: 3, Type: store.MarkerClear}, resp.Data.Timeline[3])
	assert.Equal(t, TraceEvent{Seq: 4, Type: store.MarkerStop}, resp.Data.Timeline[5])
	assert.Equal(t, map[string]int{"AB": 1}, resp.Data.Stats.ByMove)
}

func TestTraceMoveFilter(t *testing.T) {
	dbPath := setupTraceDB(t)

	output, err := executeTrace(t, "text", "--db", dbPath, "--move", "AB", traceSessionID)
	require.NoError(t, err)

	assert.Contains(t, output, "[3] MOVE AB (60ms)")
	assert.NotContains(t, output, "[1] A +0ms")
	assert.NotContains(t, output, "[4] X")
	// Markers stay so the filtered view keeps its structure
	assert.Contains(t, output, "-- clear --")
}

func TestTraceList(t *testing.T) {
	dbPath := setupTraceDB(t)

	output, err := executeTrace(t, "text", "--db", dbPath, "--list")
	require.NoError(t, err)
	assert.Equal(t, traceSessionID+"  moves=2 entries=4 recognitions=1\n", output)

	output, err = executeTrace(t, "json", "--db", dbPath, "--list")
	require.NoError(t, err)

	var resp struct {
		Data []store.SessionSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(4), resp.Data[0].Entries)
}

func TestTraceListEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	output, err := executeTrace(t, "text", "--db", dbPath, "--list")
	require.NoError(t, err)
	assert.Equal(t, "No sessions recorded.\n", output)
}

func TestTraceErrors(t *testing.T) {
	dbPath := setupTraceDB(t)

	_, err := executeTrace(t, "text", "--db", dbPath, "no-such-session")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "session not found")

	_, err = executeTrace(t, "text", "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session id is required")

	_, err = executeTrace(t, "text", traceSessionID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestBuildTimeline_LeadingMarker(t *testing.T) {
	entries := []move.Entry{{Seq: 1, Symbol: "A"}}
	markers := []store.Marker{{AfterSeq: 0, Kind: store.MarkerClear}}

	timeline := buildTimeline(entries, markers, "")
	require.Len(t, timeline, 2)
	assert.Equal(t, store.MarkerClear, timeline[0].Type)
	assert.Equal(t, "input", timeline[1].Type)
}
