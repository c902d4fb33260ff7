// Package engine implements combo's recognition and replay core.
//
// The engine receives timestamped input from listener goroutines, matches
// it against every loaded move, and drives at most one synthetic replay
// through an injection collaborator.
//
// ARCHITECTURE:
//
// Single-Owner Tick Loop:
// All matcher and replay state is owned by one goroutine running
// Dispatcher.Run (or calling Dispatcher.Tick directly). This ensures:
//   - Predictable evaluation order (declaration order of moves)
//   - No locking on the hot path beyond the input buffer
//   - Deterministic results when time and jitter are supplied by tests
//
// Tick Flow:
//  1. Listener goroutines call Dispatcher.HandleKey (or InputBuffer.Add)
//  2. Each tick drives the replay slot (time-driven, independent of input)
//  3. At most one Event is popped from the InputBuffer
//  4. The Event is fed to every Matcher; recognitions become derived entries
//  5. The Frame (entries, clear flag, running flag) goes to the Presenter
//
// The InputBuffer is the only structure shared between goroutines. Control
// flags (running, clear, pending replay) are atomics.
//
// Randomness is confined to the Jitter interface so that replay timing can
// be made deterministic.
package engine
