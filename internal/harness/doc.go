// Package harness runs scripted input scenarios against the dispatcher.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	moves:
//	  - ../moves/shots.json
//	library:
//	  AB:
//	    - input: A
//	    - input: B
//	      max.delay: 100
//	controls: { clear: "+", stop: "-", replay: "*", replay_move: Reloadshot }
//	jitter: 60
//	inputs:
//	  - { at: 0, key: A }
//	  - { at: 60, key: B }
//	assertions:
//	  - type: recognized
//	    move: AB
//	    count: 1
//	    accumulated: 60
//	  - type: history
//	    symbols: [A, B, "[60]AB"]
//
// # Assertion Types
//
//   - recognized: A move was recognized exactly N times
//   - history: The history symbols, in order
//   - history_contains: A symbol appears in the history
//   - injected: The injected actions, in order ("press X", "release X")
//   - stopped: The run ended on the stop control
//
// # Deterministic Testing
//
// Time is a manual clock advanced one millisecond per tick, the release
// jitter is fixed, and injections are recorded instead of reaching the OS.
// The same scenario therefore always yields the same trace, which makes it
// suitable for golden file comparison.
package harness
