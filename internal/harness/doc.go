// Package harness runs scenario tests against the puzzle engine.
//
// A scenario compiles a set of scene scripts, builds a real engine wired to
// the recording renderer and audio fakes from internal/testutil, drives it
// through a list of steps and checks the state it ends up in. Every engine
// trace event (rule fired, location entered, effect started) is recorded
// so a run can be compared byte-for-byte against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: cascade
//	description: "A fires, then B sees A's write"
//	start: gary
//	inline:
//	  gary: |
//	    puzzles: [
//	      {key: 100, criteria: [[{key: 5, value: 1}]], results: [{assign: {key: 6, value: 1}}]},
//	    ]
//	steps:
//	  - update: 16
//	  - set: {key: 5, value: 1}
//	  - update: 16
//	    repeat: 2
//	  - expect:
//	      state: {6: 1}
//	assertions:
//	  - type: trace_order
//	    keys: [100]
//
// Instead of inline, scripts may name a directory of CUE files relative to
// the scenario file. Step kinds: update (with optional repeat), set, flag,
// mouse_down, mouse_up, mouse_move, key_down, key_up, change_location
// ("back" returns to the previous location), save, restore, finish_audio and
// expect. An input step may carry an expect with only handled set.
//
// # Assertion Types
//
//   - trace_contains: an event of kind (default fire) for key appears
//   - trace_order: rules fire in the listed relative order
//   - trace_count: a rule fires exactly count times
//   - final_state: an expect block holds after the last step
//
// # Deterministic Testing
//
// Engine ticks come from the engine's own counter, random results come from
// the scenario's random list, and time only advances through update steps,
// so traces are identical across runs.
package harness
