// Package ir provides the data model shared by every puzzlebox package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. Scripts are compiled into these
// shapes by the compiler package and consumed by the engine.
//
// Key design constraints:
//   - Puzzles, criteria and actions are immutable once compiled; per-run
//     bookkeeping (queued markers, pass counters) lives in the engine
//   - Actions form a closed set; new kinds are added here and handled in
//     the engine's executor switch
//   - State keys and values are integers; there is no float state
package ir
