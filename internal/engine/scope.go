package engine

import (
	"slices"

	"github.com/roach88/puzzlebox/internal/ir"
)

// fullScanPasses is the number of passes after load that evaluate every
// rule regardless of the queue.
const fullScanPasses = 2

// scopeOrder is the per-tick evaluation order.
var scopeOrder = [...]ir.ScopeLevel{ir.ScopeNodeView, ir.ScopeRoom, ir.ScopeWorld, ir.ScopeUniverse}

// ScriptScope is one lifetime level of rules and controls. It owns copies
// of its puzzles and controls; dropping the scope drops them.
type ScriptScope struct {
	level    ir.ScopeLevel
	name     string
	puzzles  []ir.Puzzle
	controls []ir.Control
	refs     *ReferenceTable
	queue    *workQueue
	pass     int
}

// newScope creates a scope holding a private copy of script's content.
// script may be nil.
func newScope(level ir.ScopeLevel, name string, script *ir.Script) *ScriptScope {
	s := &ScriptScope{
		level: level,
		name:  name,
		queue: newWorkQueue(),
	}
	if script != nil {
		s.puzzles = slices.Clone(script.Puzzles)
		s.controls = slices.Clone(script.Controls)
	}
	s.refs = NewReferenceTable(s.puzzles)
	return s
}

// Level returns the scope level.
func (s *ScriptScope) Level() ir.ScopeLevel { return s.level }

// Name returns the script source name.
func (s *ScriptScope) Name() string { return s.name }

// Pass returns the saturating pass counter.
func (s *ScriptScope) Pass() int { return s.pass }

// Puzzles returns the scope's rules. The slice must not be modified.
func (s *ScriptScope) Puzzles() []ir.Puzzle { return s.puzzles }

// Controls returns the scope's input bindings.
func (s *ScriptScope) Controls() []ir.Control { return s.controls }

// Queued reports whether the rule with key is waiting for the next pass.
func (s *ScriptScope) Queued(key uint32) bool {
	for i := range s.puzzles {
		if s.puzzles[i].Key == key && s.queue.contains(i) {
			return true
		}
	}
	return false
}

// rebuildRefs re-indexes the scope from scratch.
func (s *ScriptScope) rebuildRefs() {
	s.refs = NewReferenceTable(s.puzzles)
}

// keyChanged queues every rule referencing key.
func (s *ScriptScope) keyChanged(key uint32) {
	for _, idx := range s.refs.Lookup(key) {
		s.queue.push(idx)
	}
}

// fullScan reports whether the next pass evaluates every rule.
func (s *ScriptScope) fullScan() bool {
	return s.pass < fullScanPasses
}

func (s *ScriptScope) advancePass() {
	if s.pass < fullScanPasses {
		s.pass++
	}
}
