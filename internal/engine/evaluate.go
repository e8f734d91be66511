package engine

import (
	"errors"

	"github.com/roach88/puzzlebox/internal/ir"
)

// execScope runs one pass of s. It returns false when a result requested a
// location change; the pass stops there and the pass counter does not
// advance.
//
// The queues swap first, so a write made by a rule of s during this pass
// queues its dependents for the next pass. In a full-scan pass every rule
// is checked in list order against live state, so later rules observe
// earlier writes within the pass.
func (e *Engine) execScope(s *ScriptScope) bool {
	drained := s.queue.swap()

	if s.fullScan() || e.fullScan || e.states.Get(ir.StateKeyExecScopeStyle) != 0 {
		for i := range s.puzzles {
			if !e.checkPuzzle(s, i) {
				return false
			}
		}
	} else {
		for _, i := range drained {
			if !e.checkPuzzle(s, i) {
				return false
			}
		}
	}

	s.advancePass()
	return true
}

// checkPuzzle evaluates rule idx of s and runs its results when met. It
// returns false when a result stopped the pass.
func (e *Engine) checkPuzzle(s *ScriptScope, idx int) bool {
	p := &s.puzzles[idx]
	flags := e.states.Flag(p.Key)

	if e.states.Get(p.Key) == 1 || flags&ir.FlagDisabled != 0 {
		return true
	}
	if s.pass == 0 && flags&ir.FlagDoMeNow == 0 {
		return true
	}
	if !criteriaMet(e.states, p.Criteria) {
		return true
	}

	// Mark fired before the results run so they observe it.
	e.states.Set(p.Key, 1)
	e.trace(TraceEvent{Kind: TraceFire, Scope: s.level, Key: p.Key})

	for _, a := range p.Results {
		cont, err := e.execute(s.level, a)
		if err != nil {
			e.logResultError(s, p.Key, a, err)
		}
		if !cont {
			return false
		}
	}
	return true
}

func (e *Engine) logResultError(s *ScriptScope, puzzle uint32, a ir.Action, err error) {
	var re *RuntimeError
	if errors.As(err, &re) {
		re.Scope = s.name
		re.Puzzle = puzzle
	}
	e.logger.Warn("result failed",
		"scope", s.name,
		"puzzle", puzzle,
		"action", a.Name(),
		"error", err)
}

// getter is the read side of the state store.
type getter interface {
	Get(key uint32) int
}

// criteriaMet evaluates OR-of-AND groups. No groups means met.
func criteriaMet(states getter, groups []ir.Criteria) bool {
	if len(groups) == 0 {
		return true
	}
	for _, group := range groups {
		if groupMet(states, group) {
			return true
		}
	}
	return false
}

func groupMet(states getter, group ir.Criteria) bool {
	for _, entry := range group {
		arg := entry.Argument
		if entry.ArgumentIsKey {
			arg = states.Get(uint32(entry.Argument))
		}
		if !entry.Op.Compare(states.Get(entry.Key), arg) {
			return false
		}
	}
	return true
}

// value resolves a literal or key-valued argument.
func (e *Engine) value(v ir.Value) int {
	if v.IsKey {
		return e.states.Get(v.Key)
	}
	return v.Literal
}
