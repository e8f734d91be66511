package engine

import (
	"errors"

	"github.com/roach88/puzzlebox/internal/ir"
)

// ChangeLocation requests a transition to loc. It takes effect at the start
// of the next Update. The all-zero location means "go back" to the last
// non-menu location recorded in state; with nothing recorded it is the
// start location.
func (e *Engine) ChangeLocation(loc ir.Location) {
	if loc.IsZero() {
		loc = e.lastLocation()
		if loc.IsZero() {
			loc = e.start
		}
	}
	e.next = loc
}

// PendingLocation returns the requested location. It equals
// CurrentLocation when no transition is pending.
func (e *Engine) PendingLocation() ir.Location {
	return e.next
}

func (e *Engine) transitionPending() bool {
	return !e.built || e.next != e.current
}

func (e *Engine) lastLocation() ir.Location {
	return ir.Location{
		World:  byte(e.states.Get(ir.StateKeyLastWorld)),
		Room:   byte(e.states.Get(ir.StateKeyLastRoom)),
		Node:   byte(e.states.Get(ir.StateKeyLastNode)),
		View:   byte(e.states.Get(ir.StateKeyLastView)),
		Offset: e.states.Get(ir.StateKeyLastOffset),
	}
}

func (e *Engine) isMenu(loc ir.Location) bool {
	return loc.World == e.menuWorld && loc.Room == e.menuRoom
}

// rebuildLevels returns the scopes a move from cur to next replaces,
// outermost first.
func rebuildLevels(cur, next ir.Location, built bool) []ir.ScopeLevel {
	switch {
	case !built || next.World != cur.World:
		return []ir.ScopeLevel{ir.ScopeWorld, ir.ScopeRoom, ir.ScopeNodeView}
	case next.Room != cur.Room:
		return []ir.ScopeLevel{ir.ScopeRoom, ir.ScopeNodeView}
	case next.Node != cur.Node || next.View != cur.View:
		return []ir.ScopeLevel{ir.ScopeNodeView}
	}
	return nil
}

// transition moves to e.next. It returns false when a first-pass rule of a
// rebuilt scope requested another location change.
//
// Order:
//  1. go-back bookkeeping for the location being left
//  2. kill effects owned by the replaced scopes
//  3. load replacement scopes, then re-index every scope
//  4. apply scope-load state (ONCE_PER_INST reset, puzzle flags)
//  5. current := next, location state keys, viewport offset
//  6. first pass of each rebuilt scope, world→room→nodeview
func (e *Engine) transition() bool {
	cur, next := e.current, e.next
	levels := rebuildLevels(cur, next, e.built)

	if e.built && !cur.SameScene(next) && !e.isMenu(cur) {
		e.states.Set(ir.StateKeyLastWorld, int(cur.World))
		e.states.Set(ir.StateKeyLastRoom, int(cur.Room))
		e.states.Set(ir.StateKeyLastNode, int(cur.Node))
		e.states.Set(ir.StateKeyLastView, int(cur.View))
		e.states.Set(ir.StateKeyLastOffset, cur.Offset)
	}

	if len(levels) > 0 {
		e.effects.KillOwnedBy(levels...)
		for _, level := range levels {
			e.scopes[level] = e.loadScope(level, next)
		}
		for _, s := range e.scopes {
			s.rebuildRefs()
		}
		for _, level := range levels {
			e.applyScopeFlags(e.scopes[level])
		}
	}

	e.current = next
	e.built = true
	e.states.Set(ir.StateKeyWorld, int(next.World))
	e.states.Set(ir.StateKeyRoom, int(next.Room))
	e.states.Set(ir.StateKeyNode, int(next.Node))
	e.states.Set(ir.StateKeyView, int(next.View))
	e.states.Set(ir.StateKeyViewPos, next.Offset)
	e.renderer.SetViewportOffset(next.Offset)

	e.logger.Debug("location changed",
		"from", cur.String(),
		"to", next.String(),
		"rebuilt", len(levels))
	e.trace(TraceEvent{Kind: TraceLocation, Location: next})

	for _, level := range levels {
		if !e.execScope(e.scopes[level]) {
			return false
		}
	}
	return true
}

// loadScope builds the scope for level at loc. A missing or broken script
// yields an empty scope.
func (e *Engine) loadScope(level ir.ScopeLevel, loc ir.Location) *ScriptScope {
	name := ir.ScopeSourceName(level, loc)
	if e.source == nil {
		return newScope(level, name, nil)
	}
	script, err := e.source.Load(name)
	if err != nil {
		code := ErrCodeBadScript
		if errors.Is(err, ErrScriptNotFound) {
			code = ErrCodeMissingScript
		}
		e.logger.Warn("scope loaded empty",
			"scope", level.String(),
			"source", name,
			"code", string(code),
			"error", err)
		return newScope(level, name, nil)
	}
	s := newScope(level, name, script)
	e.logger.Debug("scope loaded",
		"scope", level.String(),
		"source", name,
		"puzzles", len(s.puzzles),
		"controls", len(s.controls))
	return s
}

// applyScopeFlags ORs each rule's declared flags into the store and resets
// ONCE_PER_INST rules so they can fire again in this scene instance.
func (e *Engine) applyScopeFlags(s *ScriptScope) {
	for i := range s.puzzles {
		p := &s.puzzles[i]
		if p.Flags != 0 {
			e.states.SetFlagSilently(p.Key, e.states.Flag(p.Key)|p.Flags)
		}
		if p.Flags&ir.FlagOncePerInst != 0 {
			e.states.Set(p.Key, 0)
		}
	}
}
