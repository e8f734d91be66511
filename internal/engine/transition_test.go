package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/testutil"
)

func TestRebuildLevels(t *testing.T) {
	all := []ir.ScopeLevel{ir.ScopeWorld, ir.ScopeRoom, ir.ScopeNodeView}
	tests := []struct {
		name  string
		cur   ir.Location
		next  ir.Location
		built bool
		want  []ir.ScopeLevel
	}{
		{"first entry", ir.Location{}, gary, false, all},
		{"world", gary, hbcd, true, all},
		{"room", gary, gbcd, true, []ir.ScopeLevel{ir.ScopeRoom, ir.ScopeNodeView}},
		{"view", gary, garx, true, []ir.ScopeLevel{ir.ScopeNodeView}},
		{"node", gary, ir.Location{World: 'g', Room: 'a', Node: 'q', View: 'y'}, true, []ir.ScopeLevel{ir.ScopeNodeView}},
		{"offset only", gary, ir.Location{World: 'g', Room: 'a', Node: 'r', View: 'y', Offset: 90}, true, nil},
		{"reload after restore", gary, gary, false, all},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rebuildLevels(tt.cur, tt.next, tt.built))
		})
	}
}

func TestEngine_CurrentAdvancesOnlyAfterRebuild(t *testing.T) {
	var e *Engine
	var seen []ir.Location
	src := sourceFunc(func(name string) (*ir.Script, error) {
		if e != nil {
			seen = append(seen, e.CurrentLocation())
		}
		return nil, ErrScriptNotFound
	})
	e = newTestEngine(t, src)

	e.Update(16)
	assert.Equal(t, []ir.Location{{}, {}, {}}, seen)
	assert.Equal(t, gary, e.CurrentLocation())

	seen = nil
	e.ChangeLocation(hbcd)
	assert.Equal(t, gary, e.CurrentLocation(), "request alone does not move")
	e.Update(16)

	assert.Equal(t, []ir.Location{gary, gary, gary}, seen)
	assert.Equal(t, hbcd, e.CurrentLocation())
}

func TestEngine_StartupRuleSeesNewLocation(t *testing.T) {
	src := MapSource{"gary": script("gary", ir.Puzzle{
		Key:      1390,
		Flags:    ir.FlagDoMeNow,
		Criteria: when(eq(ir.StateKeyView, int('y'))),
		Results:  []ir.Action{set(1391, 1)},
	})}
	e := newTestEngine(t, src)

	e.Update(16)

	assert.Equal(t, 1, e.State(1391))
}

func TestEngine_OffsetOnlyChangeKeepsScopes(t *testing.T) {
	r := testutil.NewRenderer()
	e := newTestEngine(t, MapSource{}, WithRenderer(r))
	e.Update(16)
	nv := e.Scope(ir.ScopeNodeView)

	moved := gary
	moved.Offset = 300
	e.ChangeLocation(moved)
	e.Update(16)

	assert.Same(t, nv, e.Scope(ir.ScopeNodeView))
	assert.Equal(t, moved, e.CurrentLocation())
	assert.Equal(t, 300, e.State(ir.StateKeyViewPos))
	assert.Equal(t, 300, r.Offset)
}

func TestEngine_RoomChangeKeepsWorld(t *testing.T) {
	e := newTestEngine(t, MapSource{})
	e.Update(16)
	world := e.Scope(ir.ScopeWorld)
	room := e.Scope(ir.ScopeRoom)
	universe := e.Scope(ir.ScopeUniverse)

	e.ChangeLocation(gbcd)
	e.Update(16)

	assert.Same(t, world, e.Scope(ir.ScopeWorld))
	assert.Same(t, universe, e.Scope(ir.ScopeUniverse))
	assert.NotSame(t, room, e.Scope(ir.ScopeRoom))
	assert.Equal(t, "gb", e.Scope(ir.ScopeRoom).Name())
	assert.Equal(t, "gbcd", e.Scope(ir.ScopeNodeView).Name())
}

func TestEngine_RebuiltScopeRestartsPasses(t *testing.T) {
	e := newTestEngine(t, MapSource{})
	e.Update(16)
	e.Update(16)
	require.Equal(t, fullScanPasses, e.Scope(ir.ScopeRoom).Pass())

	e.ChangeLocation(garx)
	e.Update(16)

	assert.Equal(t, fullScanPasses, e.Scope(ir.ScopeRoom).Pass(), "untouched scope keeps its counter")
	assert.Equal(t, 2, e.Scope(ir.ScopeNodeView).Pass(), "pass 0 in the transition, pass 1 in the update")
}

func TestEngine_OncePerInstResetsOnEntry(t *testing.T) {
	src := MapSource{"gary": script("gary", ir.Puzzle{
		Key:      1110,
		Flags:    ir.FlagOncePerInst,
		Criteria: when(eq(1111, 1)),
		Results:  []ir.Action{ir.Add{Key: 1112, Value: ir.Lit(1)}},
	})}
	e := newTestEngine(t, src)
	e.Update(16)
	assert.NotZero(t, e.Flag(1110)&ir.FlagOncePerInst)

	e.SetState(1111, 1)
	e.Update(16)
	e.Update(16)
	assert.Equal(t, 1, e.State(1112))

	e.ChangeLocation(garx)
	e.Update(16)
	assert.Equal(t, 1, e.State(1110), "key survives while the scene is away")

	e.ChangeLocation(gary)
	e.Update(16)
	assert.Equal(t, 2, e.State(1112), "re-entering the scene re-arms the rule")
}

func TestEngine_KillsEffectsOwnedByReplacedScopes(t *testing.T) {
	timer := func(key uint32) []ir.Action {
		return []ir.Action{ir.Timer{Key: key, Seconds: ir.Lit(10)}}
	}
	src := MapSource{
		"universe": script("universe", ir.Puzzle{Key: 1300, Results: timer(1301)}),
		"g":        script("g", ir.Puzzle{Key: 1320, Results: timer(1321)}),
		"gary":     script("gary", ir.Puzzle{Key: 1310, Results: timer(1311)}),
	}
	e := newTestEngine(t, src)
	e.Update(16)
	e.Update(16)
	require.NotNil(t, e.SideFX(1301))
	require.NotNil(t, e.SideFX(1311))
	require.NotNil(t, e.SideFX(1321))

	e.ChangeLocation(garx)
	e.Update(16)
	assert.Nil(t, e.SideFX(1311), "node-view effect dies with its scope")
	assert.NotNil(t, e.SideFX(1321))
	assert.NotNil(t, e.SideFX(1301))
	assert.Equal(t, ir.EffectPending, e.State(1311), "kill leaves the key as it was")

	e.ChangeLocation(hbcd)
	e.Update(16)
	assert.Nil(t, e.SideFX(1321), "world effect dies with its scope")
	assert.NotNil(t, e.SideFX(1301), "universe effects survive")
	assert.Equal(t, 1, e.SideFXCount())
}

func TestEngine_GoBackBookkeeping(t *testing.T) {
	e := newTestEngine(t, MapSource{})
	e.Update(16)

	left := garx
	left.Offset = 640
	e.ChangeLocation(left)
	e.Update(16)
	assert.Equal(t, int('g'), e.State(ir.StateKeyLastWorld))
	assert.Equal(t, int('y'), e.State(ir.StateKeyLastView))

	e.ChangeLocation(gjaa)
	e.Update(16)
	assert.Equal(t, int('x'), e.State(ir.StateKeyLastView))
	assert.Equal(t, 640, e.State(ir.StateKeyLastOffset))

	e.ChangeLocation(ir.Location{})
	assert.Equal(t, left, e.PendingLocation(), "go back resolves to the last non-menu location")
	e.Update(16)
	assert.Equal(t, left, e.CurrentLocation())
	assert.Equal(t, 640, e.State(ir.StateKeyLastOffset), "leaving the menu records nothing")
}

func TestEngine_GoBackWithoutHistoryUsesStart(t *testing.T) {
	e := newTestEngine(t, MapSource{})

	e.ChangeLocation(ir.Location{})

	assert.Equal(t, gary, e.PendingLocation())
}

func TestEngine_CustomMenuLocation(t *testing.T) {
	e := newTestEngine(t, MapSource{}, WithMenuLocation('g', 'a'))
	e.Update(16)

	e.ChangeLocation(gbcd)
	e.Update(16)

	assert.Equal(t, 0, e.State(ir.StateKeyLastWorld), "leaving the menu records nothing")
}

func TestEngine_MissingScriptsLoadEmpty(t *testing.T) {
	e := newTestEngine(t, MapSource{})

	e.Update(16)

	assert.Empty(t, e.Scope(ir.ScopeNodeView).Puzzles())
	assert.Empty(t, e.Scope(ir.ScopeNodeView).Controls())
	assert.Equal(t, gary, e.CurrentLocation())
}

func TestEngine_StartupRuleChangesLocation(t *testing.T) {
	src := MapSource{"gary": script("gary", ir.Puzzle{
		Key:     1400,
		Flags:   ir.FlagDoMeNow,
		Results: []ir.Action{ir.ChangeLocation{Location: garx}},
	})}
	rec := &recorder{}
	e := newTestEngine(t, src, WithTracer(rec))

	e.Update(16)
	assert.Equal(t, gary, e.CurrentLocation())
	assert.Equal(t, garx, e.PendingLocation())
	assert.Equal(t, 0, e.Scope(ir.ScopeNodeView).Pass(), "an interrupted pass does not count")
	assert.Equal(t, []uint32{1400}, rec.fired())

	e.Update(16)
	assert.Equal(t, garx, e.CurrentLocation())
}
