package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puzzlebox/internal/ir"
)

var (
	gary = ir.Location{World: 'g', Room: 'a', Node: 'r', View: 'y'}
	garx = ir.Location{World: 'g', Room: 'a', Node: 'r', View: 'x'}
	gbcd = ir.Location{World: 'g', Room: 'b', Node: 'c', View: 'd'}
	hbcd = ir.Location{World: 'h', Room: 'b', Node: 'c', View: 'd'}
	gjaa = ir.Location{World: 'g', Room: 'j', Node: 'a', View: 'a'}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, src ScriptSource, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithLogger(quietLogger()), WithStartLocation(gary)}
	return New(src, append(base, opts...)...)
}

func script(name string, puzzles ...ir.Puzzle) *ir.Script {
	return &ir.Script{Name: name, Puzzles: puzzles}
}

func when(entries ...ir.CriteriaEntry) []ir.Criteria {
	return []ir.Criteria{entries}
}

func eq(key uint32, v int) ir.CriteriaEntry {
	return ir.CriteriaEntry{Key: key, Op: ir.OpEqual, Argument: v}
}

func set(key uint32, v int) ir.Action {
	return ir.Assign{Key: key, Value: ir.Lit(v)}
}

// recorder collects trace events.
type recorder struct {
	events []TraceEvent
}

func (r *recorder) Trace(ev TraceEvent) { r.events = append(r.events, ev) }

func (r *recorder) fired() []uint32 {
	var keys []uint32
	for _, ev := range r.events {
		if ev.Kind == TraceFire {
			keys = append(keys, ev.Key)
		}
	}
	return keys
}

// sourceFunc adapts a function to ScriptSource.
type sourceFunc func(name string) (*ir.Script, error)

func (f sourceFunc) Load(name string) (*ir.Script, error) { return f(name) }

func TestEngine_DefaultValues(t *testing.T) {
	e := newTestEngine(t, MapSource{})
	e.Update(16)

	for _, key := range []uint32{0, 1, 999, 20999, 1 << 31} {
		assert.Equal(t, 0, e.State(key), "state %d", key)
		assert.Equal(t, uint(0), e.Flag(key), "flag %d", key)
	}
}

func TestEngine_ZeroErasure(t *testing.T) {
	e := newTestEngine(t, MapSource{})

	e.SetState(1000, 3)
	e.SetFlag(1000, ir.FlagDoMeNow)
	assert.Contains(t, e.States().Keys(), uint32(1000))
	assert.Contains(t, e.States().FlagKeys(), uint32(1000))

	e.SetState(1000, 0)
	e.UnsetFlag(1000, ir.FlagDoMeNow)
	assert.NotContains(t, e.States().Keys(), uint32(1000))
	assert.NotContains(t, e.States().FlagKeys(), uint32(1000))
	assert.Equal(t, 0, e.State(1000))
}

func TestEngine_EntersStartLocation(t *testing.T) {
	e := newTestEngine(t, MapSource{}, WithStartLocation(ir.Location{World: 'g', Room: 'a', Node: 'r', View: 'y', Offset: 120}))

	assert.True(t, e.CurrentLocation().IsZero())
	assert.Equal(t, byte('y'), e.PendingLocation().View)

	e.Update(16)

	loc := e.CurrentLocation()
	assert.Equal(t, "gary:120", loc.String())
	assert.Equal(t, int('g'), e.State(ir.StateKeyWorld))
	assert.Equal(t, int('a'), e.State(ir.StateKeyRoom))
	assert.Equal(t, int('r'), e.State(ir.StateKeyNode))
	assert.Equal(t, int('y'), e.State(ir.StateKeyView))
	assert.Equal(t, 120, e.State(ir.StateKeyViewPos))
	assert.Equal(t, int64(1), e.Tick())

	for _, level := range []ir.ScopeLevel{ir.ScopeUniverse, ir.ScopeWorld, ir.ScopeRoom, ir.ScopeNodeView} {
		require.NotNil(t, e.Scope(level), level.String())
	}
	assert.Equal(t, "g", e.Scope(ir.ScopeWorld).Name())
	assert.Equal(t, "ga", e.Scope(ir.ScopeRoom).Name())
	assert.Equal(t, "gary", e.Scope(ir.ScopeNodeView).Name())
}

// Rule A (5 == 1 → 6 = 1) and rule B (6 == 1 → 7 = 1) in the node-view.

func cascadeSource() MapSource {
	return MapSource{"gary": script("gary",
		ir.Puzzle{Key: 100, Criteria: when(eq(5, 1)), Results: []ir.Action{set(6, 1)}},
		ir.Puzzle{Key: 101, Criteria: when(eq(6, 1)), Results: []ir.Action{set(7, 1)}},
	)}
}

func TestEngine_CascadeResolvesInOneUpdateOnSceneEntry(t *testing.T) {
	e := newTestEngine(t, cascadeSource())

	e.SetState(5, 1)
	e.Update(16)

	// The update that enters the scene runs the second full-scan pass: B is
	// checked after A in list order and sees A's write.
	assert.Equal(t, 1, e.State(6))
	assert.Equal(t, 1, e.State(7))
}

func TestEngine_CascadeResolvesInOneUpdateUnderFullScanStyle(t *testing.T) {
	e := newTestEngine(t, cascadeSource())
	e.Update(16)
	e.Update(16)
	require.Equal(t, fullScanPasses, e.Scope(ir.ScopeNodeView).Pass())

	e.SetState(ir.StateKeyExecScopeStyle, 1)
	e.SetState(5, 1)
	e.Update(16)

	assert.Equal(t, 1, e.State(6))
	assert.Equal(t, 1, e.State(7))
}

func TestEngine_SteadyStateCascadeLandsNextUpdate(t *testing.T) {
	e := newTestEngine(t, cascadeSource())
	e.Update(16)
	require.Equal(t, fullScanPasses, e.Scope(ir.ScopeNodeView).Pass())

	e.SetState(5, 1)
	e.Update(16)

	assert.Equal(t, 1, e.State(6))
	assert.Equal(t, 0, e.State(7), "B was queued while draining; it waits for the next pass")
	assert.True(t, e.Scope(ir.ScopeNodeView).Queued(101))

	e.Update(16)
	assert.Equal(t, 1, e.State(7))
}

func TestEngine_DoMeNowGating(t *testing.T) {
	src := MapSource{"gary": script("gary",
		ir.Puzzle{Key: 202, Results: []ir.Action{set(203, 1)}},
		ir.Puzzle{Key: 200, Flags: ir.FlagDoMeNow, Results: []ir.Action{set(201, 1)}},
	)}
	rec := &recorder{}
	e := newTestEngine(t, src, WithTracer(rec))

	e.Update(16)

	// 202 precedes 200 in the list, so firing 200 first proves 202 was
	// held back on pass 0.
	require.NotEmpty(t, rec.events)
	assert.Equal(t, TraceLocation, rec.events[0].Kind)
	assert.Equal(t, []uint32{200, 202}, rec.fired())
	assert.NotZero(t, e.Flag(200)&ir.FlagDoMeNow, "declared flags are applied on load")
	assert.Equal(t, 1, e.State(201))
	assert.Equal(t, 1, e.State(203))
}

func TestEngine_OnceOnlyFiring(t *testing.T) {
	src := MapSource{"gary": script("gary",
		ir.Puzzle{Key: 1100, Criteria: when(eq(1101, 1)), Results: []ir.Action{ir.Add{Key: 1102, Value: ir.Lit(1)}}},
	)}
	e := newTestEngine(t, src)
	e.Update(16)

	e.SetState(1101, 1)
	e.Update(16)
	assert.Equal(t, 1, e.State(1100))
	assert.Equal(t, 1, e.State(1102))

	e.SetState(1101, 0)
	e.SetState(1101, 1)
	e.Update(16)
	e.Update(16)
	assert.Equal(t, 1, e.State(1102), "fired rule stays retired")

	// Writing the rule's own key re-arms it.
	e.SetState(1100, 0)
	e.Update(16)
	assert.Equal(t, 2, e.State(1102))
}

func TestEngine_DisabledRuleNeverFires(t *testing.T) {
	src := MapSource{"gary": script("gary",
		ir.Puzzle{Key: 1120, Flags: ir.FlagDisabled | ir.FlagDoMeNow, Results: []ir.Action{set(1121, 1)}},
	)}
	e := newTestEngine(t, src)
	e.Update(16)
	e.Update(16)
	assert.Equal(t, 0, e.State(1121))

	e.UnsetFlag(1120, ir.FlagDisabled)
	e.Update(16)
	assert.Equal(t, 1, e.State(1121))
}

func TestEngine_RequeueCompleteness(t *testing.T) {
	src := MapSource{
		"gary": script("gary", ir.Puzzle{
			Key:      1130,
			Criteria: when(ir.CriteriaEntry{Key: 1131, Op: ir.OpGreater, Argument: 1132, ArgumentIsKey: true}),
			Results:  []ir.Action{set(1133, 1)},
		}),
		"universe": script("universe", ir.Puzzle{
			Key:      1140,
			Criteria: when(eq(1131, 100)),
		}),
	}
	e := newTestEngine(t, src)
	e.Update(16)
	e.Update(16)
	nv := e.Scope(ir.ScopeNodeView)
	uni := e.Scope(ir.ScopeUniverse)

	e.SetState(1132, 50)
	assert.True(t, nv.Queued(1130), "argument key queues the rule")
	assert.False(t, uni.Queued(1140))

	e.Update(16)
	assert.False(t, nv.Queued(1130))
	assert.Equal(t, 0, e.State(1133))

	e.SetState(1131, 9)
	assert.True(t, nv.Queued(1130), "entry key queues the rule")
	assert.True(t, uni.Queued(1140), "every scope referencing the key is queued")
	e.Update(16)

	e.SetFlag(1130, ir.FlagDoMeNow)
	assert.True(t, nv.Queued(1130), "flag writes queue the rule")
	e.Update(16)

	e.SetState(1131, 51)
	e.Update(16)
	assert.Equal(t, 1, e.State(1133))
}

func TestEngine_InnerScopeWriteReachesOuterScopeSameUpdate(t *testing.T) {
	src := MapSource{
		"gary":     script("gary", ir.Puzzle{Key: 1150, Criteria: when(eq(1151, 1)), Results: []ir.Action{set(1152, 1)}}),
		"universe": script("universe", ir.Puzzle{Key: 1160, Criteria: when(eq(1152, 1)), Results: []ir.Action{set(1161, 1)}}),
	}
	e := newTestEngine(t, src)
	e.Update(16)
	e.Update(16)
	require.Equal(t, fullScanPasses, e.Scope(ir.ScopeUniverse).Pass())

	e.SetState(1151, 1)
	e.Update(16)

	assert.Equal(t, 1, e.State(1152))
	assert.Equal(t, 1, e.State(1161))
}

func TestEngine_OuterScopeWriteReachesInnerScopeNextUpdate(t *testing.T) {
	src := MapSource{
		"universe": script("universe", ir.Puzzle{Key: 1170, Criteria: when(eq(1171, 1)), Results: []ir.Action{set(1172, 1)}}),
		"gary":     script("gary", ir.Puzzle{Key: 1180, Criteria: when(eq(1172, 1)), Results: []ir.Action{set(1173, 1)}}),
	}
	e := newTestEngine(t, src)
	e.Update(16)
	e.Update(16)

	e.SetState(1171, 1)
	e.Update(16)
	assert.Equal(t, 1, e.State(1172))
	assert.Equal(t, 0, e.State(1173))

	e.Update(16)
	assert.Equal(t, 1, e.State(1173))
}

func TestEngine_ChangeLocationEndsEvaluation(t *testing.T) {
	src := MapSource{
		"gary": script("gary", ir.Puzzle{
			Key:      1200,
			Criteria: when(eq(1201, 1)),
			Results:  []ir.Action{ir.ChangeLocation{Location: garx}, set(1202, 1)},
		}),
		"universe": script("universe", ir.Puzzle{Key: 1210, Criteria: when(eq(1201, 1)), Results: []ir.Action{set(1211, 1)}}),
	}
	e := newTestEngine(t, src)
	e.Update(16)
	e.Update(16)

	e.SetState(1201, 1)
	e.Update(16)

	assert.Equal(t, 1, e.State(1200))
	assert.Equal(t, 0, e.State(1202), "results after a location change are skipped")
	assert.Equal(t, 0, e.State(1211), "outer scopes are skipped for the rest of the update")
	assert.Equal(t, gary, e.CurrentLocation())
	assert.Equal(t, garx, e.PendingLocation())

	e.Update(16)
	assert.Equal(t, garx, e.CurrentLocation())
	assert.Equal(t, 1, e.State(1211), "the queued outer rule runs on the next update")
}

func TestEngine_WithFullScan(t *testing.T) {
	e := newTestEngine(t, cascadeSource(), WithFullScan(true))
	e.Update(16)
	e.Update(16)

	e.SetState(5, 1)
	e.Update(16)

	assert.Equal(t, 1, e.State(7))
}
