package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestRun_ExpectFailureIsReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "expect_failure",
		Description: "A wrong expectation fails the result without aborting",
		Inline: map[string]string{
			"universe": `puzzles: [{key: 100, flags: ["do_me_now"], results: [{assign: {key: 6, value: 1}}]}]`,
		},
		Steps: []Step{
			{Update: intp(16)},
			{Expect: &Expect{State: map[uint32]int{6: 9}, Location: "gbaa:0"}},
			{Update: intp(16)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"steps[1].expect: state[6] = 1, expected 9",
		"steps[1].expect: location = gary:0, expected gbaa:0",
	}, result.Errors)
	assert.Equal(t, []uint32{100}, result.Fired())
}

func TestRun_Random(t *testing.T) {
	scenario := &Scenario{
		Name:        "random",
		Description: "The random result draws from the scenario's sequence",
		Random:      []int{3, 9},
		Inline: map[string]string{
			"universe": `puzzles: [
				{key: 120, flags: ["do_me_now"], results: [{random: {key: 50, max: 5}}, {random: {key: 51, max: 5}}]},
			]`,
		},
		Steps: []Step{
			{Update: intp(16)},
			{Expect: &Expect{State: map[uint32]int{50: 3, 51: 3}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SaveRestore(t *testing.T) {
	scenario := &Scenario{
		Name:        "save_restore",
		Description: "Restoring a save rewinds state and keeps running timers",
		Inline: map[string]string{
			"universe": `puzzles: [
				{key: 110, criteria: [[{key: 30, op: "==", value: 1}]], results: [{timer: {key: 602, seconds: 5}}]},
			]`,
		},
		Steps: []Step{
			{Update: intp(16), Repeat: 2},
			{Set: &SetStep{Key: 30, Value: 1}},
			{Update: intp(16)},
			{Save: "a"},
			{Set: &SetStep{Key: 31, Value: 7}},
			{Update: intp(1000)},
			{Restore: "a"},
			{Expect: &Expect{State: map[uint32]int{31: 0, 110: 1, 602: 1}, Effects: []uint32{602}}},
			{Update: intp(16)},
			{Expect: &Expect{Location: "gary:0", Effects: []uint32{602}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	var locations []string
	for _, ev := range result.Trace {
		if ev.Kind == "location" {
			locations = append(locations, ev.Location)
		}
	}
	assert.Equal(t, []string{"gary:0", "gary:0"}, locations, "restore re-enters the saved location")
}

func TestRun_RestoreUnknownSave(t *testing.T) {
	scenario := &Scenario{
		Name:        "restore_unknown",
		Description: "Restoring a save that was never made is a scenario error",
		Steps:       []Step{{Restore: "missing"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no save named "missing"`)
}

func TestRun_CollisionPolicy(t *testing.T) {
	script := `puzzles: [
		{key: 130, flags: ["do_me_now"], results: [{timer: {key: 603, seconds: 1}}]},
		{key: 131, flags: ["do_me_now"], results: [{timer: {key: 603, seconds: 9}}]},
	]`

	tests := []struct {
		policy  string
		effects int
	}{
		{"kill_replace", 2},
		{"keep_existing", 1},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			scenario := &Scenario{
				Name:            "collision",
				Description:     "Two rules start a timer at the same key",
				CollisionPolicy: tt.policy,
				Inline:          map[string]string{"gary": script},
				Steps:           []Step{{Update: intp(16)}},
				Assertions: []Assertion{
					{Type: AssertTraceCount, Key: 130, Count: 1},
					{Type: AssertTraceCount, Key: 131, Count: 1},
					{Type: AssertFinalState, Expect: &Expect{Effects: []uint32{603}}},
				},
			}

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)

			n := 0
			for _, ev := range result.Trace {
				if ev.Kind == "effect" {
					n++
				}
			}
			assert.Equal(t, tt.effects, n)
		})
	}
}

func TestRun_FlagStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "flags",
		Description: "A disabled rule does not fire until re-enabled",
		Inline: map[string]string{
			"universe": `puzzles: [{key: 140, criteria: [[{key: 5, op: "==", value: 1}]], results: [{assign: {key: 6, value: 1}}]}]`,
		},
		Steps: []Step{
			{Update: intp(16), Repeat: 2},
			{Flag: &FlagStep{Key: 140, Set: []string{"disabled"}}},
			{Set: &SetStep{Key: 5, Value: 1}},
			{Update: intp(16)},
			{Expect: &Expect{State: map[uint32]int{6: 0}, Flags: map[uint32][]string{140: {"disabled"}}}},
			{Flag: &FlagStep{Key: 140, Clear: []string{"disabled"}}},
			{Update: intp(16)},
			{Expect: &Expect{State: map[uint32]int{6: 1}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FullScan(t *testing.T) {
	// With full scan on, a rule sees a write made earlier in the same pass.
	scenario := &Scenario{
		Name:        "full_scan",
		Description: "Full scan evaluates every rule each tick",
		FullScan:    true,
		Inline: map[string]string{
			"universe": `puzzles: [
				{key: 100, criteria: [[{key: 5, op: "==", value: 1}]], results: [{assign: {key: 6, value: 1}}]},
				{key: 101, criteria: [[{key: 6, op: "==", value: 1}]], results: [{assign: {key: 7, value: 1}}]},
			]`,
		},
		Steps: []Step{
			{Update: intp(16), Repeat: 4},
			{Set: &SetStep{Key: 5, Value: 1}},
			{Update: intp(16)},
			{Expect: &Expect{State: map[uint32]int{6: 1, 7: 1}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, result.Trace[1].Tick, result.Trace[2].Tick)
}

func TestRun_BadInlineScript(t *testing.T) {
	scenario := &Scenario{
		Name:        "broken",
		Description: "An inline script that does not compile",
		Inline:      map[string]string{"gary": `puzzles: [{key: 1, results: [{teleport: 1}]}]`},
		Steps:       []Step{{Update: intp(16)}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inline script gary")
}

func TestScenarios(t *testing.T) {
	for _, name := range []string{"cascade", "timer", "location", "controls"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
