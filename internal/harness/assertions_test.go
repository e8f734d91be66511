package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Tick: 1, Kind: "location", Location: "gary:0"},
		{Tick: 1, Kind: "fire", Scope: "nodeview", Key: 200},
		{Tick: 1, Kind: "effect", Scope: "nodeview", Key: 601, Detail: "timer"},
		{Tick: 3, Kind: "fire", Scope: "universe", Key: 100},
		{Tick: 4, Kind: "fire", Scope: "universe", Key: 101},
		{Tick: 5, Kind: "fire", Scope: "universe", Key: 100},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Key: 200}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: "effect", Key: 601}))

	// 601 is an effect key, never a fired rule
	err := assertTraceContains(trace, Assertion{Type: AssertTraceContains, Key: 601})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "fire event for key 601", ae.Expected)
	assert.Equal(t, "not found", ae.Actual)
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Keys: []uint32{200, 100, 101}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Keys: []uint32{101, 100}}), "second firing of 100 follows 101")

	err := assertTraceOrder(trace, Assertion{Type: AssertTraceOrder, Keys: []uint32{101, 200}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "matched [101], then no firing of 200", ae.Actual)
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Key: 100, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Key: 999, Count: 0}))

	err := assertTraceCount(trace, Assertion{Type: AssertTraceCount, Key: 101, Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 101 fires 2 time(s)")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "rule 1 fires 1 time(s)",
		Actual:   "0 time(s)",
		Trace:    sampleTrace()[:3],
	}

	want := "Assertion failed: trace_count\n" +
		"  Expected: rule 1 fires 1 time(s)\n" +
		"  Actual: 0 time(s)\n" +
		"\nFull trace:\n" +
		"  [1] tick 1 location gary:0\n" +
		"  [2] tick 1 fire nodeview 200 \n" +
		"  [3] tick 1 effect nodeview 601 timer\n"
	assert.Equal(t, want, err.Error())
}

func TestEvaluateAssertions(t *testing.T) {
	result := &Result{Trace: sampleTrace()}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Key: 100},
		{Type: AssertTraceCount, Key: 200, Count: 3},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertions[1]:")
	assert.Equal(t, `assertions[2]: unknown assertion type "bogus"`, errs[1])
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []uint32{1, 5, 300}, sortedKeys(map[uint32]int{300: 0, 1: 0, 5: 0}))
	assert.Empty(t, sortedKeys(map[uint32][]string{}))
}
