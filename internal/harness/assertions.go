package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/puzzlebox/internal/engine"
	"github.com/roach88/puzzlebox/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		switch ev.Kind {
		case string(engine.TraceLocation):
			fmt.Fprintf(&buf, "  [%d] tick %d %s %s\n", i+1, ev.Tick, ev.Kind, ev.Location)
		default:
			fmt.Fprintf(&buf, "  [%d] tick %d %s %s %d %s\n", i+1, ev.Tick, ev.Kind, ev.Scope, ev.Key, ev.Detail)
		}
	}

	return buf.String()
}

// assertTraceContains checks that an event of the assertion's kind (fire
// by default) carries the assertion's key.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	kind := a.Kind
	if kind == "" {
		kind = string(engine.TraceFire)
	}
	for _, ev := range trace {
		if ev.Kind == kind && ev.Key == a.Key {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s event for key %d", kind, a.Key),
		Actual:   "not found",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the listed rules fire in order. Other
// events may interleave; each key matches its first firing after the
// previous match.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next == len(a.Keys) {
			break
		}
		if ev.Kind == string(engine.TraceFire) && ev.Key == a.Keys[next] {
			next++
		}
	}
	if next == len(a.Keys) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("rules fire in order %v", a.Keys),
		Actual:   fmt.Sprintf("matched %v, then no firing of %d", a.Keys[:next], a.Keys[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks that a rule fires exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if ev.Kind == string(engine.TraceFire) && ev.Key == a.Key {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("rule %d fires %d time(s)", a.Key, a.Count),
		Actual:   fmt.Sprintf("%d time(s)", n),
		Trace:    trace,
	}
}

// checkExpect compares engine state against an expectation and returns a
// message per mismatch. Keys are checked in ascending order so messages are
// stable.
func (h *Harness) checkExpect(field string, exp *Expect) []string {
	var errs []string

	for _, key := range sortedKeys(exp.State) {
		want := exp.State[key]
		if got := h.engine.State(key); got != want {
			errs = append(errs, fmt.Sprintf("%s: state[%d] = %d, expected %d", field, key, got, want))
		}
	}

	for _, key := range sortedKeys(exp.Flags) {
		got := h.engine.Flag(key)
		for _, name := range exp.Flags[key] {
			bit, ok := ir.ParseFlag(name)
			if !ok {
				errs = append(errs, fmt.Sprintf("%s: flags[%d]: unknown flag %q", field, key, name))
				continue
			}
			if got&bit == 0 {
				errs = append(errs, fmt.Sprintf("%s: flags[%d]: %s not set", field, key, name))
			}
		}
	}

	if exp.Location != "" {
		if got := h.engine.CurrentLocation().String(); got != exp.Location {
			errs = append(errs, fmt.Sprintf("%s: location = %s, expected %s", field, got, exp.Location))
		}
	}

	if exp.Effects != nil {
		for _, key := range exp.Effects {
			if h.engine.SideFX(key) == nil {
				errs = append(errs, fmt.Sprintf("%s: no effect at key %d", field, key))
			}
		}
		if got := h.engine.SideFXCount(); got != len(exp.Effects) {
			errs = append(errs, fmt.Sprintf("%s: %d live effect(s), expected %d", field, got, len(exp.Effects)))
		}
	}

	for _, file := range exp.Playing {
		if len(h.audio.Playing(file)) == 0 {
			errs = append(errs, fmt.Sprintf("%s: %s is not playing", field, file))
		}
	}

	return errs
}

func sortedKeys[V any](m map[uint32]V) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, h *Harness) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			errs = append(errs, h.checkExpect(fmt.Sprintf("assertions[%d]", i), a.Expect)...)
			continue
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
