package harness

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/puzzlebox/internal/engine"
	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/sidefx"
	"github.com/roach88/puzzlebox/internal/testutil"
)

// Harness runs one scenario against a real engine wired to recording
// fakes.
type Harness struct {
	engine   *engine.Engine
	renderer *testutil.Renderer
	audio    *testutil.Audio
	saves    map[string][]byte
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes engine logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Compile the scenario's scripts
//  2. Build an engine with recording renderer and audio fakes and a tracer
//  3. Execute steps in order, checking expect steps as they come
//  4. Evaluate assertions against the trace and final state
//
// An error is returned only when the scenario cannot run at all; failed
// expectations are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	src, err := scenario.source()
	if err != nil {
		return nil, err
	}

	result := NewResult()
	h := &Harness{
		renderer: testutil.NewRenderer(),
		audio:    testutil.NewAudio(),
		saves:    make(map[string][]byte),
		logger:   cfg.logger,
	}

	engineOpts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithRenderer(h.renderer),
		engine.WithAudio(h.audio),
		engine.WithFullScan(scenario.FullScan),
		engine.WithTracer(engine.TracerFunc(func(ev engine.TraceEvent) {
			result.Trace = append(result.Trace, fromEngine(ev))
		})),
	}
	if scenario.Start != "" {
		start, err := ir.ParseLocation(scenario.Start)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		engineOpts = append(engineOpts, engine.WithStartLocation(start))
	}
	if scenario.CollisionPolicy != "" {
		policy, err := sidefx.ParseCollisionPolicy(scenario.CollisionPolicy)
		if err != nil {
			return nil, fmt.Errorf("collision_policy: %w", err)
		}
		engineOpts = append(engineOpts, engine.WithCollisionPolicy(policy))
	}
	if len(scenario.Random) > 0 {
		engineOpts = append(engineOpts, engine.WithRand(testutil.NewSequenceRand(scenario.Random...)))
	}
	h.engine = engine.New(src, engineOpts...)

	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep applies one step. Expectation failures are added to result;
// only a step the harness cannot perform returns an error.
func (h *Harness) executeStep(index int, st Step, result *Result) error {
	var (
		handled bool
		input   = st.isInput()
	)

	switch {
	case st.Update != nil:
		n := max(st.Repeat, 1)
		for range n {
			h.engine.Update(*st.Update)
		}
	case st.Set != nil:
		h.engine.SetState(st.Set.Key, st.Set.Value)
	case st.Flag != nil:
		if bits := flagBits(st.Flag.Set); bits != 0 {
			h.engine.SetFlag(st.Flag.Key, bits)
		}
		if bits := flagBits(st.Flag.Clear); bits != 0 {
			h.engine.UnsetFlag(st.Flag.Key, bits)
		}
	case st.MouseDown != nil:
		handled = h.engine.OnMouseDown(st.MouseDown.X, st.MouseDown.Y)
	case st.MouseUp != nil:
		handled = h.engine.OnMouseUp(st.MouseUp.X, st.MouseUp.Y)
	case st.MouseMove != nil:
		handled = h.engine.OnMouseMove(st.MouseMove.X, st.MouseMove.Y)
	case st.KeyDown != nil:
		handled = h.engine.OnKeyDown(*st.KeyDown)
	case st.KeyUp != nil:
		handled = h.engine.OnKeyUp(*st.KeyUp)
	case st.ChangeLocation != "":
		var loc ir.Location
		if st.ChangeLocation != "back" {
			parsed, err := ir.ParseLocation(st.ChangeLocation)
			if err != nil {
				return fmt.Errorf("steps[%d].change_location: %w", index, err)
			}
			loc = parsed
		}
		h.engine.ChangeLocation(loc)
	case st.Save != "":
		var buf bytes.Buffer
		if err := h.engine.Serialize(&buf); err != nil {
			return fmt.Errorf("steps[%d].save: %w", index, err)
		}
		h.saves[st.Save] = buf.Bytes()
	case st.Restore != "":
		data, ok := h.saves[st.Restore]
		if !ok {
			return fmt.Errorf("steps[%d].restore: no save named %q", index, st.Restore)
		}
		if err := h.engine.Deserialize(bytes.NewReader(data)); err != nil {
			result.AddError(fmt.Sprintf("steps[%d].restore: %v", index, err))
		}
	case st.FinishAudio != "":
		for _, handle := range h.audio.Playing(st.FinishAudio) {
			h.audio.Finish(handle)
		}
	}

	if st.Expect == nil {
		return nil
	}
	field := fmt.Sprintf("steps[%d].expect", index)
	if input && st.Expect.Handled != nil && *st.Expect.Handled != handled {
		result.AddError(fmt.Sprintf("%s: handled = %t, expected %t", field, handled, *st.Expect.Handled))
	}
	for _, msg := range h.checkExpect(field, st.Expect) {
		result.AddError(msg)
	}
	return nil
}

func flagBits(names []string) uint {
	var bits uint
	for _, name := range names {
		bit, _ := ir.ParseFlag(name)
		bits |= bit
	}
	return bits
}
