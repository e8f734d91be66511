package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/puzzlebox/internal/compiler"
	"github.com/roach88/puzzlebox/internal/engine"
	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/sidefx"
)

// Scenario drives an engine through a scripted session and checks the
// resulting state and trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scripts is a directory of CUE scene scripts, relative to the
	// scenario file. Mutually exclusive with Inline.
	Scripts string `yaml:"scripts,omitempty"`

	// Inline maps scope source names ("universe", "g", "gary") to CUE
	// script text.
	Inline map[string]string `yaml:"inline,omitempty"`

	// Start is the start location, e.g. "gary" or "gary:120".
	// Defaults to the engine's start location.
	Start string `yaml:"start,omitempty"`

	// FullScan evaluates every rule of every scope on every tick.
	FullScan bool `yaml:"full_scan,omitempty"`

	// CollisionPolicy is kill_replace, stop_replace or keep_existing.
	CollisionPolicy string `yaml:"collision_policy,omitempty"`

	// Random feeds the random action; values are returned in order.
	Random []int `yaml:"random,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scenario step. Exactly one field is set.
type Step struct {
	// Update runs one engine tick with this many elapsed milliseconds.
	Update *int `yaml:"update,omitempty"`

	// Repeat runs the Update tick this many times (default 1).
	Repeat int `yaml:"repeat,omitempty"`

	Set            *SetStep  `yaml:"set,omitempty"`
	Flag           *FlagStep `yaml:"flag,omitempty"`
	MouseDown      *Point    `yaml:"mouse_down,omitempty"`
	MouseUp        *Point    `yaml:"mouse_up,omitempty"`
	MouseMove      *Point    `yaml:"mouse_move,omitempty"`
	KeyDown        *int      `yaml:"key_down,omitempty"`
	KeyUp          *int      `yaml:"key_up,omitempty"`
	ChangeLocation string    `yaml:"change_location,omitempty"`

	// Save and Restore name an in-memory save buffer.
	Save    string `yaml:"save,omitempty"`
	Restore string `yaml:"restore,omitempty"`

	// FinishAudio ends every stream playing this file, as if it ran out.
	FinishAudio string `yaml:"finish_audio,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// SetStep writes a state value.
type SetStep struct {
	Key   uint32 `yaml:"key"`
	Value int    `yaml:"value"`
}

// FlagStep sets and clears named flags on a key.
type FlagStep struct {
	Key   uint32   `yaml:"key"`
	Set   []string `yaml:"set,omitempty"`
	Clear []string `yaml:"clear,omitempty"`
}

// Point is a screen position.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Expect checks engine state at a point in the scenario.
type Expect struct {
	// State maps keys to expected values.
	State map[uint32]int `yaml:"state,omitempty"`

	// Flags maps keys to the flag names expected to be set.
	Flags map[uint32][]string `yaml:"flags,omitempty"`

	// Location is the expected current location, e.g. "gary:0".
	Location string `yaml:"location,omitempty"`

	// Effects lists the keys expected to have a live effect; other keys
	// must have none.
	Effects []uint32 `yaml:"effects,omitempty"`

	// Playing lists audio files expected to be playing.
	Playing []string `yaml:"playing,omitempty"`

	// Handled is the expected return of an input step; only checked on
	// input steps.
	Handled *bool `yaml:"handled,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event of Kind (default fire) with Key appears
	// - "trace_order": rules in Keys fire in this relative order
	// - "trace_count": rule Key fires exactly Count times
	// - "final_state": Expect holds after the last step
	Type string `yaml:"type"`

	Kind  string   `yaml:"kind,omitempty"`
	Key   uint32   `yaml:"key,omitempty"`
	Keys  []uint32 `yaml:"keys,omitempty"`
	Count int      `yaml:"count,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Scripts directory is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Scripts != "" && !filepath.IsAbs(scenario.Scripts) {
		scenario.Scripts = filepath.Join(filepath.Dir(path), scenario.Scripts)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Scripts != "" && len(s.Inline) > 0 {
		return fmt.Errorf("scripts and inline are mutually exclusive")
	}
	if s.Scripts != "" {
		if info, err := os.Stat(s.Scripts); err != nil || !info.IsDir() {
			return fmt.Errorf("scripts directory not found: %s", s.Scripts)
		}
	}

	if s.Start != "" {
		if _, err := ir.ParseLocation(s.Start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}

	if s.CollisionPolicy != "" {
		if _, err := sidefx.ParseCollisionPolicy(s.CollisionPolicy); err != nil {
			return fmt.Errorf("collision_policy: %w", err)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	for _, present := range []bool{
		st.Update != nil,
		st.Set != nil,
		st.Flag != nil,
		st.MouseDown != nil,
		st.MouseUp != nil,
		st.MouseMove != nil,
		st.KeyDown != nil,
		st.KeyUp != nil,
		st.ChangeLocation != "",
		st.Save != "",
		st.Restore != "",
		st.FinishAudio != "",
	} {
		if present {
			set++
		}
	}

	// expect may ride along with an input step to check its return value
	if st.Expect != nil && st.Expect.Handled == nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one action is required, found %d", index, set)
	}

	if st.Repeat < 0 || (st.Repeat > 0 && st.Update == nil) {
		return fmt.Errorf("steps[%d]: repeat needs update and must be non-negative", index)
	}
	if st.Update != nil && *st.Update < 0 {
		return fmt.Errorf("steps[%d]: update must be non-negative", index)
	}
	if st.ChangeLocation != "" && st.ChangeLocation != "back" {
		if _, err := ir.ParseLocation(st.ChangeLocation); err != nil {
			return fmt.Errorf("steps[%d].change_location: %w", index, err)
		}
	}
	if st.Flag != nil {
		for _, name := range append(append([]string{}, st.Flag.Set...), st.Flag.Clear...) {
			if _, ok := ir.ParseFlag(name); !ok {
				return fmt.Errorf("steps[%d].flag: unknown flag %q", index, name)
			}
		}
	}
	if st.Expect != nil && st.Expect.Handled != nil && !st.isInput() {
		return fmt.Errorf("steps[%d].expect: handled is only valid on input steps", index)
	}
	return nil
}

func (st *Step) isInput() bool {
	return st.MouseDown != nil || st.MouseUp != nil || st.MouseMove != nil || st.KeyDown != nil || st.KeyUp != nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Key == 0 {
			return fmt.Errorf("assertions[%d]: key is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Keys) == 0 {
			return fmt.Errorf("assertions[%d]: keys list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Key == 0 {
			return fmt.Errorf("assertions[%d]: key is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// source builds the script source the scenario's engine loads from.
func (s *Scenario) source() (engine.ScriptSource, error) {
	if s.Scripts != "" {
		return compiler.NewDir(s.Scripts), nil
	}

	names := make([]string, 0, len(s.Inline))
	for name := range s.Inline {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx := cuecontext.New()
	src := engine.MapSource{}
	for _, name := range names {
		v := ctx.CompileString(s.Inline[name], cue.Filename(name+compiler.ScriptExt))
		script, err := compiler.CompileScript(name, v)
		if err != nil {
			return nil, fmt.Errorf("inline script %s: %w", name, err)
		}
		src[script.Name] = script
	}
	return src, nil
}
