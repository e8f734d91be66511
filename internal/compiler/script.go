package compiler

import (
	"fmt"
	"math"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/puzzlebox/internal/ir"
)

// DefaultMusicVolume is used when a music result names no volume.
const DefaultMusicVolume = 100

// CompileScript parses a CUE scene script into an ir.Script.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value is the file's top-level struct, e.g.:
//
//	puzzles: [{
//		key:      100
//		flags:    ["do_me_now"]
//		criteria: [[{key: 5, op: "==", value: 1}]]
//		results:  [{assign: {key: 6, value: 1}}]
//	}]
//	controls: [{key: 1600, push_toggle: {x: 0, y: 0, w: 64, h: 64}}]
//
// Both lists are optional; an empty file compiles to an empty script.
func CompileScript(name string, v cue.Value) (*ir.Script, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	script := &ir.Script{Name: ir.NormalizeName(name)}

	puzzles, err := listField(v, "puzzles", "puzzles")
	if err != nil {
		return nil, err
	}
	for i, pv := range puzzles {
		p, err := parsePuzzle(pv, fmt.Sprintf("puzzles[%d]", i))
		if err != nil {
			return nil, err
		}
		script.Puzzles = append(script.Puzzles, p)
	}

	controls, err := listField(v, "controls", "controls")
	if err != nil {
		return nil, err
	}
	for i, cv := range controls {
		c, err := parseControl(cv, fmt.Sprintf("controls[%d]", i))
		if err != nil {
			return nil, err
		}
		script.Controls = append(script.Controls, c)
	}

	return script, nil
}

// parsePuzzle extracts one rule: its key, flags, OR-of-AND criteria and
// ordered results.
func parsePuzzle(v cue.Value, field string) (ir.Puzzle, error) {
	var p ir.Puzzle

	key, err := keyField(v, "key", field)
	if err != nil {
		return p, err
	}
	p.Key = key

	flags, err := parseFlagNames(v, "flags", field)
	if err != nil {
		return p, err
	}
	p.Flags = flags

	groups, err := listField(v, "criteria", field+".criteria")
	if err != nil {
		return p, err
	}
	for gi, gv := range groups {
		groupField := fmt.Sprintf("%s.criteria[%d]", field, gi)
		entries, err := listValues(gv, groupField)
		if err != nil {
			return p, err
		}
		group := make(ir.Criteria, 0, len(entries))
		for ei, ev := range entries {
			entry, err := parseCriteriaEntry(ev, fmt.Sprintf("%s[%d]", groupField, ei))
			if err != nil {
				return p, err
			}
			group = append(group, entry)
		}
		p.Criteria = append(p.Criteria, group)
	}

	results, err := listField(v, "results", field+".results")
	if err != nil {
		return p, err
	}
	for ri, rv := range results {
		action, err := parseAction(rv, fmt.Sprintf("%s.results[%d]", field, ri))
		if err != nil {
			return p, err
		}
		p.Results = append(p.Results, action)
	}

	return p, nil
}

// parseCriteriaEntry reads {key, op, value} or {key, op, ref}. The operator
// defaults to "==" and a missing argument compares against 0.
func parseCriteriaEntry(v cue.Value, field string) (ir.CriteriaEntry, error) {
	var entry ir.CriteriaEntry

	key, err := keyField(v, "key", field)
	if err != nil {
		return entry, err
	}
	entry.Key = key

	opVal := v.LookupPath(cue.ParsePath("op"))
	if opVal.Exists() {
		s, err := opVal.String()
		if err != nil {
			return entry, &CompileError{Field: field + ".op", Message: "must be a string", Pos: opVal.Pos()}
		}
		op, ok := ir.ParseOperator(s)
		if !ok {
			return entry, &CompileError{Field: field + ".op", Message: fmt.Sprintf("unknown operator %q", s), Pos: opVal.Pos()}
		}
		entry.Op = op
	}

	lit := v.LookupPath(cue.ParsePath("value"))
	ref := v.LookupPath(cue.ParsePath("ref"))
	switch {
	case lit.Exists() && ref.Exists():
		return entry, &CompileError{Field: field, Message: "value and ref are mutually exclusive", Pos: v.Pos()}
	case ref.Exists():
		k, err := parseKey(ref, field+".ref")
		if err != nil {
			return entry, err
		}
		entry.Argument = int(k)
		entry.ArgumentIsKey = true
	case lit.Exists():
		n, err := parseInt(lit, field+".value")
		if err != nil {
			return entry, err
		}
		entry.Argument = n
	}

	return entry, nil
}

// parseAction reads a result struct naming exactly one action, e.g.
// {assign: {key: 6, value: 1}} or {set_screen: "gary.png"}.
func parseAction(v cue.Value, field string) (ir.Action, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "result must be a struct naming one action", Pos: v.Pos()}
	}

	var (
		name  string
		body  cue.Value
		count int
	)
	for iter.Next() {
		name = iter.Label()
		body = iter.Value()
		count++
	}
	if count != 1 {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("result must name exactly one action, found %d", count),
			Pos:     v.Pos(),
		}
	}

	field = field + "." + name
	switch name {
	case "assign":
		key, val, err := keyAndValue(body, "value", field)
		return ir.Assign{Key: key, Value: val}, err

	case "add":
		key, val, err := keyAndValue(body, "value", field)
		return ir.Add{Key: key, Value: val}, err

	case "random":
		key, val, err := keyAndValue(body, "max", field)
		return ir.Random{Key: key, Max: val}, err

	case "change_location":
		return parseChangeLocation(body, field)

	case "timer":
		key, val, err := keyAndValue(body, "seconds", field)
		return ir.Timer{Key: key, Seconds: val}, err

	case "kill":
		return parseKill(body, field)

	case "stop":
		key, err := parseKey(body, field)
		return ir.Stop{Key: key}, err

	case "music":
		return parseMusic(body, field)

	case "crossfade":
		var a ir.Crossfade
		var err error
		if a.KeyOne, err = keyField(body, "one", field); err != nil {
			return nil, err
		}
		if a.KeyTwo, err = keyField(body, "two", field); err != nil {
			return nil, err
		}
		if a.VolumeOne, err = requireInt(body, "volume_one", field); err != nil {
			return nil, err
		}
		if a.VolumeTwo, err = requireInt(body, "volume_two", field); err != nil {
			return nil, err
		}
		if a.DurationMs, err = requireInt(body, "duration_ms", field); err != nil {
			return nil, err
		}
		return a, nil

	case "attenuate":
		key, err := keyField(body, "key", field)
		if err != nil {
			return nil, err
		}
		volume, err := requireInt(body, "volume", field)
		return ir.Attenuate{Key: key, Volume: volume}, err

	case "pan_track":
		var a ir.PanTrack
		var err error
		if a.Key, err = keyField(body, "key", field); err != nil {
			return nil, err
		}
		if a.MusicKey, err = keyField(body, "music", field); err != nil {
			return nil, err
		}
		a.Position, err = requireInt(body, "position", field)
		return a, err

	case "animplay":
		return parseAnimPlay(body, field)

	case "distort":
		return parseDistort(body, field)

	case "region":
		var a ir.Region
		var err error
		if a.Key, err = keyField(body, "key", field); err != nil {
			return nil, err
		}
		if a.Effect, err = requireString(body, "effect", field); err != nil {
			return nil, err
		}
		if a.Rect, err = rectField(body, "rect", field); err != nil {
			return nil, err
		}
		a.DelayMs, _, err = intField(body, "delay_ms", field)
		return a, err

	case "ttytext":
		var a ir.TtyText
		var err error
		if a.Key, err = keyField(body, "key", field); err != nil {
			return nil, err
		}
		if a.Text, err = requireString(body, "text", field); err != nil {
			return nil, err
		}
		if a.Rect, err = rectField(body, "rect", field); err != nil {
			return nil, err
		}
		a.CharMs, _, err = intField(body, "char_ms", field)
		return a, err

	case "enable_control":
		key, err := parseKey(body, field)
		return ir.EnableControl{Key: key}, err

	case "disable_control":
		key, err := parseKey(body, field)
		return ir.DisableControl{Key: key}, err

	case "flag":
		var a ir.FlagChange
		var err error
		if a.Key, err = keyField(body, "key", field); err != nil {
			return nil, err
		}
		if a.Set, err = parseFlagNames(body, "set", field); err != nil {
			return nil, err
		}
		a.Clear, err = parseFlagNames(body, "clear", field)
		return a, err

	case "set_screen":
		file, err := parseString(body, field)
		return ir.SetScreen{File: ir.NormalizeName(file)}, err

	case "debug":
		text, err := parseString(body, field)
		return ir.Debug{Text: text}, err
	}

	return nil, &CompileError{Field: field, Message: fmt.Sprintf("unknown action %q", name), Pos: v.Pos()}
}

// parseChangeLocation accepts "wrnv", "wrnv:offset" or "back" (the location
// before the current one).
func parseChangeLocation(v cue.Value, field string) (ir.Action, error) {
	s, err := parseString(v, field)
	if err != nil {
		return nil, err
	}
	if s == "back" {
		return ir.ChangeLocation{}, nil
	}
	loc, err := ir.ParseLocation(s)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return ir.ChangeLocation{Location: loc}, nil
}

// parseKill accepts a key (kill one effect) or an effect type name such as
// "anim" or "all".
func parseKill(v cue.Value, field string) (ir.Action, error) {
	if v.IncompleteKind() == cue.StringKind {
		s, err := parseString(v, field)
		if err != nil {
			return nil, err
		}
		t, ok := ir.ParseEffectType(s)
		if !ok {
			return nil, &CompileError{Field: field, Message: fmt.Sprintf("unknown effect type %q", s), Pos: v.Pos()}
		}
		return ir.Kill{Types: t}, nil
	}
	key, err := parseKey(v, field)
	return ir.Kill{Key: key}, err
}

func parseMusic(v cue.Value, field string) (ir.Action, error) {
	a := ir.Music{Volume: ir.Lit(DefaultMusicVolume)}
	var err error
	if a.Key, err = keyField(v, "key", field); err != nil {
		return nil, err
	}
	file, err := requireString(v, "file", field)
	if err != nil {
		return nil, err
	}
	a.File = ir.NormalizeName(file)
	if a.Loop, err = boolField(v, "loop", field); err != nil {
		return nil, err
	}
	if vol := v.LookupPath(cue.ParsePath("volume")); vol.Exists() {
		if a.Volume, err = parseValue(vol, field+".volume"); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func parseAnimPlay(v cue.Value, field string) (ir.Action, error) {
	var a ir.AnimPlay
	var err error
	if a.Key, err = keyField(v, "key", field); err != nil {
		return nil, err
	}
	file, err := requireString(v, "file", field)
	if err != nil {
		return nil, err
	}
	a.File = ir.NormalizeName(file)
	if a.Rect, err = rectField(v, "rect", field); err != nil {
		return nil, err
	}
	if a.StartFrame, _, err = intField(v, "start", field); err != nil {
		return nil, err
	}
	if a.EndFrame, err = requireInt(v, "end", field); err != nil {
		return nil, err
	}
	if a.Loops, _, err = intField(v, "loops", field); err != nil {
		return nil, err
	}
	a.FrameMs, _, err = intField(v, "frame_ms", field)
	return a, err
}

func parseDistort(v cue.Value, field string) (ir.Action, error) {
	var a ir.Distort
	var err error
	if a.Key, err = keyField(v, "key", field); err != nil {
		return nil, err
	}
	if a.DurationMs, err = requireInt(v, "duration_ms", field); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"start_angle", &a.StartAngle},
		{"end_angle", &a.EndAngle},
		{"start_scale", &a.StartScale},
		{"end_scale", &a.EndScale},
	} {
		fv := v.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			return nil, &CompileError{Field: field + "." + f.name, Message: "is required", Pos: v.Pos()}
		}
		n, err := fv.Float64()
		if err != nil {
			return nil, &CompileError{Field: field + "." + f.name, Message: "must be a number", Pos: fv.Pos()}
		}
		*f.dst = n
	}
	return a, nil
}

// parseControl reads a push toggle ({key, push_toggle: rect, toggle?}) or a
// key binding ({key, key_binding: code}).
func parseControl(v cue.Value, field string) (ir.Control, error) {
	var c ir.Control

	key, err := keyField(v, "key", field)
	if err != nil {
		return c, err
	}
	c.Key = key

	push := v.LookupPath(cue.ParsePath("push_toggle"))
	binding := v.LookupPath(cue.ParsePath("key_binding"))
	switch {
	case push.Exists() && binding.Exists():
		return c, &CompileError{Field: field, Message: "push_toggle and key_binding are mutually exclusive", Pos: v.Pos()}
	case push.Exists():
		c.Kind = ir.ControlPushToggle
		if c.Rect, err = parseRect(push, field+".push_toggle"); err != nil {
			return c, err
		}
		if c.Toggle, err = boolField(v, "toggle", field); err != nil {
			return c, err
		}
	case binding.Exists():
		c.Kind = ir.ControlKeyBinding
		if c.KeyCode, err = parseInt(binding, field+".key_binding"); err != nil {
			return c, err
		}
	default:
		return c, &CompileError{Field: field, Message: "control needs push_toggle or key_binding", Pos: v.Pos()}
	}

	return c, nil
}

// parseFlagNames ORs together a list of flag names; a missing field is 0.
func parseFlagNames(v cue.Value, name, field string) (uint, error) {
	items, err := listField(v, name, field+"."+name)
	if err != nil {
		return 0, err
	}
	var flags uint
	for i, item := range items {
		itemField := fmt.Sprintf("%s.%s[%d]", field, name, i)
		s, err := parseString(item, itemField)
		if err != nil {
			return 0, err
		}
		bit, ok := ir.ParseFlag(s)
		if !ok {
			return 0, &CompileError{Field: itemField, Message: fmt.Sprintf("unknown flag %q", s), Pos: item.Pos()}
		}
		flags |= bit
	}
	return flags, nil
}

func keyAndValue(v cue.Value, valueName, field string) (uint32, ir.Value, error) {
	key, err := keyField(v, "key", field)
	if err != nil {
		return 0, ir.Value{}, err
	}
	fv := v.LookupPath(cue.ParsePath(valueName))
	if !fv.Exists() {
		return 0, ir.Value{}, &CompileError{Field: field + "." + valueName, Message: "is required", Pos: v.Pos()}
	}
	val, err := parseValue(fv, field+"."+valueName)
	return key, val, err
}

// parseValue accepts an integer literal or {ref: key}.
func parseValue(v cue.Value, field string) (ir.Value, error) {
	if n, err := v.Int64(); err == nil {
		return ir.Lit(int(n)), nil
	}
	ref := v.LookupPath(cue.ParsePath("ref"))
	if !ref.Exists() {
		return ir.Value{}, &CompileError{Field: field, Message: "must be an integer or {ref: key}", Pos: v.Pos()}
	}
	k, err := parseKey(ref, field+".ref")
	if err != nil {
		return ir.Value{}, err
	}
	return ir.Ref(k), nil
}

// listField returns the elements of an optional list field.
func listField(v cue.Value, name, field string) ([]cue.Value, error) {
	lv := v.LookupPath(cue.ParsePath(name))
	if !lv.Exists() {
		return nil, nil
	}
	return listValues(lv, field)
}

func listValues(v cue.Value, field string) ([]cue.Value, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list", Pos: v.Pos()}
	}
	var out []cue.Value
	for iter.Next() {
		out = append(out, iter.Value())
	}
	return out, nil
}

func keyField(v cue.Value, name, field string) (uint32, error) {
	kv := v.LookupPath(cue.ParsePath(name))
	if !kv.Exists() {
		return 0, &CompileError{Field: field + "." + name, Message: "is required", Pos: v.Pos()}
	}
	return parseKey(kv, field+"."+name)
}

func parseKey(v cue.Value, field string) (uint32, error) {
	n, err := v.Int64()
	if err != nil || n < 0 || n > math.MaxUint32 {
		return 0, &CompileError{Field: field, Message: "must be a non-negative state key", Pos: v.Pos()}
	}
	return uint32(n), nil
}

// intField returns an optional integer field and whether it was present.
func intField(v cue.Value, name, field string) (int, bool, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return 0, false, nil
	}
	n, err := parseInt(fv, field+"."+name)
	return n, true, err
}

func requireInt(v cue.Value, name, field string) (int, error) {
	n, ok, err := intField(v, name, field)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &CompileError{Field: field + "." + name, Message: "is required", Pos: v.Pos()}
	}
	return n, nil
}

func parseInt(v cue.Value, field string) (int, error) {
	n, err := v.Int64()
	if err != nil {
		return 0, &CompileError{Field: field, Message: "must be an integer", Pos: v.Pos()}
	}
	return int(n), nil
}

func requireString(v cue.Value, name, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", &CompileError{Field: field + "." + name, Message: "is required", Pos: v.Pos()}
	}
	return parseString(fv, field+"."+name)
}

func parseString(v cue.Value, field string) (string, error) {
	s, err := v.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: v.Pos()}
	}
	return s, nil
}

func boolField(v cue.Value, name, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, &CompileError{Field: field + "." + name, Message: "must be a bool", Pos: fv.Pos()}
	}
	return b, nil
}

func rectField(v cue.Value, name, field string) (ir.Rect, error) {
	rv := v.LookupPath(cue.ParsePath(name))
	if !rv.Exists() {
		return ir.Rect{}, &CompileError{Field: field + "." + name, Message: "is required", Pos: v.Pos()}
	}
	return parseRect(rv, field+"."+name)
}

// parseRect reads {x, y, w, h}; missing coordinates are 0.
func parseRect(v cue.Value, field string) (ir.Rect, error) {
	var r ir.Rect
	var err error
	if r.X, _, err = intField(v, "x", field); err != nil {
		return r, err
	}
	if r.Y, _, err = intField(v, "y", field); err != nil {
		return r, err
	}
	if r.W, _, err = intField(v, "w", field); err != nil {
		return r, err
	}
	r.H, _, err = intField(v, "h", field)
	return r, err
}

// CompileError represents a compilation error with source location.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
