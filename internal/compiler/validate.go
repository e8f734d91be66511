package compiler

import (
	"fmt"

	"github.com/roach88/puzzlebox/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Puzzle errors (E101-E109)
	ErrPuzzleKeyZero         = "E101" // puzzle key 0 is never armed
	ErrDuplicatePuzzle       = "E102" // two puzzles share a key in one script
	ErrEmptyCriteriaGroup    = "E103" // an AND group with no entries always matches
	ErrPuzzleNoResults       = "E104" // puzzle fires but does nothing
	ErrChangeLocationNotLast = "E105" // results after change_location in the same puzzle

	// Result errors (E110-E119)
	ErrFrameRange       = "E110" // animplay end frame before start frame
	ErrNonPositiveTime  = "E111" // distort duration must be positive
	ErrNegativeDuration = "E112" // crossfade/region timing is negative
	ErrVolumeRange      = "E113" // volume outside 0..100
	ErrEmptyName        = "E114" // file or effect name is empty

	// Control errors (E120-E129)
	ErrEmptyControlRect   = "E120" // push toggle with zero area
	ErrDuplicateControl   = "E121" // two controls share a key in one script
	ErrControlKeyCode     = "E122" // key binding without a key code
	ErrControlKeyIsRule   = "E123" // control key shadows a puzzle key
	ErrUnknownControlKind = "E124" // control kind outside push_toggle/key_binding
)

// ValidationError represents a script validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled script for authoring mistakes the compiler
// accepts syntactically. Returns all errors found (does not fail-fast).
func Validate(script *ir.Script) []ValidationError {
	if script == nil {
		return nil
	}

	var errs []ValidationError
	puzzleKeys := make(map[uint32]int, len(script.Puzzles))

	for i, p := range script.Puzzles {
		field := fmt.Sprintf("puzzles[%d]", i)

		if p.Key == 0 {
			errs = append(errs, ValidationError{Field: field + ".key", Message: "puzzle key must be non-zero", Code: ErrPuzzleKeyZero})
		} else if first, dup := puzzleKeys[p.Key]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".key",
				Message: fmt.Sprintf("key %d already used by puzzles[%d]", p.Key, first),
				Code:    ErrDuplicatePuzzle,
			})
		} else {
			puzzleKeys[p.Key] = i
		}

		for gi, group := range p.Criteria {
			if len(group) == 0 {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.criteria[%d]", field, gi),
					Message: "empty criteria group always matches",
					Code:    ErrEmptyCriteriaGroup,
				})
			}
		}

		if len(p.Results) == 0 {
			errs = append(errs, ValidationError{Field: field + ".results", Message: "puzzle has no results", Code: ErrPuzzleNoResults})
		}

		for ri, action := range p.Results {
			resultField := fmt.Sprintf("%s.results[%d].%s", field, ri, action.Name())
			if _, ok := action.(ir.ChangeLocation); ok && ri != len(p.Results)-1 {
				errs = append(errs, ValidationError{
					Field:   resultField,
					Message: "results after change_location run before the new location is entered",
					Code:    ErrChangeLocationNotLast,
				})
			}
			errs = append(errs, validateAction(action, resultField)...)
		}
	}

	controlKeys := make(map[uint32]int, len(script.Controls))
	for i, c := range script.Controls {
		field := fmt.Sprintf("controls[%d]", i)

		if first, dup := controlKeys[c.Key]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".key",
				Message: fmt.Sprintf("key %d already used by controls[%d]", c.Key, first),
				Code:    ErrDuplicateControl,
			})
		} else {
			controlKeys[c.Key] = i
		}
		if _, shadow := puzzleKeys[c.Key]; shadow {
			errs = append(errs, ValidationError{
				Field:   field + ".key",
				Message: fmt.Sprintf("key %d is also a puzzle key", c.Key),
				Code:    ErrControlKeyIsRule,
			})
		}

		switch c.Kind {
		case ir.ControlPushToggle:
			if c.Rect.W <= 0 || c.Rect.H <= 0 {
				errs = append(errs, ValidationError{Field: field + ".push_toggle", Message: "rect must have positive width and height", Code: ErrEmptyControlRect})
			}
		case ir.ControlKeyBinding:
			if c.KeyCode == 0 {
				errs = append(errs, ValidationError{Field: field + ".key_binding", Message: "key code must be non-zero", Code: ErrControlKeyCode})
			}
		default:
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("unknown control kind %d", c.Kind), Code: ErrUnknownControlKind})
		}
	}

	return errs
}

func validateAction(action ir.Action, field string) []ValidationError {
	var errs []ValidationError
	volume := func(name string, v int) {
		if v < 0 || v > 100 {
			errs = append(errs, ValidationError{Field: field + "." + name, Message: fmt.Sprintf("volume %d outside 0..100", v), Code: ErrVolumeRange})
		}
	}
	name := func(n, s string) {
		if s == "" {
			errs = append(errs, ValidationError{Field: field + "." + n, Message: "must not be empty", Code: ErrEmptyName})
		}
	}

	switch a := action.(type) {
	case ir.Music:
		name("file", a.File)
		if !a.Volume.IsKey {
			volume("volume", a.Volume.Literal)
		}
	case ir.Crossfade:
		volume("volume_one", a.VolumeOne)
		volume("volume_two", a.VolumeTwo)
		if a.DurationMs < 0 {
			errs = append(errs, ValidationError{Field: field + ".duration_ms", Message: "must not be negative", Code: ErrNegativeDuration})
		}
	case ir.Attenuate:
		volume("volume", a.Volume)
	case ir.AnimPlay:
		name("file", a.File)
		if a.EndFrame < a.StartFrame {
			errs = append(errs, ValidationError{
				Field:   field + ".end",
				Message: fmt.Sprintf("end frame %d before start frame %d", a.EndFrame, a.StartFrame),
				Code:    ErrFrameRange,
			})
		}
	case ir.Distort:
		if a.DurationMs <= 0 {
			errs = append(errs, ValidationError{Field: field + ".duration_ms", Message: "must be positive", Code: ErrNonPositiveTime})
		}
	case ir.Region:
		name("effect", a.Effect)
		if a.DelayMs < 0 {
			errs = append(errs, ValidationError{Field: field + ".delay_ms", Message: "must not be negative", Code: ErrNegativeDuration})
		}
	case ir.TtyText:
		name("text", a.Text)
		if a.CharMs < 0 {
			errs = append(errs, ValidationError{Field: field + ".char_ms", Message: "must not be negative", Code: ErrNegativeDuration})
		}
	case ir.SetScreen:
		name("file", a.File)
	}
	return errs
}
