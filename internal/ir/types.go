package ir

import "fmt"

// Location identifies a scene: world, room, node and view, plus the
// sub-scene offset (panorama rotation, scroll position).
type Location struct {
	World  byte `json:"world"`
	Room   byte `json:"room"`
	Node   byte `json:"node"`
	View   byte `json:"view"`
	Offset int  `json:"offset"`
}

// IsZero reports whether l is the all-zero "go back" sentinel.
func (l Location) IsZero() bool {
	return l.World == 0 && l.Room == 0 && l.Node == 0 && l.View == 0
}

// SameScene reports whether l and o name the same node-view, ignoring Offset.
func (l Location) SameScene(o Location) bool {
	return l.World == o.World && l.Room == o.Room && l.Node == o.Node && l.View == o.View
}

// String renders the location as "gary:120".
func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.SceneName(), l.Offset)
}

// SceneName returns the four-character node-view name, "gary".
func (l Location) SceneName() string {
	return string([]byte{printable(l.World), printable(l.Room), printable(l.Node), printable(l.View)})
}

func printable(b byte) byte {
	if b == 0 {
		return '0'
	}
	return b
}

// ParseLocation parses "gary" or "gary:120".
func ParseLocation(s string) (Location, error) {
	var loc Location
	name := s
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			name = s[:i]
			if _, err := fmt.Sscanf(s[i+1:], "%d", &loc.Offset); err != nil {
				return Location{}, fmt.Errorf("parse location %q: bad offset: %w", s, err)
			}
			break
		}
	}
	if len(name) != 4 {
		return Location{}, fmt.Errorf("parse location %q: scene name must be 4 characters", s)
	}
	loc.World, loc.Room, loc.Node, loc.View = name[0], name[1], name[2], name[3]
	return loc, nil
}

// ScopeLevel names one of the four nested script scopes.
type ScopeLevel int

const (
	ScopeUniverse ScopeLevel = iota
	ScopeWorld
	ScopeRoom
	ScopeNodeView
)

func (s ScopeLevel) String() string {
	switch s {
	case ScopeUniverse:
		return "universe"
	case ScopeWorld:
		return "world"
	case ScopeRoom:
		return "room"
	case ScopeNodeView:
		return "nodeview"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ScopeSourceName returns the script source identifier for a scope level at
// loc: "universe", "g", "ga" or "gary".
func ScopeSourceName(level ScopeLevel, loc Location) string {
	name := loc.SceneName()
	switch level {
	case ScopeWorld:
		return name[:1]
	case ScopeRoom:
		return name[:2]
	case ScopeNodeView:
		return name
	default:
		return "universe"
	}
}

// Rect is a screen rectangle in pixels.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

// Operator is a criteria comparison operator.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreater
	OpLess
)

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	default:
		return "?"
	}
}

// ParseOperator maps the script spelling of an operator to Operator.
func ParseOperator(s string) (Operator, bool) {
	switch s {
	case "==", "=":
		return OpEqual, true
	case "!=", "<>":
		return OpNotEqual, true
	case ">":
		return OpGreater, true
	case "<":
		return OpLess, true
	}
	return 0, false
}

// Compare applies o to lhs and rhs.
func (o Operator) Compare(lhs, rhs int) bool {
	switch o {
	case OpEqual:
		return lhs == rhs
	case OpNotEqual:
		return lhs != rhs
	case OpGreater:
		return lhs > rhs
	case OpLess:
		return lhs < rhs
	}
	return false
}

// CriteriaEntry is one conjunct of a puzzle condition: Key Op Argument.
// When ArgumentIsKey is set, Argument is a state key dereferenced at
// evaluation time.
type CriteriaEntry struct {
	Key           uint32   `json:"key"`
	Op            Operator `json:"op"`
	Argument      int      `json:"argument"`
	ArgumentIsKey bool     `json:"argument_is_key,omitempty"`
}

// Criteria is an AND group of entries.
type Criteria []CriteriaEntry

// Puzzle is a condition→action rule. Key doubles as the rule's
// "completed" state key.
type Puzzle struct {
	Key      uint32     `json:"key"`
	Criteria []Criteria `json:"criteria"` // OR of AND groups
	Results  []Action   `json:"-"`
	Flags    uint       `json:"flags"`
}

// Value is an action argument that is either a literal or a state key.
type Value struct {
	Literal int    `json:"literal,omitempty"`
	Key     uint32 `json:"key,omitempty"`
	IsKey   bool   `json:"is_key,omitempty"`
}

// Lit returns a literal Value.
func Lit(n int) Value { return Value{Literal: n} }

// Ref returns a Value that dereferences state key k.
func Ref(k uint32) Value { return Value{Key: k, IsKey: true} }

// Script is the compiled content of one scope's source.
type Script struct {
	Name     string    `json:"name"`
	Puzzles  []Puzzle  `json:"puzzles"`
	Controls []Control `json:"controls"`
}
