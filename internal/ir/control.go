package ir

// ControlKind distinguishes input bindings.
type ControlKind int

const (
	// ControlPushToggle is a clickable hotspot.
	ControlPushToggle ControlKind = iota + 1
	// ControlKeyBinding maps a key code to a state key.
	ControlKeyBinding
)

func (k ControlKind) String() string {
	switch k {
	case ControlPushToggle:
		return "push_toggle"
	case ControlKeyBinding:
		return "key_binding"
	}
	return "unknown"
}

// Control is an input binding owned by a script scope. Activating it
// writes its Key; FlagDisabled on Key suppresses it.
type Control struct {
	Key     uint32      `json:"key"`
	Kind    ControlKind `json:"kind"`
	Rect    Rect        `json:"rect"`
	KeyCode int         `json:"key_code,omitempty"`

	// Toggle makes a push control flip Key between 0 and 1 instead of
	// always writing 1.
	Toggle bool `json:"toggle,omitempty"`
}
