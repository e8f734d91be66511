package ir

// Action is one result of a puzzle. The set of variants is closed: every
// implementation lives in this file and the engine executes them with a
// type switch.
type Action interface {
	// Name returns the script spelling of the action kind.
	Name() string
	isAction()
}

// Assign sets Key to Value.
type Assign struct {
	Key   uint32
	Value Value
}

// Add adds Value to Key.
type Add struct {
	Key   uint32
	Value Value
}

// Random sets Key to a uniform value in [0, Max].
type Random struct {
	Key uint32
	Max Value
}

// ChangeLocation requests a scene transition and stops the remaining
// results of the firing puzzle.
type ChangeLocation struct {
	Location Location
}

// Timer starts a countdown effect at Key.
type Timer struct {
	Key     uint32
	Seconds Value
}

// Kill forcibly ends effects: the one at Key, or every effect whose type is
// in Types when Types is non-zero.
type Kill struct {
	Key   uint32
	Types EffectType
}

// Stop asks the effect at Key to end gracefully.
type Stop struct {
	Key uint32
}

// Music starts an audio effect.
type Music struct {
	Key    uint32
	File   string
	Loop   bool
	Volume Value
}

// Crossfade fades two audio effects to new volumes over DurationMs.
type Crossfade struct {
	KeyOne     uint32
	KeyTwo     uint32
	VolumeOne  int
	VolumeTwo  int
	DurationMs int
}

// Attenuate sets an audio effect's volume immediately.
type Attenuate struct {
	Key    uint32
	Volume int
}

// PanTrack binds an audio effect's balance to a position on the panorama.
type PanTrack struct {
	Key      uint32
	MusicKey uint32
	Position int
}

// AnimPlay plays a frame range of an animation file in Rect.
type AnimPlay struct {
	Key        uint32
	File       string
	Rect       Rect
	StartFrame int
	EndFrame   int
	Loops      int
	FrameMs    int
}

// Distort oscillates the screen warp between two angle/scale pairs.
type Distort struct {
	Key        uint32
	DurationMs int
	StartAngle float64
	EndAngle   float64
	StartScale float64
	EndScale   float64
}

// Region pulses a named screen effect over Rect every DelayMs.
type Region struct {
	Key     uint32
	Effect  string
	Rect    Rect
	DelayMs int
}

// TtyText types Text into Rect one character every CharMs.
type TtyText struct {
	Key    uint32
	Text   string
	Rect   Rect
	CharMs int
}

// EnableControl clears FlagDisabled on Key.
type EnableControl struct {
	Key uint32
}

// DisableControl sets FlagDisabled on Key.
type DisableControl struct {
	Key uint32
}

// FlagChange sets and clears flag bits on Key.
type FlagChange struct {
	Key   uint32
	Set   uint
	Clear uint
}

// SetScreen replaces the background image.
type SetScreen struct {
	File string
}

// Debug logs Text when executed.
type Debug struct {
	Text string
}

func (Assign) Name() string         { return "assign" }
func (Add) Name() string            { return "add" }
func (Random) Name() string         { return "random" }
func (ChangeLocation) Name() string { return "change_location" }
func (Timer) Name() string          { return "timer" }
func (Kill) Name() string           { return "kill" }
func (Stop) Name() string           { return "stop" }
func (Music) Name() string          { return "music" }
func (Crossfade) Name() string      { return "crossfade" }
func (Attenuate) Name() string      { return "attenuate" }
func (PanTrack) Name() string       { return "pan_track" }
func (AnimPlay) Name() string       { return "animplay" }
func (Distort) Name() string        { return "distort" }
func (Region) Name() string         { return "region" }
func (TtyText) Name() string        { return "ttytext" }
func (EnableControl) Name() string  { return "enable_control" }
func (DisableControl) Name() string { return "disable_control" }
func (FlagChange) Name() string     { return "flag" }
func (SetScreen) Name() string      { return "set_screen" }
func (Debug) Name() string          { return "debug" }

func (Assign) isAction()         {}
func (Add) isAction()            {}
func (Random) isAction()         {}
func (ChangeLocation) isAction() {}
func (Timer) isAction()          {}
func (Kill) isAction()           {}
func (Stop) isAction()           {}
func (Music) isAction()          {}
func (Crossfade) isAction()      {}
func (Attenuate) isAction()      {}
func (PanTrack) isAction()       {}
func (AnimPlay) isAction()       {}
func (Distort) isAction()        {}
func (Region) isAction()         {}
func (TtyText) isAction()        {}
func (EnableControl) isAction()  {}
func (DisableControl) isAction() {}
func (FlagChange) isAction()     {}
func (SetScreen) isAction()      {}
func (Debug) isAction()          {}
