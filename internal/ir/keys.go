package ir

// Puzzle flag bits stored in the state flag table under the puzzle key.
const (
	// FlagOncePerInst resets the puzzle key to 0 each time its scope loads,
	// so the puzzle fires at most once per scene instance.
	FlagOncePerInst uint = 0x01
	// FlagDoMeNow admits the puzzle on the first pass after scope load.
	FlagDoMeNow uint = 0x02
	// FlagDisabled keeps the puzzle (or control) from ever firing.
	FlagDisabled uint = 0x04
)

// ParseFlag maps a script flag name to its bit.
func ParseFlag(s string) (uint, bool) {
	switch s {
	case "once_per_inst":
		return FlagOncePerInst, true
	case "do_me_now":
		return FlagDoMeNow, true
	case "disabled":
		return FlagDisabled, true
	}
	return 0, false
}

// Reserved state keys written by the engine itself.
const (
	StateKeyKeyPress   uint32 = 8
	StateKeyLMouse     uint32 = 10
	StateKeyLastWorld  uint32 = 40
	StateKeyLastRoom   uint32 = 41
	StateKeyLastNode   uint32 = 42
	StateKeyLastView   uint32 = 43
	StateKeyLastOffset uint32 = 44

	// Location of the fully built scope set.
	StateKeyWorld   uint32 = 300
	StateKeyRoom    uint32 = 301
	StateKeyNode    uint32 = 302
	StateKeyView    uint32 = 303
	StateKeyViewPos uint32 = 304

	// StateKeyExecScopeStyle forces a full scan of every scope on every tick
	// while non-zero.
	StateKeyExecScopeStyle uint32 = 312
)

// Values a timer-like effect writes to its key.
const (
	EffectPending  = 1
	EffectFinished = 2
)

// EffectType identifies a side-effect variant. Values are bits so that
// kill-by-type can take a mask.
type EffectType uint

const (
	EffectAnim EffectType = 1 << iota
	EffectAudio
	EffectDistort
	EffectPanTrack
	EffectRegion
	EffectTimer
	EffectTtyText

	EffectAll EffectType = 0xffff
)

func (t EffectType) String() string {
	switch t {
	case EffectAnim:
		return "anim"
	case EffectAudio:
		return "audio"
	case EffectDistort:
		return "distort"
	case EffectPanTrack:
		return "pantrack"
	case EffectRegion:
		return "region"
	case EffectTimer:
		return "timer"
	case EffectTtyText:
		return "ttytext"
	case EffectAll:
		return "all"
	}
	return "mixed"
}

// ParseEffectType maps a script name to an EffectType.
func ParseEffectType(s string) (EffectType, bool) {
	for _, t := range []EffectType{EffectAnim, EffectAudio, EffectDistort, EffectPanTrack, EffectRegion, EffectTimer, EffectTtyText, EffectAll} {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}
