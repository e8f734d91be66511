package sidefx

import (
	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/savefile"
)

// Effect is one running side effect.
type Effect interface {
	Key() uint32
	Type() ir.EffectType

	// Process advances the effect by deltaMs and reports whether it is done.
	Process(deltaMs int) bool

	// Stop asks the effect to end. It returns false if the effect declines
	// and keeps running.
	Stop() bool

	// Kill ends the effect immediately and releases its resources.
	Kill()
}

// Serializer is implemented by effects whose state cannot be rebuilt from
// their constructor arguments.
type Serializer interface {
	Serialize(w *savefile.Writer) error
}

// States is the slice of the state store effects write to.
type States interface {
	Get(key uint32) int
	Set(key uint32, value int)
}

// Renderer is the render/resource collaborator.
type Renderer interface {
	PlayAnimation(file string, rect ir.Rect) (int, error)
	ShowFrame(handle, frame int)
	StopAnimation(handle int)
	SetBackground(file string) error
	ViewportOffset() int
	SetViewportOffset(offset int)
	SetDistortion(angle, scale float64)
	ResetDistortion()
	ApplyRegionEffect(name string, rect ir.Rect)
	ClearRegionEffect(name string, rect ir.Rect)
	DrawText(text string, rect ir.Rect)
	ClearText(rect ir.Rect)
}

// Audio is the audio collaborator.
type Audio interface {
	Play(file string, loop bool) (int, error)
	Stop(handle int)
	IsPlaying(handle int) bool
	SetVolume(handle, volume int)
	SetBalance(handle, balance int)
}
