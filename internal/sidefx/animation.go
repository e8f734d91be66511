package sidefx

import (
	"fmt"

	"github.com/roach88/puzzlebox/internal/ir"
)

// DefaultFrameMs is used when an animation does not specify a frame time.
const DefaultFrameMs = 66

// Animation plays a frame range of an animation file. Loops < 0 plays
// forever; otherwise the range plays max(Loops, 1) times and the key is
// marked finished.
type Animation struct {
	key      uint32
	renderer Renderer
	states   States
	handle   int

	start, end int
	loops      int
	frameMs    int

	frame   int
	elapsed int
	played  int
}

// NewAnimation starts spec on the renderer, shows its first frame and
// marks the key pending.
func NewAnimation(renderer Renderer, states States, spec ir.AnimPlay) (*Animation, error) {
	if spec.EndFrame < spec.StartFrame {
		return nil, fmt.Errorf("animation %s: end frame %d before start frame %d", spec.File, spec.EndFrame, spec.StartFrame)
	}
	handle, err := renderer.PlayAnimation(spec.File, spec.Rect)
	if err != nil {
		return nil, fmt.Errorf("play animation %s: %w", spec.File, err)
	}
	a := &Animation{
		key:      spec.Key,
		renderer: renderer,
		states:   states,
		handle:   handle,
		start:    spec.StartFrame,
		end:      spec.EndFrame,
		loops:    spec.Loops,
		frameMs:  spec.FrameMs,
		frame:    spec.StartFrame,
	}
	if a.frameMs <= 0 {
		a.frameMs = DefaultFrameMs
	}
	if a.loops == 0 {
		a.loops = 1
	}
	renderer.ShowFrame(handle, a.frame)
	states.Set(a.key, ir.EffectPending)
	return a, nil
}

func (a *Animation) Key() uint32         { return a.key }
func (a *Animation) Type() ir.EffectType { return ir.EffectAnim }

// Frame returns the frame currently shown.
func (a *Animation) Frame() int { return a.frame }

func (a *Animation) Process(deltaMs int) bool {
	a.elapsed += deltaMs
	for a.elapsed >= a.frameMs {
		a.elapsed -= a.frameMs
		a.frame++
		if a.frame > a.end {
			a.played++
			if a.loops > 0 && a.played >= a.loops {
				a.finish()
				return true
			}
			a.frame = a.start
		}
		a.renderer.ShowFrame(a.handle, a.frame)
	}
	return false
}

func (a *Animation) Stop() bool {
	a.finish()
	return true
}

func (a *Animation) markPending() { a.states.Set(a.key, ir.EffectPending) }

func (a *Animation) Kill() {
	a.renderer.StopAnimation(a.handle)
}

func (a *Animation) finish() {
	a.renderer.StopAnimation(a.handle)
	a.states.Set(a.key, ir.EffectFinished)
}
