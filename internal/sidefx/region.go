package sidefx

import "github.com/roach88/puzzlebox/internal/ir"

// Region reapplies a named screen effect over a rectangle every delayMs.
type Region struct {
	key      uint32
	renderer Renderer
	name     string
	rect     ir.Rect
	delayMs  int
	elapsed  int
	applied  bool
}

// NewRegion creates a region pulse. It is first applied on the first
// Process call.
func NewRegion(renderer Renderer, spec ir.Region) *Region {
	delay := spec.DelayMs
	if delay <= 0 {
		delay = 1
	}
	return &Region{key: spec.Key, renderer: renderer, name: spec.Effect, rect: spec.Rect, delayMs: delay}
}

func (r *Region) Key() uint32         { return r.key }
func (r *Region) Type() ir.EffectType { return ir.EffectRegion }

func (r *Region) Process(deltaMs int) bool {
	r.elapsed += deltaMs
	if !r.applied || r.elapsed >= r.delayMs {
		r.elapsed %= r.delayMs
		r.applied = true
		r.renderer.ApplyRegionEffect(r.name, r.rect)
	}
	return false
}

func (r *Region) Stop() bool {
	r.Kill()
	return true
}

func (r *Region) Kill() {
	if r.applied {
		r.renderer.ClearRegionEffect(r.name, r.rect)
	}
}
