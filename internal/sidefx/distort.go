package sidefx

import "github.com/roach88/puzzlebox/internal/ir"

// Distort swings the screen warp between a start and end angle/scale pair,
// one sweep every durationMs, until stopped.
type Distort struct {
	key      uint32
	renderer Renderer
	spec     ir.Distort
	elapsed  int
	forward  bool
}

// NewDistort creates a distortion; the first Process call applies it.
func NewDistort(renderer Renderer, spec ir.Distort) *Distort {
	if spec.DurationMs <= 0 {
		spec.DurationMs = 1
	}
	return &Distort{key: spec.Key, renderer: renderer, spec: spec, forward: true}
}

func (d *Distort) Key() uint32         { return d.key }
func (d *Distort) Type() ir.EffectType { return ir.EffectDistort }

func (d *Distort) Process(deltaMs int) bool {
	d.elapsed += deltaMs
	for d.elapsed >= d.spec.DurationMs {
		d.elapsed -= d.spec.DurationMs
		d.forward = !d.forward
	}
	t := float64(d.elapsed) / float64(d.spec.DurationMs)
	if !d.forward {
		t = 1 - t
	}
	angle := d.spec.StartAngle + (d.spec.EndAngle-d.spec.StartAngle)*t
	scale := d.spec.StartScale + (d.spec.EndScale-d.spec.StartScale)*t
	d.renderer.SetDistortion(angle, scale)
	return false
}

func (d *Distort) Stop() bool {
	d.renderer.ResetDistortion()
	return true
}

func (d *Distort) Kill() {
	d.renderer.ResetDistortion()
}
