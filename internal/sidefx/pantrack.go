package sidefx

import "github.com/roach88/puzzlebox/internal/ir"

// PanoramaWidth is the pixel width of a full panorama turn.
const PanoramaWidth = 2048

// MaxBalance is the balance magnitude for a sound fully to one side.
const MaxBalance = 127

// PanTrack steers a music effect's stereo balance from the angle between
// the viewport and a fixed panorama position. It ends when the music does.
type PanTrack struct {
	key      uint32
	musicKey uint32
	position int
	renderer Renderer
	audio    Audio
	lookup   func(key uint32) Effect
}

// NewPanTrack binds the music effect at musicKey. lookup resolves effects
// by key each frame so the track never holds a stale music pointer.
func NewPanTrack(renderer Renderer, audio Audio, lookup func(uint32) Effect, key, musicKey uint32, position int) *PanTrack {
	return &PanTrack{
		key:      key,
		musicKey: musicKey,
		position: position,
		renderer: renderer,
		audio:    audio,
		lookup:   lookup,
	}
}

func (p *PanTrack) Key() uint32         { return p.key }
func (p *PanTrack) Type() ir.EffectType { return ir.EffectPanTrack }

func (p *PanTrack) Process(int) bool {
	m, ok := p.lookup(p.musicKey).(*Music)
	if !ok {
		return true
	}
	p.audio.SetBalance(m.Handle(), Balance(p.position, p.renderer.ViewportOffset()))
	return false
}

func (p *PanTrack) Stop() bool {
	p.Kill()
	return true
}

func (p *PanTrack) Kill() {
	if m, ok := p.lookup(p.musicKey).(*Music); ok {
		p.audio.SetBalance(m.Handle(), 0)
	}
}

// Balance maps the offset between a sound's panorama position and the
// viewport to [-MaxBalance, MaxBalance]: 0 straight ahead, positive to the
// right.
func Balance(position, viewport int) int {
	half := PanoramaWidth / 2
	diff := ((position-viewport)%PanoramaWidth + PanoramaWidth) % PanoramaWidth
	if diff >= half {
		diff -= PanoramaWidth
	}
	quarter := PanoramaWidth / 4
	if diff > quarter {
		diff = half - diff
	} else if diff < -quarter {
		diff = -half - diff
	}
	return diff * MaxBalance / quarter
}
