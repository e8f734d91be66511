package sidefx

import "github.com/roach88/puzzlebox/internal/ir"

// TtyText types a line of text into a rectangle, one character every
// charMs. Its key holds ir.EffectPending while typing and
// ir.EffectFinished once the whole line is shown.
type TtyText struct {
	key      uint32
	renderer Renderer
	states   States
	text     []rune
	rect     ir.Rect
	charMs   int
	elapsed  int
	shown    int
}

// NewTtyText starts typing spec.Text and marks its key pending. Nothing is
// drawn until the first character is due.
func NewTtyText(renderer Renderer, states States, spec ir.TtyText) *TtyText {
	charMs := spec.CharMs
	if charMs <= 0 {
		charMs = 1
	}
	states.Set(spec.Key, ir.EffectPending)
	return &TtyText{
		key:      spec.Key,
		renderer: renderer,
		states:   states,
		text:     []rune(spec.Text),
		rect:     spec.Rect,
		charMs:   charMs,
	}
}

func (t *TtyText) Key() uint32         { return t.key }
func (t *TtyText) Type() ir.EffectType { return ir.EffectTtyText }

// Shown returns how many characters have been drawn.
func (t *TtyText) Shown() int { return t.shown }

func (t *TtyText) Process(deltaMs int) bool {
	t.elapsed += deltaMs
	t.reveal(min(len(t.text), t.elapsed/t.charMs))
	if t.shown < len(t.text) {
		return false
	}
	t.states.Set(t.key, ir.EffectFinished)
	return true
}

func (t *TtyText) reveal(n int) {
	if n <= t.shown {
		return
	}
	t.shown = n
	t.renderer.DrawText(string(t.text[:n]), t.rect)
}

func (t *TtyText) markPending() { t.states.Set(t.key, ir.EffectPending) }

// Stop shows the rest of the line at once and finishes.
func (t *TtyText) Stop() bool {
	t.reveal(len(t.text))
	t.states.Set(t.key, ir.EffectFinished)
	return true
}

// Kill wipes whatever was typed; the key keeps its value.
func (t *TtyText) Kill() {
	if t.shown > 0 {
		t.renderer.ClearText(t.rect)
	}
}
