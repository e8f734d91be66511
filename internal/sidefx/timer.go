package sidefx

import (
	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/savefile"
)

// Timer counts down and then marks its key finished. While running its key
// holds ir.EffectPending; when done it holds ir.EffectFinished.
type Timer struct {
	key         uint32
	remainingMs int
	states      States
}

// NewTimer starts a timer of durationMs and marks key pending.
func NewTimer(states States, key uint32, durationMs int) *Timer {
	states.Set(key, ir.EffectPending)
	return &Timer{key: key, remainingMs: durationMs, states: states}
}

// RestoreTimer recreates a timer from a save without touching state; the
// restored value table already carries its key.
func RestoreTimer(states States, key uint32, remainingMs int) *Timer {
	return &Timer{key: key, remainingMs: remainingMs, states: states}
}

func (t *Timer) Key() uint32         { return t.key }
func (t *Timer) Type() ir.EffectType { return ir.EffectTimer }

// Remaining returns the milliseconds left.
func (t *Timer) Remaining() int { return t.remainingMs }

func (t *Timer) Process(deltaMs int) bool {
	t.remainingMs -= deltaMs
	if t.remainingMs <= 0 {
		t.remainingMs = 0
		t.states.Set(t.key, ir.EffectFinished)
		return true
	}
	return false
}

func (t *Timer) markPending() { t.states.Set(t.key, ir.EffectPending) }

// Stop finishes the timer early.
func (t *Timer) Stop() bool {
	t.states.Set(t.key, ir.EffectFinished)
	return true
}

// Kill drops the timer; its key keeps whatever value it had.
func (t *Timer) Kill() {}

func (t *Timer) Serialize(w *savefile.Writer) error {
	var enc savefile.Encoder
	enc.Uint32(t.key)
	enc.Uint32(uint32(t.remainingMs))
	return w.Chunk(savefile.TagTimer, enc.Bytes())
}
