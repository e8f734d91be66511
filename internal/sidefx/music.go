package sidefx

import (
	"fmt"

	"github.com/roach88/puzzlebox/internal/ir"
)

// MaxVolume is the loudest volume an audio effect accepts.
const MaxVolume = 100

// Music plays an audio stream. A non-looping track finishes when the
// collaborator reports it stopped playing.
type Music struct {
	key    uint32
	audio  Audio
	states States
	handle int
	file   string
	loop   bool
	volume int

	fading    bool
	fadeFrom  int
	fadeTo    int
	fadeMs    int
	fadeSpent int

	stopPending bool
}

// NewMusic starts file on the audio collaborator and marks key pending.
func NewMusic(audio Audio, states States, key uint32, file string, loop bool, volume int) (*Music, error) {
	handle, err := audio.Play(file, loop)
	if err != nil {
		return nil, fmt.Errorf("play %s: %w", file, err)
	}
	m := &Music{
		key:    key,
		audio:  audio,
		states: states,
		handle: handle,
		file:   file,
		loop:   loop,
		volume: clampVolume(volume),
	}
	audio.SetVolume(handle, m.volume)
	states.Set(key, ir.EffectPending)
	return m, nil
}

func (m *Music) Key() uint32         { return m.key }
func (m *Music) Type() ir.EffectType { return ir.EffectAudio }

// Handle returns the audio collaborator handle.
func (m *Music) Handle() int { return m.handle }

// Volume returns the current volume.
func (m *Music) Volume() int { return m.volume }

// Fading reports whether a fade is in progress.
func (m *Music) Fading() bool { return m.fading }

// SetVolume cancels any fade and sets the volume immediately.
func (m *Music) SetVolume(volume int) {
	m.fading = false
	m.volume = clampVolume(volume)
	m.audio.SetVolume(m.handle, m.volume)
}

// FadeTo ramps the volume linearly to target over durationMs.
func (m *Music) FadeTo(target, durationMs int) {
	if durationMs <= 0 {
		m.SetVolume(target)
		return
	}
	m.fading = true
	m.fadeFrom = m.volume
	m.fadeTo = clampVolume(target)
	m.fadeMs = durationMs
	m.fadeSpent = 0
}

func (m *Music) Process(deltaMs int) bool {
	if m.fading {
		m.fadeSpent += deltaMs
		if m.fadeSpent >= m.fadeMs {
			m.fading = false
			m.volume = m.fadeTo
		} else {
			m.volume = m.fadeFrom + (m.fadeTo-m.fadeFrom)*m.fadeSpent/m.fadeMs
		}
		m.audio.SetVolume(m.handle, m.volume)
		if !m.fading && m.stopPending {
			m.finish()
			return true
		}
	}
	if !m.loop && !m.audio.IsPlaying(m.handle) {
		m.finish()
		return true
	}
	return false
}

// Stop ends the track, unless a fade is running: then the track finishes
// when the fade completes and Stop returns false.
func (m *Music) Stop() bool {
	if m.fading {
		m.stopPending = true
		return false
	}
	m.finish()
	return true
}

func (m *Music) markPending() { m.states.Set(m.key, ir.EffectPending) }

func (m *Music) Kill() {
	m.audio.Stop(m.handle)
}

func (m *Music) finish() {
	m.audio.Stop(m.handle)
	m.states.Set(m.key, ir.EffectFinished)
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}
