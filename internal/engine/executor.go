package engine

import (
	"fmt"

	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/sidefx"
)

// execute runs one result for a rule of scope owner. It returns whether the
// rule's remaining results should run. A non-nil error is a content or
// collaborator failure; the result counts as executed and the caller logs
// it.
func (e *Engine) execute(owner ir.ScopeLevel, a ir.Action) (bool, error) {
	switch a := a.(type) {
	case ir.Assign:
		e.states.Set(a.Key, e.value(a.Value))

	case ir.Add:
		e.states.Set(a.Key, e.states.Get(a.Key)+e.value(a.Value))

	case ir.Random:
		limit := e.value(a.Max)
		if limit < 0 {
			return true, argumentError(a.Name(), "random max %d is negative", limit)
		}
		e.states.Set(a.Key, e.rand.IntN(limit+1))

	case ir.ChangeLocation:
		e.ChangeLocation(a.Location)
		return false, nil

	case ir.Timer:
		seconds := e.value(a.Seconds)
		if seconds < 0 {
			return true, argumentError(a.Name(), "timer duration %d is negative", seconds)
		}
		return true, e.startEffect(owner, a.Key, a.Name(), func() (sidefx.Effect, error) {
			return sidefx.NewTimer(e.states, a.Key, seconds*1000), nil
		})

	case ir.Kill:
		if a.Types != 0 {
			e.effects.KillType(a.Types)
		} else {
			e.effects.Kill(a.Key)
		}

	case ir.Stop:
		e.effects.Stop(a.Key)

	case ir.Music:
		volume := e.value(a.Volume)
		return true, e.startEffect(owner, a.Key, a.Name(), func() (sidefx.Effect, error) {
			return sidefx.NewMusic(e.audio, e.states, a.Key, a.File, a.Loop, volume)
		})

	case ir.Crossfade:
		if a.DurationMs < 0 {
			return true, argumentError(a.Name(), "crossfade duration %d is negative", a.DurationMs)
		}
		e.fade(a.KeyOne, a.VolumeOne, a.DurationMs)
		e.fade(a.KeyTwo, a.VolumeTwo, a.DurationMs)

	case ir.Attenuate:
		if m, ok := e.effects.Get(a.Key).(*sidefx.Music); ok {
			m.SetVolume(a.Volume)
		}

	case ir.PanTrack:
		return true, e.startEffect(owner, a.Key, a.Name(), func() (sidefx.Effect, error) {
			return sidefx.NewPanTrack(e.renderer, e.audio, e.effects.Get, a.Key, a.MusicKey, a.Position), nil
		})

	case ir.AnimPlay:
		if a.EndFrame < a.StartFrame {
			return true, argumentError(a.Name(), "end frame %d before start frame %d", a.EndFrame, a.StartFrame)
		}
		return true, e.startEffect(owner, a.Key, a.Name(), func() (sidefx.Effect, error) {
			return sidefx.NewAnimation(e.renderer, e.states, a)
		})

	case ir.Distort:
		if a.DurationMs <= 0 {
			return true, argumentError(a.Name(), "distort duration %d must be positive", a.DurationMs)
		}
		return true, e.startEffect(owner, a.Key, a.Name(), func() (sidefx.Effect, error) {
			return sidefx.NewDistort(e.renderer, a), nil
		})

	case ir.Region:
		return true, e.startEffect(owner, a.Key, a.Name(), func() (sidefx.Effect, error) {
			return sidefx.NewRegion(e.renderer, a), nil
		})

	case ir.TtyText:
		return true, e.startEffect(owner, a.Key, a.Name(), func() (sidefx.Effect, error) {
			return sidefx.NewTtyText(e.renderer, e.states, a), nil
		})

	case ir.EnableControl:
		e.states.UnsetFlag(a.Key, ir.FlagDisabled)

	case ir.DisableControl:
		e.states.SetFlag(a.Key, ir.FlagDisabled)

	case ir.FlagChange:
		if a.Set != 0 {
			e.states.SetFlag(a.Key, a.Set)
		}
		if a.Clear != 0 {
			e.states.UnsetFlag(a.Key, a.Clear)
		}

	case ir.SetScreen:
		if err := e.renderer.SetBackground(a.File); err != nil {
			return true, collaboratorError(a.Name(), err)
		}

	case ir.Debug:
		e.logger.Info("script debug", "text", a.Text, "location", e.current.String())

	default:
		return true, &RuntimeError{
			Code:    ErrCodeUnknownAction,
			Message: fmt.Sprintf("unknown result %T", a),
		}
	}
	return true, nil
}

// startEffect builds and registers an effect at key. Any running effect at
// key is resolved by the collision policy first, so a kept key never
// acquires renderer or audio resources and a replaced effect cannot mark
// the new one's key finished.
func (e *Engine) startEffect(owner ir.ScopeLevel, key uint32, action string, build func() (sidefx.Effect, error)) error {
	if !e.effects.Vacate(key) {
		e.logger.Debug("effect skipped, key busy", "key", key, "action", action)
		return nil
	}
	fx, err := build()
	if err != nil {
		return collaboratorError(action, err)
	}
	if e.effects.Add(fx, owner) {
		e.trace(TraceEvent{Kind: TraceEffect, Scope: owner, Key: key, Detail: fx.Type().String()})
	}
	return nil
}

// fade ramps the music effect at key to volume. Negative volumes leave the
// effect alone; a missing or non-music effect is a no-op.
func (e *Engine) fade(key uint32, volume, durationMs int) {
	if volume < 0 {
		return
	}
	if m, ok := e.effects.Get(key).(*sidefx.Music); ok {
		m.FadeTo(volume, durationMs)
	}
}
