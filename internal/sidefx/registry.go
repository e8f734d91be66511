package sidefx

import (
	"fmt"
	"log/slog"

	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/savefile"
)

// CollisionPolicy decides what happens when an effect is added at a key
// that already has one.
type CollisionPolicy int

const (
	// PolicyKillReplace kills the running effect and registers the new one.
	PolicyKillReplace CollisionPolicy = iota
	// PolicyStopReplace asks the running effect to stop; if it declines the
	// new effect is killed instead.
	PolicyStopReplace
	// PolicyKeepExisting keeps the running effect and discards the new one.
	PolicyKeepExisting
)

func (p CollisionPolicy) String() string {
	switch p {
	case PolicyKillReplace:
		return "kill_replace"
	case PolicyStopReplace:
		return "stop_replace"
	case PolicyKeepExisting:
		return "keep_existing"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseCollisionPolicy maps a config spelling to a policy.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch s {
	case "", "kill_replace":
		return PolicyKillReplace, nil
	case "stop_replace":
		return PolicyStopReplace, nil
	case "keep_existing":
		return PolicyKeepExisting, nil
	}
	return 0, fmt.Errorf("invalid collision policy %q: must be kill_replace, stop_replace or keep_existing", s)
}

type entry struct {
	fx    Effect
	owner ir.ScopeLevel
}

// Registry owns every running effect. Iteration is in insertion order so
// processing and serialization are deterministic.
//
// INVARIANT: at most one entry per key.
type Registry struct {
	entries []entry
	policy  CollisionPolicy
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. logger may be nil.
func NewRegistry(policy CollisionPolicy, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{policy: policy, logger: logger}
}

// Policy returns the collision policy.
func (r *Registry) Policy() CollisionPolicy { return r.policy }

// Vacate resolves a collision at key before a new effect is built, so the
// new effect's constructor is the last writer of its state key. It returns
// false when the policy keeps the running effect; nothing was changed then.
func (r *Registry) Vacate(key uint32) bool {
	i := r.index(key)
	if i < 0 {
		return true
	}
	old := r.entries[i].fx
	switch r.policy {
	case PolicyKeepExisting:
		r.logger.Debug("key busy, effect kept", "key", key, "type", old.Type().String())
		return false
	case PolicyStopReplace:
		if !old.Stop() {
			r.logger.Debug("key busy, running effect declined stop", "key", key, "type", old.Type().String())
			return false
		}
	default:
		old.Kill()
	}
	r.remove(i)
	r.logger.Debug("effect vacated", "key", key, "type", old.Type().String())
	return true
}

// pendingMarker is implemented by effects that hold their key at
// ir.EffectPending while running.
type pendingMarker interface {
	markPending()
}

// Add registers fx for owner, resolving a key collision by policy. It
// returns false if fx was discarded; a discarded fx has been killed.
func (r *Registry) Add(fx Effect, owner ir.ScopeLevel) bool {
	if i := r.index(fx.Key()); i >= 0 {
		old := r.entries[i].fx
		switch r.policy {
		case PolicyKeepExisting:
			fx.Kill()
			r.logger.Debug("effect discarded, key busy", "key", fx.Key(), "type", fx.Type().String())
			return false
		case PolicyStopReplace:
			if !old.Stop() {
				fx.Kill()
				r.logger.Debug("effect discarded, running effect declined stop", "key", fx.Key(), "type", old.Type().String())
				return false
			}
			// Stopping marked the shared key finished
			if p, ok := fx.(pendingMarker); ok {
				p.markPending()
			}
		default:
			old.Kill()
		}
		r.remove(i)
		r.logger.Debug("effect replaced", "key", fx.Key(), "old_type", old.Type().String(), "new_type", fx.Type().String())
	}
	r.entries = append(r.entries, entry{fx: fx, owner: owner})
	return true
}

// Get returns the effect at key, or nil.
func (r *Registry) Get(key uint32) Effect {
	if i := r.index(key); i >= 0 {
		return r.entries[i].fx
	}
	return nil
}

// Len returns the number of running effects.
func (r *Registry) Len() int { return len(r.entries) }

// Effects returns the running effects in insertion order.
func (r *Registry) Effects() []Effect {
	out := make([]Effect, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.fx
	}
	return out
}

// Process advances every effect and drops the ones that report done.
func (r *Registry) Process(deltaMs int) {
	var done map[Effect]bool
	for _, e := range r.entries {
		if e.fx.Process(deltaMs) {
			if done == nil {
				done = make(map[Effect]bool)
			}
			done[e.fx] = true
			r.logger.Debug("effect finished", "key", e.fx.Key(), "type", e.fx.Type().String())
		}
	}
	if len(done) == 0 {
		return
	}
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !done[e.fx] {
			kept = append(kept, e)
		}
	}
	clear(r.entries[len(kept):])
	r.entries = kept
}

// Stop asks the effect at key to stop and removes it if it agrees. It
// returns false on miss or refusal.
func (r *Registry) Stop(key uint32) bool {
	i := r.index(key)
	if i < 0 {
		return false
	}
	if !r.entries[i].fx.Stop() {
		return false
	}
	r.remove(i)
	return true
}

// Kill forcibly ends the effect at key. No-op on miss.
func (r *Registry) Kill(key uint32) {
	if i := r.index(key); i >= 0 {
		r.entries[i].fx.Kill()
		r.remove(i)
	}
}

// KillType kills every effect whose type is in mask.
func (r *Registry) KillType(mask ir.EffectType) {
	r.killWhere(func(e entry) bool { return e.fx.Type()&mask != 0 })
}

// KillOwnedBy kills every effect started by one of the given scopes.
func (r *Registry) KillOwnedBy(levels ...ir.ScopeLevel) {
	r.killWhere(func(e entry) bool {
		for _, l := range levels {
			if e.owner == l {
				return true
			}
		}
		return false
	})
}

// KillAll kills every effect.
func (r *Registry) KillAll() {
	r.killWhere(func(entry) bool { return true })
}

// Serialize writes one record per effect that implements Serializer.
func (r *Registry) Serialize(w *savefile.Writer) error {
	for _, e := range r.entries {
		s, ok := e.fx.(Serializer)
		if !ok {
			continue
		}
		if err := s.Serialize(w); err != nil {
			return fmt.Errorf("serialize effect %d: %w", e.fx.Key(), err)
		}
	}
	return nil
}

func (r *Registry) killWhere(match func(entry) bool) {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if match(e) {
			e.fx.Kill()
			continue
		}
		kept = append(kept, e)
	}
	clear(r.entries[len(kept):])
	r.entries = kept
}

func (r *Registry) index(key uint32) int {
	for i, e := range r.entries {
		if e.fx.Key() == key {
			return i
		}
	}
	return -1
}

func (r *Registry) remove(i int) {
	copy(r.entries[i:], r.entries[i+1:])
	r.entries[len(r.entries)-1] = entry{}
	r.entries = r.entries[:len(r.entries)-1]
}
