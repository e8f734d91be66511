package engine

import (
	"log/slog"
	"math/rand/v2"

	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/sidefx"
	"github.com/roach88/puzzlebox/internal/state"
)

// DefaultStateSlots is the number of state keys persisted by a save.
const DefaultStateSlots = 21000

// DefaultStartLocation is where a new game, or a rejected save, begins.
var DefaultStartLocation = ir.Location{World: 'g', Room: 'a', Node: 'r', View: 'y'}

// Default menu location. Leaving it does not update the go-back keys.
const (
	DefaultMenuWorld byte = 'g'
	DefaultMenuRoom  byte = 'j'
)

// Rand is the random source used by the random result.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Engine runs the scripts of the four nested scopes against one state
// store.
//
// CRITICAL: Engine is not safe for concurrent use. Update, the input
// handlers and the state API must be called from one goroutine.
//
// INVARIANTS:
//   - scopes[ir.ScopeUniverse] is never nil; the other levels are nil only
//     before the first transition
//   - current names the scope set that is fully built
//   - at most one effect per key (enforced by the registry)
type Engine struct {
	states   *state.Store
	effects  *sidefx.Registry
	source   ScriptSource
	scopes   [4]*ScriptScope // indexed by ir.ScopeLevel
	current  ir.Location
	next     ir.Location
	built    bool // world, room and nodeview scopes exist
	clock    *Clock
	logger   *slog.Logger
	renderer sidefx.Renderer
	audio    sidefx.Audio
	rand     Rand
	tracer   Tracer

	policy    sidefx.CollisionPolicy
	slots     int
	menuWorld byte
	menuRoom  byte
	start     ir.Location
	fullScan  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCollisionPolicy sets what happens when a result starts an effect at a
// key that already has one. Default: sidefx.PolicyKillReplace.
func WithCollisionPolicy(p sidefx.CollisionPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithStateSlots sets how many state keys a save persists.
//
// Default: 21000 slots (DefaultStateSlots)
func WithStateSlots(n int) Option {
	return func(e *Engine) {
		e.slots = n
	}
}

// WithMenuLocation sets the world and room of the menu location.
func WithMenuLocation(world, room byte) Option {
	return func(e *Engine) {
		e.menuWorld = world
		e.menuRoom = room
	}
}

// WithStartLocation sets the first location and the fallback for rejected
// saves. Default: DefaultStartLocation.
func WithStartLocation(loc ir.Location) Option {
	return func(e *Engine) {
		e.start = loc
	}
}

// WithRand sets the random source.
func WithRand(r Rand) Option {
	return func(e *Engine) {
		e.rand = r
	}
}

// WithRenderer sets the render collaborator. Default: sidefx.Headless.
func WithRenderer(r sidefx.Renderer) Option {
	return func(e *Engine) {
		e.renderer = r
	}
}

// WithAudio sets the audio collaborator. Default: sidefx.Headless.
func WithAudio(a sidefx.Audio) Option {
	return func(e *Engine) {
		e.audio = a
	}
}

// WithTracer receives every trace event.
func WithTracer(t Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithFullScan makes every pass of every scope a full scan, as if state key
// 312 were always set.
func WithFullScan(on bool) Option {
	return func(e *Engine) {
		e.fullScan = on
	}
}

// New creates an engine, loads the universe scope from source and requests
// the start location. The first Update enters it.
func New(source ScriptSource, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		clock:     NewClock(),
		logger:    slog.Default(),
		rand:      globalRand{},
		policy:    sidefx.PolicyKillReplace,
		slots:     DefaultStateSlots,
		menuWorld: DefaultMenuWorld,
		menuRoom:  DefaultMenuRoom,
		start:     DefaultStartLocation,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renderer == nil || e.audio == nil {
		h := sidefx.NewHeadless(e.logger)
		if e.renderer == nil {
			e.renderer = h
		}
		if e.audio == nil {
			e.audio = h
		}
	}

	e.states = state.New(e)
	e.effects = sidefx.NewRegistry(e.policy, e.logger)

	universe := e.loadScope(ir.ScopeUniverse, ir.Location{})
	e.scopes[ir.ScopeUniverse] = universe
	e.applyScopeFlags(universe)
	e.next = e.start
	return e
}

// KeyChanged queues every rule that references key, in every scope. The
// state store calls it on each non-silent write.
func (e *Engine) KeyChanged(key uint32) {
	for _, s := range e.scopes {
		if s != nil {
			s.keyChanged(key)
		}
	}
}

// Update runs one frame: a pending transition, then effects, then the
// scopes in order nodeview, room, world, universe. A rule requesting a
// location change ends the frame's evaluation.
func (e *Engine) Update(deltaMs int) {
	e.clock.Next()

	if e.transitionPending() {
		if !e.transition() {
			e.effects.Process(deltaMs)
			return
		}
	}

	e.effects.Process(deltaMs)

	for _, level := range scopeOrder {
		s := e.scopes[level]
		if s == nil {
			continue
		}
		if !e.execScope(s) {
			return
		}
	}
}

// Tick returns the number of Update calls so far.
func (e *Engine) Tick() int64 {
	return e.clock.Current()
}

// State returns the value of key.
func (e *Engine) State(key uint32) int {
	return e.states.Get(key)
}

// SetState writes key and queues dependent rules.
func (e *Engine) SetState(key uint32, value int) {
	e.states.Set(key, value)
}

// Flag returns the flag mask of key.
func (e *Engine) Flag(key uint32) uint {
	return e.states.Flag(key)
}

// SetFlag ORs bits into the flags of key and queues dependent rules.
func (e *Engine) SetFlag(key uint32, bits uint) {
	e.states.SetFlag(key, bits)
}

// UnsetFlag clears bits from the flags of key and queues dependent rules.
func (e *Engine) UnsetFlag(key uint32, bits uint) {
	e.states.UnsetFlag(key, bits)
}

// States exposes the store for inspection. Writes must go through the
// engine's state API or the store's notifying methods.
func (e *Engine) States() *state.Store {
	return e.states
}

// AddSideFX registers fx as owned by owner. It returns false if the
// collision policy discarded fx.
func (e *Engine) AddSideFX(fx sidefx.Effect, owner ir.ScopeLevel) bool {
	return e.effects.Add(fx, owner)
}

// SideFX returns the effect at key, or nil.
func (e *Engine) SideFX(key uint32) sidefx.Effect {
	return e.effects.Get(key)
}

// SideFXCount returns the number of running effects.
func (e *Engine) SideFXCount() int {
	return e.effects.Len()
}

// StopSideFX asks the effect at key to stop. It returns false on miss or
// when the effect declines.
func (e *Engine) StopSideFX(key uint32) bool {
	return e.effects.Stop(key)
}

// KillSideFX ends the effect at key.
func (e *Engine) KillSideFX(key uint32) {
	e.effects.Kill(key)
}

// KillSideFXType ends every effect whose type is in mask.
func (e *Engine) KillSideFXType(mask ir.EffectType) {
	e.effects.KillType(mask)
}

// CurrentLocation returns the location whose scopes are fully built.
func (e *Engine) CurrentLocation() ir.Location {
	return e.current
}

// Scope returns the scope at level, nil before it is built.
func (e *Engine) Scope(level ir.ScopeLevel) *ScriptScope {
	return e.scopes[level]
}
