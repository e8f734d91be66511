package engine

import "github.com/roach88/puzzlebox/internal/ir"

// TraceKind names a traced engine event.
type TraceKind string

const (
	// TraceFire records a rule whose criteria were met.
	TraceFire TraceKind = "fire"
	// TraceLocation records a completed location transition.
	TraceLocation TraceKind = "location"
	// TraceEffect records an effect registered by a result.
	TraceEffect TraceKind = "effect"
)

// TraceEvent is one observable step of the update loop.
type TraceEvent struct {
	Tick     int64
	Kind     TraceKind
	Scope    ir.ScopeLevel
	Key      uint32
	Location ir.Location
	Detail   string
}

// Tracer receives trace events in the order they happen.
type Tracer interface {
	Trace(ev TraceEvent)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(ev TraceEvent)

// Trace calls f(ev).
func (f TracerFunc) Trace(ev TraceEvent) { f(ev) }

func (e *Engine) trace(ev TraceEvent) {
	if e.tracer == nil {
		return
	}
	ev.Tick = e.clock.Current()
	e.tracer.Trace(ev)
}
