package harness

import "github.com/roach88/puzzlebox/internal/engine"

// TraceEvent is one engine trace event in scenario form.
// Scope is set only for fire and effect events.
type TraceEvent struct {
	Tick     int64  `json:"tick"`
	Kind     string `json:"kind"`
	Scope    string `json:"scope,omitempty"`
	Key      uint32 `json:"key,omitempty"`
	Location string `json:"location,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

func fromEngine(ev engine.TraceEvent) TraceEvent {
	out := TraceEvent{Tick: ev.Tick, Kind: string(ev.Kind), Detail: ev.Detail}
	switch ev.Kind {
	case engine.TraceLocation:
		out.Location = ev.Location.String()
	default:
		out.Scope = ev.Scope.String()
		out.Key = ev.Key
	}
	return out
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect steps and assertions match.
	Pass bool `json:"pass"`

	// Trace contains every engine trace event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Fired returns the keys of fired rules in trace order.
func (r *Result) Fired() []uint32 {
	var keys []uint32
	for _, ev := range r.Trace {
		if ev.Kind == string(engine.TraceFire) {
			keys = append(keys, ev.Key)
		}
	}
	return keys
}
