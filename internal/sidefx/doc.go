// Package sidefx implements the time-advancing side effects started by
// puzzle results: timers, animations, music, pan tracking, screen
// distortion and region pulses.
//
// Every effect exclusively owns the collaborator resources it acquired
// (animation and audio handles) and releases them when it finishes, is
// stopped or is killed. Effects live in a single Registry keyed by state
// key; at most one effect is registered per key.
//
// Lifecycle:
//   - Process(deltaMs) returns true when the effect is done; the registry
//     then drops it
//   - Stop() is a cooperative request and may be declined (a fading track
//     finishes its fade first)
//   - Kill() is unconditional and is what scope teardown uses
//
// Effects are driven from the engine's update goroutine only.
package sidefx
