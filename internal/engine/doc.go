// Package engine implements the puzzle scheduler: four nested script scopes
// evaluated against a shared state store, a per-scope dependency index that
// limits re-evaluation to rules whose inputs changed, and the location
// transition controller that rebuilds scopes as the player moves.
//
// ARCHITECTURE:
//
// Single-Threaded Update Loop:
// Every mutation happens inside Update or an input handler, called from one
// goroutine. There are no locks in this package.
//
// Update Order:
//  1. Pending location change: rebuild affected scopes, then run their
//     first pass world→room→nodeview
//  2. Side effects advance (timers count down, animations step)
//  3. Scopes evaluate in fixed order nodeview, room, world, universe
//
// Dirty Queues:
// A state write looks the key up in each scope's ReferenceTable and queues
// the referencing rules. Each scope swaps its two buffers before it drains,
// so writes made while draining land in the next Update.
//
// CRITICAL PATTERNS:
//
// Full-Scan Passes:
// The first two passes after a scope loads evaluate every rule. Pass 0
// admits only DO_ME_NOW rules. State key 312 forces full scans while set.
//
// Transition Atomicity:
// CurrentLocation advances only after every affected scope is rebuilt.
//
// Log and Continue:
// Content errors (unknown scripts, bad arguments, failing collaborators)
// are logged and the offending result is a no-op. Nothing here panics on
// script content.
package engine
