// Package testutil provides deterministic collaborators for engine tests:
// recording Renderer and Audio fakes and a scripted random source.
//
// All fakes are single-goroutine, like the engine they serve, and record
// every call so tests can assert on exact collaborator traffic.
package testutil
