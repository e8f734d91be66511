// Package state holds the game-progress store: a sparse key→value table and
// a key→flags table.
//
// INVARIANTS:
//   - Get of an absent key is 0; Flag of an absent key is 0
//   - A key written with 0 (value or flag mask) is removed, never stored
//   - Every non-silent write notifies the Listener exactly once
//
// The store is owned by a single goroutine (the engine's update loop) and is
// not safe for concurrent use.
package state

import "sort"

// Listener is told about every key whose value or flags changed through a
// non-silent write.
type Listener interface {
	KeyChanged(key uint32)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(key uint32)

// KeyChanged calls f(key).
func (f ListenerFunc) KeyChanged(key uint32) { f(key) }

// Store is the key→value and key→flags state of a game.
type Store struct {
	values   map[uint32]int
	flags    map[uint32]uint
	listener Listener
}

// New creates an empty store. listener may be nil.
func New(listener Listener) *Store {
	return &Store{
		values:   make(map[uint32]int),
		flags:    make(map[uint32]uint),
		listener: listener,
	}
}

// Get returns the value of key, 0 if absent.
func (s *Store) Get(key uint32) int {
	return s.values[key]
}

// Set writes key and notifies the listener.
func (s *Store) Set(key uint32, value int) {
	s.SetSilently(key, value)
	s.notify(key)
}

// SetSilently writes key without notifying. Only save restore uses it.
func (s *Store) SetSilently(key uint32, value int) {
	if value == 0 {
		delete(s.values, key)
		return
	}
	s.values[key] = value
}

// Flag returns the flag mask of key.
func (s *Store) Flag(key uint32) uint {
	return s.flags[key]
}

// SetFlag ORs bits into the mask of key and notifies.
func (s *Store) SetFlag(key uint32, bits uint) {
	s.SetFlagSilently(key, s.flags[key]|bits)
	s.notify(key)
}

// UnsetFlag clears bits from the mask of key and notifies.
func (s *Store) UnsetFlag(key uint32, bits uint) {
	s.SetFlagSilently(key, s.flags[key]&^bits)
	s.notify(key)
}

// SetFlagSilently replaces the mask of key without notifying.
func (s *Store) SetFlagSilently(key uint32, mask uint) {
	if mask == 0 {
		delete(s.flags, key)
		return
	}
	s.flags[key] = mask
}

// Len returns the number of stored (non-zero) values.
func (s *Store) Len() int {
	return len(s.values)
}

// FlagLen returns the number of stored (non-zero) flag masks.
func (s *Store) FlagLen() int {
	return len(s.flags)
}

// Keys returns the keys with a non-zero value in ascending order.
func (s *Store) Keys() []uint32 {
	return sortedKeys(s.values)
}

// FlagKeys returns the keys with a non-zero flag mask in ascending order.
func (s *Store) FlagKeys() []uint32 {
	return sortedKeys(s.flags)
}

// Reset clears both tables without notifying.
func (s *Store) Reset() {
	clear(s.values)
	clear(s.flags)
}

func (s *Store) notify(key uint32) {
	if s.listener != nil {
		s.listener.KeyChanged(key)
	}
}

func sortedKeys[V any](m map[uint32]V) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
