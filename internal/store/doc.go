// Package store provides SQLite-backed save slots for puzzlebox games.
//
// Each slot holds one engine save stream (see internal/savefile),
// compressed with zstd, plus the metadata a load menu needs without
// decoding it: slot name, location, tick and format version.
//
// # Critical Patterns
//
// Append-only slots:
//   - Saving under an existing name adds a row; LatestSlot picks the newest
//   - Slot IDs are UUIDv7, so they also sort by creation
//
// Logical ordering:
//   - All listings use ORDER BY seq ASC, id ASC COLLATE BINARY
//   - saved_at is for display only and never orders anything
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
