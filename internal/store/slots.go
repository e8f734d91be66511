package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/puzzlebox/internal/engine"
	"github.com/roach88/puzzlebox/internal/ir"
)

// ErrSlotNotFound is returned when no slot matches an ID or name.
var ErrSlotNotFound = errors.New("save slot not found")

// Slot is the metadata of one save.
type Slot struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Tick     int64     `json:"tick"`
	Version  uint32    `json:"version"`
	RawSize  int       `json:"raw_size"`
	SavedAt  time.Time `json:"saved_at"`
	Seq      int64     `json:"seq"`
}

const slotColumns = `id, name, location, tick, format_version, raw_size, saved_at, seq`

// WriteSlot compresses stream and stores it as a new slot. An empty ID is
// filled with a fresh UUIDv7 and a zero SavedAt with the current time.
// RawSize and Seq are always assigned here.
func (s *Store) WriteSlot(ctx context.Context, slot Slot, stream []byte) (Slot, error) {
	if slot.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Slot{}, fmt.Errorf("write slot: new id: %w", err)
		}
		slot.ID = id.String()
	}
	if slot.SavedAt.IsZero() {
		slot.SavedAt = time.Now()
	}
	slot.SavedAt = time.UnixMilli(slot.SavedAt.UnixMilli()).UTC()
	slot.RawSize = len(stream)
	data := s.enc.EncodeAll(stream, nil)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Slot{}, fmt.Errorf("write slot: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM save_slots`).Scan(&slot.Seq); err != nil {
		return Slot{}, fmt.Errorf("write slot: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO save_slots
		(id, name, location, tick, format_version, raw_size, data, saved_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		slot.ID,
		slot.Name,
		slot.Location,
		slot.Tick,
		slot.Version,
		slot.RawSize,
		data,
		slot.SavedAt.UnixMilli(),
		slot.Seq,
	)
	if err != nil {
		return Slot{}, fmt.Errorf("write slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Slot{}, fmt.Errorf("write slot: commit: %w", err)
	}
	return slot, nil
}

// ReadSlot returns a slot's metadata and its decompressed save stream.
func (s *Store) ReadSlot(ctx context.Context, id string) (Slot, []byte, error) {
	var data []byte
	row := s.db.QueryRowContext(ctx, `SELECT `+slotColumns+`, data FROM save_slots WHERE id = ?`, id)
	slot, err := scanSlot(row, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, nil, fmt.Errorf("read slot %s: %w", id, ErrSlotNotFound)
	}
	if err != nil {
		return Slot{}, nil, fmt.Errorf("read slot %s: %w", id, err)
	}

	stream, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return Slot{}, nil, fmt.Errorf("read slot %s: decompress: %w", id, err)
	}
	return slot, stream, nil
}

// ListSlots returns every slot in write order.
func (s *Store) ListSlots(ctx context.Context) ([]Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+slotColumns+` FROM save_slots
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("list slots: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// LatestSlot returns the newest slot saved under name.
func (s *Store) LatestSlot(ctx context.Context, name string) (Slot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+slotColumns+` FROM save_slots
		WHERE name = ?
		ORDER BY seq DESC
		LIMIT 1
	`, name)
	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, fmt.Errorf("latest slot %q: %w", name, ErrSlotNotFound)
	}
	if err != nil {
		return Slot{}, fmt.Errorf("latest slot %q: %w", name, err)
	}
	return slot, nil
}

// DeleteSlot removes a slot.
func (s *Store) DeleteSlot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM save_slots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete slot %s: %w", id, ErrSlotNotFound)
	}
	return nil
}

// SaveGame serializes e into a new slot called name.
func (s *Store) SaveGame(ctx context.Context, name string, e *engine.Engine) (Slot, error) {
	var buf bytes.Buffer
	if err := e.Serialize(&buf); err != nil {
		return Slot{}, fmt.Errorf("save game: %w", err)
	}
	return s.WriteSlot(ctx, Slot{
		Name:     name,
		Location: e.CurrentLocation().String(),
		Tick:     e.Tick(),
		Version:  ir.SaveVersion,
	}, buf.Bytes())
}

// LoadGame restores slot id into e. A stream the engine rejects still
// leaves e at its start location; the error reports why.
func (s *Store) LoadGame(ctx context.Context, id string, e *engine.Engine) (Slot, error) {
	slot, stream, err := s.ReadSlot(ctx, id)
	if err != nil {
		return Slot{}, err
	}
	if err := e.Deserialize(bytes.NewReader(stream)); err != nil {
		return slot, fmt.Errorf("load game %s: %w", id, err)
	}
	return slot, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSlot reads slotColumns followed by any extra destinations.
func scanSlot(row scanner, extra ...any) (Slot, error) {
	var (
		slot    Slot
		savedAt int64
	)
	dest := append([]any{
		&slot.ID,
		&slot.Name,
		&slot.Location,
		&slot.Tick,
		&slot.Version,
		&slot.RawSize,
		&savedAt,
		&slot.Seq,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Slot{}, err
	}
	slot.SavedAt = time.UnixMilli(savedAt).UTC()
	return slot, nil
}
