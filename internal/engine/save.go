package engine

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/savefile"
	"github.com/roach88/puzzlebox/internal/sidefx"
)

// Serialize writes the current location, every serializable effect and the
// first slots keys of the flag and value tables.
//
// Keys at or beyond the slot count, and values outside the int16 range, do
// not survive a save; they are counted in a debug log.
func (e *Engine) Serialize(w io.Writer) error {
	sw, err := savefile.NewWriter(w, ir.SaveVersion)
	if err != nil {
		return fmt.Errorf("write save header: %w", err)
	}

	var loc savefile.Encoder
	loc.Uint8(e.current.World)
	loc.Uint8(e.current.Room)
	loc.Uint8(e.current.Node)
	loc.Uint8(e.current.View)
	loc.Uint32(uint32(e.current.Offset))
	if err := sw.Chunk(savefile.TagLocation, loc.Bytes()); err != nil {
		return fmt.Errorf("write location: %w", err)
	}

	if err := e.effects.Serialize(sw); err != nil {
		return fmt.Errorf("write effects: %w", err)
	}

	var flags, values savefile.Encoder
	for i := 0; i < e.slots; i++ {
		flags.Uint16(uint16(e.states.Flag(uint32(i))))
		values.Int16(int16(e.states.Get(uint32(i))))
	}
	if err := sw.Chunk(savefile.TagFlags, flags.Bytes()); err != nil {
		return fmt.Errorf("write flags: %w", err)
	}
	if err := sw.Chunk(savefile.TagValues, values.Bytes()); err != nil {
		return fmt.Errorf("write values: %w", err)
	}

	if lost := e.unsavable(); lost > 0 {
		e.logger.Debug("state not representable in save", "keys", lost, "slots", e.slots)
	}
	return nil
}

func (e *Engine) unsavable() int {
	lost := 0
	for _, k := range e.states.Keys() {
		v := e.states.Get(k)
		if int(k) >= e.slots || v < math.MinInt16 || v > math.MaxInt16 {
			lost++
		}
	}
	for _, k := range e.states.FlagKeys() {
		if int(k) >= e.slots {
			lost++
		}
	}
	return lost
}

// Deserialize replaces the game state with a saved one. Every effect is
// killed and the state tables are restored without queueing rules; the
// saved location is entered with a full rebuild on the next Update.
//
// A rejected stream (bad magic, unknown version, truncated chunk) leaves a
// fresh game at the start location and returns an error matching
// IsSaveError.
func (e *Engine) Deserialize(r io.Reader) error {
	e.effects.KillAll()
	e.states.Reset()
	for _, s := range e.scopes {
		if s != nil {
			s.queue.reset()
		}
	}
	e.built = false

	loc, timers, err := e.restore(r)
	if err != nil {
		e.states.Reset()
		e.applyScopeFlags(e.scopes[ir.ScopeUniverse])
		e.next = e.start
		e.logger.Warn("save rejected, starting over", "error", err, "start", e.start.String())
		return &RuntimeError{Code: ErrCodeBadSave, Message: "save stream rejected", Err: err}
	}

	for _, t := range timers {
		e.effects.Add(t, ir.ScopeUniverse)
	}
	e.next = loc
	e.logger.Info("save restored", "location", loc.String(), "timers", len(timers))
	return nil
}

func (e *Engine) restore(r io.Reader) (ir.Location, []*sidefx.Timer, error) {
	rd, err := savefile.NewReader(r, ir.SaveVersion)
	if err != nil {
		return ir.Location{}, nil, err
	}

	loc := e.start
	var timers []*sidefx.Timer
	for {
		c, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ir.Location{}, nil, err
		}
		d := savefile.NewDecoder(c.Data)
		switch c.Tag {
		case savefile.TagLocation:
			loc = ir.Location{
				World: d.Uint8(),
				Room:  d.Uint8(),
				Node:  d.Uint8(),
				View:  d.Uint8(),
			}
			loc.Offset = int(int32(d.Uint32()))
		case savefile.TagTimer:
			key := d.Uint32()
			ms := int(int32(d.Uint32()))
			if d.Err() == nil {
				timers = append(timers, sidefx.RestoreTimer(e.states, key, ms))
			}
		case savefile.TagFlags:
			for i := 0; d.Remaining() >= 2; i++ {
				e.states.SetFlagSilently(uint32(i), uint(d.Uint16()))
			}
		case savefile.TagValues:
			for i := 0; d.Remaining() >= 2; i++ {
				e.states.SetSilently(uint32(i), int(d.Int16()))
			}
		default:
			e.logger.Debug("skipping unknown save chunk", "tag", c.Tag, "size", len(c.Data))
			continue
		}
		if err := d.Err(); err != nil {
			return ir.Location{}, nil, fmt.Errorf("chunk %q: %w", c.Tag, err)
		}
	}
	if loc.IsZero() {
		loc = e.start
	}
	return loc, timers, nil
}
