package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/savefile"
)

// ChunkInfo describes one chunk of a save stream.
type ChunkInfo struct {
	Tag  string `json:"tag"`
	Size int    `json:"size"`
}

// TimerInfo is a pending timer recorded in a save.
type TimerInfo struct {
	Key uint32 `json:"key"`
	Ms  int    `json:"ms"`
}

// Summary is a decoded overview of a save stream.
type Summary struct {
	Version  uint32      `json:"version"`
	Location string      `json:"location"`
	Timers   []TimerInfo `json:"timers"`
	Values   int         `json:"values"` // non-zero value slots
	Flags    int         `json:"flags"`  // non-zero flag slots
	Chunks   []ChunkInfo `json:"chunks"`
}

// Inspect decodes a save stream without an engine. Unknown chunks are
// listed but not interpreted.
func Inspect(stream []byte) (Summary, error) {
	rd, err := savefile.NewReader(bytes.NewReader(stream), ir.SaveVersion)
	if err != nil {
		return Summary{}, fmt.Errorf("inspect save: %w", err)
	}

	sum := Summary{Version: rd.Version(), Timers: []TimerInfo{}}
	for {
		c, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Summary{}, fmt.Errorf("inspect save: %w", err)
		}
		sum.Chunks = append(sum.Chunks, ChunkInfo{Tag: c.Tag, Size: len(c.Data)})

		d := savefile.NewDecoder(c.Data)
		switch c.Tag {
		case savefile.TagLocation:
			loc := ir.Location{World: d.Uint8(), Room: d.Uint8(), Node: d.Uint8(), View: d.Uint8()}
			loc.Offset = int(int32(d.Uint32()))
			sum.Location = loc.String()
		case savefile.TagTimer:
			sum.Timers = append(sum.Timers, TimerInfo{Key: d.Uint32(), Ms: int(int32(d.Uint32()))})
		case savefile.TagFlags:
			for d.Remaining() >= 2 {
				if d.Uint16() != 0 {
					sum.Flags++
				}
			}
		case savefile.TagValues:
			for d.Remaining() >= 2 {
				if d.Int16() != 0 {
					sum.Values++
				}
			}
		}
		if err := d.Err(); err != nil {
			return Summary{}, fmt.Errorf("inspect save: chunk %q: %w", c.Tag, err)
		}
	}
	return sum, nil
}
