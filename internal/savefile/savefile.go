// Package savefile reads and writes the tagged save stream.
//
// Layout:
//
//	"ZENG"            magic, 4 bytes
//	version           uint32 little-endian
//	chunk*            tag (4 ASCII bytes) + length (uint32 LE) + payload
//
// Readers skip chunks whose tag they do not recognize by length, so newer
// writers may add tags without breaking older readers.
package savefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic opens every save stream.
const Magic = "ZENG"

// Chunk tags.
const (
	TagLocation = "LOC "
	TagTimer    = "TIMR"
	TagFlags    = "FLAG"
	TagValues   = "PUZZ"
)

// MaxChunkSize bounds a single chunk payload.
const MaxChunkSize = 16 << 20

var (
	// ErrBadMagic is returned when the stream does not start with Magic.
	ErrBadMagic = errors.New("savefile: bad magic")
	// ErrUnsupportedVersion is returned for a version newer than the reader.
	ErrUnsupportedVersion = errors.New("savefile: unsupported version")
	// ErrChunkTooLarge is returned when a chunk length exceeds MaxChunkSize.
	ErrChunkTooLarge = errors.New("savefile: chunk too large")
)

// Chunk is one tagged record.
type Chunk struct {
	Tag  string
	Data []byte
}

// Writer emits a save stream.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter writes the header for version and returns a chunk writer.
func NewWriter(w io.Writer, version uint32) (*Writer, error) {
	sw := &Writer{w: w}
	var hdr [8]byte
	copy(hdr[:4], Magic)
	binary.LittleEndian.PutUint32(hdr[4:], version)
	if _, err := w.Write(hdr[:]); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return sw, nil
}

// Chunk writes one tagged, length-prefixed record.
func (w *Writer) Chunk(tag string, payload []byte) error {
	if w.err != nil {
		return w.err
	}
	if len(tag) != 4 {
		return fmt.Errorf("chunk tag %q must be 4 bytes", tag)
	}
	var hdr [8]byte
	copy(hdr[:4], tag)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(payload)))
	if _, err := w.w.Write(hdr[:]); err != nil {
		w.err = fmt.Errorf("write chunk %q: %w", tag, err)
		return w.err
	}
	if _, err := w.w.Write(payload); err != nil {
		w.err = fmt.Errorf("write chunk %q: %w", tag, err)
		return w.err
	}
	return nil
}

// Reader iterates the chunks of a save stream.
type Reader struct {
	r       io.Reader
	version uint32
}

// NewReader validates the header. It returns ErrBadMagic or
// ErrUnsupportedVersion (wrapped) for streams it cannot read.
func NewReader(r io.Reader, maxVersion uint32) (*Reader, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrBadMagic, err)
	}
	if string(hdr[:4]) != Magic {
		return nil, fmt.Errorf("%w: got %q", ErrBadMagic, hdr[:4])
	}
	version := binary.LittleEndian.Uint32(hdr[4:])
	if version == 0 || version > maxVersion {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, version, maxVersion)
	}
	return &Reader{r: r, version: version}, nil
}

// Version returns the stream version from the header.
func (r *Reader) Version() uint32 {
	return r.version
}

// Next returns the next chunk, or io.EOF at a clean end of stream.
func (r *Reader) Next() (Chunk, error) {
	var hdr [8]byte
	n, err := io.ReadFull(r.r, hdr[:])
	if err == io.EOF && n == 0 {
		return Chunk{}, io.EOF
	}
	if err != nil {
		return Chunk{}, fmt.Errorf("read chunk header: %w", err)
	}
	size := binary.LittleEndian.Uint32(hdr[4:])
	if size > MaxChunkSize {
		return Chunk{}, fmt.Errorf("%w: %q is %d bytes", ErrChunkTooLarge, hdr[:4], size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return Chunk{}, fmt.Errorf("read chunk %q: %w", hdr[:4], err)
	}
	return Chunk{Tag: string(hdr[:4]), Data: data}, nil
}

// Encoder builds a little-endian chunk payload.
type Encoder struct {
	buf bytes.Buffer
}

func (e *Encoder) Uint8(v uint8)   { e.buf.WriteByte(v) }
func (e *Encoder) Uint16(v uint16) { e.buf.Write(binary.LittleEndian.AppendUint16(nil, v)) }
func (e *Encoder) Int16(v int16)   { e.Uint16(uint16(v)) }
func (e *Encoder) Uint32(v uint32) { e.buf.Write(binary.LittleEndian.AppendUint32(nil, v)) }

// Bytes returns the payload.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// Decoder reads a little-endian chunk payload. The first short read sets a
// sticky error and every later read returns zero.
type Decoder struct {
	data []byte
	off  int
	err  error
}

// NewDecoder decodes data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.data) {
		d.err = io.ErrUnexpectedEOF
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) Uint8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *Decoder) Uint16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *Decoder) Int16() int16 { return int16(d.Uint16()) }

func (d *Decoder) Uint32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.data) - d.off }

// Err returns the sticky decode error.
func (d *Decoder) Err() error { return d.err }
