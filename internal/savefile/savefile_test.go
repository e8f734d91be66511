package savefile

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_Chunks(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1)
	require.NoError(t, err)

	var enc Encoder
	enc.Uint32(200)
	enc.Uint32(1500)
	require.NoError(t, w.Chunk(TagTimer, enc.Bytes()))
	require.NoError(t, w.Chunk("XTRA", []byte{1, 2, 3}))

	r, err := NewReader(&buf, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), r.Version())

	c, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, TagTimer, c.Tag)
	dec := NewDecoder(c.Data)
	assert.Equal(t, uint32(200), dec.Uint32())
	assert.Equal(t, uint32(1500), dec.Uint32())
	require.NoError(t, dec.Err())

	c, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "XTRA", c.Tag)
	assert.Equal(t, []byte{1, 2, 3}, c.Data)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWriter_ByteLayout(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1)
	require.NoError(t, err)
	require.NoError(t, w.Chunk(TagLocation, []byte{'g'}))

	want := []byte{'Z', 'E', 'N', 'G', 1, 0, 0, 0, 'L', 'O', 'C', ' ', 1, 0, 0, 0, 'g'}
	assert.Equal(t, want, buf.Bytes())
}

func TestWriter_RejectsBadTag(t *testing.T) {
	w, err := NewWriter(io.Discard, 1)
	require.NoError(t, err)
	assert.Error(t, w.Chunk("TOOLONG", nil))
}

func TestNewReader_BadMagic(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("NOPE\x01\x00\x00\x00")), 1)
	assert.True(t, errors.Is(err, ErrBadMagic))

	_, err = NewReader(bytes.NewReader([]byte("ZE")), 1)
	assert.True(t, errors.Is(err, ErrBadMagic))
}

func TestNewReader_UnsupportedVersion(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("ZENG\x09\x00\x00\x00")), 1)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestReader_TruncatedChunk(t *testing.T) {
	data := []byte("ZENG\x01\x00\x00\x00TIMR\x08\x00\x00\x00\x01\x02")
	r, err := NewReader(bytes.NewReader(data), 1)
	require.NoError(t, err)

	_, err = r.Next()
	assert.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestReader_ChunkTooLarge(t *testing.T) {
	data := []byte("ZENG\x01\x00\x00\x00PUZZ\xff\xff\xff\xff")
	r, err := NewReader(bytes.NewReader(data), 1)
	require.NoError(t, err)

	_, err = r.Next()
	assert.True(t, errors.Is(err, ErrChunkTooLarge))
}

func TestDecoder_StickyError(t *testing.T) {
	var enc Encoder
	enc.Int16(-2)
	enc.Uint8(7)

	d := NewDecoder(enc.Bytes())
	assert.Equal(t, int16(-2), d.Int16())
	assert.Equal(t, uint8(7), d.Uint8())
	assert.Equal(t, 0, d.Remaining())
	assert.Equal(t, uint32(0), d.Uint32())
	assert.Equal(t, io.ErrUnexpectedEOF, d.Err())
	assert.Equal(t, uint16(0), d.Uint16())
}
