package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"tick":  int64(2),
		"key":   uint32(6),
		"value": 1,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"key":6,"tick":2,"value":1}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(data))
}

func TestMarshalCanonical_EscapesControl(t *testing.T) {
	data, err := MarshalCanonical("a\n\"b\"\x01")
	require.NoError(t, err)
	assert.Equal(t, `"a\n\"b\"\u0001"`, string(data))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute normalizes to U+00E9
	data, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshalCanonical_Nested(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"events": []any{map[string]any{"b": true, "a": "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"events":[{"a":"x","b":true}]}`, string(data))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)
	_, err = MarshalCanonical(nil)
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"x": struct{}{}})
	assert.Error(t, err)
}
