package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThenReadLengthPrefixedRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLengthPrefixed(&buf, []byte("hello")))

	got, err := ReadLengthPrefixed(&buf, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestReadLengthPrefixedEmptyPayloadReturnsNil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLengthPrefixed(&buf, nil))

	got, err := ReadLengthPrefixed(&buf, 0)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestReadLengthPrefixedRejectsOversizeFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLengthPrefixed(&buf, make([]byte, 100)))

	_, err := ReadLengthPrefixed(&buf, 10)
	require.Error(t, err)
	var tooLarge *ErrFrameTooLarge
	require.ErrorAs(t, err, &tooLarge)
}

func TestReadLengthPrefixedUsesDefaultMaxWhenMaxSizeNonPositive(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLengthPrefixed(&buf, []byte("within default")))

	got, err := ReadLengthPrefixed(&buf, -1)
	require.NoError(t, err)
	require.Equal(t, []byte("within default"), got)
}

func TestReadLengthPrefixedReportsShortReadAsError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLengthPrefixed(&buf, []byte("truncated")))
	truncated := buf.Bytes()[:len(buf.Bytes())-2]

	_, err := ReadLengthPrefixed(bytes.NewReader(truncated), 0)
	require.Error(t, err)
}
