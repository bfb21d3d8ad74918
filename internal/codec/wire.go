package codec

import (
	"encoding/binary"
	"io"
)

// DefaultMaxFrameSize is the default ceiling on a self-delimited frame
// (spec.md §6: "Embedders MUST NOT use a self-delimited Frame larger than a
// configurable maximum (default 1 MiB) without explicit allowance").
const DefaultMaxFrameSize = 1 << 20

// ReadLengthPrefixed reads one frame from r using the reference wire
// format: a 4-byte little-endian length prefix followed by that many
// payload bytes. This is the "little-endian fixed-int, length-prefixed
// vector-of-bytes" reference codec named in spec.md §6.
func ReadLengthPrefixed(r io.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint32(lenBuf[:]))
	if n > maxSize {
		return nil, &ErrFrameTooLarge{Size: n, Max: maxSize}
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteLengthPrefixed writes payload using the reference wire format.
func WriteLengthPrefixed(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}
