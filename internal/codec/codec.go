// Package codec defines the two-layer binary protocol contract from
// spec.md §3/§6: a transport Frame wraps an opaque payload, and a business
// Command is decoded from that payload. Both implement Codec. The core
// fixes only the contract; the on-wire layout is pluggable, but a default
// reference codec (little-endian fixed-width length prefix around an
// opaque byte vector) is provided, grounded on
// original_source/src/tcp/types.rs's RawCodec/frame_config.
package codec

import "fmt"

// Codec is the encode half of the contract shared by Frame and Command;
// decoding is supplied separately as a FrameDecoder or CommandDecoder.
type Codec interface {
	Encode() []byte
}

// Frame is the transport envelope: a validatable container that may carry
// a Command-shaped payload.
type Frame interface {
	Codec
	Validate() bool
	Payload() ([]byte, bool)
}

// Command is the business message decoded from a Frame's payload.
type Command interface {
	Codec
	ID() uint32
	Validate() bool
}

// FrameDecoder decodes raw bytes into a Frame implementation.
type FrameDecoder func(data []byte) (Frame, error)

// CommandDecoder decodes a Frame's payload into a Command implementation.
type CommandDecoder func(data []byte) (Command, error)

// RawFrame is the reference Frame: it carries its payload verbatim with no
// header of its own, mirroring RawCodec in the original Rust source.
type RawFrame struct {
	Data []byte
}

func (f RawFrame) Encode() []byte        { return f.Data }
func (f RawFrame) Validate() bool        { return true }
func (f RawFrame) Payload() ([]byte, bool) {
	if len(f.Data) == 0 {
		return nil, false
	}
	return f.Data, true
}

// DecodeRawFrame is the reference FrameDecoder: the whole buffer is the
// payload.
func DecodeRawFrame(data []byte) (Frame, error) {
	return RawFrame{Data: data}, nil
}

// RawCommand is the reference Command: a pure byte payload with a fixed id
// of 0, matching RawCodec's Command impl in the original source.
type RawCommand struct {
	Data []byte
}

func (c RawCommand) Encode() []byte { return c.Data }
func (c RawCommand) ID() uint32     { return 0 }
func (c RawCommand) Validate() bool { return true }

// DecodeRawCommand is the reference CommandDecoder.
func DecodeRawCommand(data []byte) (Command, error) {
	return RawCommand{Data: data}, nil
}

// ErrFrameTooLarge is returned by the wire reader when a self-delimited
// frame exceeds the configured maximum (spec.md §6: default 1 MiB).
type ErrFrameTooLarge struct {
	Size, Max int
}

func (e *ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("frame of %d bytes exceeds maximum %d", e.Size, e.Max)
}
