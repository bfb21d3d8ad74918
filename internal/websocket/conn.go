package websocket

import "io"

// Handlers are the per-connection callbacks the frame loop invokes. A
// handler returning false is the RFC 6455 "application wants to close"
// signal: the loop sends a normal closure and returns.
type Handlers struct {
	OnText   func(payload []byte) bool
	OnBinary func(payload []byte) bool
}

// RunLoop drives one upgraded connection's read loop until the peer
// closes, a protocol violation forces closure, or rw returns an error.
// Ping frames are answered automatically and never reach Handlers; pong
// frames are discarded. The loop never returns a *protocolError without
// first writing the matching close frame to rw.
func RunLoop(rw io.ReadWriter, h Handlers) error {
	for {
		frame, err := ReadFrame(rw)
		if err != nil {
			if pe, ok := err.(*protocolError); ok {
				_ = WriteClose(rw, pe.code, pe.msg)
				return pe
			}
			return err
		}

		switch frame.Opcode {
		case OpText:
			if h.OnText != nil && !h.OnText(frame.Payload) {
				return WriteClose(rw, CloseNormal, "")
			}
		case OpBinary:
			if h.OnBinary != nil && !h.OnBinary(frame.Payload) {
				return WriteClose(rw, CloseNormal, "")
			}
		case OpClose:
			code, reason, err := ParseClosePayload(frame.Payload)
			if err != nil {
				pe := err.(*protocolError)
				_ = WriteClose(rw, pe.code, pe.msg)
				return pe
			}
			return WriteClose(rw, code, reason)
		case OpPing:
			if err := WriteFrame(rw, OpPong, frame.Payload); err != nil {
				return err
			}
		case OpPong:
			// ignored
		}
	}
}
