// Package netbios implements the NetBIOS session-service framing that SMB2
// uses to delimit messages on the wire: a 4-byte header (1-byte message
// type, 3-byte big-endian payload length) in front of every message.
package netbios

import (
	"errors"
	"fmt"
)

// HeaderSize is the size of the NetBIOS session-service header.
const HeaderSize = 4

// SessionMessageType is the only NetBIOS message type this client accepts.
const SessionMessageType = 0x00

// MaxPayloadSize is the largest payload the 24-bit length field can encode.
const MaxPayloadSize = 0x00FFFFFF

// TransformProtocolID marks an SMB2 Transform (encrypted) header.
var TransformProtocolID = [4]byte{0xFD, 'S', 'M', 'B'}

// ErrInvalidType is returned when a frame's message type is not 0x00.
var ErrInvalidType = errors.New("netbios: invalid session message type")

// Frame prepends the NetBIOS session-service header to payload.
func Frame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("netbios: payload too large for framing: %d bytes", len(payload))
	}

	out := make([]byte, HeaderSize+len(payload))
	out[0] = SessionMessageType
	out[1] = byte(len(payload) >> 16)
	out[2] = byte(len(payload) >> 8)
	out[3] = byte(len(payload))
	copy(out[HeaderSize:], payload)
	return out, nil
}

// Unframe splits buf into complete NetBIOS frame payloads plus whatever
// trailing bytes remain (a partial header or a partial body). Callers
// should retain the residual and prepend it to the next chunk of data read
// from the socket.
func Unframe(buf []byte) (frames [][]byte, residual []byte, err error) {
	offset := 0
	for {
		remaining := buf[offset:]
		if len(remaining) < HeaderSize {
			return frames, remaining, nil
		}

		if remaining[0] != SessionMessageType {
			return frames, nil, ErrInvalidType
		}

		payloadLen := int(remaining[1])<<16 | int(remaining[2])<<8 | int(remaining[3])
		total := HeaderSize + payloadLen
		if len(remaining) < total {
			return frames, remaining, nil
		}

		frames = append(frames, remaining[HeaderSize:total])
		offset += total
	}
}

// IsTransformHeader reports whether frame is an SMB2 Transform (encrypted)
// message rather than a plain SMB2 message.
func IsTransformHeader(frame []byte) bool {
	if len(frame) < 4 {
		return false
	}
	return frame[0] == TransformProtocolID[0] && frame[1] == TransformProtocolID[1] &&
		frame[2] == TransformProtocolID[2] && frame[3] == TransformProtocolID[3]
}
