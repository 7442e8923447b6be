package types

import (
	"errors"

	"github.com/ineffectivecoder/smb2client/internal/codec"
)

// SessionSetupRequest represents an SMB2 SESSION_SETUP request
type SessionSetupRequest struct {
	StructureSize        uint16 // 25
	Flags                uint8
	SecurityMode         SecurityMode
	Capabilities         Capabilities
	Channel              uint32
	SecurityBufferOffset uint16
	SecurityBufferLength uint16
	PreviousSessionID    uint64
	SecurityBuffer       []byte // SPNEGO/NTLMSSP token
}

// NewSessionSetupRequest creates a new session setup request
func NewSessionSetupRequest(securityBuffer []byte) *SessionSetupRequest {
	return &SessionSetupRequest{
		StructureSize:  25,
		SecurityMode:   NegotiateSigningEnabled,
		Capabilities:   GlobalCapDFS, // Required for SMB3
		SecurityBuffer: securityBuffer,
	}
}

// Marshal serializes the session setup request
func (r *SessionSetupRequest) Marshal() []byte {
	// SecurityBufferOffset is from start of SMB2 header (64 bytes)
	r.SecurityBufferOffset = SMB2HeaderSize + 24
	r.SecurityBufferLength = uint16(len(r.SecurityBuffer))

	w := codec.NewWriter(24 + len(r.SecurityBuffer))
	w.Uint16(r.StructureSize)
	w.Uint8(r.Flags)
	w.Uint8(uint8(r.SecurityMode))
	w.Uint32(uint32(r.Capabilities))
	w.Uint32(r.Channel)
	w.Uint16(r.SecurityBufferOffset)
	w.Uint16(r.SecurityBufferLength)
	w.Uint64(r.PreviousSessionID)
	w.Raw(r.SecurityBuffer)
	return w.Bytes()
}

// SessionSetupResponse represents an SMB2 SESSION_SETUP response
type SessionSetupResponse struct {
	StructureSize        uint16 // 9
	SessionFlags         uint16
	SecurityBufferOffset uint16
	SecurityBufferLength uint16
	SecurityBuffer       []byte // SPNEGO/NTLMSSP token
}

// SessionFlags
const (
	SessionFlagIsGuest     uint16 = 0x0001
	SessionFlagIsNull      uint16 = 0x0002
	SessionFlagEncryptData uint16 = 0x0004
)

// Unmarshal deserializes a session setup response
func (r *SessionSetupResponse) Unmarshal(buf []byte) error {
	if len(buf) < 8 {
		return errors.New("buffer too small for session setup response")
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	if r.StructureSize != 9 {
		return errors.New("invalid session setup response structure size")
	}

	r.SessionFlags = rd.Uint16()
	r.SecurityBufferOffset = rd.Uint16()
	r.SecurityBufferLength = rd.Uint16()

	if r.SecurityBufferLength > 0 {
		// Offset is from start of SMB2 header
		actualOffset := int(r.SecurityBufferOffset) - SMB2HeaderSize
		if actualOffset >= 0 && actualOffset+int(r.SecurityBufferLength) <= len(buf) {
			r.SecurityBuffer = make([]byte, r.SecurityBufferLength)
			copy(r.SecurityBuffer, buf[actualOffset:actualOffset+int(r.SecurityBufferLength)])
		}
	}

	return nil
}

// IsGuest returns true if this is a guest session
func (r *SessionSetupResponse) IsGuest() bool {
	return r.SessionFlags&SessionFlagIsGuest != 0
}

// IsNull returns true if this is a null/anonymous session
func (r *SessionSetupResponse) IsNull() bool {
	return r.SessionFlags&SessionFlagIsNull != 0
}

// LogoffRequest represents an SMB2 LOGOFF request.
type LogoffRequest struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// NewLogoffRequest creates a new logoff request.
func NewLogoffRequest() *LogoffRequest {
	return &LogoffRequest{StructureSize: 4}
}

// Marshal serializes the logoff request.
func (r *LogoffRequest) Marshal() []byte {
	w := codec.NewWriter(4)
	w.Uint16(r.StructureSize)
	w.Uint16(r.Reserved)
	return w.Bytes()
}

// LogoffResponse represents an SMB2 LOGOFF response.
type LogoffResponse struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// Unmarshal deserializes a logoff response.
func (r *LogoffResponse) Unmarshal(buf []byte) error {
	if len(buf) < 4 {
		return errors.New("buffer too small for logoff response")
	}
	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	r.Reserved = rd.Uint16()
	return nil
}
