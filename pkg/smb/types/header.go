package types

import (
	"errors"

	"github.com/ineffectivecoder/smb2client/internal/codec"
)

// Header represents an SMB2 message header (64 bytes)
type Header struct {
	ProtocolID    [4]byte     // 0xFE 'S' 'M' 'B'
	StructureSize uint16      // Always 64
	CreditCharge  uint16      // Number of credits consumed
	Status        NTStatus    // NT Status code (response) / ChannelSequence (request)
	Command       Command     // Command code
	CreditRequest uint16      // Credits requested (request) / Credits granted (response)
	Flags         HeaderFlags // Flags
	NextCommand   uint32      // Offset to next command (for compounding)
	MessageID     uint64      // Message identifier
	Reserved      uint32      // Reserved (or async ID high bits)
	TreeID        uint32      // Tree identifier
	SessionID     uint64      // Session identifier
	Signature     [16]byte    // Signature for signed messages
}

// NewHeader creates a new SMB2 header with default values
func NewHeader(cmd Command, messageID uint64) *Header {
	h := &Header{
		ProtocolID:    SMB2ProtocolID,
		StructureSize: SMB2HeaderSize,
		CreditCharge:  1, // Required for SMB 2.1+
		Command:       cmd,
		MessageID:     messageID,
		CreditRequest: 8191, // Ask for a deep credit window up front
	}
	return h
}

// Marshal serializes the header to bytes
func (h *Header) Marshal() []byte {
	w := codec.NewWriter(SMB2HeaderSize)
	w.Fixed(h.ProtocolID[:], 4)
	w.Uint16(h.StructureSize)
	w.Uint16(h.CreditCharge)
	w.Uint32(uint32(h.Status))
	w.Uint16(uint16(h.Command))
	w.Uint16(h.CreditRequest)
	w.Uint32(uint32(h.Flags))
	w.Uint32(h.NextCommand)
	w.Uint64(h.MessageID)
	w.Uint32(h.Reserved)
	w.Uint32(h.TreeID)
	w.Uint64(h.SessionID)
	w.Fixed(h.Signature[:], 16)
	return w.Bytes()
}

// Unmarshal deserializes a header from bytes
func (h *Header) Unmarshal(buf []byte) error {
	if len(buf) < SMB2HeaderSize {
		return errors.New("buffer too small for SMB2 header")
	}

	r := codec.NewReader(buf)
	copy(h.ProtocolID[:], r.Bytes(4))
	if h.ProtocolID != SMB2ProtocolID {
		return errors.New("invalid SMB2 protocol ID")
	}

	h.StructureSize = r.Uint16()
	h.CreditCharge = r.Uint16()
	h.Status = NTStatus(r.Uint32())
	h.Command = Command(r.Uint16())
	h.CreditRequest = r.Uint16()
	h.Flags = HeaderFlags(r.Uint32())
	h.NextCommand = r.Uint32()
	h.MessageID = r.Uint64()
	h.Reserved = r.Uint32()
	h.TreeID = r.Uint32()
	h.SessionID = r.Uint64()
	copy(h.Signature[:], r.Bytes(16))

	if r.Err() != nil {
		return r.Err()
	}
	return nil
}

// IsResponse returns true if this is a response from the server
func (h *Header) IsResponse() bool {
	return h.Flags&FlagsServerToRedir != 0
}

// IsSigned returns true if the message is signed
func (h *Header) IsSigned() bool {
	return h.Flags&FlagsSigned != 0
}

// IsAsync returns true if this is an async response
func (h *Header) IsAsync() bool {
	return h.Flags&FlagsAsyncCommand != 0
}
