package types

import (
	"errors"
	"time"

	"github.com/ineffectivecoder/smb2client/internal/codec"
)

// NegotiateRequest represents an SMB2 NEGOTIATE request
type NegotiateRequest struct {
	StructureSize          uint16 // 36
	DialectCount           uint16 // Number of dialects
	SecurityMode           SecurityMode
	Reserved               uint16
	Capabilities           Capabilities
	ClientGUID             [16]byte
	NegotiateContextOffset uint32 // SMB 3.1.1
	NegotiateContextCount  uint16 // SMB 3.1.1
	Reserved2              uint16
	Dialects               []Dialect
	// NegotiateContexts for SMB 3.1.1 (optional)
}

// NewNegotiateRequest creates a negotiate request with standard dialects
func NewNegotiateRequest() *NegotiateRequest {
	return &NegotiateRequest{
		StructureSize: 36,
		SecurityMode:  NegotiateSigningEnabled,
		Capabilities:  GlobalCapDFS | GlobalCapLargeMTU,
		Dialects: []Dialect{
			DialectSMB2_0_2,
			DialectSMB2_1,
			DialectSMB3_0,
			DialectSMB3_0_2,
		},
	}
}

// Marshal serializes the negotiate request
func (r *NegotiateRequest) Marshal() []byte {
	r.DialectCount = uint16(len(r.Dialects))

	w := codec.NewWriter(36 + len(r.Dialects)*2)
	w.Uint16(r.StructureSize)
	w.Uint16(r.DialectCount)
	w.Uint16(uint16(r.SecurityMode))
	w.Uint16(r.Reserved)
	w.Uint32(uint32(r.Capabilities))
	w.Fixed(r.ClientGUID[:], 16)
	w.Uint32(r.NegotiateContextOffset)
	w.Uint16(r.NegotiateContextCount)
	w.Uint16(r.Reserved2)
	for _, d := range r.Dialects {
		w.Uint16(uint16(d))
	}
	return w.Bytes()
}

// NegotiateResponse represents an SMB2 NEGOTIATE response
type NegotiateResponse struct {
	StructureSize          uint16
	SecurityMode           SecurityMode
	DialectRevision        Dialect
	NegotiateContextCount  uint16 // SMB 3.1.1
	ServerGUID             [16]byte
	Capabilities           Capabilities
	MaxTransactSize        uint32
	MaxReadSize            uint32
	MaxWriteSize           uint32
	SystemTime             uint64 // FILETIME
	ServerStartTime        uint64 // FILETIME
	SecurityBufferOffset   uint16
	SecurityBufferLength   uint16
	NegotiateContextOffset uint32 // SMB 3.1.1
	SecurityBuffer         []byte // GSS token (SPNEGO)
}

// Unmarshal deserializes a negotiate response
func (r *NegotiateResponse) Unmarshal(buf []byte) error {
	if len(buf) < 65 { // Minimum size
		return errors.New("buffer too small for negotiate response")
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	if r.StructureSize != 65 {
		return errors.New("invalid negotiate response structure size")
	}

	r.SecurityMode = SecurityMode(rd.Uint16())
	r.DialectRevision = Dialect(rd.Uint16())
	r.NegotiateContextCount = rd.Uint16() // SMB 3.1.1 only
	copy(r.ServerGUID[:], rd.Bytes(16))
	r.Capabilities = Capabilities(rd.Uint32())
	r.MaxTransactSize = rd.Uint32()
	r.MaxReadSize = rd.Uint32()
	r.MaxWriteSize = rd.Uint32()
	r.SystemTime = rd.Uint64()
	r.ServerStartTime = rd.Uint64()
	r.SecurityBufferOffset = rd.Uint16()
	r.SecurityBufferLength = rd.Uint16()
	r.NegotiateContextOffset = rd.Uint32() // SMB 3.1.1 only

	if rd.Err() != nil {
		return rd.Err()
	}

	// Security buffer (offset relative to start of SMB2 header)
	if r.SecurityBufferLength > 0 {
		actualOffset := int(r.SecurityBufferOffset) - SMB2HeaderSize
		if actualOffset >= 0 && actualOffset+int(r.SecurityBufferLength) <= len(buf) {
			r.SecurityBuffer = make([]byte, r.SecurityBufferLength)
			copy(r.SecurityBuffer, buf[actualOffset:actualOffset+int(r.SecurityBufferLength)])
		}
	}

	return nil
}

// SupportsDialect checks if the response supports a specific dialect
func (r *NegotiateResponse) SupportsDialect(d Dialect) bool {
	return r.DialectRevision >= d
}

// IsSMB3 returns true if SMB3.x was negotiated
func (r *NegotiateResponse) IsSMB3() bool {
	return r.DialectRevision >= DialectSMB3_0
}

// RequiresSigning returns true if signing is required
func (r *NegotiateResponse) RequiresSigning() bool {
	return r.SecurityMode&NegotiateSigningRequired != 0
}

// SystemTimeValue decodes SystemTime as a UTC time.Time.
func (r *NegotiateResponse) SystemTimeValue() time.Time {
	return codec.FiletimeToTime(r.SystemTime)
}

// ServerStartTimeValue decodes ServerStartTime as a UTC time.Time.
func (r *NegotiateResponse) ServerStartTimeValue() time.Time {
	return codec.FiletimeToTime(r.ServerStartTime)
}
