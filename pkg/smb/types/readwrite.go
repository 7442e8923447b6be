package types

import (
	"github.com/ineffectivecoder/smb2client/internal/codec"
)

// ReadRequest represents an SMB2 READ request
type ReadRequest struct {
	StructureSize         uint16 // 49
	Padding               uint8
	Flags                 uint8
	Length                uint32
	Offset                uint64
	FileID                FileID
	MinimumCount          uint32
	Channel               uint32
	RemainingBytes        uint32
	ReadChannelInfoOffset uint16
	ReadChannelInfoLength uint16
}

// ReadFlags
const (
	ReadFlagRequestCompressed uint8 = 0x01 // SMB 3.1.1
	ReadFlagReadUnbuffered    uint8 = 0x02 // SMB 3.0.2
)

// NewReadRequest creates a READ request
func NewReadRequest(fileID FileID, offset uint64, length uint32) *ReadRequest {
	return &ReadRequest{
		StructureSize: 49,
		Padding:       0x50, // Read buffer offset
		Length:        length,
		Offset:        offset,
		FileID:        fileID,
	}
}

// Marshal serializes the READ request
func (r *ReadRequest) Marshal() []byte {
	w := codec.NewWriter(49)
	w.Uint16(r.StructureSize)
	w.Uint8(r.Padding)
	w.Uint8(r.Flags)
	w.Uint32(r.Length)
	w.Uint64(r.Offset)
	w.Raw(r.FileID.Marshal())
	w.Uint32(r.MinimumCount)
	w.Uint32(r.Channel)
	w.Uint32(r.RemainingBytes)
	w.Uint16(r.ReadChannelInfoOffset)
	w.Uint16(r.ReadChannelInfoLength)
	w.Uint8(0) // Buffer (1 byte)
	return w.Bytes()
}

// ReadResponse represents an SMB2 READ response
type ReadResponse struct {
	StructureSize uint16 // 17
	DataOffset    uint8
	Reserved      uint8
	DataLength    uint32
	DataRemaining uint32
	Reserved2     uint32
	Data          []byte
}

// Unmarshal deserializes a READ response
func (r *ReadResponse) Unmarshal(buf []byte) error {
	if len(buf) < 16 {
		return ErrBufferTooSmall
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	r.DataOffset = rd.Uint8()
	r.Reserved = rd.Uint8()
	r.DataLength = rd.Uint32()
	r.DataRemaining = rd.Uint32()
	r.Reserved2 = rd.Uint32()

	if r.DataLength > 0 {
		// DataOffset is from start of SMB2 header
		dataStart := int(r.DataOffset) - SMB2HeaderSize
		if dataStart >= 0 && dataStart+int(r.DataLength) <= len(buf) {
			r.Data = make([]byte, r.DataLength)
			copy(r.Data, buf[dataStart:dataStart+int(r.DataLength)])
		}
	}

	return nil
}

// WriteRequest represents an SMB2 WRITE request
type WriteRequest struct {
	StructureSize          uint16 // 49
	DataOffset             uint16
	Length                 uint32
	Offset                 uint64
	FileID                 FileID
	Channel                uint32
	RemainingBytes         uint32
	WriteChannelInfoOffset uint16
	WriteChannelInfoLength uint16
	Flags                  uint32
	Data                   []byte
}

// WriteFlags
const (
	WriteFlagWriteThrough    uint32 = 0x00000001
	WriteFlagWriteUnbuffered uint32 = 0x00000002 // SMB 3.0.2
)

// NewWriteRequest creates a WRITE request
func NewWriteRequest(fileID FileID, offset uint64, data []byte) *WriteRequest {
	return &WriteRequest{
		StructureSize: 49,
		DataOffset:    SMB2HeaderSize + 48 + 1, // Header + fixed - 1 + buffer
		Length:        uint32(len(data)),
		Offset:        offset,
		FileID:        fileID,
		Data:          data,
	}
}

// Marshal serializes the WRITE request
func (r *WriteRequest) Marshal() []byte {
	w := codec.NewWriter(49 + len(r.Data))
	w.Uint16(r.StructureSize)
	w.Uint16(r.DataOffset)
	w.Uint32(r.Length)
	w.Uint64(r.Offset)
	w.Raw(r.FileID.Marshal())
	w.Uint32(r.Channel)
	w.Uint32(r.RemainingBytes)
	w.Uint16(r.WriteChannelInfoOffset)
	w.Uint16(r.WriteChannelInfoLength)
	w.Uint32(r.Flags)
	w.Uint8(0) // Buffer (1 byte) before the data proper
	w.Raw(r.Data)
	return w.Bytes()
}

// WriteResponse represents an SMB2 WRITE response
type WriteResponse struct {
	StructureSize          uint16 // 17
	Reserved               uint16
	Count                  uint32
	Remaining              uint32
	WriteChannelInfoOffset uint16
	WriteChannelInfoLength uint16
}

// Unmarshal deserializes a WRITE response
func (r *WriteResponse) Unmarshal(buf []byte) error {
	if len(buf) < 16 {
		return ErrBufferTooSmall
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	r.Reserved = rd.Uint16()
	r.Count = rd.Uint32()
	r.Remaining = rd.Uint32()
	r.WriteChannelInfoOffset = rd.Uint16()
	r.WriteChannelInfoLength = rd.Uint16()

	return nil
}
