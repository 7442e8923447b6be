package types

import (
	"github.com/ineffectivecoder/smb2client/internal/codec"
)

// FileID represents a 16-byte file handle
type FileID struct {
	Persistent [8]byte
	Volatile   [8]byte
}

// Marshal serializes the FileID
func (f *FileID) Marshal() []byte {
	w := codec.NewWriter(16)
	w.Fixed(f.Persistent[:], 8)
	w.Fixed(f.Volatile[:], 8)
	return w.Bytes()
}

// Unmarshal deserializes a FileID
func (f *FileID) Unmarshal(buf []byte) {
	r := codec.NewReader(buf)
	copy(f.Persistent[:], r.Bytes(8))
	copy(f.Volatile[:], r.Bytes(8))
}

// IsZero returns true if the FileID is zero/invalid
func (f *FileID) IsZero() bool {
	for i := 0; i < 8; i++ {
		if f.Persistent[i] != 0 || f.Volatile[i] != 0 {
			return false
		}
	}
	return true
}

// CreateRequest represents an SMB2 CREATE request
type CreateRequest struct {
	StructureSize        uint16 // 57
	SecurityFlags        uint8
	RequestedOplockLevel uint8
	ImpersonationLevel   uint32
	SmbCreateFlags       uint64
	Reserved             uint64
	DesiredAccess        AccessMask
	FileAttributes       FileAttributes
	ShareAccess          ShareAccess
	CreateDisposition    CreateDisposition
	CreateOptions        CreateOptions
	NameOffset           uint16
	NameLength           uint16
	CreateContextsOffset uint32
	CreateContextsLength uint32
	Name                 []byte // Filename (UTF-16LE)
	CreateContexts       []byte // Optional create contexts
}

// ImpersonationLevel values
const (
	ImpersonationAnonymous      uint32 = 0
	ImpersonationIdentification uint32 = 1
	ImpersonationImpersonation  uint32 = 2
	ImpersonationDelegation     uint32 = 3
)

// OplockLevel values
const (
	OplockLevelNone      uint8 = 0x00
	OplockLevelII        uint8 = 0x01
	OplockLevelExclusive uint8 = 0x08
	OplockLevelBatch     uint8 = 0x09
	OplockLevelLease     uint8 = 0xFF
)

// NewCreateRequest creates a CREATE request for a file or directory
func NewCreateRequest(name []byte, access AccessMask, disposition CreateDisposition, options CreateOptions) *CreateRequest {
	return &CreateRequest{
		StructureSize:      57,
		ImpersonationLevel: ImpersonationImpersonation,
		DesiredAccess:      access,
		FileAttributes:     FileAttributeNormal,
		ShareAccess:        FileShareRead | FileShareWrite | FileShareDelete,
		CreateDisposition:  disposition,
		CreateOptions:      options,
		Name:               name,
	}
}

// NewCreatePipeRequest creates a CREATE request for named pipes
// Named pipes need FileAttributes=0 (not Normal), and different ShareAccess
func NewCreatePipeRequest(name []byte, access AccessMask) *CreateRequest {
	return &CreateRequest{
		StructureSize:      57,
		ImpersonationLevel: ImpersonationImpersonation,
		DesiredAccess:      access,
		FileAttributes:     0,                              // Pipes don't use FileAttributeNormal
		ShareAccess:        FileShareRead | FileShareWrite, // No Delete for pipes
		CreateDisposition:  FileOpen,
		CreateOptions:      0, // No options like FileNonDirectoryFile for pipes
		Name:               name,
	}
}

// Marshal serializes the CREATE request
func (r *CreateRequest) Marshal() []byte {
	// Fixed part: 56 bytes (StructureSize says 57, but last byte is Buffer[0])
	// NameOffset is from start of SMB2 header (64 bytes) + fixed part (56 bytes) = 120
	r.NameOffset = SMB2HeaderSize + 56 // 64 + 56 = 120 = 0x78
	r.NameLength = uint16(len(r.Name))

	if len(r.CreateContexts) > 0 {
		// Contexts must be 8-byte aligned
		nameEnd := int(r.NameOffset) + len(r.Name)
		padding := (8 - (nameEnd % 8)) % 8
		r.CreateContextsOffset = uint32(nameEnd + padding)
		r.CreateContextsLength = uint32(len(r.CreateContexts))
	}

	w := codec.NewWriter(57 + len(r.Name) + len(r.CreateContexts) + 7)
	w.Uint16(r.StructureSize)
	w.Uint8(r.SecurityFlags)
	w.Uint8(r.RequestedOplockLevel)
	w.Uint32(r.ImpersonationLevel)
	w.Uint64(r.SmbCreateFlags)
	w.Uint64(r.Reserved)
	w.Uint32(uint32(r.DesiredAccess))
	w.Uint32(uint32(r.FileAttributes))
	w.Uint32(uint32(r.ShareAccess))
	w.Uint32(uint32(r.CreateDisposition))
	w.Uint32(uint32(r.CreateOptions))
	w.Uint16(r.NameOffset)
	w.Uint16(r.NameLength)
	w.Uint32(r.CreateContextsOffset)
	w.Uint32(r.CreateContextsLength)

	if len(r.Name) > 0 {
		w.Raw(r.Name)
	} else {
		// Buffer field needs at least one byte even when Name is empty.
		w.Uint8(0)
	}

	if len(r.CreateContexts) > 0 {
		pad := int(r.CreateContextsOffset) - SMB2HeaderSize - w.Len()
		w.Pad(pad)
		w.Raw(r.CreateContexts)
	}

	return w.Bytes()
}

// CreateResponse represents an SMB2 CREATE response
type CreateResponse struct {
	StructureSize        uint16 // 89
	OplockLevel          uint8
	Flags                uint8
	CreateAction         uint32
	CreationTime         uint64
	LastAccessTime       uint64
	LastWriteTime        uint64
	ChangeTime           uint64
	AllocationSize       uint64
	EndOfFile            uint64
	FileAttributes       FileAttributes
	Reserved2            uint32
	FileID               FileID
	CreateContextsOffset uint32
	CreateContextsLength uint32
	CreateContexts       []byte
}

// CreateAction values
const (
	FileSuperseded  uint32 = 0
	FileOpened      uint32 = 1
	FileCreated     uint32 = 2
	FileOverwritten uint32 = 3
)

// Unmarshal deserializes a CREATE response
func (r *CreateResponse) Unmarshal(buf []byte) error {
	if len(buf) < 88 {
		return ErrBufferTooSmall
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	r.OplockLevel = rd.Uint8()
	r.Flags = rd.Uint8()
	r.CreateAction = rd.Uint32()
	r.CreationTime = rd.Uint64()
	r.LastAccessTime = rd.Uint64()
	r.LastWriteTime = rd.Uint64()
	r.ChangeTime = rd.Uint64()
	r.AllocationSize = rd.Uint64()
	r.EndOfFile = rd.Uint64()
	r.FileAttributes = FileAttributes(rd.Uint32())
	r.Reserved2 = rd.Uint32()
	r.FileID.Unmarshal(rd.Bytes(16))
	r.CreateContextsOffset = rd.Uint32()
	r.CreateContextsLength = rd.Uint32()

	if rd.Err() != nil {
		return rd.Err()
	}
	return nil
}

// CloseRequest represents an SMB2 CLOSE request
type CloseRequest struct {
	StructureSize uint16 // 24
	Flags         uint16
	Reserved      uint32
	FileID        FileID
}

// CloseFlags
const (
	CloseFlagPostQueryAttrib uint16 = 0x0001
)

// NewCloseRequest creates a CLOSE request
func NewCloseRequest(fileID FileID) *CloseRequest {
	return &CloseRequest{
		StructureSize: 24,
		FileID:        fileID,
	}
}

// Marshal serializes the CLOSE request
func (r *CloseRequest) Marshal() []byte {
	w := codec.NewWriter(24)
	w.Uint16(r.StructureSize)
	w.Uint16(r.Flags)
	w.Uint32(r.Reserved)
	w.Raw(r.FileID.Marshal())
	return w.Bytes()
}

// CloseResponse represents an SMB2 CLOSE response
type CloseResponse struct {
	StructureSize  uint16 // 60
	Flags          uint16
	Reserved       uint32
	CreationTime   uint64
	LastAccessTime uint64
	LastWriteTime  uint64
	ChangeTime     uint64
	AllocationSize uint64
	EndOfFile      uint64
	FileAttributes FileAttributes
}

// Unmarshal deserializes a CLOSE response
func (r *CloseResponse) Unmarshal(buf []byte) error {
	if len(buf) < 60 {
		return ErrBufferTooSmall
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	r.Flags = rd.Uint16()
	r.Reserved = rd.Uint32()
	r.CreationTime = rd.Uint64()
	r.LastAccessTime = rd.Uint64()
	r.LastWriteTime = rd.Uint64()
	r.ChangeTime = rd.Uint64()
	r.AllocationSize = rd.Uint64()
	r.EndOfFile = rd.Uint64()
	r.FileAttributes = FileAttributes(rd.Uint32())

	if rd.Err() != nil {
		return rd.Err()
	}
	return nil
}

// QueryInfoRequest represents an SMB2 QUERY_INFO request
type QueryInfoRequest struct {
	StructureSize      uint16 // 41
	InfoType           uint8
	FileInfoClass      uint8
	OutputBufferLength uint32
	InputBufferOffset  uint16
	Reserved           uint16
	InputBufferLength  uint32
	AdditionalInfo     uint32
	Flags              uint32
	FileID             FileID
}

// NewQueryInfoRequest creates a QUERY_INFO request
func NewQueryInfoRequest(fileID FileID, infoType, infoClass uint8, additionalInfo, outputLength uint32) *QueryInfoRequest {
	return &QueryInfoRequest{
		StructureSize:      41,
		InfoType:           infoType,
		FileInfoClass:      infoClass,
		OutputBufferLength: outputLength,
		AdditionalInfo:     additionalInfo,
		FileID:             fileID,
	}
}

// Marshal serializes the QUERY_INFO request
func (r *QueryInfoRequest) Marshal() []byte {
	w := codec.NewWriter(40)
	w.Uint16(r.StructureSize)
	w.Uint8(r.InfoType)
	w.Uint8(r.FileInfoClass)
	w.Uint32(r.OutputBufferLength)
	w.Uint16(r.InputBufferOffset)
	w.Uint16(r.Reserved)
	w.Uint32(r.InputBufferLength)
	w.Uint32(r.AdditionalInfo)
	w.Uint32(r.Flags)
	w.Raw(r.FileID.Marshal())
	return w.Bytes()
}

// SetInfoRequest represents an SMB2 SET_INFO request
type SetInfoRequest struct {
	StructureSize  uint16 // 33
	InfoType       uint8
	FileInfoClass  uint8
	BufferLength   uint32
	BufferOffset   uint16
	Reserved       uint16
	AdditionalInfo uint32
	FileID         FileID
	Buffer         []byte
}

// NewSetInfoRequest creates a SET_INFO request
func NewSetInfoRequest(fileID FileID, infoType, infoClass uint8, buffer []byte) *SetInfoRequest {
	return &SetInfoRequest{
		StructureSize: 33,
		InfoType:      infoType,
		FileInfoClass: infoClass,
		BufferLength:  uint32(len(buffer)),
		BufferOffset:  SMB2HeaderSize + 32, // Fixed header is 32 bytes
		FileID:        fileID,
		Buffer:        buffer,
	}
}

// Marshal serializes the SET_INFO request
func (r *SetInfoRequest) Marshal() []byte {
	w := codec.NewWriter(32 + len(r.Buffer))
	w.Uint16(r.StructureSize)
	w.Uint8(r.InfoType)
	w.Uint8(r.FileInfoClass)
	w.Uint32(r.BufferLength)
	w.Uint16(r.BufferOffset)
	w.Uint16(r.Reserved)
	w.Uint32(r.AdditionalInfo)
	w.Raw(r.FileID.Marshal())
	w.Raw(r.Buffer)
	return w.Bytes()
}
