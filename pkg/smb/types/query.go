package types

import (
	"github.com/ineffectivecoder/smb2client/internal/codec"
)

// QueryDirectoryRequest represents an SMB2 QUERY_DIRECTORY request
type QueryDirectoryRequest struct {
	StructureSize        uint16 // 33
	FileInformationClass uint8
	Flags                uint8
	FileIndex            uint32
	FileID               FileID
	FileNameOffset       uint16
	FileNameLength       uint16
	OutputBufferLength   uint32
	FileName             []byte // Search pattern (UTF-16LE)
}

// FileInformationClass values for QUERY_DIRECTORY
const (
	FileDirectoryInformation       uint8 = 0x01
	FileFullDirectoryInformation   uint8 = 0x02
	FileBothDirectoryInformation   uint8 = 0x03
	FileNamesInformation           uint8 = 0x0C
	FileIdBothDirectoryInformation uint8 = 0x25
	FileIdFullDirectoryInformation uint8 = 0x26
)

// QueryDirectoryFlags
const (
	QueryDirectoryRestart     uint8 = 0x01
	QueryDirectorySingleEntry uint8 = 0x02
	QueryDirectoryReturnIndex uint8 = 0x04
	QueryDirectoryReopen      uint8 = 0x10
)

// NewQueryDirectoryRequest creates a QUERY_DIRECTORY request
func NewQueryDirectoryRequest(fileID FileID, pattern []byte, infoClass uint8) *QueryDirectoryRequest {
	return &QueryDirectoryRequest{
		StructureSize:        33,
		FileInformationClass: infoClass,
		FileID:               fileID,
		OutputBufferLength:   65536, // 64KB
		FileName:             pattern,
	}
}

// Marshal serializes the QUERY_DIRECTORY request
func (r *QueryDirectoryRequest) Marshal() []byte {
	// Fixed: 32 bytes + 1 buffer byte + filename
	r.FileNameOffset = SMB2HeaderSize + 32
	r.FileNameLength = uint16(len(r.FileName))

	w := codec.NewWriter(33 + len(r.FileName))
	w.Uint16(r.StructureSize)
	w.Uint8(r.FileInformationClass)
	w.Uint8(r.Flags)
	w.Uint32(r.FileIndex)
	w.Raw(r.FileID.Marshal())
	w.Uint16(r.FileNameOffset)
	w.Uint16(r.FileNameLength)
	w.Uint32(r.OutputBufferLength)

	if len(r.FileName) > 0 {
		w.Raw(r.FileName)
	} else {
		w.Uint8(0) // Still need 1 byte buffer
	}

	return w.Bytes()
}

// QueryDirectoryResponse represents an SMB2 QUERY_DIRECTORY response
type QueryDirectoryResponse struct {
	StructureSize      uint16 // 9
	OutputBufferOffset uint16
	OutputBufferLength uint32
	OutputBuffer       []byte
}

// Unmarshal deserializes a QUERY_DIRECTORY response
func (r *QueryDirectoryResponse) Unmarshal(buf []byte) error {
	if len(buf) < 8 {
		return ErrBufferTooSmall
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	r.OutputBufferOffset = rd.Uint16()
	r.OutputBufferLength = rd.Uint32()

	if r.OutputBufferLength > 0 {
		dataStart := int(r.OutputBufferOffset) - SMB2HeaderSize
		if dataStart >= 0 && dataStart+int(r.OutputBufferLength) <= len(buf) {
			r.OutputBuffer = make([]byte, r.OutputBufferLength)
			copy(r.OutputBuffer, buf[dataStart:dataStart+int(r.OutputBufferLength)])
		}
	}

	return nil
}

// FileBothDirInfo represents FILE_BOTH_DIR_INFORMATION structure
type FileBothDirInfo struct {
	NextEntryOffset uint32
	FileIndex       uint32
	CreationTime    uint64
	LastAccessTime  uint64
	LastWriteTime   uint64
	ChangeTime      uint64
	EndOfFile       uint64
	AllocationSize  uint64
	FileAttributes  FileAttributes
	FileNameLength  uint32
	EaSize          uint32
	ShortNameLength uint8
	Reserved        uint8
	ShortName       [24]byte // 12 UTF-16LE chars
	FileName        string
}

const fileBothDirInfoFixedLen = 94

// ParseFileBothDirInfo parses FILE_BOTH_DIR_INFORMATION entries chained
// by NextEntryOffset.
func ParseFileBothDirInfo(data []byte) []FileBothDirInfo {
	var entries []FileBothDirInfo

	codec.EachChunk(data, func(chunk []byte) (uint32, bool) {
		if len(chunk) < fileBothDirInfoFixedLen {
			return 0, true
		}

		rd := codec.NewReader(chunk)
		entry := FileBothDirInfo{}
		entry.NextEntryOffset = rd.Uint32()
		entry.FileIndex = rd.Uint32()
		entry.CreationTime = rd.Uint64()
		entry.LastAccessTime = rd.Uint64()
		entry.LastWriteTime = rd.Uint64()
		entry.ChangeTime = rd.Uint64()
		entry.EndOfFile = rd.Uint64()
		entry.AllocationSize = rd.Uint64()
		entry.FileAttributes = FileAttributes(rd.Uint32())
		entry.FileNameLength = rd.Uint32()
		entry.EaSize = rd.Uint32()
		entry.ShortNameLength = rd.Uint8()
		entry.Reserved = rd.Uint8()
		copy(entry.ShortName[:], rd.Bytes(24))
		entry.FileName = rd.UTF16LE(int(entry.FileNameLength))
		if rd.Err() != nil {
			return 0, true
		}

		entries = append(entries, entry)
		return entry.NextEntryOffset, false
	})

	return entries
}

// FileIdBothDirInfo represents FILE_ID_BOTH_DIR_INFORMATION structure
type FileIdBothDirInfo struct {
	FileBothDirInfo
	FileID uint64
}

const fileIdBothDirInfoFixedLen = 104

// ParseFileIdBothDirInfo parses FILE_ID_BOTH_DIR_INFORMATION entries
// chained by NextEntryOffset.
func ParseFileIdBothDirInfo(data []byte) []FileIdBothDirInfo {
	var entries []FileIdBothDirInfo

	codec.EachChunk(data, func(chunk []byte) (uint32, bool) {
		if len(chunk) < fileIdBothDirInfoFixedLen {
			return 0, true
		}

		rd := codec.NewReader(chunk)
		entry := FileIdBothDirInfo{}
		entry.NextEntryOffset = rd.Uint32()
		entry.FileIndex = rd.Uint32()
		entry.CreationTime = rd.Uint64()
		entry.LastAccessTime = rd.Uint64()
		entry.LastWriteTime = rd.Uint64()
		entry.ChangeTime = rd.Uint64()
		entry.EndOfFile = rd.Uint64()
		entry.AllocationSize = rd.Uint64()
		entry.FileAttributes = FileAttributes(rd.Uint32())
		entry.FileNameLength = rd.Uint32()
		entry.EaSize = rd.Uint32()
		entry.ShortNameLength = rd.Uint8()
		entry.Reserved = rd.Uint8()
		copy(entry.ShortName[:], rd.Bytes(24))
		rd.Skip(2) // Reserved2
		entry.FileID = rd.Uint64()
		entry.FileName = rd.UTF16LE(int(entry.FileNameLength))
		if rd.Err() != nil {
			return 0, true
		}

		entries = append(entries, entry)
		return entry.NextEntryOffset, false
	})

	return entries
}
