package types

import (
	"github.com/ineffectivecoder/smb2client/internal/codec"
)

// FlushRequest represents an SMB2 FLUSH request.
type FlushRequest struct {
	StructureSize uint16 // 24
	Reserved1     uint16
	Reserved2     uint32
	FileID        FileID
}

// NewFlushRequest creates a FLUSH request for fileID.
func NewFlushRequest(fileID FileID) *FlushRequest {
	return &FlushRequest{
		StructureSize: 24,
		FileID:        fileID,
	}
}

// Marshal serializes the FLUSH request.
func (r *FlushRequest) Marshal() []byte {
	w := codec.NewWriter(24)
	w.Uint16(r.StructureSize)
	w.Uint16(r.Reserved1)
	w.Uint32(r.Reserved2)
	w.Raw(r.FileID.Marshal())
	return w.Bytes()
}

// FlushResponse represents an SMB2 FLUSH response.
type FlushResponse struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// Unmarshal deserializes a FLUSH response.
func (r *FlushResponse) Unmarshal(buf []byte) error {
	if len(buf) < 4 {
		return ErrBufferTooSmall
	}
	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	r.Reserved = rd.Uint16()
	return nil
}

// EchoRequest represents an SMB2 ECHO request, used as a keepalive.
type EchoRequest struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// NewEchoRequest creates an ECHO request.
func NewEchoRequest() *EchoRequest {
	return &EchoRequest{StructureSize: 4}
}

// Marshal serializes the ECHO request.
func (r *EchoRequest) Marshal() []byte {
	w := codec.NewWriter(4)
	w.Uint16(r.StructureSize)
	w.Uint16(r.Reserved)
	return w.Bytes()
}

// EchoResponse represents an SMB2 ECHO response.
type EchoResponse struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// Unmarshal deserializes an ECHO response.
func (r *EchoResponse) Unmarshal(buf []byte) error {
	if len(buf) < 4 {
		return ErrBufferTooSmall
	}
	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	r.Reserved = rd.Uint16()
	return nil
}

// CompletionFilter flags select which kinds of directory changes a
// CHANGE_NOTIFY request is watching for.
type CompletionFilter uint32

// Completion filter bits, per MS-SMB2 2.2.35.
const (
	FilterFileName      CompletionFilter = 0x00000001
	FilterDirName       CompletionFilter = 0x00000002
	FilterAttributes    CompletionFilter = 0x00000004
	FilterSize          CompletionFilter = 0x00000008
	FilterLastWrite     CompletionFilter = 0x00000010
	FilterLastAccess    CompletionFilter = 0x00000020
	FilterCreation      CompletionFilter = 0x00000040
	FilterEA            CompletionFilter = 0x00000080
	FilterSecurity      CompletionFilter = 0x00000100
	FilterStreamName    CompletionFilter = 0x00000200
	FilterStreamSize    CompletionFilter = 0x00000400
	FilterStreamWrite   CompletionFilter = 0x00000800
	FilterChangeDefault                 = FilterFileName | FilterDirName | FilterAttributes |
		FilterLastWrite | FilterSecurity
)

// ChangeNotifyFlags
const (
	ChangeNotifyFlagWatchTree uint16 = 0x0001
)

// ChangeNotifyRequest represents an SMB2 CHANGE_NOTIFY request that
// registers interest in changes under a directory handle.
type ChangeNotifyRequest struct {
	StructureSize    uint16 // 32
	Flags            uint16
	OutputBufferSize uint32
	FileID           FileID
	CompletionFilter CompletionFilter
	Reserved         uint32
}

// NewChangeNotifyRequest creates a CHANGE_NOTIFY request watching fileID
// for the given filter. watchTree extends the watch to subdirectories.
func NewChangeNotifyRequest(fileID FileID, filter CompletionFilter, watchTree bool) *ChangeNotifyRequest {
	r := &ChangeNotifyRequest{
		StructureSize:    32,
		OutputBufferSize: 64 * 1024,
		FileID:           fileID,
		CompletionFilter: filter,
	}
	if watchTree {
		r.Flags |= ChangeNotifyFlagWatchTree
	}
	return r
}

// Marshal serializes the CHANGE_NOTIFY request.
func (r *ChangeNotifyRequest) Marshal() []byte {
	w := codec.NewWriter(32)
	w.Uint16(r.StructureSize)
	w.Uint16(r.Flags)
	w.Uint32(r.OutputBufferSize)
	w.Raw(r.FileID.Marshal())
	w.Uint32(uint32(r.CompletionFilter))
	w.Uint32(r.Reserved)
	return w.Bytes()
}

// FileNotifyAction identifies what happened to a name reported by
// CHANGE_NOTIFY.
type FileNotifyAction uint32

// File notify actions, per MS-SMB2 2.2.36.1.
const (
	NotifyActionAdded          FileNotifyAction = 0x00000001
	NotifyActionRemoved        FileNotifyAction = 0x00000002
	NotifyActionModified       FileNotifyAction = 0x00000003
	NotifyActionRenamedOldName FileNotifyAction = 0x00000004
	NotifyActionRenamedNewName FileNotifyAction = 0x00000005
	NotifyActionAddedStream    FileNotifyAction = 0x00000006
	NotifyActionRemovedStream  FileNotifyAction = 0x00000007
	NotifyActionModifiedStream FileNotifyAction = 0x00000008
)

// FileNotifyInformation describes a single reported change.
type FileNotifyInformation struct {
	Action   FileNotifyAction
	FileName string
}

// ChangeNotifyResponse represents an SMB2 CHANGE_NOTIFY response: zero or
// more FILE_NOTIFY_INFORMATION entries.
type ChangeNotifyResponse struct {
	StructureSize uint16 // 9
	OutputBuffer  []byte
	Entries       []FileNotifyInformation
}

const fileNotifyInformationFixedLen = 12

// Unmarshal deserializes a CHANGE_NOTIFY response.
func (r *ChangeNotifyResponse) Unmarshal(buf []byte) error {
	if len(buf) < 8 {
		return ErrBufferTooSmall
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	outputOffset := rd.Uint16()
	outputLength := rd.Uint32()

	start := int(outputOffset) - SMB2HeaderSize
	if outputLength == 0 || start < 0 || start+int(outputLength) > len(buf) {
		return nil
	}
	r.OutputBuffer = buf[start : start+int(outputLength)]

	codec.EachChunk(r.OutputBuffer, func(chunk []byte) (uint32, bool) {
		if len(chunk) < fileNotifyInformationFixedLen {
			return 0, true
		}
		entry := codec.NewReader(chunk)
		nextOffset := entry.Uint32()
		action := FileNotifyAction(entry.Uint32())
		nameLen := int(entry.Uint32())
		name := entry.UTF16LE(nameLen)
		if entry.Err() != nil {
			return 0, true
		}
		r.Entries = append(r.Entries, FileNotifyInformation{
			Action:   action,
			FileName: name,
		})
		return nextOffset, false
	})

	return nil
}

// CancelRequest represents an SMB2 CANCEL request. Per MS-SMB2 3.2.4.24,
// its header carries the same MessageId as the request being canceled,
// not a freshly allocated one.
type CancelRequest struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// NewCancelRequest creates a CANCEL request.
func NewCancelRequest() *CancelRequest {
	return &CancelRequest{StructureSize: 4}
}

// Marshal serializes the CANCEL request.
func (r *CancelRequest) Marshal() []byte {
	w := codec.NewWriter(4)
	w.Uint16(r.StructureSize)
	w.Uint16(r.Reserved)
	return w.Bytes()
}
