package types

import (
	"errors"

	"github.com/ineffectivecoder/smb2client/internal/codec"
)

// TreeConnectRequest represents an SMB2 TREE_CONNECT request
type TreeConnectRequest struct {
	StructureSize uint16 // 9
	Flags         uint16 // Reserved (SMB 3.1.1: SMB2_TREE_CONNECT_FLAG_*)
	PathOffset    uint16
	PathLength    uint16
	Path          []byte // UNC path (UTF-16LE)
}

// TreeConnectFlags (SMB 3.1.1)
const (
	TreeConnectFlagClusterReconnect uint16 = 0x0001
	TreeConnectFlagRedirectToOwner  uint16 = 0x0002
	TreeConnectFlagExtensionPresent uint16 = 0x0004
)

// NewTreeConnectRequest creates a tree connect request
func NewTreeConnectRequest(path []byte) *TreeConnectRequest {
	return &TreeConnectRequest{
		StructureSize: 9,
		Path:          path,
	}
}

// Marshal serializes the tree connect request
func (r *TreeConnectRequest) Marshal() []byte {
	// PathOffset is from start of SMB2 header
	r.PathOffset = SMB2HeaderSize + 8
	r.PathLength = uint16(len(r.Path))

	w := codec.NewWriter(8 + len(r.Path))
	w.Uint16(r.StructureSize)
	w.Uint16(r.Flags)
	w.Uint16(r.PathOffset)
	w.Uint16(r.PathLength)
	w.Raw(r.Path)
	return w.Bytes()
}

// ShareFlags (MS-SMB2 2.2.10, TREE_CONNECT response)
const (
	ShareFlagEncryptData uint32 = 0x00008000
)

// TreeConnectResponse represents an SMB2 TREE_CONNECT response
type TreeConnectResponse struct {
	StructureSize uint16 // 16
	ShareType     ShareType
	Reserved      uint8
	ShareFlags    uint32
	Capabilities  uint32
	MaximalAccess AccessMask
}

// Unmarshal deserializes a tree connect response
func (r *TreeConnectResponse) Unmarshal(buf []byte) error {
	if len(buf) < 16 {
		return errors.New("buffer too small for tree connect response")
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	if r.StructureSize != 16 {
		return errors.New("invalid tree connect response structure size")
	}

	r.ShareType = ShareType(rd.Uint8())
	r.Reserved = rd.Uint8()
	r.ShareFlags = rd.Uint32()
	r.Capabilities = rd.Uint32()
	r.MaximalAccess = AccessMask(rd.Uint32())

	if rd.Err() != nil {
		return rd.Err()
	}
	return nil
}

// TreeDisconnectRequest represents an SMB2 TREE_DISCONNECT request
type TreeDisconnectRequest struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// NewTreeDisconnectRequest creates a tree disconnect request
func NewTreeDisconnectRequest() *TreeDisconnectRequest {
	return &TreeDisconnectRequest{
		StructureSize: 4,
	}
}

// Marshal serializes the tree disconnect request
func (r *TreeDisconnectRequest) Marshal() []byte {
	w := codec.NewWriter(4)
	w.Uint16(r.StructureSize)
	w.Uint16(r.Reserved)
	return w.Bytes()
}

// TreeDisconnectResponse represents an SMB2 TREE_DISCONNECT response
type TreeDisconnectResponse struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// Unmarshal deserializes a tree disconnect response
func (r *TreeDisconnectResponse) Unmarshal(buf []byte) error {
	if len(buf) < 4 {
		return errors.New("buffer too small for tree disconnect response")
	}

	rd := codec.NewReader(buf)
	r.StructureSize = rd.Uint16()
	r.Reserved = rd.Uint16()
	return nil
}
