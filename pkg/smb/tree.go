package smb

import (
	"context"
	"fmt"

	"github.com/ineffectivecoder/smb2client/internal/encoding"
	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
	"github.com/sirupsen/logrus"
)

// Tree represents a connected share
type Tree struct {
	session    *Session
	treeID     uint32
	shareType  types.ShareType
	shareName  string
	shareFlags uint32
	maxAccess  types.AccessMask
	log        *logrus.Entry
	events     eventBus
}

// OnEvent registers fn to run on every EventTreeConnect,
// EventTreeDisconnect, EventHandleOpen, and EventHandleClose this tree
// emits. Handle events are surfaced here, not on File, since a File
// doesn't exist yet when its EventHandleOpen fires.
func (t *Tree) OnEvent(fn EventListener) {
	t.events.Subscribe(fn)
}

// TreeConnect connects to a share
func (s *Session) TreeConnect(ctx context.Context, shareName string) (*Tree, error) {
	if !s.isAuthenticated {
		return nil, ErrNotConnected
	}

	// Build UNC path: \\server\share
	// Get server from transport remote addr
	serverAddr := s.transport.RemoteAddr()
	if serverAddr == nil {
		return nil, ErrNotConnected
	}

	// Extract host from address (remove port)
	host := serverAddr.String()
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			host = host[:i]
			break
		}
	}

	uncPath := fmt.Sprintf("\\\\%s\\%s", host, shareName)
	pathBytes := encoding.ToUTF16LE(uncPath)

	// Build TREE_CONNECT request. The header is rebuilt fresh inside the
	// closure so a requestWithEncryptionRetry retry gets its own MessageId
	// rather than resending the one the server already rejected.
	req := types.NewTreeConnectRequest(pathBytes)

	var respHeader types.Header
	resp, err := s.requestWithEncryptionRetry(func() ([]byte, error) {
		header := types.NewHeader(types.CommandTreeConnect, s.nextMessageID())
		header.SessionID = s.sessionID

		resp, err := s.sendRecv(ctx, header, req.Marshal())
		if err != nil {
			return nil, fmt.Errorf("tree connect failed: %w", err)
		}
		if err := respHeader.Unmarshal(resp[:types.SMB2HeaderSize]); err != nil {
			return nil, fmt.Errorf("failed to parse response header: %w", err)
		}
		if !respHeader.Status.IsSuccess() {
			return nil, StatusToError(respHeader.Status)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	// Parse TREE_CONNECT response
	var treeResp types.TreeConnectResponse
	if err := treeResp.Unmarshal(resp[types.SMB2HeaderSize:]); err != nil {
		return nil, fmt.Errorf("failed to parse tree connect response: %w", err)
	}

	t := &Tree{
		session:    s,
		treeID:     respHeader.TreeID,
		shareType:  treeResp.ShareType,
		shareName:  shareName,
		shareFlags: treeResp.ShareFlags,
		maxAccess:  treeResp.MaximalAccess,
	}
	if s.log != nil {
		t.log = s.log.WithFields(logrus.Fields{"tree": shareName, "treeId": t.treeID})
		t.log.Info("tree connected")
	}
	t.events.emit(Event{Kind: EventTreeConnect, SessionID: s.sessionID, TreeID: t.treeID, ShareName: shareName})

	if treeResp.ShareFlags&types.ShareFlagEncryptData != 0 && !s.encryptMessages {
		if err := s.EnableEncryption(); err != nil {
			return nil, fmt.Errorf("share %s requires encryption: %w", shareName, err)
		}
		if t.log != nil {
			t.log.Info("share mandates encryption, enabled")
		}
	}

	s.trees = append(s.trees, t)
	return t, nil
}

// TreeDisconnect disconnects from a share
func (s *Session) TreeDisconnect(ctx context.Context, tree *Tree) error {
	if tree == nil {
		return nil
	}

	// Build TREE_DISCONNECT request
	req := types.NewTreeDisconnectRequest()

	// Build header
	header := types.NewHeader(types.CommandTreeDisconnect, s.nextMessageID())
	header.SessionID = s.sessionID
	header.TreeID = tree.treeID

	// Send request
	resp, err := s.sendRecv(ctx, header, req.Marshal())
	if err != nil {
		return fmt.Errorf("tree disconnect failed: %w", err)
	}

	// Parse response header
	var respHeader types.Header
	if err := respHeader.Unmarshal(resp[:types.SMB2HeaderSize]); err != nil {
		return fmt.Errorf("failed to parse response header: %w", err)
	}

	// Check status
	if !respHeader.Status.IsSuccess() {
		return StatusToError(respHeader.Status)
	}

	for i, existing := range s.trees {
		if existing == tree {
			s.trees = append(s.trees[:i], s.trees[i+1:]...)
			break
		}
	}

	if tree.log != nil {
		tree.log.Info("tree disconnected")
	}
	tree.events.emit(Event{Kind: EventTreeDisconnect, SessionID: s.sessionID, TreeID: tree.treeID, ShareName: tree.shareName})

	return nil
}

// TreeID returns the tree ID
func (t *Tree) TreeID() uint32 {
	return t.treeID
}

// ShareType returns the share type
func (t *Tree) ShareType() types.ShareType {
	return t.shareType
}

// ShareName returns the share name
func (t *Tree) ShareName() string {
	return t.shareName
}

// MaximalAccess returns the maximal access rights
func (t *Tree) MaximalAccess() types.AccessMask {
	return t.maxAccess
}

// ShareFlags returns the share flags the server returned at TREE_CONNECT,
// including the encrypt-data bit.
func (t *Tree) ShareFlags() uint32 {
	return t.shareFlags
}

// IsPipe returns true if this is an IPC$ (named pipe) share
func (t *Tree) IsPipe() bool {
	return t.shareType == types.ShareTypePipe
}

// IsDisk returns true if this is a disk share
func (t *Tree) IsDisk() bool {
	return t.shareType == types.ShareTypeDisk
}

// Session returns the parent session
func (t *Tree) Session() *Session {
	return t.session
}
