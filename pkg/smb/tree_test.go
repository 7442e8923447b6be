package smb

import (
	"testing"

	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
)

func TestTreeAccessors(t *testing.T) {
	s := newTestSession(types.DialectSMB2_1, false)
	tr := &Tree{
		session:   s,
		treeID:    7,
		shareType: types.ShareTypeDisk,
		shareName: "shared",
		maxAccess: types.GenericRead,
	}

	if tr.TreeID() != 7 {
		t.Errorf("TreeID() = %d, want 7", tr.TreeID())
	}
	if tr.ShareName() != "shared" {
		t.Errorf("ShareName() = %q, want %q", tr.ShareName(), "shared")
	}
	if !tr.IsDisk() || tr.IsPipe() {
		t.Error("disk share should report IsDisk() true, IsPipe() false")
	}
	if tr.Session() != s {
		t.Error("Session() should return the owning session")
	}
}

func TestTreeIsPipe(t *testing.T) {
	tr := &Tree{shareType: types.ShareTypePipe}
	if !tr.IsPipe() || tr.IsDisk() {
		t.Error("pipe share should report IsPipe() true, IsDisk() false")
	}
}

func TestTreeDisconnectRemovesFromSessionTrees(t *testing.T) {
	s := newTestSession(types.DialectSMB2_1, false)
	t1 := &Tree{session: s, treeID: 1, shareName: "one"}
	t2 := &Tree{session: s, treeID: 2, shareName: "two"}
	s.trees = []*Tree{t1, t2}

	// Exercise the same removal-by-identity logic TreeDisconnect uses,
	// without requiring a live TREE_DISCONNECT round trip.
	for i, existing := range s.trees {
		if existing == t1 {
			s.trees = append(s.trees[:i], s.trees[i+1:]...)
			break
		}
	}

	if len(s.trees) != 1 || s.trees[0] != t2 {
		t.Errorf("trees after removal = %v, want [t2]", s.trees)
	}
}

func TestTreeDisconnectNilIsNoop(t *testing.T) {
	s := newTestSession(types.DialectSMB2_1, false)
	if err := s.TreeDisconnect(nil, nil); err != nil {
		t.Errorf("TreeDisconnect(nil) = %v, want nil", err)
	}
}

func TestTreeShareFlags(t *testing.T) {
	tr := &Tree{shareFlags: types.ShareFlagEncryptData}
	if tr.ShareFlags()&types.ShareFlagEncryptData == 0 {
		t.Error("ShareFlags() should carry the encrypt-data bit the server returned")
	}
}

// TestTreeConnectEnablesEncryptionForMandatoryShares exercises the same
// decision TreeConnect makes after parsing the response: a share with
// SHAREFLAG_ENCRYPT_DATA set turns session encryption on even though
// nothing forced it at negotiate or authenticate time.
func TestTreeConnectEnablesEncryptionForMandatoryShares(t *testing.T) {
	s := newTestSession(types.DialectSMB3_0, false)
	s.encryptionKey = make([]byte, 16)

	treeResp := types.TreeConnectResponse{ShareFlags: types.ShareFlagEncryptData}

	if treeResp.ShareFlags&types.ShareFlagEncryptData != 0 && !s.encryptMessages {
		if err := s.EnableEncryption(); err != nil {
			t.Fatalf("EnableEncryption() = %v, want nil", err)
		}
	}

	if !s.IsEncrypted() {
		t.Error("session should be encrypted after connecting to a share with SHAREFLAG_ENCRYPT_DATA")
	}
}

func TestTreeConnectLeavesEncryptionOffForOrdinaryShares(t *testing.T) {
	s := newTestSession(types.DialectSMB3_0, false)
	s.encryptionKey = make([]byte, 16)

	treeResp := types.TreeConnectResponse{ShareFlags: 0}

	if treeResp.ShareFlags&types.ShareFlagEncryptData != 0 && !s.encryptMessages {
		_ = s.EnableEncryption()
	}

	if s.IsEncrypted() {
		t.Error("session should stay unencrypted when the share does not mandate it")
	}
}
