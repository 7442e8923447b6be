package smb

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
)

func TestTransformHeaderMarshalUnmarshal(t *testing.T) {
	header := TransformHeader{
		ProtocolID:          SMB2TransformID,
		Nonce:               [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 0, 0, 0, 0, 0},
		OriginalMessageSize: 1024,
		Reserved:            0,
		Flags:               0x0001,
		SessionID:           0x123456789ABCDEF0,
	}
	copy(header.Signature[:], []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0x00})

	data := header.Marshal()
	if len(data) != TransformHeaderSize {
		t.Errorf("expected %d bytes, got %d", TransformHeaderSize, len(data))
	}

	if data[0] != 0xFD || data[1] != 'S' || data[2] != 'M' || data[3] != 'B' {
		t.Errorf("invalid protocol ID: %v", data[:4])
	}

	var parsed TransformHeader
	if err := parsed.Unmarshal(data); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if parsed.OriginalMessageSize != 1024 {
		t.Errorf("expected OriginalMessageSize 1024, got %d", parsed.OriginalMessageSize)
	}
	if parsed.SessionID != 0x123456789ABCDEF0 {
		t.Errorf("expected SessionID 0x123456789ABCDEF0, got 0x%X", parsed.SessionID)
	}
	if parsed.Flags != 0x0001 {
		t.Errorf("expected Flags 0x0001, got 0x%04X", parsed.Flags)
	}
}

func TestIsEncryptedMessage(t *testing.T) {
	encrypted := []byte{0xFD, 'S', 'M', 'B', 0, 0, 0, 0}
	if !isEncryptedMessage(encrypted) {
		t.Error("should detect encrypted message")
	}

	normal := []byte{0xFE, 'S', 'M', 'B', 0, 0, 0, 0}
	if isEncryptedMessage(normal) {
		t.Error("should not detect normal message as encrypted")
	}

	short := []byte{0xFD, 'S'}
	if isEncryptedMessage(short) {
		t.Error("should not detect short message as encrypted")
	}
}

func TestEncryptDecryptMessageRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef")
	sessionID := uint64(0x1234567890ABCDEF)

	plaintext := make([]byte, 100)
	copy(plaintext[0:4], []byte{0xFE, 'S', 'M', 'B'})

	encrypted, err := encryptMessage(key, sessionID, plaintext)
	if err != nil {
		t.Fatalf("encryptMessage failed: %v", err)
	}

	if !isEncryptedMessage(encrypted) {
		t.Error("encrypted message should have transform header")
	}

	decrypted, err := decryptMessage(key, encrypted)
	if err != nil {
		t.Fatalf("decryptMessage failed: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Error("decrypted message doesn't match original")
	}
}

func TestDecryptMessageTamperedCiphertextFails(t *testing.T) {
	key := []byte("0123456789abcdef")
	plaintext := []byte("this is a test message that spans more than one AES block")

	encrypted, err := encryptMessage(key, 1, plaintext)
	if err != nil {
		t.Fatalf("encryptMessage failed: %v", err)
	}

	encrypted[TransformHeaderSize] ^= 0xFF

	if _, err := decryptMessage(key, encrypted); err == nil {
		t.Error("expected decryption to fail on tampered ciphertext")
	}
}

// TestTransformEnvelopeLayout checks scenario S4: exact byte offsets and
// values of a Transform envelope for a 132-byte plaintext.
func TestTransformEnvelopeLayout(t *testing.T) {
	sessionID := uint64(0x00000c0068000061)
	plaintext := make([]byte, 132)
	key := bytes.Repeat([]byte{0x11}, 16)

	encrypted, err := encryptMessage(key, sessionID, plaintext)
	if err != nil {
		t.Fatalf("encryptMessage failed: %v", err)
	}

	if len(encrypted) != TransformHeaderSize+132 {
		t.Fatalf("expected %d total bytes, got %d", TransformHeaderSize+132, len(encrypted))
	}

	if !bytes.Equal(encrypted[0:4], []byte{0xFD, 'S', 'M', 'B'}) {
		t.Errorf("bytes 0..4 = %x, want FD 53 4D 42", encrypted[0:4])
	}

	sizeLE, _ := hex.DecodeString("84000000")
	if !bytes.Equal(encrypted[36:40], sizeLE) {
		t.Errorf("bytes 36..40 = %x, want %x (132 LE)", encrypted[36:40], sizeLE)
	}

	flagsLE, _ := hex.DecodeString("0100")
	if !bytes.Equal(encrypted[42:44], flagsLE) {
		t.Errorf("bytes 42..44 = %x, want %x", encrypted[42:44], flagsLE)
	}

	var header TransformHeader
	if err := header.Unmarshal(encrypted[:TransformHeaderSize]); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if header.SessionID != sessionID {
		t.Errorf("session ID = %x, want %x", header.SessionID, sessionID)
	}
}

func TestDeriveEncryptionAndDecryptionKeys(t *testing.T) {
	sessionKey := []byte("0123456789abcdef")

	smb2Key := deriveEncryptionKey(sessionKey, types.DialectSMB2_1)
	if smb2Key != nil {
		t.Error("SMB2 should not have encryption key")
	}

	encKey := deriveEncryptionKey(sessionKey, types.DialectSMB3_0)
	decKey := deriveDecryptionKey(sessionKey, types.DialectSMB3_0)

	if encKey == nil || decKey == nil {
		t.Fatal("SMB3 should derive both encryption and decryption keys")
	}
	if len(encKey) != 16 || len(decKey) != 16 {
		t.Errorf("expected 16-byte keys, got %d/%d", len(encKey), len(decKey))
	}
	if bytes.Equal(encKey, decKey) {
		t.Error("encryption and decryption keys should differ (ServerIn vs ServerOut)")
	}
}
