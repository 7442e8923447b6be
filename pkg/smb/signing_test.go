package smb

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/ineffectivecoder/smb2client/internal/crypto"
	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
)

func TestComputeSignatureHMACSHA256(t *testing.T) {
	key := []byte("test-key-16bytes")
	message := []byte("test message to sign")

	sig := computeSignature(types.DialectSMB2_1, key, message)
	if len(sig) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(sig))
	}

	sig2 := computeSignature(types.DialectSMB2_1, key, message)
	if !bytes.Equal(sig, sig2) {
		t.Error("expected consistent HMAC output")
	}

	sig3 := computeSignature(types.DialectSMB2_1, []byte("different-key123"), message)
	if bytes.Equal(sig, sig3) {
		t.Error("expected different HMAC with different key")
	}
}

// TestAESCMACRFC4493EmptyMessage checks scenario S2: RFC 4493's example-1
// test vector, an empty message under the standard AES-128 example key.
func TestAESCMACRFC4493EmptyMessage(t *testing.T) {
	key, err := hex.DecodeString("2b7e151628aed2a6abf7158809cf4f3c")
	if err != nil {
		t.Fatalf("bad test key: %v", err)
	}

	got := crypto.AESCMAC(key, nil)
	want, err := hex.DecodeString("bb1d6929e95937287fa37d129b756746")
	if err != nil {
		t.Fatalf("bad expected MAC: %v", err)
	}

	if !bytes.Equal(got, want) {
		t.Errorf("AES-CMAC(empty) = %x, want %x", got, want)
	}
}

func TestSignAndVerifyMessage(t *testing.T) {
	key := []byte("0123456789abcdef")

	message := make([]byte, 80)
	copy(message[0:4], []byte{0xFE, 'S', 'M', 'B'})

	signed := signMessage(types.DialectSMB2_1, key, message)

	hasSignature := false
	for i := signatureOffset; i < signatureOffset+signatureSize; i++ {
		if signed[i] != 0 {
			hasSignature = true
			break
		}
	}
	if !hasSignature {
		t.Error("expected signature to be set in header")
	}

	if !verifySignature(types.DialectSMB2_1, key, signed) {
		t.Error("signature verification should succeed for correctly signed message")
	}

	tampered := make([]byte, len(signed))
	copy(tampered, signed)
	tampered[70] ^= 0xFF

	if verifySignature(types.DialectSMB2_1, key, tampered) {
		t.Error("signature verification should fail for tampered message")
	}
}

func TestSignAndVerifyMessageSMB3(t *testing.T) {
	key := []byte("0123456789abcdef")
	message := make([]byte, 80)
	copy(message[0:4], []byte{0xFE, 'S', 'M', 'B'})

	signed := signMessage(types.DialectSMB3_0, key, message)
	if !verifySignature(types.DialectSMB3_0, key, signed) {
		t.Error("AES-CMAC signature verification should succeed")
	}
}

func TestDeriveSigningKey(t *testing.T) {
	sessionKey := []byte("0123456789abcdef")

	smb2Key := deriveSigningKey(sessionKey, types.DialectSMB2_1)
	if !bytes.Equal(smb2Key, sessionKey) {
		t.Error("SMB2 should use session key directly")
	}

	smb3Key := deriveSigningKey(sessionKey, types.DialectSMB3_0)
	if bytes.Equal(smb3Key, sessionKey) {
		t.Error("SMB3 should derive a different signing key")
	}
	if len(smb3Key) != 16 {
		t.Errorf("expected 16 byte signing key for SMB3, got %d", len(smb3Key))
	}
}

func TestKDFCounterMode(t *testing.T) {
	ki := []byte("0123456789abcdef")
	label := []byte("TestLabel\x00")
	context := []byte("TestContext\x00")

	key128 := crypto.KDFCounterMode(ki, label, context, 128)
	if len(key128) != 16 {
		t.Errorf("expected 16 bytes for 128-bit key, got %d", len(key128))
	}

	key128b := crypto.KDFCounterMode(ki, label, context, 128)
	if !bytes.Equal(key128, key128b) {
		t.Error("KDF should be deterministic")
	}

	key128c := crypto.KDFCounterMode(ki, []byte("Different\x00"), context, 128)
	if bytes.Equal(key128, key128c) {
		t.Error("different label should produce different key")
	}
}

// TestKDFDeterministicOutput checks invariant 6: fixed label/context/L
// yields a deterministic 16-byte output for any 16-byte input key.
func TestKDFDeterministicOutput(t *testing.T) {
	ki := bytes.Repeat([]byte{0x42}, 16)
	label := []byte("SMB2AESCCM\x00")
	context := []byte("ServerIn \x00")

	out1 := crypto.KDFCounterMode(ki, label, context, 128)
	out2 := crypto.KDFCounterMode(ki, label, context, 128)

	if len(out1) != 16 {
		t.Fatalf("expected 16-byte output, got %d", len(out1))
	}
	if !bytes.Equal(out1, out2) {
		t.Error("KDF output must be deterministic across runs")
	}
}
