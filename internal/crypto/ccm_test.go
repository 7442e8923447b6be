package crypto

import (
	"bytes"
	"testing"
)

func TestCCMRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef")
	nonce := []byte("12345678901")
	plaintext := []byte("This is a test message for AES-CCM encryption")
	aad := []byte("additional data, 32 bytes long!!")

	ciphertext, tag, err := CCMSeal(key, nonce, plaintext, aad)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("ciphertext should differ from plaintext")
	}
	if len(tag) != 16 {
		t.Errorf("expected 16-byte tag, got %d", len(tag))
	}

	decrypted, err := CCMOpen(key, nonce, ciphertext, tag, aad)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted text doesn't match:\ngot:  %s\nwant: %s", decrypted, plaintext)
	}
}

func TestCCMEmptyPlaintext(t *testing.T) {
	key := []byte("0123456789abcdef")
	nonce := []byte("12345678901")
	aad := []byte("some aad")

	ciphertext, tag, err := CCMSeal(key, nonce, nil, aad)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	decrypted, err := CCMOpen(key, nonce, ciphertext, tag, aad)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if len(decrypted) != 0 {
		t.Errorf("expected empty plaintext, got %d bytes", len(decrypted))
	}
}

// TestCCMTamperDetection checks invariant 4: a single-bit flip of
// ciphertext, tag, or AAD causes verification to fail.
func TestCCMTamperDetection(t *testing.T) {
	key := []byte("0123456789abcdef")
	nonce := []byte("12345678901")
	plaintext := []byte("Test message spanning more than one AES block of data")
	aad := []byte("additional data, 32 bytes long!!")

	ciphertext, tag, err := CCMSeal(key, nonce, plaintext, aad)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	t.Run("tampered ciphertext", func(t *testing.T) {
		c := append([]byte(nil), ciphertext...)
		c[0] ^= 0xFF
		if _, err := CCMOpen(key, nonce, c, tag, aad); err == nil {
			t.Error("expected authentication failure")
		}
	})

	t.Run("tampered tag", func(t *testing.T) {
		bad := append([]byte(nil), tag...)
		bad[0] ^= 0xFF
		if _, err := CCMOpen(key, nonce, ciphertext, bad, aad); err == nil {
			t.Error("expected authentication failure")
		}
	})

	t.Run("tampered aad", func(t *testing.T) {
		bad := append([]byte(nil), aad...)
		bad[0] ^= 0xFF
		if _, err := CCMOpen(key, nonce, ciphertext, tag, bad); err == nil {
			t.Error("expected authentication failure")
		}
	})
}
