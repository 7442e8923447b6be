package crypto

import (
	"encoding/hex"
	"testing"
)

// TestLMHashEmptyPassword checks the well-known LM hash of an empty password.
func TestLMHashEmptyPassword(t *testing.T) {
	got := LMHash("")
	want, _ := hex.DecodeString("aad3b435b51404eeaad3b435b51404ee")

	if hex.EncodeToString(got) != hex.EncodeToString(want) {
		t.Errorf("LMHash(\"\") = %x, want %x", got, want)
	}
}

func TestDESResponseLength(t *testing.T) {
	hash := make([]byte, 16)
	challenge := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	resp := DESResponse(hash, challenge)
	if len(resp) != 24 {
		t.Errorf("expected 24-byte response, got %d", len(resp))
	}
}

func TestDESResponseDeterministic(t *testing.T) {
	hash := make([]byte, 16)
	for i := range hash {
		hash[i] = byte(i)
	}
	challenge := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22}

	r1 := DESResponse(hash, challenge)
	r2 := DESResponse(hash, challenge)
	if hex.EncodeToString(r1) != hex.EncodeToString(r2) {
		t.Error("DESResponse should be deterministic")
	}
}
