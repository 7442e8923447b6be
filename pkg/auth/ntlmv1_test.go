package auth

import (
	"encoding/hex"
	"testing"
)

func TestNTLMv1ResponseLength(t *testing.T) {
	ntHash := NTHash("Password1")
	challenge := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	resp := NTLMv1Response(ntHash, challenge)
	if len(resp) != 24 {
		t.Fatalf("expected 24-byte NTLMv1 response, got %d", len(resp))
	}
}

func TestNTLMv1ResponseDeterministic(t *testing.T) {
	ntHash := NTHash("hunter2")
	challenge := []byte{0xde, 0xad, 0xbe, 0xef, 0x11, 0x22, 0x33, 0x44}

	r1 := NTLMv1Response(ntHash, challenge)
	r2 := NTLMv1Response(ntHash, challenge)
	if hex.EncodeToString(r1) != hex.EncodeToString(r2) {
		t.Error("NTLMv1Response should be deterministic for the same inputs")
	}
}

func TestLMv1ResponseLength(t *testing.T) {
	challenge := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	resp := LMv1Response("Password1", challenge)
	if len(resp) != 24 {
		t.Fatalf("expected 24-byte LMv1 response, got %d", len(resp))
	}
}

func TestNTLMv1SessionBaseKeyLength(t *testing.T) {
	ntHash := NTHash("Password1")
	key := NTLMv1SessionBaseKey(ntHash)
	if len(key) != 16 {
		t.Fatalf("expected 16-byte session base key, got %d", len(key))
	}
}

func TestNTLM2SessionResponseShapes(t *testing.T) {
	ntHash := NTHash("Password1")
	serverChallenge := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	clientChallenge := GenerateClientChallenge()

	ntResp, lmResp, sessionKey := NTLM2SessionResponse(ntHash, serverChallenge, clientChallenge)

	if len(ntResp) != 24 {
		t.Errorf("expected 24-byte NT response, got %d", len(ntResp))
	}
	if len(lmResp) != 24 {
		t.Errorf("expected 24-byte LM response, got %d", len(lmResp))
	}
	if hex.EncodeToString(lmResp[:8]) != hex.EncodeToString(clientChallenge) {
		t.Error("LM response should start with the client challenge")
	}
	for _, b := range lmResp[8:] {
		if b != 0 {
			t.Error("LM response should be zero-padded after the client challenge")
			break
		}
	}
	if len(sessionKey) != 16 {
		t.Errorf("expected 16-byte session base key, got %d", len(sessionKey))
	}
}

func TestNTLM2SessionResponseDiffersFromClassic(t *testing.T) {
	ntHash := NTHash("Password1")
	serverChallenge := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	clientChallenge := []byte{8, 7, 6, 5, 4, 3, 2, 1}

	classic := NTLMv1Response(ntHash, serverChallenge)
	ntlm2, _, _ := NTLM2SessionResponse(ntHash, serverChallenge, clientChallenge)

	if hex.EncodeToString(classic) == hex.EncodeToString(ntlm2) {
		t.Error("NTLM2 Session Security response should differ from the classic response")
	}
}

func TestCredentialsAccessors(t *testing.T) {
	creds := NewPasswordCredentials("CORP", "alice", "Password1")
	if creds.IsHashAuth() {
		t.Error("password credentials should not report hash auth")
	}
	if creds.Domain() != "CORP" || creds.Username() != "alice" {
		t.Error("credential accessors returned wrong values")
	}

	hashCreds := NewHashCredentials("CORP", "bob", make([]byte, 16))
	if !hashCreds.IsHashAuth() {
		t.Error("hash credentials should report hash auth")
	}

	anon := NewAnonymousCredentials()
	if anon.Domain() != "" || anon.Username() != "" || anon.IsHashAuth() {
		t.Error("anonymous credentials should be empty and not hash-based")
	}
}

func TestNewAuthenticateMessageVersionSelection(t *testing.T) {
	baseOpts := AuthenticateOptions{
		Domain:   "CORP",
		Username: "alice",
		Password: "Password1",
	}

	cases := []struct {
		name           string
		extendedSecFlag uint32
		version        Version
		wantV2         bool
	}{
		{"auto without extended session security uses v1", 0, VersionAuto, false},
		{"auto with extended session security uses v2", NtlmsspNegotiateExtendedSessionSecurity, VersionAuto, true},
		{"forced v1 ignores extended session security", NtlmsspNegotiateExtendedSessionSecurity, VersionNTLMv1, false},
		{"forced v2 ignores lack of extended session security", 0, VersionNTLMv2, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			challenge := &ChallengeMessage{
				Signature:      ntlmSignature,
				MessageType:    NtLmChallenge,
				NegotiateFlags: tc.extendedSecFlag,
			}
			opts := baseOpts
			opts.Version = tc.version

			msg := NewAuthenticateMessage(challenge, opts)

			// NTLMv2 responses are always longer than 24 bytes (NTProofStr +
			// variable-length blob); the classic v1 response is exactly 24.
			gotV2 := len(msg.NtChallengeResponse) != 24
			if gotV2 != tc.wantV2 {
				t.Errorf("NtChallengeResponse length = %d, wantV2 = %v", len(msg.NtChallengeResponse), tc.wantV2)
			}
		})
	}
}
