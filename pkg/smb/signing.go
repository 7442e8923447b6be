package smb

import (
	"crypto/hmac"

	"github.com/ineffectivecoder/smb2client/internal/crypto"
	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
)

// SMB2 header signature field offset and size.
const (
	signatureOffset = 48
	signatureSize   = 16
)

// signMessage signs an SMB2 message and returns the signed copy: AES-CMAC
// for SMB3, HMAC-SHA256 for SMB 2.x.
func signMessage(dialect types.Dialect, signingKey []byte, message []byte) []byte {
	if len(signingKey) == 0 || len(message) < types.SMB2HeaderSize {
		return message
	}

	signed := make([]byte, len(message))
	copy(signed, message)
	for i := signatureOffset; i < signatureOffset+signatureSize; i++ {
		signed[i] = 0
	}

	signature := computeSignature(dialect, signingKey, signed)
	copy(signed[signatureOffset:signatureOffset+signatureSize], signature[:signatureSize])
	return signed
}

// verifySignature recomputes and constant-time compares a message's signature.
func verifySignature(dialect types.Dialect, signingKey []byte, message []byte) bool {
	if len(signingKey) == 0 || len(message) < types.SMB2HeaderSize {
		return false
	}

	expected := make([]byte, signatureSize)
	copy(expected, message[signatureOffset:signatureOffset+signatureSize])

	zeroed := make([]byte, len(message))
	copy(zeroed, message)
	for i := signatureOffset; i < signatureOffset+signatureSize; i++ {
		zeroed[i] = 0
	}

	computed := computeSignature(dialect, signingKey, zeroed)
	return hmac.Equal(expected, computed[:signatureSize])
}

// computeSignature picks AES-CMAC or HMAC-SHA256 per dialect. Per spec §9's
// resolution of the open question, SMB3 always uses AES-CMAC — never a
// HMAC-SHA256 placeholder.
func computeSignature(dialect types.Dialect, key, message []byte) []byte {
	if dialect >= types.DialectSMB3_0 {
		return crypto.AESCMAC(key, message)
	}
	return crypto.HMACSHA256(key, message)
}

// deriveSigningKey derives the SMB3 signing key via the SP800-108 KDF.
// SMB 2.x uses the session key directly with no derivation.
func deriveSigningKey(sessionKey []byte, dialect types.Dialect) []byte {
	if dialect < types.DialectSMB3_0 {
		return sessionKey
	}
	return crypto.KDFCounterMode(sessionKey, []byte("SMB2AESCMAC\x00"), []byte("ServerIn \x00"), 128)
}
