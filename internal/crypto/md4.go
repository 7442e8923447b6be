// Package crypto provides cryptographic primitives for NTLM authentication
// and the SMB3 secure channel: MD4/HMAC-MD5 for NTLM, DES for NTLMv1
// responses, AES-CMAC for SMB3 signing, SP800-108 KDF for key derivation,
// and AES-CCM for Transform encryption.
package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"

	"golang.org/x/crypto/md4"
)

// MD4Hash computes the MD4 hash of data. Used as NTOWFv1 over UTF-16LE(password).
func MD4Hash(data []byte) []byte {
	h := md4.New()
	h.Write(data)
	return h.Sum(nil)
}

// HMACMD5 computes HMAC-MD5, the building block of NTOWFv2 and the NTLMv2 responses.
func HMACMD5(key, data []byte) []byte {
	h := hmac.New(md5.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// HMACSHA256 computes HMAC-SHA256, used by the SP800-108 KDF and SMB2 (non-CMAC) signing.
func HMACSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
