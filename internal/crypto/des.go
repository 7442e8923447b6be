package crypto

import (
	"crypto/des"
	"strings"
)

// lmMagic is the fixed plaintext DES-encrypted twice to form the LM hash.
var lmMagic = []byte("KGS!@#$%")

// LMHash computes the LAN Manager hash of a password: uppercase, right-pad/
// truncate to 14 ASCII bytes, split into two 7-byte halves, each expanded to
// an 8-byte DES key and used to encrypt the fixed constant "KGS!@#$%".
func LMHash(password string) []byte {
	upper := strings.ToUpper(password)
	padded := make([]byte, 14)
	copy(padded, []byte(upper))
	if len(upper) > 14 {
		copy(padded, []byte(upper)[:14])
	}

	out := make([]byte, 16)
	copy(out[0:8], desEncryptBlock(expandDESKey(padded[0:7]), lmMagic))
	copy(out[8:16], desEncryptBlock(expandDESKey(padded[7:14]), lmMagic))
	return out
}

// DESResponse computes the classic NTLMv1 24-byte challenge response: the
// 16-byte hash is zero-padded to 21 bytes, split into three 7-byte parts,
// each expanded to a DES key that encrypts the first 8 bytes of the server
// challenge; the three 8-byte ciphertexts are concatenated.
func DESResponse(hash []byte, challenge []byte) []byte {
	padded := make([]byte, 21)
	copy(padded, hash)

	block := make([]byte, 8)
	copy(block, challenge)

	resp := make([]byte, 24)
	copy(resp[0:8], desEncryptBlock(expandDESKey(padded[0:7]), block))
	copy(resp[8:16], desEncryptBlock(expandDESKey(padded[7:14]), block))
	copy(resp[16:24], desEncryptBlock(expandDESKey(padded[14:21]), block))
	return resp
}

// expandDESKey expands a 7-byte key into an 8-byte DES key by inserting an
// odd-parity bit after every 7 data bits (the low bit of each output byte is
// unused by DES for keying purposes; it is still set so that each byte has
// odd parity).
func expandDESKey(key7 []byte) []byte {
	key8 := make([]byte, 8)
	key8[0] = key7[0] >> 1
	key8[1] = ((key7[0] << 6) | (key7[1] >> 2)) & 0xFF
	key8[2] = ((key7[1] << 5) | (key7[2] >> 3)) & 0xFF
	key8[3] = ((key7[2] << 4) | (key7[3] >> 4)) & 0xFF
	key8[4] = ((key7[3] << 3) | (key7[4] >> 5)) & 0xFF
	key8[5] = ((key7[4] << 2) | (key7[5] >> 6)) & 0xFF
	key8[6] = ((key7[5] << 1) | (key7[6] >> 7)) & 0xFF
	key8[7] = key7[6] & 0x7F

	for i := range key8 {
		key8[i] = (key8[i] << 1) & 0xFE
		key8[i] |= oddParity(key8[i])
	}
	return key8
}

// oddParity returns the bit that makes b's low 7 bits (already shifted into
// place) have odd parity when placed in bit 0.
func oddParity(b byte) byte {
	count := 0
	for i := 1; i < 8; i++ {
		if b&(1<<uint(i)) != 0 {
			count++
		}
	}
	if count%2 == 0 {
		return 1
	}
	return 0
}

// desEncryptBlock DES-encrypts a single 8-byte block with the given 8-byte key.
func desEncryptBlock(key8, block []byte) []byte {
	c, err := des.NewCipher(key8)
	if err != nil {
		return make([]byte, 8)
	}
	out := make([]byte, 8)
	c.Encrypt(out, block)
	return out
}
