package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"errors"
)

// ErrAuthenticationFailed is returned by CCMOpen when the authentication tag
// does not match the computed value.
var ErrAuthenticationFailed = errors.New("crypto: CCM authentication failed")

// CCMSeal encrypts plaintext under AES-128-CCM per RFC 3610, with the fixed
// SMB3 parameters: 16-byte key, 11-byte nonce, 16-byte tag. It returns the
// ciphertext and the authentication tag separately (SMB3 stores the tag in
// the Transform header rather than appending it to the ciphertext).
func CCMSeal(key, nonce, plaintext, aad []byte) (ciphertext, tag []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	const tagLen = 16
	l := 15 - len(nonce)

	t := ccmTag(block, nonce, plaintext, aad, tagLen, l)
	s0 := ccmCounterBlock(block, nonce, 0, l)
	tag = xorBytes(t, s0[:tagLen])

	ciphertext = ccmCTR(block, nonce, plaintext, l)
	return ciphertext, tag, nil
}

// CCMOpen decrypts and authenticates ciphertext under AES-128-CCM. It
// returns ErrAuthenticationFailed if the tag does not verify; the caller
// must discard the plaintext in that case.
func CCMOpen(key, nonce, ciphertext, tag, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	const tagLen = 16
	l := 15 - len(nonce)

	plaintext := ccmCTR(block, nonce, ciphertext, l)

	s0 := ccmCounterBlock(block, nonce, 0, l)
	t := xorBytes(tag, s0[:tagLen])
	expected := ccmTag(block, nonce, plaintext, aad, tagLen, l)

	if subtle.ConstantTimeCompare(t, expected) != 1 {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// ccmTag computes the CCM authentication tag via CBC-MAC over B_0, the
// length-prefixed and zero-padded AAD, and the zero-padded plaintext.
func ccmTag(block cipher.Block, nonce, plaintext, aad []byte, tagLen, l int) []byte {
	blockSize := block.BlockSize()

	flags := byte(0)
	if len(aad) > 0 {
		flags |= 0x40
	}
	flags |= byte(((tagLen-2)/2)&0x07) << 3
	flags |= byte((l - 1) & 0x07)

	b0 := make([]byte, blockSize)
	b0[0] = flags
	copy(b0[1:], nonce)

	msgLen := len(plaintext)
	for i := 0; i < l; i++ {
		b0[15-i] = byte(msgLen >> (8 * i))
	}

	x := make([]byte, blockSize)
	block.Encrypt(x, b0)

	if len(aad) > 0 {
		aadBlock := make([]byte, 0, blockSize+len(aad))
		if len(aad) < 65280 {
			aadBlock = append(aadBlock, byte(len(aad)>>8), byte(len(aad)))
		}
		aadBlock = append(aadBlock, aad...)
		for len(aadBlock)%blockSize != 0 {
			aadBlock = append(aadBlock, 0)
		}
		for i := 0; i < len(aadBlock); i += blockSize {
			for j := 0; j < blockSize; j++ {
				x[j] ^= aadBlock[i+j]
			}
			block.Encrypt(x, x)
		}
	}

	for i := 0; i < len(plaintext); i += blockSize {
		end := i + blockSize
		if end > len(plaintext) {
			padded := make([]byte, blockSize)
			copy(padded, plaintext[i:])
			for j := 0; j < blockSize; j++ {
				x[j] ^= padded[j]
			}
		} else {
			for j := 0; j < blockSize; j++ {
				x[j] ^= plaintext[i+j]
			}
		}
		block.Encrypt(x, x)
	}

	return x[:tagLen]
}

// ccmCounterBlock builds and encrypts counter block A_i = flags(1) || nonce
// || counter(L, big-endian), per RFC 3610 section 2.3.
func ccmCounterBlock(block cipher.Block, nonce []byte, counter uint64, l int) []byte {
	blockSize := block.BlockSize()
	a := make([]byte, blockSize)
	a[0] = byte((l - 1) & 0x07)
	copy(a[1:], nonce)
	for i := 0; i < l; i++ {
		a[15-i] = byte(counter >> (8 * i))
	}
	s := make([]byte, blockSize)
	block.Encrypt(s, a)
	return s
}

// ccmCTR XORs data against the CCM keystream generated from counters
// A_1, A_2, ... (A_0 is reserved for masking the tag).
func ccmCTR(block cipher.Block, nonce, data []byte, l int) []byte {
	blockSize := block.BlockSize()
	out := make([]byte, len(data))

	for i := 0; i < len(data); i += blockSize {
		counter := uint64(i/blockSize) + 1
		s := ccmCounterBlock(block, nonce, counter, l)

		end := i + blockSize
		if end > len(data) {
			end = len(data)
		}
		for j := i; j < end; j++ {
			out[j] = data[j] ^ s[j-i]
		}
	}

	return out
}
