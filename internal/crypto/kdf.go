package crypto

// KDFCounterMode implements the NIST SP800-108 counter-mode KDF with
// HMAC-SHA256 used to derive the SMB3 signing, encryption, and decryption
// keys from a session key: K(1) = HMAC-SHA256(KI, [1]_be32 || Label || 0x00
// || Context || [L]_be32), truncated to L/8 bytes.
func KDFCounterMode(ki, label, context []byte, bitLen int) []byte {
	input := make([]byte, 0, 4+len(label)+1+len(context)+4)
	input = append(input, 0x00, 0x00, 0x00, 0x01)
	input = append(input, label...)
	input = append(input, 0x00)
	input = append(input, context...)

	l := uint32(bitLen)
	input = append(input, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))

	result := HMACSHA256(ki, input)
	return result[:bitLen/8]
}
