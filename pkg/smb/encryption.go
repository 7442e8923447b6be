package smb

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ineffectivecoder/smb2client/internal/crypto"
	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
)

// Encryption cipher identifiers. GCM is enumerated only so a server's
// Negotiate response can be parsed without error; SMB 3.1.1 cipher
// negotiation is out of scope and the client never selects it.
const (
	EncryptionAES128CCM uint16 = 0x0001 // SMB 3.0/3.0.2
	EncryptionAES128GCM uint16 = 0x0002 // SMB 3.1.1, unsupported
)

// TransformHeaderSize is the fixed size of the SMB2_TRANSFORM_HEADER.
const TransformHeaderSize = 52

// SMB2TransformID is the protocol identifier that marks an encrypted message.
var SMB2TransformID = [4]byte{0xFD, 'S', 'M', 'B'}

// TransformHeader is the 52-byte envelope wrapping an encrypted SMB2 message.
// See MS-SMB2 section 2.2.41 and spec §3/§4.7.
type TransformHeader struct {
	ProtocolID          [4]byte
	Signature           [16]byte // the CCM authentication tag, never a separate CMAC
	Nonce                [16]byte // 11 bytes used as the CCM nonce, remainder zero
	OriginalMessageSize uint32
	Reserved            uint16
	Flags               uint16
	SessionID           uint64
}

// Marshal serializes the transform header.
func (h *TransformHeader) Marshal() []byte {
	buf := make([]byte, TransformHeaderSize)
	copy(buf[0:4], h.ProtocolID[:])
	copy(buf[4:20], h.Signature[:])
	copy(buf[20:36], h.Nonce[:])
	binary.LittleEndian.PutUint32(buf[36:40], h.OriginalMessageSize)
	binary.LittleEndian.PutUint16(buf[40:42], h.Reserved)
	binary.LittleEndian.PutUint16(buf[42:44], h.Flags)
	binary.LittleEndian.PutUint64(buf[44:52], h.SessionID)
	return buf
}

// Unmarshal deserializes a transform header.
func (h *TransformHeader) Unmarshal(buf []byte) error {
	if len(buf) < TransformHeaderSize {
		return errors.New("buffer too small for transform header")
	}
	copy(h.ProtocolID[:], buf[0:4])
	if h.ProtocolID != SMB2TransformID {
		return errors.New("invalid transform header protocol ID")
	}
	copy(h.Signature[:], buf[4:20])
	copy(h.Nonce[:], buf[20:36])
	h.OriginalMessageSize = binary.LittleEndian.Uint32(buf[36:40])
	h.Reserved = binary.LittleEndian.Uint16(buf[40:42])
	h.Flags = binary.LittleEndian.Uint16(buf[42:44])
	h.SessionID = binary.LittleEndian.Uint64(buf[44:52])
	return nil
}

// isEncryptedMessage reports whether msg begins with the Transform protocol ID.
func isEncryptedMessage(msg []byte) bool {
	if len(msg) < 4 {
		return false
	}
	return msg[0] == 0xFD && msg[1] == 'S' && msg[2] == 'M' && msg[3] == 'B'
}

// encryptMessage wraps plaintext (an SMB2 header+body) in a Transform
// envelope encrypted under AES-128-CCM, per spec §4.7 "Outbound".
func encryptMessage(key []byte, sessionID uint64, plaintext []byte) ([]byte, error) {
	if len(key) < 16 {
		return nil, errors.New("encryption key too short")
	}

	var nonce [16]byte
	if _, err := rand.Read(nonce[:11]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	header := TransformHeader{
		ProtocolID:          SMB2TransformID,
		Nonce:               nonce,
		OriginalMessageSize: uint32(len(plaintext)),
		Flags:               0x0001,
		SessionID:           sessionID,
	}

	aad := header.Marshal()[20:TransformHeaderSize]

	ciphertext, tag, err := crypto.CCMSeal(key[:16], nonce[:11], plaintext, aad)
	if err != nil {
		return nil, err
	}
	copy(header.Signature[:], tag)

	result := make([]byte, TransformHeaderSize+len(ciphertext))
	copy(result[0:TransformHeaderSize], header.Marshal())
	copy(result[TransformHeaderSize:], ciphertext)
	return result, nil
}

// decryptMessage parses a Transform envelope and decrypts+verifies its
// ciphertext under AES-128-CCM, per spec §4.7 "Inbound".
func decryptMessage(key []byte, encrypted []byte) ([]byte, error) {
	if len(key) < 16 {
		return nil, errors.New("decryption key too short")
	}
	if len(encrypted) < TransformHeaderSize {
		return nil, errors.New("encrypted message too short")
	}

	var header TransformHeader
	if err := header.Unmarshal(encrypted[:TransformHeaderSize]); err != nil {
		return nil, err
	}

	ciphertext := encrypted[TransformHeaderSize:]
	aad := encrypted[20:TransformHeaderSize]

	plaintext, err := crypto.CCMOpen(key[:16], header.Nonce[:11], ciphertext, header.Signature[:], aad)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// deriveEncryptionKey derives the client-to-server (ServerIn) encryption key.
func deriveEncryptionKey(sessionKey []byte, dialect types.Dialect) []byte {
	if dialect < types.DialectSMB3_0 {
		return nil
	}
	return crypto.KDFCounterMode(sessionKey, []byte("SMB2AESCCM\x00"), []byte("ServerIn \x00"), 128)
}

// deriveDecryptionKey derives the server-to-client (ServerOut) decryption key.
func deriveDecryptionKey(sessionKey []byte, dialect types.Dialect) []byte {
	if dialect < types.DialectSMB3_0 {
		return nil
	}
	return crypto.KDFCounterMode(sessionKey, []byte("SMB2AESCCM\x00"), []byte("ServerOut \x00"), 128)
}
