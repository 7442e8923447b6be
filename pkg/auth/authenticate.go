package auth

import (
	"github.com/ineffectivecoder/smb2client/internal/encoding"
)

// AuthenticateMessage represents NTLMSSP Type 3 message (AUTHENTICATE_MESSAGE)
type AuthenticateMessage struct {
	Signature                       [8]byte
	MessageType                     uint32 // Always 3
	LmChallengeResponseFields       SecurityBuffer
	NtChallengeResponseFields       SecurityBuffer
	DomainNameFields                SecurityBuffer
	UserNameFields                  SecurityBuffer
	WorkstationFields               SecurityBuffer
	EncryptedRandomSessionKeyFields SecurityBuffer
	NegotiateFlags                  uint32
	Version                         NTLMVersion
	MIC                             [16]byte

	// Payload data
	LmChallengeResponse       []byte
	NtChallengeResponse       []byte
	DomainName                []byte
	UserName                  []byte
	Workstation               []byte
	EncryptedRandomSessionKey []byte

	// For MIC calculation
	SessionBaseKey []byte

	// isNTLMv2 records which response scheme buildNTLMv1Response or
	// buildNTLMv2Response actually used, so callers deriving SMB3
	// encryption keys can tell a v1 session key from a v2 one.
	isNTLMv2 bool
}

// Version selects which NTLM response scheme NewAuthenticateMessage
// computes.
type Version int

const (
	// VersionAuto picks NTLMv2 when the server advertised extended
	// session security (the common case) and classic NTLMv1 otherwise.
	VersionAuto Version = iota
	// VersionNTLMv1 forces the classic (or NTLM2 Session Security, when
	// the server negotiated it) v1 response scheme.
	VersionNTLMv1
	// VersionNTLMv2 forces the NTLMv2 response scheme.
	VersionNTLMv2
)

// AuthenticateOptions configures Type 3 message generation
type AuthenticateOptions struct {
	Domain      string
	Username    string
	Workstation string
	NTLMv2Hash  []byte // Provide directly for pass-the-hash
	Password    string // Or provide password
	IncludeMIC  bool
	Version     Version
}

// NewAuthenticateMessage creates a Type 3 message
func NewAuthenticateMessage(challenge *ChallengeMessage, opts AuthenticateOptions) *AuthenticateMessage {
	m := &AuthenticateMessage{
		Signature:      ntlmSignature,
		MessageType:    NtLmAuthenticate,
		NegotiateFlags: challenge.NegotiateFlags,
		Version:        DefaultVersion(),
	}

	useV1 := opts.Version == VersionNTLMv1 ||
		(opts.Version == VersionAuto && challenge.NegotiateFlags&NtlmsspNegotiateExtendedSessionSecurity == 0 && len(opts.NTLMv2Hash) == 0)

	if useV1 {
		buildNTLMv1Response(m, challenge, opts)
	} else {
		buildNTLMv2Response(m, challenge, opts)
		m.isNTLMv2 = true
	}

	// Domain and username
	m.DomainName = encoding.ToUTF16LE(opts.Domain)
	m.UserName = encoding.ToUTF16LE(opts.Username)
	m.Workstation = encoding.ToUTF16LE(opts.Workstation)

	// Handle KEY_EXCH flag (0x40000000)
	// MS-NLMP says if set, encrypt a random key and send it. However,
	// in practice servers (at least Windows) appear to use sessionBaseKey directly
	// for SMB3 signing key derivation regardless of key exchange.
	// To maintain protocol compliance, we still send the encrypted key
	// but use sessionBaseKey for our signing operations.
	if m.NegotiateFlags&NtlmsspNegotiateKeyExchange != 0 {
		// Generate and encrypt random session key for protocol compliance
		exportedSessionKey := make([]byte, 16)
		randomBytes(exportedSessionKey)
		m.EncryptedRandomSessionKey = rc4Encrypt(m.SessionBaseKey, exportedSessionKey)
	} else {
		m.EncryptedRandomSessionKey = []byte{}
	}

	return m
}

// buildNTLMv2Response fills in the NT/LM challenge responses and session
// base key using the NTLMv2 scheme.
func buildNTLMv2Response(m *AuthenticateMessage, challenge *ChallengeMessage, opts AuthenticateOptions) {
	var ntlmv2Hash []byte
	if len(opts.NTLMv2Hash) > 0 {
		ntlmv2Hash = opts.NTLMv2Hash
	} else if opts.Password != "" {
		ntlmv2Hash = ComputeNTLMv2HashFromPassword(opts.Password, opts.Username, opts.Domain)
	}

	clientChallenge := GenerateClientChallenge()
	timestamp := challenge.GetTimestamp()

	ntResponse, sessionBaseKey := NTLMv2Response(
		ntlmv2Hash,
		challenge.ServerChallenge[:],
		clientChallenge,
		timestamp,
		challenge.TargetInfo,
	)
	m.NtChallengeResponse = ntResponse
	m.SessionBaseKey = sessionBaseKey
	m.LmChallengeResponse = LMv2Response(ntlmv2Hash, challenge.ServerChallenge[:], clientChallenge)
}

// buildNTLMv1Response fills in the NT/LM challenge responses and session
// base key using the classic NTLMv1 scheme, or its NTLM2 Session Security
// variant when the server negotiated extended session security.
func buildNTLMv1Response(m *AuthenticateMessage, challenge *ChallengeMessage, opts AuthenticateOptions) {
	ntHash := NTHash(opts.Password)

	if challenge.NegotiateFlags&NtlmsspNegotiateExtendedSessionSecurity != 0 {
		clientChallenge := GenerateClientChallenge()
		ntResponse, lmResponse, sessionBaseKey := NTLM2SessionResponse(ntHash, challenge.ServerChallenge[:], clientChallenge)
		m.NtChallengeResponse = ntResponse
		m.LmChallengeResponse = lmResponse
		m.SessionBaseKey = sessionBaseKey
		return
	}

	m.NtChallengeResponse = NTLMv1Response(ntHash, challenge.ServerChallenge[:])
	m.LmChallengeResponse = LMv1Response(opts.Password, challenge.ServerChallenge[:])
	m.SessionBaseKey = NTLMv1SessionBaseKey(ntHash)
}

// Marshal serializes the Type 3 message
func (m *AuthenticateMessage) Marshal() []byte {
	// Calculate payload offsets
	// Fixed part: 88 bytes (with MIC) or 72 bytes (without MIC)
	fixedLen := 88 // Including MIC

	// Build payload and calculate offsets
	payloadOffset := uint32(fixedLen)

	// LmChallengeResponse
	m.LmChallengeResponseFields.Len = uint16(len(m.LmChallengeResponse))
	m.LmChallengeResponseFields.MaxLen = uint16(len(m.LmChallengeResponse))
	m.LmChallengeResponseFields.Offset = payloadOffset
	payloadOffset += uint32(len(m.LmChallengeResponse))

	// NtChallengeResponse
	m.NtChallengeResponseFields.Len = uint16(len(m.NtChallengeResponse))
	m.NtChallengeResponseFields.MaxLen = uint16(len(m.NtChallengeResponse))
	m.NtChallengeResponseFields.Offset = payloadOffset
	payloadOffset += uint32(len(m.NtChallengeResponse))

	// DomainName
	m.DomainNameFields.Len = uint16(len(m.DomainName))
	m.DomainNameFields.MaxLen = uint16(len(m.DomainName))
	m.DomainNameFields.Offset = payloadOffset
	payloadOffset += uint32(len(m.DomainName))

	// UserName
	m.UserNameFields.Len = uint16(len(m.UserName))
	m.UserNameFields.MaxLen = uint16(len(m.UserName))
	m.UserNameFields.Offset = payloadOffset
	payloadOffset += uint32(len(m.UserName))

	// Workstation
	m.WorkstationFields.Len = uint16(len(m.Workstation))
	m.WorkstationFields.MaxLen = uint16(len(m.Workstation))
	m.WorkstationFields.Offset = payloadOffset
	payloadOffset += uint32(len(m.Workstation))

	// EncryptedRandomSessionKey
	m.EncryptedRandomSessionKeyFields.Len = uint16(len(m.EncryptedRandomSessionKey))
	m.EncryptedRandomSessionKeyFields.MaxLen = uint16(len(m.EncryptedRandomSessionKey))
	m.EncryptedRandomSessionKeyFields.Offset = payloadOffset

	// Allocate buffer
	totalLen := int(payloadOffset) + len(m.EncryptedRandomSessionKey)
	buf := make([]byte, totalLen)

	// Write fixed part
	offset := 0

	// Signature (8 bytes)
	copy(buf[offset:offset+8], m.Signature[:])
	offset += 8

	// MessageType (4 bytes)
	encoding.PutUint32LE(buf[offset:offset+4], m.MessageType)
	offset += 4

	// LmChallengeResponseFields (8 bytes)
	encoding.PutUint16LE(buf[offset:offset+2], m.LmChallengeResponseFields.Len)
	encoding.PutUint16LE(buf[offset+2:offset+4], m.LmChallengeResponseFields.MaxLen)
	encoding.PutUint32LE(buf[offset+4:offset+8], m.LmChallengeResponseFields.Offset)
	offset += 8

	// NtChallengeResponseFields (8 bytes)
	encoding.PutUint16LE(buf[offset:offset+2], m.NtChallengeResponseFields.Len)
	encoding.PutUint16LE(buf[offset+2:offset+4], m.NtChallengeResponseFields.MaxLen)
	encoding.PutUint32LE(buf[offset+4:offset+8], m.NtChallengeResponseFields.Offset)
	offset += 8

	// DomainNameFields (8 bytes)
	encoding.PutUint16LE(buf[offset:offset+2], m.DomainNameFields.Len)
	encoding.PutUint16LE(buf[offset+2:offset+4], m.DomainNameFields.MaxLen)
	encoding.PutUint32LE(buf[offset+4:offset+8], m.DomainNameFields.Offset)
	offset += 8

	// UserNameFields (8 bytes)
	encoding.PutUint16LE(buf[offset:offset+2], m.UserNameFields.Len)
	encoding.PutUint16LE(buf[offset+2:offset+4], m.UserNameFields.MaxLen)
	encoding.PutUint32LE(buf[offset+4:offset+8], m.UserNameFields.Offset)
	offset += 8

	// WorkstationFields (8 bytes)
	encoding.PutUint16LE(buf[offset:offset+2], m.WorkstationFields.Len)
	encoding.PutUint16LE(buf[offset+2:offset+4], m.WorkstationFields.MaxLen)
	encoding.PutUint32LE(buf[offset+4:offset+8], m.WorkstationFields.Offset)
	offset += 8

	// EncryptedRandomSessionKeyFields (8 bytes)
	encoding.PutUint16LE(buf[offset:offset+2], m.EncryptedRandomSessionKeyFields.Len)
	encoding.PutUint16LE(buf[offset+2:offset+4], m.EncryptedRandomSessionKeyFields.MaxLen)
	encoding.PutUint32LE(buf[offset+4:offset+8], m.EncryptedRandomSessionKeyFields.Offset)
	offset += 8

	// NegotiateFlags (4 bytes)
	encoding.PutUint32LE(buf[offset:offset+4], m.NegotiateFlags)
	offset += 4

	// Version (8 bytes)
	copy(buf[offset:offset+8], m.Version.Marshal())
	offset += 8

	// MIC (16 bytes) - initially zero, can be computed later
	copy(buf[offset:offset+16], m.MIC[:])
	offset += 16

	// Payload
	copy(buf[m.LmChallengeResponseFields.Offset:], m.LmChallengeResponse)
	copy(buf[m.NtChallengeResponseFields.Offset:], m.NtChallengeResponse)
	copy(buf[m.DomainNameFields.Offset:], m.DomainName)
	copy(buf[m.UserNameFields.Offset:], m.UserName)
	copy(buf[m.WorkstationFields.Offset:], m.Workstation)
	if len(m.EncryptedRandomSessionKey) > 0 {
		copy(buf[m.EncryptedRandomSessionKeyFields.Offset:], m.EncryptedRandomSessionKey)
	}

	return buf
}

// GetSessionBaseKey returns the session base key for signing/encryption
func (m *AuthenticateMessage) GetSessionBaseKey() []byte {
	return m.SessionBaseKey
}

// IsNTLMv2 reports whether this message's session base key came from the
// NTLMv2 response scheme. SMB3 encryption/signing key derivation requires
// a v2 session key; a v1 session base key is only ever used for signing.
func (m *AuthenticateMessage) IsNTLMv2() bool {
	return m.isNTLMv2
}
