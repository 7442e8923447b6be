package smb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ineffectivecoder/smb2client/pkg/auth"
	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
	"github.com/sirupsen/logrus"
)

// ntlmssp signature, used to locate the raw NTLMSSP blob inside a
// SESSION_SETUP security buffer. SPNEGO/Kerberos wrapping is out of
// scope: this client sends NTLMSSP messages directly.
var ntlmsspSignature = []byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}

// Session represents an authenticated SMB session.
type Session struct {
	transport       *Transport
	sessionID       uint64
	messageID       uint64
	requestTimeout  time.Duration
	signingRequired bool
	signingKey      []byte
	dialect         types.Dialect
	maxTransactSize uint32
	maxReadSize     uint32
	maxWriteSize    uint32
	ntlmVersion     auth.Version
	log             *logrus.Entry

	trees []*Tree

	// Encryption state (SMB 3.x). encryptionKey/decryptionKey are derived
	// once, at authentication, whenever the dialect and NTLM version allow
	// it, independent of encryptMessages: a share or a later ACCESS_DENIED
	// can turn encryption on after the fact, and by then the keys must
	// already exist.
	supportsEncryption bool   // Server advertised GlobalCapEncryption
	requireEncryption  bool   // Config forces encryption regardless
	encryptMessages    bool   // Whether to encrypt messages right now
	encryptionKey      []byte // Client->Server encryption key
	decryptionKey      []byte // Server->Client decryption key

	isAuthenticated bool
	isGuest         bool

	events eventBus
}

// OnEvent registers fn to run on every EventAuthenticate and EventLogoff
// this session emits.
func (s *Session) OnEvent(fn EventListener) {
	s.events.Subscribe(fn)
}

// SessionConfig configures session behavior.
type SessionConfig struct {
	RequireSigning    bool
	RequireEncryption bool // Force encryption for SMB 3.x
	RequestTimeout    time.Duration
	NTLMVersion       auth.Version
}

// NewSession creates a new session from a negotiation result.
func NewSession(transport *Transport, negResult *NegotiateResult) *Session {
	return NewSessionWithConfig(transport, negResult, SessionConfig{RequestTimeout: 30 * time.Second})
}

// NewSessionWithConfig creates a new session with explicit configuration.
func NewSessionWithConfig(transport *Transport, negResult *NegotiateResult, cfg SessionConfig) *Session {
	s := &Session{
		transport:       transport,
		signingRequired: negResult.RequiresSigning,
		dialect:         negResult.Dialect,
		maxTransactSize: negResult.MaxTransactSize,
		maxReadSize:     negResult.MaxReadSize,
		maxWriteSize:    negResult.MaxWriteSize,
		messageID:       1, // Negotiate used message ID 0
		requestTimeout:  cfg.RequestTimeout,
		ntlmVersion:     cfg.NTLMVersion,
		log:             logrus.WithField("component", "session"),
	}

	s.supportsEncryption = negResult.SupportsEncryption
	s.requireEncryption = cfg.RequireEncryption

	return s
}

// Authenticate performs the NTLM handshake described by MS-SMB2 3.2.5.3:
// two SESSION_SETUP round trips carrying the NTLMSSP NEGOTIATE and
// AUTHENTICATE messages, followed by signing/encryption key derivation.
func (s *Session) Authenticate(ctx context.Context, creds auth.Credentials, negResult *NegotiateResult) error {
	type1 := auth.NewNegotiateMessage()
	securityBuffer := type1.Marshal()

	req := types.NewSessionSetupRequest(securityBuffer)
	header := types.NewHeader(types.CommandSessionSetup, s.nextMessageID())

	resp, err := s.sendRecv(ctx, header, req.Marshal())
	if err != nil {
		return AuthenticationError("session setup (negotiate)", err)
	}

	var respHeader types.Header
	if err := respHeader.Unmarshal(resp[:types.SMB2HeaderSize]); err != nil {
		return ProtocolError("session setup (negotiate)", err)
	}
	if respHeader.Status != types.StatusMoreProcessingReq {
		return NewStatusError("session setup (negotiate)", respHeader.Status)
	}

	s.sessionID = respHeader.SessionID

	var setupResp types.SessionSetupResponse
	if err := setupResp.Unmarshal(resp[types.SMB2HeaderSize:]); err != nil {
		return ProtocolError("session setup (negotiate)", err)
	}

	challengeBytes := extractNTLMSSP(setupResp.SecurityBuffer)
	if challengeBytes == nil {
		return AuthenticationError("session setup (negotiate)", errors.New("no NTLMSSP challenge in response"))
	}

	challenge, err := auth.ParseChallengeMessage(challengeBytes)
	if err != nil {
		return AuthenticationError("session setup (negotiate)", err)
	}

	var authOpts auth.AuthenticateOptions
	authOpts.Domain = creds.Domain()
	authOpts.Username = creds.Username()
	authOpts.Workstation = "WORKSTATION"
	authOpts.Version = s.ntlmVersion

	switch c := creds.(type) {
	case *auth.PasswordCredentials:
		authOpts.Password = c.Password()
	case *auth.HashCredentials:
		authOpts.NTLMv2Hash = auth.NTLMv2Hash(c.NTHash(), c.Username(), c.Domain())
	case *auth.AnonymousCredentials:
		authOpts.Username = ""
		authOpts.Domain = ""
	}

	type3 := auth.NewAuthenticateMessage(challenge, authOpts)

	req2 := types.NewSessionSetupRequest(type3.Marshal())
	header2 := types.NewHeader(types.CommandSessionSetup, s.nextMessageID())
	header2.SessionID = s.sessionID

	resp2, err := s.sendRecv(ctx, header2, req2.Marshal())
	if err != nil {
		return AuthenticationError("session setup (authenticate)", err)
	}

	var respHeader2 types.Header
	if err := respHeader2.Unmarshal(resp2[:types.SMB2HeaderSize]); err != nil {
		return ProtocolError("session setup (authenticate)", err)
	}
	if !respHeader2.Status.IsSuccess() {
		return NewStatusError("session setup (authenticate)", respHeader2.Status)
	}

	var setupResp2 types.SessionSetupResponse
	if err := setupResp2.Unmarshal(resp2[types.SMB2HeaderSize:]); err != nil {
		return ProtocolError("session setup (authenticate)", err)
	}

	s.isAuthenticated = true
	s.isGuest = setupResp2.IsGuest()

	sessionBaseKey := type3.GetSessionBaseKey()

	if s.signingRequired {
		s.signingKey = deriveSigningKey(sessionBaseKey, s.dialect)
	}

	// Key derivation runs whenever the dialect and NTLM version support
	// it, regardless of whether encryption ends up enabled: the adaptive
	// retry in requestWithEncryptionRetry and the share-flags check in
	// TreeConnect both need the keys to already be in hand.
	if s.dialect >= types.DialectSMB3_0 && type3.IsNTLMv2() {
		s.encryptionKey = deriveEncryptionKey(sessionBaseKey, s.dialect)
		s.decryptionKey = deriveDecryptionKey(sessionBaseKey, s.dialect)
		s.installDecryptor()

		if s.supportsEncryption || s.requireEncryption {
			s.encryptMessages = true
		}
	}

	s.log.WithFields(logrus.Fields{
		"session_id": fmt.Sprintf("0x%016X", s.sessionID),
		"guest":      s.isGuest,
		"encrypted":  s.IsEncrypted(),
	}).Info("session established")
	s.events.emit(Event{Kind: EventAuthenticate, SessionID: s.sessionID})

	return nil
}

func (s *Session) installDecryptor() {
	key := s.decryptionKey
	s.transport.SetDecryptor(func(frame []byte) ([]byte, error) {
		return decryptMessage(key, frame)
	})
}

// sendRecv sends a request and returns the raw (already decrypted, if the
// wire message was encrypted) response bytes for the matching message ID.
// A session-level request timeout is applied on top of ctx.
func (s *Session) sendRecv(ctx context.Context, header *types.Header, payload []byte) ([]byte, error) {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	return s.doSendRecv(ctx, header, payload)
}

func (s *Session) doSendRecv(ctx context.Context, header *types.Header, payload []byte) ([]byte, error) {
	if s.signingRequired && len(s.signingKey) > 0 && s.isAuthenticated && !s.encryptMessages {
		header.Flags |= types.FlagsSigned
	}

	msg := append(header.Marshal(), payload...)

	if s.signingRequired && len(s.signingKey) > 0 && s.isAuthenticated && !s.encryptMessages {
		msg = signMessage(s.dialect, s.signingKey, msg)
	}

	if s.encryptMessages && len(s.encryptionKey) > 0 && s.isAuthenticated {
		encrypted, err := encryptMessage(s.encryptionKey, s.sessionID, msg)
		if err != nil {
			return nil, CryptographicError("encrypt request", err)
		}
		msg = encrypted
	}

	resp, err := s.transport.SendRequest(ctx, header.MessageID, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, TimeoutError(header.Command.String(), err)
		}
		return nil, TransportError(header.Command.String(), err)
	}

	if s.signingRequired && len(s.signingKey) > 0 && s.isAuthenticated && len(resp) >= types.SMB2HeaderSize {
		var respHeader types.Header
		if err := respHeader.Unmarshal(resp[:types.SMB2HeaderSize]); err == nil {
			if respHeader.Flags&types.FlagsSigned != 0 {
				if !verifySignature(s.dialect, s.signingKey, resp) {
					return nil, CryptographicError("verify response signature", errors.New("signature mismatch"))
				}
			}
		}
	}

	return resp, nil
}

// cancelRequest sends a CANCEL for an outstanding request identified by
// messageID. It does not wait for a response: the server either completes
// the original request with STATUS_CANCELLED or simply drops it.
func (s *Session) cancelRequest(messageID uint64, treeID uint32) {
	header := types.NewHeader(types.CommandCancel, messageID)
	header.SessionID = s.sessionID
	header.TreeID = treeID

	_ = s.sendOneWay(header, types.NewCancelRequest().Marshal())
}

// sendOneWay signs and encrypts msg like doSendRecv, then writes it
// without registering a pending waiter or blocking for a response.
// Used for CANCEL and for reissuing CHANGE_NOTIFY, whose response is
// correlated separately through the transport's notification waiters.
func (s *Session) sendOneWay(header *types.Header, payload []byte) error {
	if s.signingRequired && len(s.signingKey) > 0 && s.isAuthenticated && !s.encryptMessages {
		header.Flags |= types.FlagsSigned
	}

	msg := append(header.Marshal(), payload...)

	if s.signingRequired && len(s.signingKey) > 0 && s.isAuthenticated && !s.encryptMessages {
		msg = signMessage(s.dialect, s.signingKey, msg)
	}

	if s.encryptMessages && len(s.encryptionKey) > 0 && s.isAuthenticated {
		encrypted, err := encryptMessage(s.encryptionKey, s.sessionID, msg)
		if err != nil {
			return CryptographicError("encrypt request", err)
		}
		msg = encrypted
	}

	return s.transport.write(msg)
}

// requestWithEncryptionRetry runs op once, and if it fails with
// STATUS_ACCESS_DENIED on an SMB 3.x session that has encryption
// available but not yet enabled, retries once with encryption turned on.
// Some servers refuse to service unencrypted requests against shares
// that require encryption without saying so at tree connect time.
func (s *Session) requestWithEncryptionRetry(op func() ([]byte, error)) ([]byte, error) {
	resp, err := op()
	if err == nil {
		return resp, nil
	}

	var statusErr *Error
	if !errors.As(err, &statusErr) || statusErr.Status != types.StatusAccessDenied {
		return nil, err
	}
	if s.encryptMessages || s.dialect < types.DialectSMB3_0 || len(s.encryptionKey) == 0 {
		return nil, err
	}

	s.log.Warn("access denied, retrying with encryption enabled")
	s.encryptMessages = true
	s.installDecryptor()

	return op()
}

// nextMessageID returns the next message ID.
func (s *Session) nextMessageID() uint64 {
	return atomic.AddUint64(&s.messageID, 1) - 1
}

// SessionID returns the session ID.
func (s *Session) SessionID() uint64 {
	return s.sessionID
}

// IsAuthenticated returns true if authenticated.
func (s *Session) IsAuthenticated() bool {
	return s.isAuthenticated
}

// IsGuest returns true if this is a guest session.
func (s *Session) IsGuest() bool {
	return s.isGuest
}

// Dialect returns the negotiated dialect.
func (s *Session) Dialect() types.Dialect {
	return s.dialect
}

// MaxTransactSize returns the max transaction size.
func (s *Session) MaxTransactSize() uint32 {
	return s.maxTransactSize
}

// MaxReadSize returns the max read size.
func (s *Session) MaxReadSize() uint32 {
	return s.maxReadSize
}

// MaxWriteSize returns the max write size.
func (s *Session) MaxWriteSize() uint32 {
	return s.maxWriteSize
}

// IsEncrypted returns true if message encryption is enabled.
func (s *Session) IsEncrypted() bool {
	return s.encryptMessages && len(s.encryptionKey) > 0
}

// EnableEncryption enables message encryption for SMB 3.x sessions. This
// should be called after authentication if not automatically enabled.
func (s *Session) EnableEncryption() error {
	if s.dialect < types.DialectSMB3_0 {
		return UsageError("enable encryption", "encryption requires SMB 3.0 or later")
	}
	if len(s.encryptionKey) == 0 {
		return UsageError("enable encryption", "encryption keys not derived: authenticate first")
	}
	s.encryptMessages = true
	s.installDecryptor()
	return nil
}

// Close closes the session, cascading through every tree it still owns
// before sending LOGOFF.
func (s *Session) Close() error {
	if !s.isAuthenticated {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	for _, t := range append([]*Tree(nil), s.trees...) {
		s.TreeDisconnect(ctx, t)
	}
	s.trees = nil

	header := types.NewHeader(types.CommandLogoff, s.nextMessageID())
	header.SessionID = s.sessionID

	resp, err := s.sendRecv(ctx, header, types.NewLogoffRequest().Marshal())
	s.isAuthenticated = false
	if err != nil {
		return TransportError("logoff", err)
	}

	var respHeader types.Header
	if err := respHeader.Unmarshal(resp[:types.SMB2HeaderSize]); err != nil {
		return ProtocolError("logoff", err)
	}
	if !respHeader.Status.IsSuccess() {
		return NewStatusError("logoff", respHeader.Status)
	}

	s.log.WithField("session_id", fmt.Sprintf("0x%016X", s.sessionID)).Info("session logged off")
	s.events.emit(Event{Kind: EventLogoff, SessionID: s.sessionID})

	return nil
}

// extractNTLMSSP locates the raw NTLMSSP message inside a SESSION_SETUP
// security buffer. This client never wraps NTLMSSP in SPNEGO, so the
// buffer either starts with the signature or contains it verbatim.
func extractNTLMSSP(data []byte) []byte {
	for i := 0; i <= len(data)-8; i++ {
		if string(data[i:i+8]) == string(ntlmsspSignature) {
			return data[i:]
		}
	}
	return nil
}
