package smb

import (
	"fmt"

	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
)

// ErrorKind classifies an Error by which layer of the client detected it,
// so callers can branch on failure category without string matching.
type ErrorKind int

const (
	// KindTransport covers TCP/SOCKS5 dial, read, and write failures.
	KindTransport ErrorKind = iota
	// KindFraming covers malformed NetBIOS or SMB2 framing.
	KindFraming
	// KindProtocol covers well-formed messages the server rejected, or
	// responses that don't parse as the expected structure.
	KindProtocol
	// KindAuthentication covers NTLM handshake and logon failures.
	KindAuthentication
	// KindCryptographic covers signature verification and Transform
	// decryption/authentication failures.
	KindCryptographic
	// KindUsage covers programmer errors: calling a method on a closed
	// handle, an unauthenticated session, and the like.
	KindUsage
	// KindTimeout covers a request that never received its response
	// within its deadline.
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFraming:
		return "framing"
	case KindProtocol:
		return "protocol"
	case KindAuthentication:
		return "authentication"
	case KindCryptographic:
		return "cryptographic"
	case KindUsage:
		return "usage"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the error type this package uses for classified failures. Not
// every failure is an Error: some operations wrap one with extra context
// via fmt.Errorf, and some return plain errors, so use errors.As to find
// one. Kind() lets callers branch on failure category; Status carries
// the NT status code when the failure came from a server response.
type Error struct {
	kind    ErrorKind
	op      string
	Status  types.NTStatus
	message string
	err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("smb: %s: %s (0x%08X)", e.op, e.message, uint32(e.Status))
	}
	if e.err != nil {
		return fmt.Sprintf("smb: %s: %s: %v", e.op, e.message, e.err)
	}
	return fmt.Sprintf("smb: %s: %s", e.op, e.message)
}

// Kind reports which layer produced the error.
func (e *Error) Kind() ErrorKind {
	return e.kind
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is lets errors.Is match on NT status: errors.Is(err, ErrAccessDenied)
// succeeds for any Error carrying that status, not just the sentinel.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	if other.Status != 0 {
		return e.Status == other.Status
	}
	return e == other
}

func newError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{kind: kind, op: op, message: message, err: err}
}

// TransportError reports a connection-level failure.
func TransportError(op string, err error) *Error {
	return newError(KindTransport, op, "transport failure", err)
}

// FramingError reports malformed wire framing.
func FramingError(op string, err error) *Error {
	return newError(KindFraming, op, "framing error", err)
}

// ProtocolError reports a malformed or unexpected protocol message.
func ProtocolError(op string, err error) *Error {
	return newError(KindProtocol, op, "protocol error", err)
}

// AuthenticationError reports an NTLM handshake or logon failure.
func AuthenticationError(op string, err error) *Error {
	return newError(KindAuthentication, op, "authentication failed", err)
}

// CryptographicError reports a signature or Transform verification
// failure.
func CryptographicError(op string, err error) *Error {
	return newError(KindCryptographic, op, "cryptographic verification failed", err)
}

// UsageError reports a precondition violated by the caller.
func UsageError(op, message string) *Error {
	return newError(KindUsage, op, message, nil)
}

// TimeoutError reports a request that never completed in time.
func TimeoutError(op string, err error) *Error {
	return newError(KindTimeout, op, "request timed out", err)
}

// NewStatusError wraps an NT status code returned by the server, tagged
// with the status so errors.Is can match it regardless of message text.
func NewStatusError(op string, status types.NTStatus) *Error {
	kind := KindProtocol
	switch status {
	case types.StatusLogonFailure, types.StatusAccountDisabled, types.StatusPasswordExpired:
		kind = KindAuthentication
	}
	return &Error{kind: kind, op: op, Status: status, message: statusName(status)}
}

func statusName(status types.NTStatus) string {
	switch status {
	case types.StatusSuccess:
		return "STATUS_SUCCESS"
	case types.StatusMoreProcessingReq:
		return "STATUS_MORE_PROCESSING_REQUIRED"
	case types.StatusInvalidParameter:
		return "STATUS_INVALID_PARAMETER"
	case types.StatusNoSuchFile:
		return "STATUS_NO_SUCH_FILE"
	case types.StatusEndOfFile:
		return "STATUS_END_OF_FILE"
	case types.StatusAccessDenied:
		return "STATUS_ACCESS_DENIED"
	case types.StatusObjectNameNotFound:
		return "STATUS_OBJECT_NAME_NOT_FOUND"
	case types.StatusObjectNameCollision:
		return "STATUS_OBJECT_NAME_COLLISION"
	case types.StatusObjectPathNotFound:
		return "STATUS_OBJECT_PATH_NOT_FOUND"
	case types.StatusLogonFailure:
		return "STATUS_LOGON_FAILURE"
	case types.StatusAccountDisabled:
		return "STATUS_ACCOUNT_DISABLED"
	case types.StatusPasswordExpired:
		return "STATUS_PASSWORD_EXPIRED"
	case types.StatusBadNetworkName:
		return "STATUS_BAD_NETWORK_NAME"
	case types.StatusNotSupported:
		return "STATUS_NOT_SUPPORTED"
	case types.StatusNetworkSessionExpired:
		return "STATUS_NETWORK_SESSION_EXPIRED"
	case types.StatusNoMoreFiles:
		return "STATUS_NO_MORE_FILES"
	case types.StatusFileClosed:
		return "STATUS_FILE_CLOSED"
	case types.StatusSharingViolation:
		return "STATUS_SHARING_VIOLATION"
	default:
		return "UNKNOWN"
	}
}

// Sentinel errors kept for convenient comparison at call sites.
var (
	ErrNotConnected   = UsageError("client", "not connected")
	ErrNotSupported   = UsageError("client", "operation not supported")
	ErrAccessDenied   = NewStatusError("request", types.StatusAccessDenied)
	ErrNotFound       = NewStatusError("request", types.StatusObjectNameNotFound)
	ErrAlreadyExists  = NewStatusError("request", types.StatusObjectNameCollision)
	ErrAuthFailed     = NewStatusError("authenticate", types.StatusLogonFailure)
	ErrSessionExpired = NewStatusError("request", types.StatusNetworkSessionExpired)
	ErrBadNetworkName = NewStatusError("tree connect", types.StatusBadNetworkName)
)

// StatusToError converts an NT status to an appropriate Go error, or nil
// if the status indicates success.
func StatusToError(status types.NTStatus) error {
	if status.IsSuccess() {
		return nil
	}

	switch status {
	case types.StatusAccessDenied:
		return ErrAccessDenied
	case types.StatusNoSuchFile, types.StatusObjectNameNotFound, types.StatusObjectPathNotFound:
		return ErrNotFound
	case types.StatusObjectNameCollision:
		return ErrAlreadyExists
	case types.StatusLogonFailure, types.StatusAccountDisabled, types.StatusPasswordExpired:
		return ErrAuthFailed
	case types.StatusBadNetworkName:
		return ErrBadNetworkName
	case types.StatusNetworkSessionExpired:
		return ErrSessionExpired
	case types.StatusNotSupported:
		return ErrNotSupported
	default:
		return NewStatusError("request", status)
	}
}
