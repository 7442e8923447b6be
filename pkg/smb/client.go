// Package smb provides SMB2/SMB3 client functionality.
//
// This package implements the core SMB protocol operations including:
//   - Connection establishment with dialect negotiation
//   - NTLM/NTLMv2 authentication (password and pass-the-hash)
//   - Share (tree) connection and disconnection
//   - File and directory operations
//   - Named pipe operations
//
// Basic usage:
//
//	client := smb.NewClient()
//	if err := client.Connect(ctx, "192.168.1.100", 445); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	creds := auth.NewPasswordCredentials("DOMAIN", "user", "password")
//	if err := client.Authenticate(ctx, creds); err != nil {
//	    log.Fatal(err)
//	}
//
//	tree, err := client.TreeConnect(ctx, "C$")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.TreeDisconnect(ctx, tree)
package smb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ineffectivecoder/smb2client/pkg/auth"
	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
	"github.com/sirupsen/logrus"
)

// Client represents an SMB2/SMB3 client.
type Client struct {
	config    ClientConfig
	transport *Transport
	session   *Session
	negResult *NegotiateResult
	ipcTree   *Tree // Cached IPC$ tree for RPC operations
	log       *logrus.Entry
	events    eventBus
}

// OnEvent registers fn to run on every EventError and EventChangeNotify
// this client emits.
func (c *Client) OnEvent(fn EventListener) {
	c.events.Subscribe(fn)
}

// ClientConfig configures client behavior.
type ClientConfig struct {
	Timeout          time.Duration
	RequestTimeout   time.Duration // Per-request deadline, applied after connect
	PreferredDialect types.Dialect
	RequireSigning   bool
	RequireEncryption bool
	MaxCredits       uint16
	Socks5URL        string       // SOCKS5 proxy URL (e.g., "socks5://127.0.0.1:1080")
	ForceNtlmVersion auth.Version // Force NTLMv1 or NTLMv2, or leave VersionAuto
	Logger           *logrus.Logger
}

// DefaultClientConfig returns default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:        30 * time.Second,
		RequestTimeout: 30 * time.Second,
		MaxCredits:     128,
	}
}

// NewClient creates a new SMB client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultClientConfig())
}

// NewClientWithConfig creates a new SMB client with custom configuration.
func NewClientWithConfig(config ClientConfig) *Client {
	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		config: config,
		log:    logger.WithField("component", "client"),
	}
}

// Connect establishes a connection to an SMB server.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	transport, err := DialWithConfig(ctx, host, port, TransportConfig{
		Timeout:   c.config.Timeout,
		Socks5URL: c.config.Socks5URL,
	})
	if err != nil {
		return TransportError("connect", err)
	}
	c.transport = transport
	c.transport.SetErrorHandler(func(err error) {
		c.log.WithError(err).Error("transport failed")
		c.events.emit(Event{Kind: EventError, Err: err})
	})
	c.transport.SetNotificationHandler(c.handleNotification)

	negotiator := NewNegotiator(transport)
	negResult, err := negotiator.Negotiate(ctx)
	if err != nil {
		c.transport.Close()
		c.transport = nil
		return ProtocolError("negotiate", err)
	}
	c.negResult = negResult

	c.log.WithFields(logrus.Fields{
		"host":    host,
		"port":    port,
		"dialect": DialectName(negResult.Dialect),
	}).Info("connected")

	return nil
}

// Authenticate performs the NTLM handshake against the negotiated session.
func (c *Client) Authenticate(ctx context.Context, creds auth.Credentials) error {
	if c.transport == nil || c.negResult == nil {
		return ErrNotConnected
	}

	c.session = NewSessionWithConfig(c.transport, c.negResult, SessionConfig{
		RequireSigning:    c.config.RequireSigning,
		RequireEncryption: c.config.RequireEncryption,
		RequestTimeout:    c.config.RequestTimeout,
		NTLMVersion:       c.config.ForceNtlmVersion,
	})

	if err := c.session.Authenticate(ctx, creds, c.negResult); err != nil {
		return err
	}

	return nil
}

// TreeConnect connects to a share.
func (c *Client) TreeConnect(ctx context.Context, shareName string) (*Tree, error) {
	if c.session == nil || !c.session.IsAuthenticated() {
		return nil, ErrNotConnected
	}

	return c.session.TreeConnect(ctx, shareName)
}

// TreeDisconnect disconnects from a share.
func (c *Client) TreeDisconnect(ctx context.Context, tree *Tree) error {
	if c.session == nil {
		return nil
	}

	// Don't disconnect the cached IPC$ tree
	if tree == c.ipcTree {
		return nil
	}

	return c.session.TreeDisconnect(ctx, tree)
}

// GetIPCTree returns an IPC$ tree connection for RPC operations. Each call
// creates a new tree to avoid state corruption when reusing trees across
// pipe operations.
func (c *Client) GetIPCTree(ctx context.Context) (*Tree, error) {
	if c.session == nil || !c.session.IsAuthenticated() {
		return nil, ErrNotConnected
	}

	tree, err := c.session.TreeConnect(ctx, "IPC$")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IPC$: %w", err)
	}

	return tree, nil
}

// Close closes the client connection, cascading through the cached IPC$
// tree and session before tearing down the transport.
func (c *Client) Close() error {
	if c.ipcTree != nil && c.session != nil {
		c.session.TreeDisconnect(context.Background(), c.ipcTree)
		c.ipcTree = nil
	}

	if c.session != nil {
		c.session.Close()
		c.session = nil
	}

	if c.transport != nil {
		err := c.transport.Close()
		c.transport = nil
		return err
	}

	return nil
}

// Session returns the current session.
func (c *Client) Session() *Session {
	return c.session
}

// NegotiateResult returns the negotiation result.
func (c *Client) NegotiateResult() *NegotiateResult {
	return c.negResult
}

// IsConnected returns true if connected and authenticated.
func (c *Client) IsConnected() bool {
	return c.session != nil && c.session.IsAuthenticated()
}

// Dialect returns the negotiated dialect.
func (c *Client) Dialect() types.Dialect {
	if c.negResult != nil {
		return c.negResult.Dialect
	}
	return 0
}

// DialectName returns the negotiated dialect as a string.
func (c *Client) DialectName() string {
	return DialectName(c.Dialect())
}

// handleNotification decodes an unsolicited message and, if it is a
// successful CHANGE_NOTIFY response, emits EventChangeNotify. Tree.Watch
// callers see the same response through their own correlated waiter;
// this is the Client-wide view spec.md §6 describes independent of that
// correlation.
func (c *Client) handleNotification(payload []byte) {
	if len(payload) < types.SMB2HeaderSize {
		return
	}

	var header types.Header
	if err := header.Unmarshal(payload[:types.SMB2HeaderSize]); err != nil {
		return
	}
	if header.Command != types.CommandChangeNotify || !header.Status.IsSuccess() {
		return
	}

	var notifyResp types.ChangeNotifyResponse
	if err := notifyResp.Unmarshal(payload[types.SMB2HeaderSize:]); err != nil {
		return
	}

	entries := make([]NotifyEvent, 0, len(notifyResp.Entries))
	for _, e := range notifyResp.Entries {
		entries = append(entries, NotifyEvent{Action: e.Action, FileName: e.FileName})
	}

	c.events.emit(Event{
		Kind:      EventChangeNotify,
		SessionID: header.SessionID,
		TreeID:    header.TreeID,
		Entries:   entries,
	})
}

// newClientGUID generates a random client GUID for the NEGOTIATE request.
func newClientGUID() [16]byte {
	var guid [16]byte
	id := uuid.New()
	copy(guid[:], id[:])
	return guid
}
