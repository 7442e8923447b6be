package smb

import (
	"testing"
	"time"

	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
)

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.MaxCredits != 128 {
		t.Errorf("MaxCredits = %d, want 128", cfg.MaxCredits)
	}
}

func TestNewClientWithConfigDefaultsLogger(t *testing.T) {
	c := NewClientWithConfig(ClientConfig{})
	if c.log == nil {
		t.Fatal("NewClientWithConfig should install a default logger entry")
	}
}

func TestClientNotConnectedBeforeConnect(t *testing.T) {
	c := NewClient()
	if c.IsConnected() {
		t.Error("a fresh client should not report connected")
	}
	if c.Dialect() != types.Dialect(0) {
		t.Errorf("Dialect() before Connect = %v, want 0", c.Dialect())
	}
}

func TestClientAuthenticateWithoutConnectFails(t *testing.T) {
	c := NewClient()
	err := c.Authenticate(nil, nil)
	if err != ErrNotConnected {
		t.Errorf("Authenticate before Connect = %v, want ErrNotConnected", err)
	}
}

func TestClientTreeConnectWithoutSessionFails(t *testing.T) {
	c := NewClient()
	_, err := c.TreeConnect(nil, "C$")
	if err != ErrNotConnected {
		t.Errorf("TreeConnect before Authenticate = %v, want ErrNotConnected", err)
	}
}

func TestClientCloseWithNothingOpenIsNoop(t *testing.T) {
	c := NewClient()
	if err := c.Close(); err != nil {
		t.Errorf("Close() on an unconnected client = %v, want nil", err)
	}
}

func TestNewClientGUIDIsUnique(t *testing.T) {
	a := newClientGUID()
	b := newClientGUID()
	if a == b {
		t.Error("newClientGUID should not produce identical GUIDs on successive calls")
	}
	var zero [16]byte
	if a == zero {
		t.Error("newClientGUID should not produce the zero GUID")
	}
}
