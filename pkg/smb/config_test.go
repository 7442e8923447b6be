package smb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ineffectivecoder/smb2client/pkg/auth"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "client.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
timeout_seconds = 10
request_timeout_seconds = 5
require_encryption = true
max_credits = 64
force_ntlm_version = "v1"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() = %v, want nil", err)
	}

	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if !cfg.RequireEncryption {
		t.Error("RequireEncryption should be true")
	}
	if cfg.MaxCredits != 64 {
		t.Errorf("MaxCredits = %d, want 64", cfg.MaxCredits)
	}
	if cfg.ForceNtlmVersion != auth.VersionNTLMv1 {
		t.Errorf("ForceNtlmVersion = %v, want VersionNTLMv1", cfg.ForceNtlmVersion)
	}
}

func TestLoadConfigEmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() = %v, want nil", err)
	}

	def := DefaultClientConfig()
	if cfg.Timeout != def.Timeout || cfg.RequestTimeout != def.RequestTimeout || cfg.MaxCredits != def.MaxCredits {
		t.Errorf("LoadConfig with empty file = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadConfigMissingFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err == nil {
		t.Fatal("LoadConfig on a missing file should fail")
	}
}
