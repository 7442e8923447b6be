package smb

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ineffectivecoder/smb2client/pkg/auth"
)

// FileConfig is the TOML-decodable shape of an optional client config file.
// Every field is optional; zero values leave the corresponding
// ClientConfig field at its DefaultClientConfig() value.
type FileConfig struct {
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	RequireSigning        bool   `toml:"require_signing"`
	RequireEncryption     bool   `toml:"require_encryption"`
	MaxCredits            uint16 `toml:"max_credits"`
	Socks5URL             string `toml:"socks5_url"`
	ForceNtlmVersion      string `toml:"force_ntlm_version"` // "", "v1", "v2"
}

// LoadConfig decodes path as TOML and overlays it onto DefaultClientConfig().
// This is an optional convenience: NewClientWithConfig with a hand-built
// ClientConfig remains the primary, code-driven path.
func LoadConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	var fc FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return cfg, TransportError("load config", err)
	}

	if fc.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if fc.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(fc.RequestTimeoutSeconds) * time.Second
	}
	if fc.MaxCredits > 0 {
		cfg.MaxCredits = fc.MaxCredits
	}
	cfg.RequireSigning = fc.RequireSigning
	cfg.RequireEncryption = fc.RequireEncryption
	cfg.Socks5URL = fc.Socks5URL

	switch fc.ForceNtlmVersion {
	case "v1":
		cfg.ForceNtlmVersion = auth.VersionNTLMv1
	case "v2":
		cfg.ForceNtlmVersion = auth.VersionNTLMv2
	}

	return cfg, nil
}
