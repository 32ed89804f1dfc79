// Package config holds runtime settings for the admin authentication core.
//
// Load order is defaults -> JSON file -> command-line flags; later sources
// take precedence.
package config

import "time"

// Config collects every tunable of the auth core, including the static
// secrets the containing application ships. Keeping the secrets here (rather
// than buried in components) makes the limitation visible at the integration
// boundary and lets tests swap them.
type Config struct {
	// RemoteBaseURL is the base URL of the backend API, e.g.
	// "https://api.example.com". Health, login and verify paths are
	// resolved against it.
	RemoteBaseURL string

	// RemoteTimeout bounds every outbound API call.
	RemoteTimeout time.Duration

	// OnlineCheckInterval is how long a liveness probe result stays fresh.
	OnlineCheckInterval time.Duration

	// MaxAttempts is the failed-verification count that triggers a block.
	MaxAttempts int

	// BlockDuration is how long a username stays blocked.
	BlockDuration time.Duration

	// SessionTTL is the lifetime of a newly created or renewed session.
	SessionTTL time.Duration

	// RenewalWindow: sessions with less remaining life than this are
	// renewed on the next successful guard check.
	RenewalWindow time.Duration

	// MinAttemptInterval throttles repeated login attempts per username.
	MinAttemptInterval time.Duration

	// EncryptionKey is the passphrase the AES sealing key is derived from;
	// it protects the session record and the outbound credential payload.
	// The shipped default is a static literal, so sealing guards against
	// casual inspection only.
	EncryptionKey string

	// StoragePath is the SQLite file backing the key/value store.
	StoragePath string

	// LoginPath is the entry point denied navigations are redirected to.
	LoginPath string

	// DefaultLandingPath is where a successful login navigates when no
	// original destination was recorded.
	DefaultLandingPath string
}

// LoadDefaults populates c with the reference values.
func (c *Config) LoadDefaults() {
	c.RemoteBaseURL = "http://127.0.0.1:8080"
	c.RemoteTimeout = 5 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.MaxAttempts = 3
	c.BlockDuration = 15 * time.Minute
	c.SessionTTL = 8 * time.Hour
	c.RenewalWindow = time.Hour
	c.MinAttemptInterval = time.Second
	c.EncryptionKey = "storegate-admin-session-key-2024"
	c.StoragePath = "storegate.db"
	c.LoginPath = "/login"
	c.DefaultLandingPath = "/admin"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
