package config

import (
	"encoding/json"
	"os"

	"github.com/pavelk2005/storegate/internal/flagx"
	"github.com/pavelk2005/storegate/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so intervals can be written as strings like "15m".
// Zero values mean "not set" and leave the existing Config value alone.
type jsonConfig struct {
	RemoteBaseURL       string         `json:"remote_base_url"`
	RemoteTimeout       timex.Duration `json:"remote_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	MaxAttempts         int            `json:"max_attempts"`
	BlockDuration       timex.Duration `json:"block_duration"`
	SessionTTL          timex.Duration `json:"session_ttl"`
	RenewalWindow       timex.Duration `json:"renewal_window"`
	MinAttemptInterval  timex.Duration `json:"min_attempt_interval"`
	EncryptionKey       string         `json:"encryption_key"`
	StoragePath         string         `json:"storage_path"`
	LoginPath           string         `json:"login_path"`
	DefaultLandingPath  string         `json:"default_landing_path"`
}

// parseJSON overlays cfg with values from the file given via -c/-config.
// Missing flag means no JSON is loaded. Read or unmarshal errors panic;
// a broken config file is not something to limp past at startup.
func parseJSON(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	var jc jsonConfig

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.RemoteBaseURL != "" {
		cfg.RemoteBaseURL = jc.RemoteBaseURL
	}
	if jc.RemoteTimeout.Duration > 0 {
		cfg.RemoteTimeout = jc.RemoteTimeout.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.MaxAttempts > 0 {
		cfg.MaxAttempts = jc.MaxAttempts
	}
	if jc.BlockDuration.Duration > 0 {
		cfg.BlockDuration = jc.BlockDuration.Duration
	}
	if jc.SessionTTL.Duration > 0 {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.RenewalWindow.Duration > 0 {
		cfg.RenewalWindow = jc.RenewalWindow.Duration
	}
	if jc.MinAttemptInterval.Duration > 0 {
		cfg.MinAttemptInterval = jc.MinAttemptInterval.Duration
	}
	if jc.EncryptionKey != "" {
		cfg.EncryptionKey = jc.EncryptionKey
	}
	if jc.StoragePath != "" {
		cfg.StoragePath = jc.StoragePath
	}
	if jc.LoginPath != "" {
		cfg.LoginPath = jc.LoginPath
	}
	if jc.DefaultLandingPath != "" {
		cfg.DefaultLandingPath = jc.DefaultLandingPath
	}
}
