package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"test"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withArgs(t)

	cfg := LoadConfig()

	require.Equal(t, 3, cfg.MaxAttempts)
	require.Equal(t, 15*time.Minute, cfg.BlockDuration)
	require.Equal(t, 8*time.Hour, cfg.SessionTTL)
	require.Equal(t, time.Hour, cfg.RenewalWindow)
	require.Equal(t, 5*time.Second, cfg.RemoteTimeout)
	require.Equal(t, time.Second, cfg.MinAttemptInterval)
	require.Equal(t, "/login", cfg.LoginPath)
	require.Len(t, cfg.EncryptionKey, 32)
}

func TestLoadConfig_FlagsOverrideDefaults(t *testing.T) {
	withArgs(t, "-a", "https://api.example.com", "-d", "/tmp/auth.db")

	cfg := LoadConfig()

	require.Equal(t, "https://api.example.com", cfg.RemoteBaseURL)
	require.Equal(t, "/tmp/auth.db", cfg.StoragePath)
}

func TestLoadConfig_JSONOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	body := `{
		"remote_base_url": "https://json.example.com",
		"session_ttl": "4h",
		"block_duration": "30m",
		"max_attempts": 5
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	withArgs(t, "-c", path)

	cfg := LoadConfig()

	require.Equal(t, "https://json.example.com", cfg.RemoteBaseURL)
	require.Equal(t, 4*time.Hour, cfg.SessionTTL)
	require.Equal(t, 30*time.Minute, cfg.BlockDuration)
	require.Equal(t, 5, cfg.MaxAttempts)
	// untouched fields keep defaults
	require.Equal(t, time.Hour, cfg.RenewalWindow)
}

func TestLoadConfig_FlagsBeatJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"remote_base_url": "https://json.example.com"}`), 0o600))

	withArgs(t, "-c", path, "-a", "https://flag.example.com")

	cfg := LoadConfig()
	require.Equal(t, "https://flag.example.com", cfg.RemoteBaseURL)
}
