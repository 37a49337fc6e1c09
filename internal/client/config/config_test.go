package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8000", c.ServerURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, 3, c.RetryCount)
	assert.Equal(t, time.Second, c.RetryDelay)
	assert.Equal(t, 30*time.Second, c.RefreshInterval)
	assert.Equal(t, 3*time.Second, c.RedirectDelay)
	assert.Equal(t, "gophstore.db", c.DatabasePath)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = []string{"gophstore"}

	cfg := LoadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	path := writeTempJSON(t, t.TempDir(), "", map[string]any{
		"server_url":       "http://json:9000",
		"refresh_interval": "2m",
	})
	os.Args = []string{"gophstore", "-c", path, "-a", "http://flag:7000"}

	cfg := LoadConfig()

	assert.Equal(t, "http://flag:7000", cfg.ServerURL)
	// -i not given: the flag default is the value JSON already set.
	assert.Equal(t, 2*time.Minute, cfg.RefreshInterval)
}
