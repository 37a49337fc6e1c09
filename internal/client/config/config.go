package config

import "time"

// Config holds runtime settings for the gophstore CLI.
type Config struct {
	// ServerURL is the base URL of the store backend.
	ServerURL string
	// RequestTimeout bounds every single HTTP attempt.
	RequestTimeout time.Duration
	// RetryCount and RetryDelay bound the retries of idempotent requests
	// that failed in transport.
	RetryCount int
	RetryDelay time.Duration
	// RefreshInterval is the dashboard auto-refresh cadence.
	RefreshInterval time.Duration
	// RedirectDelay is how long a failed token verification stays on screen
	// before the client forces a redirect to login.
	RedirectDelay time.Duration
	// DatabasePath is the local SQLite file holding the session token.
	DatabasePath string
	LogLevel     string
}

// LoadDefaults populates c with the defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.RequestTimeout = 15 * time.Second
	c.RetryCount = 3
	c.RetryDelay = time.Second
	c.RefreshInterval = 30 * time.Second
	c.RedirectDelay = 3 * time.Second
	c.DatabasePath = "gophstore.db"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
