package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophstore/internal/flagx"
	"github.com/dmitrijs2005/gophstore/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Pointer fields tell a
// missing key apart from a zero value.
type JsonConfig struct {
	ServerURL       *string         `json:"server_url"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	RetryCount      *int            `json:"retry_count"`
	RetryDelay      *timex.Duration `json:"retry_delay"`
	RefreshInterval *timex.Duration `json:"refresh_interval"`
	RedirectDelay   *timex.Duration `json:"redirect_delay"`
	DatabasePath    *string         `json:"database_path"`
	LogLevel        *string         `json:"log_level"`
}

// parseJson overlays cfg with the JSON file named by -c/-config. Without
// such a flag it does nothing; read or decode errors panic.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RetryCount != nil {
		cfg.RetryCount = *jc.RetryCount
	}
	if jc.RetryDelay != nil {
		cfg.RetryDelay = jc.RetryDelay.Duration
	}
	if jc.RefreshInterval != nil {
		cfg.RefreshInterval = jc.RefreshInterval.Duration
	}
	if jc.RedirectDelay != nil {
		cfg.RedirectDelay = jc.RedirectDelay.Duration
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
}
