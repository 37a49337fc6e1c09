// Package config loads runtime configuration for the gophstore CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the store backend
//	-t int      per-request timeout (seconds)
//	-i int      dashboard auto-refresh interval (seconds)
//	-d string   path of the local SQLite database
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations accept strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "request_timeout": "15s",
//	  "retry_count": 3,
//	  "retry_delay": "1s",
//	  "refresh_interval": "30s",
//	  "redirect_delay": "3s",
//	  "database_path": "gophstore.db",
//	  "log_level": "info"
//	}
//
// Keys missing from the JSON file keep their previous value.
package config
