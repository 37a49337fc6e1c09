package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/flagx"
)

// parseFlags overlays cfg with the command-line flags it owns. Other
// arguments are filtered out first with flagx.FilterArgs. Invalid values
// panic; LoadConfig runs before anything worth cleaning up exists.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-i", "-d", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the store backend")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	refresh := fs.Int("i", int(cfg.RefreshInterval.Seconds()), "auto-refresh interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.RefreshInterval = time.Duration(*refresh) * time.Second
}
