package config

import (
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvToken    = "TOKEN"
	EnvJobsFile = "TICKERBOT_JOBS_FILE"
	EnvLogLevel = "TICKERBOT_LOG_LEVEL"
)

// ApplyEnv loads envFiles (default ".env") into the process environment,
// without overriding variables already set, then applies the overrides.
// Missing env files are ignored.
func (c *Config) ApplyEnv(envFiles ...string) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			slog.Warn("config: cannot read env file", "path", f, "err", err)
		}
	}

	if v := os.Getenv(EnvToken); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv(EnvJobsFile); v != "" {
		c.Jobs.File = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// LogLevels lists the accepted log.level values, matched case-insensitively.
var LogLevels = []string{"debug", "info", "warn", "warning", "error"}

// ErrNoToken is returned by Validate when no bot token is configured.
var ErrNoToken = errors.New("no token configured for bot")

// Validate checks the settings the bot cannot run without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.WithHint(ErrNoToken, "set the TOKEN environment variable or telegram.token in "+ConfigPath())
	}
	if c.Jobs.MinInterval <= 0 {
		return errors.Newf("jobs.minIntervalSeconds must be positive, got %d", c.Jobs.MinInterval)
	}
	if c.Jobs.MaxInterval < c.Jobs.MinInterval {
		return errors.Newf("jobs.maxIntervalSeconds (%d) is below jobs.minIntervalSeconds (%d)",
			c.Jobs.MaxInterval, c.Jobs.MinInterval)
	}
	if !slices.Contains(LogLevels, strings.ToLower(c.Log.Level)) {
		return errors.Newf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Newf("unknown log format %q", c.Log.Format)
	}
	return nil
}
