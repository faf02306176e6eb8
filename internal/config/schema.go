// Package config defines the configuration schema for tickerbot.
//
// JSON keys use camelCase; the same keys are accepted from YAML files.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token       string   `json:"token" yaml:"token"`
	AllowFrom   []string `json:"allowFrom" yaml:"allowFrom"` // empty = everyone
	PollTimeout int      `json:"pollTimeout" yaml:"pollTimeout"`
}

func defaultTelegramConfig() TelegramConfig {
	return TelegramConfig{AllowFrom: []string{}, PollTimeout: 30}
}

// JobsConfig configures ticker scheduling and persistence.
type JobsConfig struct {
	File        string `json:"file" yaml:"file"`
	MinInterval int    `json:"minIntervalSeconds" yaml:"minIntervalSeconds"`
	MaxInterval int    `json:"maxIntervalSeconds" yaml:"maxIntervalSeconds"`
	Timezone    string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

func defaultJobsConfig() JobsConfig {
	return JobsConfig{
		File:        "~/.tickerbot/jobs.gob",
		MinInterval: 5,
		MaxInterval: 15,
	}
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`   // debug | info | warn | error
	Format     string `json:"format" yaml:"format"` // console | json
	Output     string `json:"output" yaml:"output"` // stdout | stderr | file path
	MaxSizeMB  int    `json:"maxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays" yaml:"maxAgeDays"`
}

func defaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "debug",
		Format:     "console",
		Output:     "stdout",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// ---- Root config -----------------------------------------------------------

// Config is the root configuration object, loaded from ~/.tickerbot/config.json.
type Config struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Jobs     JobsConfig     `json:"jobs" yaml:"jobs"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Telegram: defaultTelegramConfig(),
		Jobs:     defaultJobsConfig(),
		Log:      defaultLogConfig(),
	}
}

// JobsPath returns the expanded path of the persisted job file.
func (c *Config) JobsPath() string {
	p := c.Jobs.File
	if p == "" {
		p = defaultJobsConfig().File
	}
	return expandHome(p)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}
