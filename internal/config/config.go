package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.skypemerge/config.toml.
type Config struct {
	// BackupEnabled gates the one-time .bak copy taken before the first
	// write to a database in a session.
	BackupEnabled bool `toml:"backup_enabled"`
	// MatchWindowSecs is the clock-skew tolerance when matching messages
	// that carry no remote id. Inherited heuristic; 180 by default.
	MatchWindowSecs int `toml:"match_window_secs"`
	// ProgressBatch is the number of chats between batched progress
	// flushes during scan and merge.
	ProgressBatch int `toml:"progress_batch"`
	// LogPath overrides the default log file location.
	LogPath string `toml:"log_path"`
	// HistoryPath overrides the default session journal location.
	HistoryPath string `toml:"history_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BackupEnabled:   true,
		MatchWindowSecs: 180,
		ProgressBatch:   5,
	}
}

func (c *Config) normalize() {
	if c.MatchWindowSecs <= 0 {
		c.MatchWindowSecs = 180
	}
	if c.ProgressBatch <= 0 {
		c.ProgressBatch = 5
	}
}

// Load reads config from the given path. A missing file is an error;
// callers that treat the file as optional should fall back to Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
