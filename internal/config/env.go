package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Resolve loads the effective configuration: the config file at path
// (Default when absent), then a .env file in the working directory,
// then SKYPEMERGE_* environment overrides.
func Resolve(path string) *Config {
	_ = godotenv.Load()
	cfg, err := Load(path)
	if err != nil {
		cfg = Default()
	}
	applyEnv(cfg)
	cfg.normalize()
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SKYPEMERGE_LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
	if v := os.Getenv("SKYPEMERGE_HISTORY_PATH"); v != "" {
		cfg.HistoryPath = v
	}
	if v := os.Getenv("SKYPEMERGE_BACKUP"); v != "" {
		cfg.BackupEnabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SKYPEMERGE_MATCH_WINDOW_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MatchWindowSecs = n
		}
	}
}
