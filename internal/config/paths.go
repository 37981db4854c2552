package config

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.skypemerge.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".skypemerge")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// LogPath returns the default log file path.
func LogPath() string {
	return filepath.Join(BaseDir(), "logs", "skypemerge.log")
}

// HistoryPath returns the default session journal database path.
func HistoryPath() string {
	return filepath.Join(BaseDir(), "history.db")
}

// EnsureDirs creates the base directory tree with proper permissions.
func EnsureDirs() error {
	for _, d := range []string{BaseDir(), filepath.Join(BaseDir(), "logs")} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
