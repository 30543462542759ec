package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppConfigDir = ".config/reblog"

	// ConfigDirEnv points the config directory somewhere other than the home dir.
	ConfigDirEnv = "REBLOG_CONFIG_DIR"
)

// GetConfigDir returns the reblog config directory (~/.config/reblog/ unless
// REBLOG_CONFIG_DIR is set) and creates it if it doesn't exist.
func GetConfigDir() (string, error) {
	configDir := os.Getenv(ConfigDirEnv)
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, AppConfigDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// ResolveFilePath resolves a file path with the following priority:
// 1. Local working directory (e.g., ./reblog.db)
// 2. User config directory (e.g., ~/.config/reblog/reblog.db)
// 3. The user config directory path if neither exists (for creation)
func ResolveFilePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}

	if _, err := os.Stat(filename); err == nil {
		return filename
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return filename
	}

	return filepath.Join(configDir, filename)
}

// StateDir returns a subdirectory of the config dir used for client-local
// state, creating it when missing.
func StateDir(subdir string) (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(configDir, subdir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return dir, nil
}
