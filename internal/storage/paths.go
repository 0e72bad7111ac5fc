// Package storage persists engine settings and search statistics.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "redtail"

// GetDataDir returns the platform-specific data directory for the application.
// - macOS: ~/Library/Application Support/redtail/
// - Linux: ~/.local/share/redtail/
// - Windows: %APPDATA%/redtail/
func GetDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		// macOS: ~/Library/Application Support/
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		// Windows: %APPDATA%
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		// Linux and other Unix-like: ~/.local/share/
		// Check XDG_DATA_HOME first
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(baseDir, appName)

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}

// GetDatabaseDir returns the directory for storing the BadgerDB database.
// A non-empty dataDir replaces the platform data directory.
func GetDatabaseDir(dataDir string) (string, error) {
	if dataDir == "" {
		var err error
		if dataDir, err = GetDataDir(); err != nil {
			return "", err
		}
	}

	dbDir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", fmt.Errorf("create database dir: %w", err)
	}

	return dbDir, nil
}
