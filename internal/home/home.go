package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the wikibook home directory.
	DefaultDirName = ".wikibook"

	// DownloadsDirName is the subdirectory for downloaded PDF books.
	DownloadsDirName = "downloads"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// SessionsFileName holds persisted login sessions.
	SessionsFileName = "sessions.json"

	// RecordDBDirName is the data directory for the record database container.
	RecordDBDirName = "recorddb"
)

// Dir represents the wikibook home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.wikibook).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DownloadsPath returns the path to the downloads directory.
func (d *Dir) DownloadsPath() string {
	return filepath.Join(d.path, DownloadsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// SessionsPath returns the path to the persisted sessions file.
func (d *Dir) SessionsPath() string {
	return filepath.Join(d.path, SessionsFileName)
}

// RecordDBPath returns the data directory for the record database.
func (d *Dir) RecordDBPath() string {
	return filepath.Join(d.path, RecordDBDirName)
}

// DownloadPath returns the path a downloaded book PDF is written to.
func (d *Dir) DownloadPath(filename string) string {
	return filepath.Join(d.DownloadsPath(), filename+".pdf")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.DownloadsPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create downloads directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
