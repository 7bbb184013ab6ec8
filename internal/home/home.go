package home

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultDirName is the default name for the sightspeech home directory.
	DefaultDirName = ".sightspeech"

	// DataDirName is the subdirectory for dictionaries and other data files.
	DataDirName = "data"

	// CapturesDirName is the subdirectory for saved frames.
	CapturesDirName = "captures"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the sightspeech home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.sightspeech).
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

// DataPath returns the path to the data directory.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// CapturesPath returns the directory saved frames are written to.
func (d *Dir) CapturesPath() string {
	return filepath.Join(d.path, CapturesDirName)
}

// CapturePath returns a timestamped file path for a saved frame.
func (d *Dir) CapturePath(t time.Time, ext string) string {
	return filepath.Join(d.CapturesPath(), fmt.Sprintf("frame_%s.%s", t.UTC().Format("20060102T150405.000"), ext))
}

// ResolveDataFile maps a relative file name into the data directory.
// Absolute paths and paths that exist relative to the working directory
// are returned unchanged.
func (d *Dir) ResolveDataFile(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(d.DataPath(), name)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create data directory (this also creates the parent)
	if err := os.MkdirAll(d.DataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(d.CapturesPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create captures directory: %w", err)
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
