package xdg

import (
	"os"
	"path/filepath"
)

// Dirs resolves XDG base directories for the grader
type Dirs struct {
	configHome string
	cacheHome  string
}

// New reads XDG_CONFIG_HOME and XDG_CACHE_HOME, falling back to the defaults
// under the user's home directory
func New() *Dirs {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
		if homeDir == "" {
			homeDir = os.TempDir()
		}
	}

	d := &Dirs{}

	d.configHome = os.Getenv("XDG_CONFIG_HOME")
	if d.configHome == "" {
		d.configHome = filepath.Join(homeDir, ".config")
	}

	d.cacheHome = os.Getenv("XDG_CACHE_HOME")
	if d.cacheHome == "" {
		d.cacheHome = filepath.Join(homeDir, ".cache")
	}

	return d
}

// AppConfigDir returns the application-specific config directory
func (d *Dirs) AppConfigDir(app string) string {
	return filepath.Join(d.configHome, app)
}

// AppCacheDir returns the application-specific cache directory
func (d *Dirs) AppCacheDir(app string) string {
	return filepath.Join(d.cacheHome, app)
}
