package htmlview

import (
	"os"
	"path/filepath"
)

// DefaultDownloadDir returns XDG_DOWNLOAD_DIR, ~/Downloads, or the current
// directory, in that order.
func DefaultDownloadDir() string {
	if dir := os.Getenv("XDG_DOWNLOAD_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".")
	}
	return filepath.Join(home, "Downloads")
}

// DefaultConfigDir returns XDG config home or a platform fallback.
func DefaultConfigDir(app string) string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		configHome = dir
	}
	if app == "" {
		return configHome
	}
	return filepath.Join(configHome, app)
}
