// Package config resolves pkgsnap's directories and persisted settings.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// AppName is the directory name used below each XDG base directory.
const AppName = "pkgsnap"

// Environment overrides for the XDG-derived directories.
const (
	EnvConfigDir = "PKGSNAP_CONFIG_DIR"
	EnvCacheDir  = "PKGSNAP_CACHE_DIR"
	EnvStateDir  = "PKGSNAP_STATE_DIR"
)

// Dirs holds the base directories pkgsnap reads and writes.
type Dirs struct {
	Config string
	Cache  string
	State  string
}

// ResolveDirs returns the XDG directories for pkgsnap, honouring the
// PKGSNAP_*_DIR overrides.
func ResolveDirs() Dirs {
	return Dirs{
		Config: fromEnv(EnvConfigDir, filepath.Join(xdg.ConfigHome, AppName)),
		Cache:  fromEnv(EnvCacheDir, filepath.Join(xdg.CacheHome, AppName)),
		State:  fromEnv(EnvStateDir, filepath.Join(xdg.StateHome, AppName)),
	}
}

// SettingsFile is the default location of settings.toml.
func (d Dirs) SettingsFile() string {
	return filepath.Join(d.Config, "settings.toml")
}

// BackupRoot is the default directory holding per-device snapshot folders.
func (d Dirs) BackupRoot() string {
	return filepath.Join(d.Cache, "backups")
}

// Database is the default inventory and snapshot index database.
func (d Dirs) Database() string {
	return filepath.Join(d.State, AppName+".db")
}

// LogFile is where structured logs are appended.
func (d Dirs) LogFile() string {
	return filepath.Join(d.State, AppName+".log")
}

func fromEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return expandHome(v)
	}
	return fallback
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
