package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

// settingsPath returns the settings file, using the flag value or default
func settingsPath() string {
	if configPath != "" {
		return configPath
	}
	return dirs.SettingsFile()
}

// getDBPath returns the database path: flag, then settings, then default.
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if settings != nil && settings.Database != "" {
		return settings.Database
	}
	return dirs.Database()
}

// getBackupRoot returns the snapshot root: flag, then settings, then default.
func getBackupRoot() string {
	if backupRoot != "" {
		return backupRoot
	}
	if settings != nil && settings.BackupRoot != "" {
		return settings.BackupRoot
	}
	return dirs.BackupRoot()
}

// getDefaultPIDFile returns the watch daemon PID file path
func getDefaultPIDFile() string {
	return filepath.Join(dirs.State, "watch.pid")
}

// getDefaultLogFile returns the watch daemon output file path
func getDefaultLogFile() string {
	return filepath.Join(dirs.State, "watch.log")
}

// openStore opens the database, creating its directory and schema if needed.
func openStore() (*store.Store, error) {
	path := getDBPath()
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

func snapshotStore() *snapshots.Store {
	return snapshots.NewStore(getBackupRoot())
}

// loadLiveDevice reads the cached live inventory of a device.
func loadLiveDevice(st *store.Store, deviceID string) (*device.Device, device.Inventory, error) {
	dev, inv, err := st.LoadInventory(deviceID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil, fmt.Errorf("no inventory for device %s\n\nRun 'pkgsnap inventory import <dump>' first", deviceID)
		}
		return nil, nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	return dev, inv, nil
}

// resolveBackup turns a --backup argument into a snapshot handle. It accepts
// "latest", a file name inside the device's backup directory, or a path.
func resolveBackup(snaps *snapshots.Store, deviceID, arg string) (snapshots.Handle, error) {
	if strings.EqualFold(arg, "latest") {
		h, ok := snaps.Latest(deviceID)
		if !ok {
			return snapshots.Handle{}, fmt.Errorf("no snapshots for device %s\n\nRun 'pkgsnap backup %s' first", deviceID, deviceID)
		}
		return h, nil
	}

	path := arg
	if !strings.ContainsAny(arg, `/\`) {
		path = filepath.Join(snaps.DeviceDir(deviceID), arg)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return snapshots.Handle{}, fmt.Errorf("failed to resolve %s: %w", arg, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return snapshots.Handle{}, fmt.Errorf("snapshot %s not found\n\nRun 'pkgsnap list %s' to see available snapshots", arg, deviceID)
	}
	return snapshots.Handle{Path: abs}, nil
}

// parseUserID parses a user id argument
func parseUserID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid user id: %s (must be a non-negative number)", s)
	}
	return id, nil
}

// formatSize converts bytes to human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
