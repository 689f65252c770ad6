package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
)

// Settings is the merged view of settings.toml over the directory defaults.
type Settings struct {
	BackupRoot string
	Database   string
	Verbosity  int
	Devices    map[string]DeviceSettings

	dirs Dirs
}

// DeviceSettings remembers the restore selection made for one device.
type DeviceSettings struct {
	SelectedBackup string `toml:"selected_backup,omitempty"`
	SelectedUser   *int   `toml:"selected_user,omitempty"`
}

type fileSettings struct {
	BackupRoot string                    `toml:"backup_root,omitempty"`
	Database   string                    `toml:"database,omitempty"`
	Verbosity  int                       `toml:"verbosity,omitempty"`
	Devices    map[string]DeviceSettings `toml:"devices,omitempty"`
}

// Default returns settings derived from d alone.
func Default(d Dirs) *Settings {
	return &Settings{
		BackupRoot: d.BackupRoot(),
		Database:   d.Database(),
		Devices:    make(map[string]DeviceSettings),
		dirs:       d,
	}
}

// Load reads path over the defaults of d. A missing file yields the defaults.
func Load(path string, d Dirs) (*Settings, error) {
	s := Default(d)

	var raw fileSettings
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to load settings %s: %w", path, err)
	}

	if meta.IsDefined("backup_root") {
		if v := strings.TrimSpace(raw.BackupRoot); v != "" {
			s.BackupRoot = expandHome(v)
		}
	}
	if meta.IsDefined("database") {
		if v := strings.TrimSpace(raw.Database); v != "" {
			s.Database = expandHome(v)
		}
	}
	if meta.IsDefined("verbosity") {
		if raw.Verbosity < 0 {
			return nil, fmt.Errorf("invalid verbosity %d in %s", raw.Verbosity, path)
		}
		s.Verbosity = raw.Verbosity
	}
	if meta.IsDefined("devices") {
		for id, ds := range raw.Devices {
			s.Devices[id] = ds
		}
	}

	return s, nil
}

// Save writes the settings to path atomically. Values equal to the directory
// defaults are left out so they keep following the environment.
func (s *Settings) Save(path string) error {
	raw := fileSettings{
		Verbosity: s.Verbosity,
		Devices:   s.Devices,
	}
	if s.BackupRoot != s.dirs.BackupRoot() {
		raw.BackupRoot = s.BackupRoot
	}
	if s.Database != s.dirs.Database() {
		raw.Database = s.Database
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// SelectBackup records path as the backup to restore on deviceID.
func (s *Settings) SelectBackup(deviceID, path string) {
	ds := s.Devices[deviceID]
	ds.SelectedBackup = path
	s.Devices[deviceID] = ds
}

// SelectUser records the user id that restore commands target on deviceID.
func (s *Settings) SelectUser(deviceID string, id int) {
	ds := s.Devices[deviceID]
	ds.SelectedUser = &id
	s.Devices[deviceID] = ds
}

// ClearSelection forgets everything selected for deviceID.
func (s *Settings) ClearSelection(deviceID string) {
	delete(s.Devices, deviceID)
}

// Selection turns the stored choice for live into a restore selection. The
// user id is resolved against the live device; an id the device does not know
// is kept as-is with index 0.
func (s *Settings) Selection(live device.Device) snapshots.Selection {
	var sel snapshots.Selection

	ds, ok := s.Devices[live.ID]
	if !ok {
		return sel
	}

	if ds.SelectedBackup != "" {
		sel.Backup = &snapshots.Handle{Path: ds.SelectedBackup}
	}
	if ds.SelectedUser != nil {
		u, found := live.UserByID(*ds.SelectedUser)
		if !found {
			u = device.User{ID: *ds.SelectedUser}
		}
		sel.User = &u
	}

	return sel
}
