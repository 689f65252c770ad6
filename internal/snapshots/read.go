package snapshots

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

// Store enumerates and reads snapshot files below a backup root.
//
// Listing and user preview are lenient: failures are logged and yield empty
// results. Load is strict and returns typed errors.
type Store struct {
	root string
	log  zerolog.Logger
}

// NewStore creates a Store reading below root.
func NewStore(root string, opts ...Option) *Store {
	o := buildOptions(opts)
	return &Store{root: root, log: o.logger}
}

// Root returns the backup root directory.
func (s *Store) Root() string {
	return s.root
}

// DeviceDir returns the directory holding a device's snapshots.
func (s *Store) DeviceDir(deviceID string) string {
	return filepath.Join(s.root, deviceID)
}

// ListSnapshots returns a handle for every entry in dir, sorted by name. It
// never fails: an unreadable directory yields an empty slice. In-progress temp
// files are not snapshots and are skipped.
func (s *Store) ListSnapshots(dir string) []Handle {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Debug().Err(err).Str("dir", dir).Msg("cannot list backups")
		return []Handle{}
	}

	handles := make([]Handle, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		handles = append(handles, Handle{Path: filepath.Join(dir, entry.Name())})
	}
	return handles
}

// ListDevice lists the snapshots of one device, oldest first.
func (s *Store) ListDevice(deviceID string) []Handle {
	return s.ListSnapshots(s.DeviceDir(deviceID))
}

// Devices lists the device directories present under the root.
func (s *Store) Devices() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.log.Debug().Err(err).Str("dir", s.root).Msg("cannot list backup root")
		return []string{}
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids
}

// Latest returns the most recent snapshot of a device.
func (s *Store) Latest(deviceID string) (Handle, bool) {
	handles := s.ListDevice(deviceID)
	for i := len(handles) - 1; i >= 0; i-- {
		if _, ok := handles[i].CreatedAt(); ok {
			return handles[i], true
		}
	}
	return Handle{}, false
}

// ReadUsers returns one user per user snapshot in the file. Only ID carries
// information: Index is always 0 and Protected always false, because the file
// knows nothing about the live device's user table. Callers needing an index
// must resolve the id against the live device.
//
// Read and parse failures are logged and produce an empty slice.
func (s *Store) ReadUsers(h Handle) []device.User {
	snap, err := s.Load(h.Path)
	if err != nil {
		s.log.Error().Err(err).Str("path", h.Path).Msg("cannot read backup users")
		return []device.User{}
	}

	users := make([]device.User, 0, len(snap.Users))
	for _, u := range snap.Users {
		users = append(users, device.User{ID: u.ID, Index: 0, Protected: false})
	}
	return users
}

// Load reads and parses a snapshot file.
func (s *Store) Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindIO, Path: path, Err: err}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &Error{Kind: KindParse, Path: path, Err: err}
	}
	if err := snap.validate(); err != nil {
		return nil, &Error{Kind: KindParse, Path: path, Err: err}
	}

	return &snap, nil
}

// Record loads a snapshot file and describes it for the snapshot index. The
// capture time comes from the file name, falling back to the file's mtime.
func (s *Store) Record(h Handle) (*store.SnapshotRecord, error) {
	snap, err := s.Load(h.Path)
	if err != nil {
		return nil, err
	}

	createdAt, ok := h.CreatedAt()
	if !ok {
		info, err := os.Stat(h.Path)
		if err != nil {
			return nil, &Error{Kind: KindIO, Path: h.Path, Err: err}
		}
		createdAt = info.ModTime()
	}

	return newRecord(h, snap, createdAt), nil
}

func (snap *Snapshot) validate() error {
	ids := make(map[int]bool, len(snap.Users))
	for _, u := range snap.Users {
		if ids[u.ID] {
			return fmt.Errorf("duplicate user id %d", u.ID)
		}
		ids[u.ID] = true

		names := make(map[string]bool, len(u.Packages))
		for _, p := range u.Packages {
			if names[p.Name] {
				return fmt.Errorf("duplicate package %s for user %d", p.Name, u.ID)
			}
			if !p.State.IsTarget() {
				return fmt.Errorf("package %s for user %d has no valid state (got %s)", p.Name, u.ID, p.State)
			}
			names[p.Name] = true
		}
	}
	return nil
}
