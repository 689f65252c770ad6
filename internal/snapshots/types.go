package snapshots

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/logging"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

// TimestampLayout names snapshot files: YYYY-MM-DD_HH-MM-SS, local time.
const TimestampLayout = "2006-01-02_15-04-05"

const (
	fileExtension = ".json"
	tempPrefix    = ".tmp-"
)

// Snapshot is the JSON structure stored in snapshot files.
type Snapshot struct {
	DeviceID string         `json:"device_id"`
	Users    []UserSnapshot `json:"users"`
}

// UserSnapshot holds one user profile's packages at capture time.
type UserSnapshot struct {
	ID       int              `json:"id"`
	Packages []device.Package `json:"packages"`
}

// PackageCount returns the number of packages across all users.
func (s *Snapshot) PackageCount() int {
	n := 0
	for _, u := range s.Users {
		n += len(u.Packages)
	}
	return n
}

// Handle refers to a snapshot file on disk.
type Handle struct {
	Path string
}

// String returns the file name, which is what a picker shows.
func (h Handle) String() string {
	return filepath.Base(h.Path)
}

// DeviceID returns the device directory the snapshot lives in.
func (h Handle) DeviceID() string {
	return filepath.Base(filepath.Dir(h.Path))
}

// CreatedAt parses the capture time encoded in the file name.
func (h Handle) CreatedAt() (time.Time, bool) {
	name := strings.TrimSuffix(filepath.Base(h.Path), fileExtension)
	t, err := time.ParseInLocation(TimestampLayout, name, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsSnapshotFile reports whether a directory entry name looks like a
// finished snapshot file.
func IsSnapshotFile(name string) bool {
	return strings.HasSuffix(name, fileExtension) && !strings.HasPrefix(name, tempPrefix)
}

// PlanEntry is one package's bundle of transition commands. Index is the
// package's position in its user's package list within the snapshot.
type PlanEntry struct {
	Index    int      `json:"index" yaml:"index"`
	Commands []string `json:"commands" yaml:"commands"`
}

// IsSentinel reports whether e is the content-free entry that closes a plan.
func (e PlanEntry) IsSentinel() bool {
	return len(e.Commands) == 0
}

// CommandCount returns the number of commands across all plan entries.
func CommandCount(plan []PlanEntry) int {
	n := 0
	for _, e := range plan {
		n += len(e.Commands)
	}
	return n
}

// Selection is the backup and target user previously chosen for a device.
// A nil field means nothing was selected.
type Selection struct {
	Backup *Handle
	User   *device.User
}

// Indexer records newly written snapshots. *store.Store satisfies it.
type Indexer interface {
	InsertSnapshot(rec *store.SnapshotRecord) (int64, error)
}

// Option configures a Builder, Store or Planner.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	now    func() time.Time
	index  Indexer
}

func buildOptions(opts []Option) options {
	o := options{
		logger: logging.Component("snapshots"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock used to timestamp new snapshots.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIndex records every snapshot written by a Builder in idx.
func WithIndex(idx Indexer) Option {
	return func(o *options) { o.index = idx }
}
