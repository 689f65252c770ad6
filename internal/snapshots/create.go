package snapshots

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

// Builder captures the package state of every user profile into a new
// snapshot file under <root>/<device_id>/.
type Builder struct {
	root  string
	now   func() time.Time
	log   zerolog.Logger
	index Indexer
}

// NewBuilder creates a Builder writing below root.
func NewBuilder(root string, opts ...Option) *Builder {
	o := buildOptions(opts)
	return &Builder{
		root:  root,
		now:   o.now,
		log:   o.logger,
		index: o.index,
	}
}

// Result is delivered by BuildAndPersistAsync.
type Result struct {
	Handle Handle
	Err    error
}

// BuildAndPersist writes a snapshot whose users mirror users in order, each
// holding the packages at the same position in current. Every package given is
// stored as-is; callers wanting only disabled/uninstalled packages filter with
// device.ChangedOnly first.
//
// The file appears atomically or not at all. Two snapshots of the same device
// taken within the same second share a name and the later one wins.
func (b *Builder) BuildAndPersist(users []device.User, deviceID string, current [][]device.Package) (Handle, error) {
	if err := validateDeviceID(deviceID); err != nil {
		return Handle{}, &Error{Kind: KindInvalid, Err: err}
	}
	if len(current) < len(users) {
		return Handle{}, &Error{
			Kind: KindInvalid,
			Err:  fmt.Errorf("%d users but package lists for only %d", len(users), len(current)),
		}
	}

	snap := &Snapshot{
		DeviceID: deviceID,
		Users:    make([]UserSnapshot, 0, len(users)),
	}
	for i, u := range users {
		pkgs := make([]device.Package, len(current[i]))
		copy(pkgs, current[i])
		snap.Users = append(snap.Users, UserSnapshot{ID: u.ID, Packages: pkgs})
	}
	if err := snap.validate(); err != nil {
		return Handle{}, &Error{Kind: KindInvalid, Err: err}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Handle{}, &Error{Kind: KindIO, Path: b.root, Err: fmt.Errorf("failed to marshal snapshot: %w", err)}
	}

	dir := filepath.Join(b.root, deviceID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		b.log.Error().Err(err).Str("dir", dir).Msg("could not create backup dir")
		return Handle{}, &Error{Kind: KindIO, Path: dir, Err: err}
	}

	createdAt := b.now().Truncate(time.Second)
	path := filepath.Join(dir, createdAt.Format(TimestampLayout)+fileExtension)
	if err := writeFileAtomic(dir, path, data); err != nil {
		b.log.Error().Err(err).Str("path", path).Msg("could not write snapshot")
		return Handle{}, &Error{Kind: KindIO, Path: path, Err: err}
	}

	h := Handle{Path: path}
	b.log.Info().
		Str("device", deviceID).
		Str("path", path).
		Int("users", len(snap.Users)).
		Int("packages", snap.PackageCount()).
		Msg("snapshot written")

	if b.index != nil {
		rec := newRecord(h, snap, createdAt)
		if _, err := b.index.InsertSnapshot(rec); err != nil {
			// The file is authoritative; the index can be rebuilt from disk.
			b.log.Warn().Err(err).Str("path", path).Msg("could not index snapshot")
		}
	}

	return h, nil
}

// BuildAndPersistAsync runs BuildAndPersist on its own goroutine and delivers
// exactly one Result on the returned channel. The inputs are copied before
// returning, so the caller may reuse them immediately.
func (b *Builder) BuildAndPersistAsync(users []device.User, deviceID string, current [][]device.Package) <-chan Result {
	usersCopy := make([]device.User, len(users))
	copy(usersCopy, users)

	currentCopy := make([][]device.Package, len(current))
	for i, pkgs := range current {
		currentCopy[i] = make([]device.Package, len(pkgs))
		copy(currentCopy[i], pkgs)
	}

	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		h, err := b.BuildAndPersist(usersCopy, deviceID, currentCopy)
		ch <- Result{Handle: h, Err: err}
	}()
	return ch
}

// validateDeviceID rejects ids that would escape the per-device directory.
func validateDeviceID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("empty device id")
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("device id %q is not a valid directory name", id)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in dir, syncs it and renames it
// onto path. The temp file is removed on any failure.
func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tempPrefix+"*"+fileExtension)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}
	return nil
}

func newRecord(h Handle, snap *Snapshot, createdAt time.Time) *store.SnapshotRecord {
	return &store.SnapshotRecord{
		DeviceID:     snap.DeviceID,
		Path:         h.Path,
		CreatedAt:    createdAt,
		UserCount:    len(snap.Users),
		PackageCount: snap.PackageCount(),
	}
}
