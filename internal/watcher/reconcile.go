package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/pkgsnap/internal/logging"
	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

// Stats summarises one Reconcile pass.
type Stats struct {
	Indexed int
	Removed int
	Skipped int
}

// Reconcile makes the snapshot index match the files below the backup root:
// every readable snapshot file is (re)indexed and index rows whose file is
// gone are dropped. Unreadable files are skipped and counted. progress, when
// non-nil, is called after each file with the number processed so far.
func Reconcile(st *store.Store, snaps *snapshots.Store, progress func(done, total int)) (Stats, error) {
	log := logging.Component("watcher")
	var stats Stats

	var handles []snapshots.Handle
	for _, id := range snaps.Devices() {
		for _, h := range snaps.ListDevice(id) {
			if snapshots.IsSnapshotFile(filepath.Base(h.Path)) {
				handles = append(handles, h)
			}
		}
	}

	for i, h := range handles {
		rec, err := snaps.Record(h)
		if err != nil {
			log.Warn().Err(err).Str("path", h.Path).Msg("skipping unreadable snapshot")
			stats.Skipped++
		} else if _, err := st.InsertSnapshot(rec); err != nil {
			return stats, fmt.Errorf("failed to index %s: %w", h.Path, err)
		} else {
			stats.Indexed++
		}
		if progress != nil {
			progress(i+1, len(handles))
		}
	}

	records, err := st.ListSnapshots("")
	if err != nil {
		return stats, fmt.Errorf("failed to list indexed snapshots: %w", err)
	}
	for _, rec := range records {
		if _, err := os.Stat(rec.Path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if _, err := st.DeleteSnapshotByPath(rec.Path); err != nil {
			return stats, fmt.Errorf("failed to drop stale index entry %s: %w", rec.Path, err)
		}
		log.Debug().Str("path", rec.Path).Msg("dropped stale index entry")
		stats.Removed++
	}

	return stats, nil
}
