package store

import "time"

// SnapshotRecord indexes one snapshot file on disk.
type SnapshotRecord struct {
	ID           int64
	DeviceID     string
	Path         string
	CreatedAt    time.Time
	UserCount    int
	PackageCount int
}
