package watcher

import (
	"testing"
	"time"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

// setupTestStore creates an in-memory SQLite store for tests and registers
// cleanup with t.Cleanup so callers don't need explicit defer.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("setupTestStore: open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// writeSnapshot writes a one-user snapshot for deviceID at the given time.
func writeSnapshot(t *testing.T, root, deviceID string, at time.Time) snapshots.Handle {
	t.Helper()
	b := snapshots.NewBuilder(root, snapshots.WithClock(func() time.Time { return at }))
	h, err := b.BuildAndPersist(
		[]device.User{{ID: 0}},
		deviceID,
		[][]device.Package{{
			{Name: "com.foo", State: device.Disabled},
			{Name: "com.bar", State: device.Enabled},
		}},
	)
	if err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}
	return h
}
