package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/pkgsnap/internal/device"
)

// Helper function to create an in-memory store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := store.CreateSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return store
}

func testInventory() (device.Device, device.Inventory) {
	dev := device.Device{
		ID:         "emulator-5554",
		Model:      "Pixel 7",
		AndroidSDK: 33,
		Users: []device.User{
			{ID: 0, Index: 0},
			{ID: 10, Index: 1, Protected: true},
		},
	}
	inv := device.Inventory{
		0: {
			{Name: "com.zeta", State: device.Enabled},
			{Name: "com.alpha", State: device.Disabled},
		},
		1: {
			{Name: "com.beta", State: device.Uninstalled},
		},
	}
	return dev, inv
}

func TestNew(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store.db should not be nil")
	}
}

func TestCreateSchema(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	tables := []string{"devices", "users", "packages", "snapshots"}
	for _, table := range tables {
		var name string
		err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	indexes := []string{"idx_users_device", "idx_packages_user", "idx_snapshots_device", "idx_snapshots_created"}
	for _, index := range indexes {
		var name string
		err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&name)
		if err != nil {
			t.Errorf("Index %s not found: %v", index, err)
		}
	}
}

// TestListDevices_NoSchema_ReturnsErrNotInitialized verifies that querying a
// fresh DB (no CreateSchema) returns ErrNotInitialized.
func TestListDevices_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	_, err = s.ListDevices()
	if err == nil {
		t.Fatal("ListDevices() should return an error on uninitialized DB")
	}
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListDevices() error = %v; want errors.Is(err, ErrNotInitialized) to be true", err)
	}
}

func TestErrNotInitialized_ErrorMessage(t *testing.T) {
	if !strings.Contains(ErrNotInitialized.Error(), "pkgsnap inventory import") {
		t.Errorf("ErrNotInitialized message %q should mention 'pkgsnap inventory import'", ErrNotInitialized.Error())
	}
}

func TestSaveAndLoadInventory(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	dev, inv := testInventory()
	if err := store.SaveInventory(dev, inv); err != nil {
		t.Fatalf("SaveInventory() failed: %v", err)
	}

	gotDev, gotInv, err := store.LoadInventory(dev.ID)
	if err != nil {
		t.Fatalf("LoadInventory() failed: %v", err)
	}

	if gotDev.Model != "Pixel 7" || gotDev.AndroidSDK != 33 {
		t.Errorf("device = %+v, want model Pixel 7 sdk 33", gotDev)
	}
	if len(gotDev.Users) != 2 {
		t.Fatalf("len(Users) = %d, want 2", len(gotDev.Users))
	}
	if gotDev.Users[1].ID != 10 || !gotDev.Users[1].Protected {
		t.Errorf("Users[1] = %+v, want id 10 protected", gotDev.Users[1])
	}

	// Package order is preserved, not sorted by name.
	if len(gotInv[0]) != 2 || gotInv[0][0].Name != "com.zeta" || gotInv[0][1].Name != "com.alpha" {
		t.Errorf("inventory[0] = %+v, want com.zeta then com.alpha", gotInv[0])
	}
	if gotInv[0][1].State != device.Disabled {
		t.Errorf("com.alpha state = %v, want Disabled", gotInv[0][1].State)
	}
	if gotInv[1][0].State != device.Uninstalled {
		t.Errorf("com.beta state = %v, want Uninstalled", gotInv[1][0].State)
	}
}

func TestSaveInventoryReplaces(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	dev, inv := testInventory()
	if err := store.SaveInventory(dev, inv); err != nil {
		t.Fatalf("SaveInventory() failed: %v", err)
	}

	dev.Users = dev.Users[:1]
	inv = device.Inventory{0: {{Name: "com.only", State: device.Enabled}}}
	if err := store.SaveInventory(dev, inv); err != nil {
		t.Fatalf("second SaveInventory() failed: %v", err)
	}

	gotDev, gotInv, err := store.LoadInventory(dev.ID)
	if err != nil {
		t.Fatalf("LoadInventory() failed: %v", err)
	}
	if len(gotDev.Users) != 1 {
		t.Errorf("len(Users) = %d, want 1", len(gotDev.Users))
	}
	if gotInv.PackageCount() != 1 {
		t.Errorf("PackageCount() = %d, want 1", gotInv.PackageCount())
	}
}

func TestGetDeviceNotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.GetDevice("missing")
	if !IsNotFound(err) {
		t.Errorf("GetDevice() error = %v, want ErrNotFound", err)
	}
}

func TestListDevices(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	for _, id := range []string{"b-device", "a-device"} {
		if err := store.SaveInventory(device.Device{ID: id}, nil); err != nil {
			t.Fatalf("SaveInventory(%s) failed: %v", id, err)
		}
	}

	ids, err := store.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices() failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a-device" || ids[1] != "b-device" {
		t.Errorf("ListDevices() = %v, want [a-device b-device]", ids)
	}
}

func TestInsertAndGetSnapshot(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	rec := &SnapshotRecord{
		DeviceID:     "emulator-5554",
		Path:         "/backups/emulator-5554/2024-05-01_12-30-00.json",
		CreatedAt:    created,
		UserCount:    2,
		PackageCount: 40,
	}

	id, err := store.InsertSnapshot(rec)
	if err != nil {
		t.Fatalf("InsertSnapshot() failed: %v", err)
	}
	if id <= 0 || rec.ID != id {
		t.Errorf("InsertSnapshot() id = %d (rec.ID %d), want positive and equal", id, rec.ID)
	}

	got, err := store.GetSnapshotByPath(rec.Path)
	if err != nil {
		t.Fatalf("GetSnapshotByPath() failed: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if got.UserCount != 2 || got.PackageCount != 40 {
		t.Errorf("counts = %d/%d, want 2/40", got.UserCount, got.PackageCount)
	}
}

func TestInsertSnapshotSamePathReplaces(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	rec := &SnapshotRecord{DeviceID: "d", Path: "/b/d/x.json", CreatedAt: time.Now(), PackageCount: 1}
	if _, err := store.InsertSnapshot(rec); err != nil {
		t.Fatalf("InsertSnapshot() failed: %v", err)
	}
	rec.PackageCount = 5
	if _, err := store.InsertSnapshot(rec); err != nil {
		t.Fatalf("InsertSnapshot() again failed: %v", err)
	}

	records, err := store.ListSnapshots("")
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(records) != 1 || records[0].PackageCount != 5 {
		t.Errorf("ListSnapshots() = %+v, want one row with 5 packages", records)
	}
}

func TestGetSnapshotNotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.GetSnapshotByPath("/nope.json")
	if !IsNotFound(err) {
		t.Errorf("GetSnapshotByPath() error = %v, want ErrNotFound", err)
	}
}

func TestListSnapshots(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inputs := []*SnapshotRecord{
		{DeviceID: "a", Path: "/b/a/1.json", CreatedAt: base},
		{DeviceID: "a", Path: "/b/a/2.json", CreatedAt: base.Add(time.Hour)},
		{DeviceID: "b", Path: "/b/b/1.json", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, rec := range inputs {
		if _, err := store.InsertSnapshot(rec); err != nil {
			t.Fatalf("InsertSnapshot(%s) failed: %v", rec.Path, err)
		}
	}

	all, err := store.ListSnapshots("")
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Error("Snapshots are not ordered by creation time (newest first)")
		}
	}

	onlyA, err := store.ListSnapshots("a")
	if err != nil {
		t.Fatalf("ListSnapshots(a) failed: %v", err)
	}
	if len(onlyA) != 2 || onlyA[0].Path != "/b/a/2.json" {
		t.Errorf("ListSnapshots(a) = %+v, want 2 rows newest first", onlyA)
	}
}

func TestDeleteSnapshotByPath(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	rec := &SnapshotRecord{DeviceID: "d", Path: "/b/d/x.json", CreatedAt: time.Now()}
	if _, err := store.InsertSnapshot(rec); err != nil {
		t.Fatalf("InsertSnapshot() failed: %v", err)
	}

	deleted, err := store.DeleteSnapshotByPath(rec.Path)
	if err != nil || !deleted {
		t.Fatalf("DeleteSnapshotByPath() = %v, %v; want true, nil", deleted, err)
	}

	deleted, err = store.DeleteSnapshotByPath(rec.Path)
	if err != nil || deleted {
		t.Errorf("second DeleteSnapshotByPath() = %v, %v; want false, nil", deleted, err)
	}
}

func TestDeviceCascadeDelete(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	dev, inv := testInventory()
	if err := store.SaveInventory(dev, inv); err != nil {
		t.Fatalf("SaveInventory() failed: %v", err)
	}

	if _, err := store.db.Exec("DELETE FROM devices WHERE id = ?", dev.ID); err != nil {
		t.Fatalf("delete device failed: %v", err)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM packages WHERE device_id = ?", dev.ID).Scan(&count); err != nil {
		t.Fatalf("count packages failed: %v", err)
	}
	if count != 0 {
		t.Errorf("packages left after device delete = %d, want 0", count)
	}
}
