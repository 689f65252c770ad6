package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/pkgsnap/internal/device"
)

// Inventory operations

// SaveInventory replaces the cached live inventory of a device: its user table
// and every user's package list, keeping package order.
func (s *Store) SaveInventory(dev device.Device, inv device.Inventory) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO devices (id, model, android_sdk, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			android_sdk = excluded.android_sdk,
			updated_at = excluded.updated_at
	`, dev.ID, dev.Model, dev.AndroidSDK, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", dev.ID, classify(err))
	}

	if _, err := tx.Exec(`DELETE FROM users WHERE device_id = ?`, dev.ID); err != nil {
		return fmt.Errorf("failed to clear users of %s: %w", dev.ID, err)
	}
	if _, err := tx.Exec(`DELETE FROM packages WHERE device_id = ?`, dev.ID); err != nil {
		return fmt.Errorf("failed to clear packages of %s: %w", dev.ID, err)
	}

	for _, u := range dev.Users {
		_, err := tx.Exec(`
			INSERT INTO users (device_id, user_id, user_index, protected)
			VALUES (?, ?, ?, ?)
		`, dev.ID, u.ID, u.Index, u.Protected)
		if err != nil {
			return fmt.Errorf("failed to insert user %d: %w", u.ID, err)
		}
	}

	for index, pkgs := range inv {
		for pos, p := range pkgs {
			_, err := tx.Exec(`
				INSERT INTO packages (device_id, user_index, position, name, state)
				VALUES (?, ?, ?, ?, ?)
			`, dev.ID, index, pos, p.Name, p.State.String())
			if err != nil {
				return fmt.Errorf("failed to insert package %s for user index %d: %w", p.Name, index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit inventory: %w", err)
	}
	return nil
}

// GetDevice returns a cached device with its user table ordered by live index.
func (s *Store) GetDevice(id string) (*device.Device, error) {
	dev := device.Device{ID: id}
	var model sql.NullString
	var sdk sql.NullInt64

	err := s.db.QueryRow(`SELECT model, android_sdk FROM devices WHERE id = ?`, id).Scan(&model, &sdk)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", id, classify(err))
	}
	dev.Model = model.String
	dev.AndroidSDK = int(sdk.Int64)

	rows, err := s.db.Query(`
		SELECT user_id, user_index, protected
		FROM users
		WHERE device_id = ?
		ORDER BY user_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get users of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var u device.User
		if err := rows.Scan(&u.ID, &u.Index, &u.Protected); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		dev.Users = append(dev.Users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return &dev, nil
}

// ListDevices returns the ids of all cached devices.
func (s *Store) ListDevices() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM devices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", classify(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return ids, nil
}

// LoadInventory returns a cached device together with the package lists of its
// users keyed by live user index.
func (s *Store) LoadInventory(id string) (*device.Device, device.Inventory, error) {
	dev, err := s.GetDevice(id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.Query(`
		SELECT user_index, name, state
		FROM packages
		WHERE device_id = ?
		ORDER BY user_index, position
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get packages of %s: %w", id, err)
	}
	defer rows.Close()

	inv := make(device.Inventory, len(dev.Users))
	for rows.Next() {
		var index int
		var name, state string
		if err := rows.Scan(&index, &name, &state); err != nil {
			return nil, nil, fmt.Errorf("failed to scan package row: %w", err)
		}
		st, err := device.ParseState(state)
		if err != nil {
			return nil, nil, fmt.Errorf("package %s: %w", name, err)
		}
		inv[index] = append(inv[index], device.Package{Name: name, State: st})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating packages: %w", err)
	}

	return dev, inv, nil
}

// Snapshot index operations

// InsertSnapshot records a snapshot file and returns its ID. Recording the same
// path again replaces the earlier row.
func (s *Store) InsertSnapshot(rec *SnapshotRecord) (int64, error) {
	result, err := s.db.Exec(`
		INSERT OR REPLACE INTO snapshots (device_id, snapshot_path, created_at, user_count, package_count)
		VALUES (?, ?, ?, ?, ?)
	`,
		rec.DeviceID,
		rec.Path,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.UserCount,
		rec.PackageCount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot ID: %w", err)
	}
	rec.ID = id
	return id, nil
}

// GetSnapshotByPath retrieves the index row for a snapshot file.
func (s *Store) GetSnapshotByPath(path string) (*SnapshotRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, device_id, snapshot_path, created_at, user_count, package_count
		FROM snapshots
		WHERE snapshot_path = ?
	`, path)

	rec, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", path, classify(err))
	}
	return rec, nil
}

// ListSnapshots returns indexed snapshots newest first. An empty deviceID lists
// every device.
func (s *Store) ListSnapshots(deviceID string) ([]*SnapshotRecord, error) {
	query := `
		SELECT id, device_id, snapshot_path, created_at, user_count, package_count
		FROM snapshots
		WHERE ? = '' OR device_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.Query(query, deviceID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", classify(err))
	}
	defer rows.Close()

	var records []*SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return records, nil
}

// DeleteSnapshotByPath drops the index row of a snapshot file. It reports
// whether a row existed.
func (s *Store) DeleteSnapshotByPath(path string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM snapshots WHERE snapshot_path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("failed to delete snapshot %s: %w", path, classify(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*SnapshotRecord, error) {
	var rec SnapshotRecord
	var createdAt string

	err := row.Scan(
		&rec.ID,
		&rec.DeviceID,
		&rec.Path,
		&createdAt,
		&rec.UserCount,
		&rec.PackageCount,
	)
	if err != nil {
		return nil, err
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for snapshot %d: %w", rec.ID, err)
	}
	return &rec, nil
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
