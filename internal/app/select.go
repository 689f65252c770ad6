package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

var (
	selectBackup string
	selectUser   string
	selectClear  bool

	selectCmd = &cobra.Command{
		Use:   "select <device>",
		Short: "Choose the backup and target user for restore",
		Long: `Remember which backup to restore on a device and which user profile the
restore commands target. The choice is saved in settings.toml and used by
'pkgsnap restore' until changed.

Without flags the current selection is shown.`,
		Example: `  pkgsnap select emulator-5554 --backup latest --user 0
  pkgsnap select emulator-5554 --backup 2024-05-01_10-00-00.json
  pkgsnap select emulator-5554 --clear`,
		Args: cobra.ExactArgs(1),
		RunE: runSelect,
	}
)

func init() {
	selectCmd.Flags().StringVar(&selectBackup, "backup", "", "snapshot file name, path, or 'latest'")
	selectCmd.Flags().StringVar(&selectUser, "user", "", "user id the restore commands target")
	selectCmd.Flags().BoolVar(&selectClear, "clear", false, "forget the selection for this device")

	RootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	deviceID := args[0]
	out := cmd.OutOrStdout()

	if selectClear {
		settings.ClearSelection(deviceID)
		if err := settings.Save(settingsPath()); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Selection cleared for %s\n", deviceID)
		return nil
	}

	if selectBackup != "" {
		h, err := resolveBackup(snapshotStore(), deviceID, selectBackup)
		if err != nil {
			return err
		}
		settings.SelectBackup(deviceID, h.Path)
	}

	if selectUser != "" {
		id, err := parseUserID(selectUser)
		if err != nil {
			return err
		}
		if err := checkUserOnDevice(deviceID, id); err != nil {
			return err
		}
		settings.SelectUser(deviceID, id)
	}

	if selectBackup != "" || selectUser != "" {
		if err := settings.Save(settingsPath()); err != nil {
			return err
		}
	}

	ds := settings.Devices[deviceID]
	backup := "(none)"
	if ds.SelectedBackup != "" {
		backup = ds.SelectedBackup + indexedCounts(ds.SelectedBackup)
	}
	user := "(none)"
	if ds.SelectedUser != nil {
		user = strconv.Itoa(*ds.SelectedUser)
	}
	fmt.Fprintf(out, "Device: %s\n  Backup: %s\n  User:   %s\n", deviceID, backup, user)
	return nil
}

// checkUserOnDevice rejects a user id the cached inventory does not know. A
// device without an imported inventory is not checked.
func checkUserOnDevice(deviceID string, id int) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	dev, err := st.GetDevice(deviceID)
	if store.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := dev.UserByID(id); !ok {
		return fmt.Errorf("user %d doesn't exist on device %s (users: %s)", id, deviceID, userIDs(dev.Users))
	}
	return nil
}

func userIDs(users []device.User) string {
	s := ""
	for i, u := range users {
		if i > 0 {
			s += ", "
		}
		s += strconv.Itoa(u.ID)
	}
	return s
}

// indexedCounts describes a snapshot from the index, or returns "" when the
// file has not been indexed.
func indexedCounts(path string) string {
	st, err := openStore()
	if err != nil {
		return ""
	}
	defer st.Close()

	rec, err := st.GetSnapshotByPath(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (%d users, %d packages)", rec.UserCount, rec.PackageCount)
}
