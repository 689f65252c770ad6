package app

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/watcher"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show paths, watcher state and per-device selections",
	Long: `Display where pkgsnap keeps its data, whether the index watcher daemon is
running, and for every known device how many snapshots exist and what is
selected for restore.`,
	Example: `  pkgsnap status`,
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	const label = "%-14s"

	running, err := watcher.IsDaemonRunning(getDefaultPIDFile())
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	dbInfo := "not created"
	if fi, err := os.Stat(getDBPath()); err == nil {
		dbInfo = formatSize(fi.Size())
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, label+"%s\n", "Settings:", settingsPath())
	fmt.Fprintf(out, label+"%s (%s)\n", "Database:", getDBPath(), dbInfo)
	fmt.Fprintf(out, label+"%s\n", "Backups:", getBackupRoot())
	if running {
		fmt.Fprintf(out, label+"running\n", "Watcher:")
	} else {
		fmt.Fprintf(out, label+"stopped  (run 'pkgsnap watch --daemon')\n", "Watcher:")
	}

	// Devices known from any source: inventory cache, backups or settings.
	known := make(map[string]bool)
	snaps := snapshotStore()
	for _, id := range snaps.Devices() {
		known[id] = true
	}
	for id := range settings.Devices {
		known[id] = true
	}
	if st, err := openStore(); err == nil {
		if ids, err := st.ListDevices(); err == nil {
			for _, id := range ids {
				known[id] = true
			}
		}
		st.Close()
	}

	ids := make([]string, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintln(out)
	if len(ids) == 0 {
		fmt.Fprintln(out, "No devices yet. Run 'pkgsnap inventory import <dump>' to get started.")
		fmt.Fprintln(out)
		return nil
	}

	fmt.Fprintf(out, "%-20s %-10s %-28s %s\n", "Device", "Backups", "Selected backup", "User")
	for _, id := range ids {
		ds := settings.Devices[id]
		backup := "-"
		if ds.SelectedBackup != "" {
			backup = truncateLeft(ds.SelectedBackup, 28)
		}
		user := "-"
		if ds.SelectedUser != nil {
			user = strconv.Itoa(*ds.SelectedUser)
		}
		fmt.Fprintf(out, "%-20s %-10d %-28s %s\n", id, len(snaps.ListDevice(id)), backup, user)
	}
	fmt.Fprintln(out)
	return nil
}

// truncateLeft keeps the end of s, which is the informative part of a path.
func truncateLeft(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen+3:]
}
