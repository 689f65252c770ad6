package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/output"
	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
)

var (
	backupChangedOnly bool

	backupCmd = &cobra.Command{
		Use:   "backup <device>",
		Short: "Snapshot the package states of every user on a device",
		Long: `Write a new snapshot of the device's cached inventory to
<backup-root>/<device>/<YYYY-MM-DD_HH-MM-SS>.json and record it in the index.

By default every package is captured. With --changed-only only disabled and
uninstalled packages are kept, which makes a smaller debloat profile that
leaves everything else alone on restore.`,
		Example: `  pkgsnap backup emulator-5554
  pkgsnap backup emulator-5554 --changed-only`,
		Args: cobra.ExactArgs(1),
		RunE: runBackup,
	}
)

func init() {
	backupCmd.Flags().BoolVar(&backupChangedOnly, "changed-only", false, "only capture disabled and uninstalled packages")

	RootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	dev, inv, err := loadLiveDevice(st, args[0])
	if err != nil {
		return err
	}

	current := inv.ByUser(dev.Users)
	if backupChangedOnly {
		for i := range current {
			current[i] = device.ChangedOnly(current[i])
		}
	}

	builder := snapshots.NewBuilder(getBackupRoot(), snapshots.WithIndex(st))

	spinner := output.NewSpinner(fmt.Sprintf("Backing up %s", dev.ID))
	spinner.Start()
	res := <-builder.BuildAndPersistAsync(dev.Users, dev.ID, current)
	if res.Err != nil {
		spinner.Stop()
		return fmt.Errorf("backup failed: %w", res.Err)
	}
	spinner.StopWithMessage("✓ Backup written")

	total := 0
	for _, pkgs := range current {
		total += len(pkgs)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d users, %d packages)\n", res.Handle.Path, len(dev.Users), total)
	return nil
}
