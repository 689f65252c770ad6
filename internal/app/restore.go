package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/output"
	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
)

var (
	restoreFormat string
	restoreBackup string
	restoreUser   string

	restoreCmd = &cobra.Command{
		Use:   "restore <device>",
		Short: "Print the commands that restore a device to a snapshot",
		Long: `Compute the adb shell commands that bring every package recorded in the
selected snapshot back to its recorded state on the device, and print them.
Nothing is executed.

The backup and target user come from 'pkgsnap select', and can be overridden
for a single run with --backup and --user. Every user in the snapshot must
exist on the device and every package must be present in its live inventory.

Output formats:
  text  human-readable, one block per package
  json  plan entries as a JSON array, including the closing empty entry
  yaml  the same as YAML`,
		Example: `  pkgsnap restore emulator-5554
  pkgsnap restore emulator-5554 --format json > plan.json
  pkgsnap restore emulator-5554 --backup latest --user 10`,
		Args: cobra.ExactArgs(1),
		RunE: runRestore,
	}
)

func init() {
	restoreCmd.Flags().StringVarP(&restoreFormat, "format", "f", "text", "output format: text, json or yaml")
	restoreCmd.Flags().StringVar(&restoreBackup, "backup", "", "use this snapshot instead of the selected one")
	restoreCmd.Flags().StringVar(&restoreUser, "user", "", "target this user id instead of the selected one")

	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(restoreFormat)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	dev, inv, err := loadLiveDevice(st, args[0])
	if err != nil {
		return err
	}

	snaps := snapshotStore()
	sel := settings.Selection(*dev)

	if restoreBackup != "" {
		h, err := resolveBackup(snaps, dev.ID, restoreBackup)
		if err != nil {
			return err
		}
		sel.Backup = &h
	}
	if restoreUser != "" {
		id, err := parseUserID(restoreUser)
		if err != nil {
			return err
		}
		u, ok := dev.UserByID(id)
		if !ok {
			u = device.User{ID: id}
		}
		sel.User = &u
	}

	planner := snapshots.NewPlanner(snaps, device.ADBTransition{})
	plan, err := planner.ComputePlan(sel, *dev, inv)
	if err != nil {
		if errors.Is(err, snapshots.ErrNoSelection) {
			return fmt.Errorf("%w\n\nRun 'pkgsnap select %s --backup latest --user <id>' first", err, dev.ID)
		}
		return err
	}

	return output.WritePlan(cmd.OutOrStdout(), format, plan)
}
