package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/output"
	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
)

var usersCmd = &cobra.Command{
	Use:   "users <snapshot> | users <device> <snapshot|latest>",
	Short: "Preview the user ids recorded in a snapshot",
	Long: `Show the user ids recorded in a snapshot, as offered when picking the user a
restore targets. A snapshot only knows user ids, so the index column is always
0; the live index is looked up when the plan is computed.

An unreadable snapshot shows no users.`,
	Example: `  pkgsnap users ~/.cache/pkgsnap/backups/emulator-5554/2024-05-01_10-00-00.json
  pkgsnap users emulator-5554 latest`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUsers,
}

func init() {
	RootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	snaps := snapshotStore()

	h := snapshots.Handle{Path: args[0]}
	if len(args) == 2 {
		resolved, err := resolveBackup(snaps, args[0], args[1])
		if err != nil {
			return err
		}
		h = resolved
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderUserTable(snaps.ReadUsers(h)))
	return nil
}
