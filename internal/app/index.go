package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/output"
	"github.com/blackwell-systems/pkgsnap/internal/watcher"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the snapshot index from the backup root",
	Long: `Scan every device directory under the backup root, index each readable
snapshot file and drop index entries whose file no longer exists.

Snapshot files are the source of truth; the index can always be rebuilt.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	RootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	progress := output.NewProgress(0, "Indexing snapshots")
	stats, err := watcher.Reconcile(st, snapshotStore(), progress.Set)
	if err != nil {
		return err
	}
	progress.Finish()

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %d indexed, %d removed, %d skipped\n",
		stats.Indexed, stats.Removed, stats.Skipped)
	return nil
}
