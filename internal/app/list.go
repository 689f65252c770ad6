package app

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/output"
	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

var (
	listIndexed bool

	listCmd = &cobra.Command{
		Use:   "list [device]",
		Short: "List snapshots",
		Long: `List the snapshots under the backup root, newest first.

Without --indexed the backup directories are scanned; unreadable files are
still listed with zero counts. With --indexed the snapshot index is read
instead, which is faster for large backup roots but only as fresh as the last
'pkgsnap index' or 'pkgsnap watch'.`,
		Example: `  pkgsnap list
  pkgsnap list emulator-5554
  pkgsnap list --indexed`,
		Args: cobra.MaximumNArgs(1),
		RunE: runList,
	}
)

func init() {
	listCmd.Flags().BoolVar(&listIndexed, "indexed", false, "read the snapshot index instead of scanning files")

	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	deviceID := ""
	if len(args) == 1 {
		deviceID = args[0]
	}

	var records []*store.SnapshotRecord
	if listIndexed {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		records, err = st.ListSnapshots(deviceID)
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}
	} else {
		records = scanSnapshots(snapshotStore(), deviceID)
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderSnapshotTable(records))
	return nil
}

// scanSnapshots describes the snapshot files of one device, or of all devices
// when deviceID is empty. Files that cannot be read are kept with zero counts.
func scanSnapshots(snaps *snapshots.Store, deviceID string) []*store.SnapshotRecord {
	devices := []string{deviceID}
	if deviceID == "" {
		devices = snaps.Devices()
	}

	var records []*store.SnapshotRecord
	for _, id := range devices {
		for _, h := range snaps.ListDevice(id) {
			if !snapshots.IsSnapshotFile(filepath.Base(h.Path)) {
				continue
			}
			rec, err := snaps.Record(h)
			if err != nil {
				log.Warn().Err(err).Str("path", h.Path).Msg("unreadable snapshot")
				createdAt, _ := h.CreatedAt()
				rec = &store.SnapshotRecord{DeviceID: h.DeviceID(), Path: h.Path, CreatedAt: createdAt}
			}
			records = append(records, rec)
		}
	}
	return records
}
