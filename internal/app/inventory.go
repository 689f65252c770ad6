package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/output"
)

var (
	inventoryShowUser int

	inventoryCmd = &cobra.Command{
		Use:   "inventory",
		Short: "Manage the cached live inventory of devices",
		Long: `The live inventory is the current user table and per-user package states of
a device. pkgsnap does not query devices itself; import a dump produced by your
device tooling and every other command reads the device from the cache.`,
	}

	inventoryImportCmd = &cobra.Command{
		Use:   "import <dump-file>",
		Short: "Import a device inventory dump (JSON or YAML)",
		Long: `Import a device inventory dump into the local database, replacing any earlier
inventory of the same device.

The dump holds the device and its users, plus each user's packages keyed by
live user index:

  device:
    id: emulator-5554
    model: sdk_gphone64
    android_sdk: 34
    users:
      - {id: 0, index: 0, protected: false}
      - {id: 10, index: 1, protected: false}
  packages:
    0:
      - {name: com.android.chrome, state: Enabled}
      - {name: com.facebook.katana, state: Uninstalled}
    1:
      - {name: com.android.chrome, state: Disabled}`,
		Example: `  pkgsnap inventory import device.json
  pkgsnap inventory import work-phone.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runInventoryImport,
	}

	inventoryShowCmd = &cobra.Command{
		Use:   "show [device]",
		Short: "Show cached devices or one device's inventory",
		Example: `  pkgsnap inventory show                     # list cached devices
  pkgsnap inventory show emulator-5554       # per-user state counts
  pkgsnap inventory show emulator-5554 -u 0  # packages of user 0`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInventoryShow,
	}
)

func init() {
	inventoryShowCmd.Flags().IntVarP(&inventoryShowUser, "user", "u", -1, "list the packages of this user id")

	inventoryCmd.AddCommand(inventoryImportCmd)
	inventoryCmd.AddCommand(inventoryShowCmd)
	RootCmd.AddCommand(inventoryCmd)
}

func runInventoryImport(cmd *cobra.Command, args []string) error {
	dump, err := device.LoadDump(args[0])
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveInventory(dump.Device, dump.Packages); err != nil {
		return fmt.Errorf("failed to save inventory: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %s: %d users, %d packages\n",
		dump.Device.ID, len(dump.Device.Users), dump.Packages.PackageCount())
	return nil
}

func runInventoryShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		ids, err := st.ListDevices()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(out, "No devices imported yet. Run 'pkgsnap inventory import <dump>'.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	}

	dev, inv, err := loadLiveDevice(st, args[0])
	if err != nil {
		return err
	}

	if inventoryShowUser < 0 {
		fmt.Fprint(out, output.RenderInventoryTable(*dev, inv))
		return nil
	}

	u, ok := dev.UserByID(inventoryShowUser)
	if !ok {
		return fmt.Errorf("user %d doesn't exist on device %s", inventoryShowUser, dev.ID)
	}
	fmt.Fprint(out, output.RenderPackageList(inv[u.Index]))
	return nil
}
