package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/config"
	"github.com/blackwell-systems/pkgsnap/internal/logging"
)

var (
	configPath string
	dbPath     string
	backupRoot string
	verbosity  int

	dirs     config.Dirs
	settings *config.Settings

	// RootCmd is the root command for pkgsnap
	RootCmd = &cobra.Command{
		Use:   "pkgsnap",
		Short: "Snapshot and restore Android package states per user profile",
		Long: `pkgsnap records which packages are enabled, disabled or uninstalled for
every user profile of an Android device, and computes the adb shell commands
that bring a device back to a recorded state.

pkgsnap never talks to the device itself. The live inventory comes from a
dump file exported by your device tooling, and restore plans are printed for
you (or another tool) to run.

Quick Start:
  1. pkgsnap inventory import device.json
  2. pkgsnap backup <device>
  3. pkgsnap select <device> --backup latest --user 0
  4. pkgsnap restore <device>

Examples:
  # Show imported devices
  pkgsnap inventory show

  # List snapshots of one device
  pkgsnap list emulator-5554

  # Emit the restore plan as JSON for a runner script
  pkgsnap restore emulator-5554 --format json`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadSettings,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "pkgsnap: Android package state snapshots per user profile")
			fmt.Fprintln(out)
			if _, err := os.Stat(getDBPath()); os.IsNotExist(err) {
				fmt.Fprintln(out, "Run 'pkgsnap inventory import <dump>' to get started.")
			} else {
				fmt.Fprintln(out, "Tip: Run 'pkgsnap status' to see devices and selections.")
			}
			fmt.Fprintln(out, "Run 'pkgsnap --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default: $XDG_CONFIG_HOME/pkgsnap/settings.toml)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: $XDG_STATE_HOME/pkgsnap/pkgsnap.db)")
	RootCmd.PersistentFlags().StringVar(&backupRoot, "backup-root", "", "snapshot directory (default: $XDG_CACHE_HOME/pkgsnap/backups)")
	RootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug, -vvv trace)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadSettings resolves directories, reads settings.toml and configures
// logging before any subcommand runs. Flags win over the settings file.
func loadSettings(cmd *cobra.Command, args []string) error {
	dirs = config.ResolveDirs()

	s, err := config.Load(settingsPath(), dirs)
	if err != nil {
		return err
	}

	level := s.Verbosity
	if cmd.Flags().Changed("verbose") {
		level = verbosity
	}
	logging.Setup(level, dirs.LogFile())

	settings = s
	return nil
}
