package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pkgsnap/internal/output"
	"github.com/blackwell-systems/pkgsnap/internal/store"
	"github.com/blackwell-systems/pkgsnap/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Keep the snapshot index in sync with the backup root",
		Long: `Watch the backup root and update the snapshot index as snapshot files are
created, copied in, deleted or renamed. The index is reconciled with the files
on disk when the watcher starts.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as background process
  • Stop: Stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  pkgsnap watch

  # Run as background daemon
  pkgsnap watch --daemon

  # Stop running daemon
  pkgsnap watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, watcher.DaemonChildFlag, false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: $XDG_STATE_HOME/pkgsnap/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "daemon output file (default: $XDG_STATE_HOME/pkgsnap/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden(watcher.DaemonChildFlag)

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		watchPIDFile = getDefaultPIDFile()
	}
	if watchLogFile == "" {
		watchLogFile = getDefaultLogFile()
	}
	if err := os.MkdirAll(dirs.State, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if watchStop {
		return stopWatchDaemon()
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	w, err := watcher.New(st, snapshotStore())
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	switch {
	case watchDaemon:
		return startWatchDaemon(w)
	case watchDaemonChild:
		return w.RunDaemon(watchPIDFile)
	default:
		return runWatchForeground(w, st)
	}
}

func stopWatchDaemon() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon")
	spinner.Start()
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")
	return nil
}

func startWatchDaemon(w *watcher.Watcher) error {
	// The child re-reads settings, so only explicit overrides are passed on.
	var extra []string
	if configPath != "" {
		extra = append(extra, "--config", configPath)
	}
	if dbPath != "" {
		extra = append(extra, "--db", dbPath)
	}
	if backupRoot != "" {
		extra = append(extra, "--backup-root", backupRoot)
	}
	extra = append(extra, "--pid-file", watchPIDFile)

	if err := w.StartDaemon(watchPIDFile, watchLogFile, extra...); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Println("✓ Index watcher started")
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchLogFile)
	fmt.Printf("\nTo stop: pkgsnap watch --stop\n")
	return nil
}

func runWatchForeground(w *watcher.Watcher, st *store.Store) error {
	w.OnChange(func(ev watcher.Event) {
		fmt.Printf("%-8s %s\n", ev.Op, ev.Path)
	})

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	recs, err := st.ListSnapshots("")
	if err == nil {
		fmt.Printf("✓ Watching %s (%d snapshots indexed)\n", getBackupRoot(), len(recs))
	}
	fmt.Println("Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	<-sigCh

	fmt.Println("\nStopping watcher...")
	return w.Stop()
}
