package app

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/pkgsnap/internal/config"
)

// setupTestEnv points every pkgsnap directory at a fresh temp dir and clears
// flag values left behind by earlier command runs.
func setupTestEnv(t *testing.T) string {
	t.Helper()

	tmp := t.TempDir()
	t.Setenv(config.EnvConfigDir, filepath.Join(tmp, "config"))
	t.Setenv(config.EnvCacheDir, filepath.Join(tmp, "cache"))
	t.Setenv(config.EnvStateDir, filepath.Join(tmp, "state"))

	configPath, dbPath, backupRoot, verbosity = "", "", "", 0
	backupChangedOnly = false
	listIndexed = false
	inventoryShowUser = -1
	selectBackup, selectUser, selectClear = "", "", false
	restoreFormat, restoreBackup, restoreUser = "text", "", ""
	watchDaemon, watchDaemonChild, watchStop = false, false, false
	watchPIDFile, watchLogFile = "", ""

	// cobra keeps --help set after a help run
	if f := RootCmd.Flags().Lookup("help"); f != nil {
		f.Value.Set("false")
	}

	return tmp
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	if args == nil {
		// cobra falls back to os.Args for a nil slice
		args = []string{}
	}

	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs(args)
	defer func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs([]string{})
	}()

	err := RootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "pkgsnap" {
		t.Errorf("expected Use to be 'pkgsnap', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if !strings.Contains(RootCmd.Long, "Quick Start") {
		t.Error("expected Long description to contain 'Quick Start' section")
	}

	if !RootCmd.SilenceUsage || !RootCmd.SilenceErrors {
		t.Error("expected SilenceUsage and SilenceErrors to be true")
	}

	if RootCmd.SuggestionsMinimumDistance != 2 {
		t.Errorf("SuggestionsMinimumDistance = %d, want 2", RootCmd.SuggestionsMinimumDistance)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	expected := []string{"inventory", "backup", "list", "users", "select", "restore", "index", "status", "watch"}

	found := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		found[cmd.Name()] = true
	}

	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected command '%s' to be registered", name)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "db", "backup-root", "verbose"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}

	if f := RootCmd.PersistentFlags().ShorthandLookup("v"); f == nil || f.Name != "verbose" {
		t.Error("expected -v to be the shorthand for --verbose")
	}
}

func TestRootCmd_BareInvocation(t *testing.T) {
	setupTestEnv(t)

	out, err := runCLI(t)
	if err != nil {
		t.Fatalf("bare invocation returned error: %v", err)
	}

	if !strings.Contains(out, "inventory import") {
		t.Errorf("expected first-run hint, got: %s", out)
	}
}

func TestRootCommandHelp(t *testing.T) {
	setupTestEnv(t)

	out, err := runCLI(t, "--help")
	if err != nil {
		t.Errorf("expected --help to succeed, got error: %v", err)
	}

	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected help output to contain 'Usage:', got: %s", out)
	}
}

func TestUnknownSubcommand(t *testing.T) {
	setupTestEnv(t)

	_, err := runCLI(t, "blorp")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected error to contain 'unknown command', got: %v", err)
	}
}

func TestPathsFollowFlagsThenSettingsThenDefaults(t *testing.T) {
	tmp := setupTestEnv(t)

	dirs = config.ResolveDirs()
	settings = config.Default(dirs)
	defer func() { settings = nil }()

	if got, want := getDBPath(), filepath.Join(tmp, "state", "pkgsnap.db"); got != want {
		t.Errorf("default db path = %s, want %s", got, want)
	}
	if got, want := getBackupRoot(), filepath.Join(tmp, "cache", "backups"); got != want {
		t.Errorf("default backup root = %s, want %s", got, want)
	}
	if got, want := settingsPath(), filepath.Join(tmp, "config", "settings.toml"); got != want {
		t.Errorf("default settings path = %s, want %s", got, want)
	}

	settings.Database = "/srv/pkgsnap/index.db"
	settings.BackupRoot = "/srv/pkgsnap/backups"
	if got := getDBPath(); got != "/srv/pkgsnap/index.db" {
		t.Errorf("settings db path = %s", got)
	}
	if got := getBackupRoot(); got != "/srv/pkgsnap/backups" {
		t.Errorf("settings backup root = %s", got)
	}

	dbPath = "/tmp/flag.db"
	backupRoot = "/tmp/flag-backups"
	defer func() { dbPath, backupRoot = "", "" }()
	if got := getDBPath(); got != "/tmp/flag.db" {
		t.Errorf("flag db path = %s", got)
	}
	if got := getBackupRoot(); got != "/tmp/flag-backups" {
		t.Errorf("flag backup root = %s", got)
	}
}

func TestGetDefaultDaemonFiles(t *testing.T) {
	tmp := setupTestEnv(t)
	dirs = config.ResolveDirs()

	if got, want := getDefaultPIDFile(), filepath.Join(tmp, "state", "watch.pid"); got != want {
		t.Errorf("pid file = %s, want %s", got, want)
	}
	if got, want := getDefaultLogFile(), filepath.Join(tmp, "state", "watch.log"); got != want {
		t.Errorf("log file = %s, want %s", got, want)
	}
}

func TestExecute(t *testing.T) {
	_ = Execute
}
