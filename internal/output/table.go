// Package output provides terminal output utilities for pkgsnap.
//
// This package includes:
//   - Table rendering for snapshots, user profiles and device inventories
//   - Restore plan rendering as text, JSON or YAML
//   - Progress bars and spinners for long-running operations
//
// Tables use plain characters and ANSI color codes when stdout is a terminal.
// Progress indicators are safe for use from multiple goroutines.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/pkgsnap/internal/device"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

// ANSI color codes for package states and plan output
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// stateColor returns the ANSI color used for a package state.
func stateColor(s device.PackageState) string {
	switch s {
	case device.Enabled:
		return colorGreen
	case device.Disabled:
		return colorYellow
	case device.Uninstalled:
		return colorRed
	default:
		return colorGray
	}
}

// RenderSnapshotTable renders indexed snapshots, newest first.
func RenderSnapshotTable(records []*store.SnapshotRecord) string {
	if len(records) == 0 {
		return "No snapshots found.\n"
	}

	sorted := make([]*store.SnapshotRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %-26s %-15s %-6s %s\n",
		"Device", "Snapshot", "Created", "Users", "Packages"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, rec := range sorted {
		sb.WriteString(fmt.Sprintf("%-20s %-26s %-15s %-6d %d\n",
			truncate(rec.DeviceID, 20),
			truncate(baseName(rec.Path), 26),
			formatRelativeTime(rec.CreatedAt),
			rec.UserCount,
			rec.PackageCount))
	}

	return sb.String()
}

// RenderUserTable renders the user profiles of a device or snapshot.
func RenderUserTable(users []device.User) string {
	if len(users) == 0 {
		return "No users found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-8s %-8s %s\n", "User", "Index", "Protected"))
	sb.WriteString(strings.Repeat("─", 30))
	sb.WriteString("\n")

	for _, u := range users {
		protected := "no"
		if u.Protected {
			protected = colorize(colorYellow, "yes")
		}
		sb.WriteString(fmt.Sprintf("%-8d %-8d %s\n", u.ID, u.Index, protected))
	}

	return sb.String()
}

// RenderInventoryTable renders per-user state counts of a device inventory.
func RenderInventoryTable(dev device.Device, inv device.Inventory) string {
	if len(dev.Users) == 0 {
		return "No users found.\n"
	}

	var sb strings.Builder

	header := dev.ID
	if dev.Model != "" {
		header = fmt.Sprintf("%s (%s)", dev.ID, dev.Model)
	}
	if dev.AndroidSDK > 0 {
		header = fmt.Sprintf("%s, SDK %d", header, dev.AndroidSDK)
	}
	sb.WriteString(header + "\n\n")

	sb.WriteString(fmt.Sprintf("%-8s %-10s %-10s %-12s %s\n",
		"User", "Enabled", "Disabled", "Uninstalled", "Total"))
	sb.WriteString(strings.Repeat("─", 52))
	sb.WriteString("\n")

	for _, u := range dev.Users {
		counts := make(map[device.PackageState]int)
		for _, p := range inv[u.Index] {
			counts[p.State]++
		}
		sb.WriteString(fmt.Sprintf("%-8d %-10d %-10d %-12d %d\n",
			u.ID,
			counts[device.Enabled],
			counts[device.Disabled],
			counts[device.Uninstalled],
			len(inv[u.Index])))
	}

	return sb.String()
}

// formatState returns a colored display label for a package state.
func formatState(s device.PackageState) string {
	return colorize(stateColor(s), s.String())
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// RenderPackageList renders one user's packages with their states.
func RenderPackageList(pkgs []device.Package) string {
	if len(pkgs) == 0 {
		return "No packages found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-50s %s\n", "#", "Package", "State"))
	sb.WriteString(strings.Repeat("─", 70))
	sb.WriteString("\n")

	for i, p := range pkgs {
		sb.WriteString(fmt.Sprintf("%-5d %-50s %s\n", i, truncate(p.Name, 50), formatState(p.State)))
	}

	return sb.String()
}
