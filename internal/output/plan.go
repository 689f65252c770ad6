package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
)

// Format selects how a restore plan is written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

// WritePlan writes plan to w in the given format. JSON and YAML keep the
// trailing sentinel entry so consumers see exactly what was computed.
func WritePlan(w io.Writer, format Format, plan []snapshots.PlanEntry) error {
	if plan == nil {
		plan = []snapshots.PlanEntry{}
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(plan); err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		_, err := io.WriteString(w, RenderPlan(plan))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// RenderPlan renders a plan for humans. The sentinel entry is not shown.
func RenderPlan(plan []snapshots.PlanEntry) string {
	if len(plan) == 0 {
		return "Device already matches the backup. Nothing to do.\n"
	}

	var sb strings.Builder
	entries := 0
	for _, e := range plan {
		if e.IsSentinel() {
			continue
		}
		entries++
		sb.WriteString(fmt.Sprintf("%s\n", colorize(colorGray, fmt.Sprintf("# package %d", e.Index))))
		for _, cmd := range e.Commands {
			sb.WriteString("  " + cmd + "\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\n%d packages, %d commands\n", entries, snapshots.CommandCount(plan)))
	return sb.String()
}
