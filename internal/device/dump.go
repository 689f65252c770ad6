package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dump is a device inventory captured by an external tool: the live user table
// plus each user's packages keyed by live user index.
type Dump struct {
	Device   Device    `json:"device" yaml:"device"`
	Packages Inventory `json:"packages" yaml:"packages"`
}

// LoadDump reads a JSON or YAML inventory dump. The format is chosen from the
// file extension; anything other than .yaml/.yml is parsed as JSON.
func LoadDump(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory dump: %w", err)
	}

	var dump Dump
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &dump)
	default:
		err = json.Unmarshal(data, &dump)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse inventory dump %s: %w", path, err)
	}

	if err := dump.Validate(); err != nil {
		return nil, err
	}
	return &dump, nil
}

// Validate checks the invariants the snapshot engine relies on: a device id,
// unique user ids and indexes, and unique package names per user.
func (d *Dump) Validate() error {
	if strings.TrimSpace(d.Device.ID) == "" {
		return fmt.Errorf("inventory dump has no device id")
	}

	ids := make(map[int]bool, len(d.Device.Users))
	indexes := make(map[int]bool, len(d.Device.Users))
	for _, u := range d.Device.Users {
		if ids[u.ID] {
			return fmt.Errorf("duplicate user id %d", u.ID)
		}
		if indexes[u.Index] {
			return fmt.Errorf("duplicate user index %d", u.Index)
		}
		ids[u.ID] = true
		indexes[u.Index] = true
	}

	for index, pkgs := range d.Packages {
		if !indexes[index] {
			return fmt.Errorf("packages listed for unknown user index %d", index)
		}
		seen := make(map[string]bool, len(pkgs))
		for _, p := range pkgs {
			if seen[p.Name] {
				return fmt.Errorf("duplicate package %s for user index %d", p.Name, index)
			}
			if !p.State.IsTarget() {
				return fmt.Errorf("package %s for user index %d has no valid state (got %s)", p.Name, index, p.State)
			}
			seen[p.Name] = true
		}
	}

	return nil
}
