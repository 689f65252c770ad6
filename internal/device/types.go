package device

import (
	"fmt"
	"strings"
)

// PackageState is the install state of a package for one user profile.
type PackageState int

// The zero value is not a state, so a record that never set one is caught
// by IsTarget instead of reading as Enabled.
const (
	Enabled PackageState = iota + 1
	Uninstalled
	Disabled
	// All only appears in filters; it is never a transition target.
	All
)

var stateNames = map[PackageState]string{
	Enabled:     "Enabled",
	Uninstalled: "Uninstalled",
	Disabled:    "Disabled",
	All:         "All",
}

// IsTarget reports whether s is a concrete state a package can be in.
func (s PackageState) IsTarget() bool {
	return s == Enabled || s == Uninstalled || s == Disabled
}

// String returns the state name as stored in snapshot files.
func (s PackageState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PackageState(%d)", int(s))
}

// ParseState parses a state name, case-insensitively.
func ParseState(name string) (PackageState, error) {
	for state, n := range stateNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown package state %q", name)
}

// MarshalText implements encoding.TextMarshaler so the state is written by name
// in JSON, TOML and YAML.
func (s PackageState) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown package state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PackageState) UnmarshalText(text []byte) error {
	state, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// Package is an application identified by name within one user's package set.
type Package struct {
	Name  string       `json:"name" yaml:"name"`
	State PackageState `json:"state" yaml:"state"`
}

// User is a user profile on a device.
//
// ID is stable across snapshots. Index is the profile's position in the live
// device's user table and is only meaningful against the inventory it came
// with; it is never written to a snapshot.
type User struct {
	ID        int  `json:"id" yaml:"id"`
	Index     int  `json:"index" yaml:"index"`
	Protected bool `json:"protected" yaml:"protected"`
}

// Device is a managed device and its current user table.
type Device struct {
	ID         string `json:"id" yaml:"id"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	AndroidSDK int    `json:"android_sdk,omitempty" yaml:"android_sdk,omitempty"`
	Users      []User `json:"users" yaml:"users"`
}

// UserByID returns the live user with the given stable id.
func (d Device) UserByID(id int) (User, bool) {
	for _, u := range d.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// Inventory holds the live package list of each user, keyed by live user index.
type Inventory map[int][]Package

// Find looks up a package by name in the package list of the user at index.
func (inv Inventory) Find(index int, name string) (Package, bool) {
	for _, p := range inv[index] {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

// ByUser returns the package lists aligned positionally with users.
func (inv Inventory) ByUser(users []User) [][]Package {
	out := make([][]Package, len(users))
	for i, u := range users {
		out[i] = inv[u.Index]
	}
	return out
}

// PackageCount returns the number of packages across all users.
func (inv Inventory) PackageCount() int {
	n := 0
	for _, pkgs := range inv {
		n += len(pkgs)
	}
	return n
}

// ChangedOnly returns the packages that are disabled or uninstalled, in order.
// Snapshot capture stores whatever it is given; callers that only want to back
// up deviations from the stock state filter with this first.
func ChangedOnly(pkgs []Package) []Package {
	out := make([]Package, 0, len(pkgs))
	for _, p := range pkgs {
		if p.State == Disabled || p.State == Uninstalled {
			out = append(out, p)
		}
	}
	return out
}
