package device

import "fmt"

// Transition maps a package and a target state to the ordered shell commands
// that move the package into that state for a user on a device. Implementations
// must be pure: an empty result means the package is already in the target
// state and nothing needs to run.
type Transition interface {
	Commands(pkg Package, target PackageState, user User, dev Device) []string
}

// TransitionFunc adapts an ordinary function to the Transition interface.
type TransitionFunc func(pkg Package, target PackageState, user User, dev Device) []string

// Commands calls f.
func (f TransitionFunc) Commands(pkg Package, target PackageState, user User, dev Device) []string {
	return f(pkg, target, user, dev)
}

// sdkInstallExisting is the first Android release shipping the
// "cmd package install-existing" entry point.
const sdkInstallExisting = 26

// ADBTransition emits "pm"/"cmd package" commands run through an adb shell.
type ADBTransition struct{}

// Commands implements Transition.
func (ADBTransition) Commands(pkg Package, target PackageState, user User, dev Device) []string {
	if target == All || pkg.State == target {
		return nil
	}

	switch target {
	case Enabled:
		if pkg.State == Uninstalled {
			return []string{installExisting(pkg.Name, user, dev)}
		}
		return []string{fmt.Sprintf("pm enable --user %d %s", user.ID, pkg.Name)}

	case Disabled:
		cmds := []string{}
		if pkg.State == Uninstalled {
			cmds = append(cmds, installExisting(pkg.Name, user, dev))
		}
		cmds = append(cmds,
			fmt.Sprintf("am force-stop --user %d %s", user.ID, pkg.Name),
			fmt.Sprintf("pm disable-user --user %d %s", user.ID, pkg.Name),
		)
		return cmds

	case Uninstalled:
		return []string{fmt.Sprintf("pm uninstall -k --user %d %s", user.ID, pkg.Name)}
	}

	return nil
}

func installExisting(name string, user User, dev Device) string {
	// A zero SDK means the level is unknown; assume a modern device.
	if dev.AndroidSDK != 0 && dev.AndroidSDK < sdkInstallExisting {
		return fmt.Sprintf("pm install-existing --user %d %s", user.ID, name)
	}
	return fmt.Sprintf("cmd package install-existing --user %d %s", user.ID, name)
}
