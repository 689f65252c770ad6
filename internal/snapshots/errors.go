package snapshots

import (
	"errors"
	"fmt"
)

// ErrorKind classifies snapshot failures so callers can branch on them.
type ErrorKind int

const (
	KindIO ErrorKind = iota + 1
	KindParse
	KindNoSelection
	KindUserNotFound
	KindPackageNotFound
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindNoSelection:
		return "no_selection"
	case KindUserNotFound:
		return "user_not_found"
	case KindPackageNotFound:
		return "package_not_found"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a snapshot failure with the ids and names involved.
type Error struct {
	Kind ErrorKind
	// Path is the snapshot file or directory involved, if any.
	Path string
	// Selection names the missing selection: "backup" or "user".
	Selection string
	UserID    int
	Package   string
	Err       error
}

// Sentinels for errors.Is; matching compares Kind only.
var (
	ErrIO              = &Error{Kind: KindIO}
	ErrParse           = &Error{Kind: KindParse}
	ErrNoSelection     = &Error{Kind: KindNoSelection}
	ErrUserNotFound    = &Error{Kind: KindUserNotFound}
	ErrPackageNotFound = &Error{Kind: KindPackageNotFound}
	ErrInvalid         = &Error{Kind: KindInvalid}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindIO:
		return fmt.Sprintf("snapshot I/O failed for %s: %v", e.Path, e.Err)
	case KindParse:
		return fmt.Sprintf("malformed snapshot %s: %v", e.Path, e.Err)
	case KindNoSelection:
		return fmt.Sprintf("no %s selected", e.Selection)
	case KindUserNotFound:
		return fmt.Sprintf("user %d doesn't exist on the device", e.UserID)
	case KindPackageNotFound:
		return fmt.Sprintf("package %s not found for user %d", e.Package, e.UserID)
	case KindInvalid:
		return fmt.Sprintf("invalid snapshot input: %v", e.Err)
	default:
		return fmt.Sprintf("snapshot error (%s): %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
