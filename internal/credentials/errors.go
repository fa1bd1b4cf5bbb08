package credentials

import (
	"errors"
	"fmt"
)

// Sentinel errors for credential verification.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrFileNotFound is returned when a path does not name an existing regular file.
	ErrFileNotFound = errors.New("certificate file not found")

	// ErrPermissionDenied is returned when a file exists but cannot be read.
	ErrPermissionDenied = errors.New("certificate file not readable")
)

// Error describes which credential failed verification.
type Error struct {
	// Kind is ErrFileNotFound or ErrPermissionDenied.
	Kind error

	// Label names the credential ("CA certificate", "client certificate", "client key").
	Label string

	// Path is the offending file path as configured.
	Path string

	// Err is the underlying filesystem error, if any.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Path)
}

// Unwrap exposes both the kind sentinel and the filesystem cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
