package credentials

import (
	"errors"
	"io/fs"
	"os"
)

// Paths holds the three files needed for a mutually authenticated session.
type Paths struct {
	CACert string
	Cert   string
	Key    string
}

// entries returns the paths in verification order with their labels.
func (p Paths) entries() []struct{ label, path string } {
	return []struct{ label, path string }{
		{"CA certificate", p.CACert},
		{"client certificate", p.Cert},
		{"client key", p.Key},
	}
}

// Verify checks that every path resolves to a readable regular file.
//
// Files are checked in order CA certificate, client certificate, client key;
// the first failure is returned as *Error.
//
// Returns:
//   - error: nil if all files are usable, *Error otherwise
func Verify(paths Paths) error {
	for _, e := range paths.entries() {
		if err := checkFile(e.label, e.path); err != nil {
			return err
		}
	}
	return nil
}

// checkFile stats path and opens it for reading.
func checkFile(label, path string) error {
	if path == "" {
		return &Error{Kind: ErrFileNotFound, Label: label, Path: path}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return &Error{Kind: ErrPermissionDenied, Label: label, Path: path, Err: err}
		}
		return &Error{Kind: ErrFileNotFound, Label: label, Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &Error{Kind: ErrFileNotFound, Label: label, Path: path}
	}

	f, err := os.Open(path)
	if err != nil {
		return &Error{Kind: ErrPermissionDenied, Label: label, Path: path, Err: err}
	}
	//nolint:errcheck // read-only handle, nothing to flush
	f.Close()

	return nil
}
