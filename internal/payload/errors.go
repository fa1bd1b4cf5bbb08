package payload

import (
	"errors"
	"fmt"
)

// Sentinel errors for inbound payload handling.
var (
	// ErrDecode is returned when the bytes are not valid UTF-8 text.
	ErrDecode = errors.New("payload: invalid utf-8")

	// ErrParse is returned when the text is not a JSON object or a field has the wrong type.
	ErrParse = errors.New("payload: invalid json")

	// ErrMissingField is returned when a required key is absent.
	ErrMissingField = errors.New("payload: missing expected key")
)

// Error carries the failure kind and, for ErrMissingField, the key name.
type Error struct {
	Kind  error
	Field string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%v %q: %v", e.Kind, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%v %q", e.Kind, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
