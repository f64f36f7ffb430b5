package construct

import (
	"errors"
	"fmt"
)

// Sentinel kinds for failed construction runs, matched with errors.Is.
var (
	ErrMissingInitializer = errors.New("missing initializer")
	ErrUnknownField       = errors.New("unknown field")
	ErrFieldType          = errors.New("field type mismatch")
)

// Error wraps a failed construction run.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
