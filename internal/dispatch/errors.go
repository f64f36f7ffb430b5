package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel kinds for failed lookups, matched with errors.Is.
var (
	ErrNotFound              = errors.New("method not found")
	ErrAbstractUnimplemented = errors.New("abstract method unimplemented")
	ErrUnknownNode           = errors.New("unknown node")
)

// Error wraps a failed method lookup.
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
