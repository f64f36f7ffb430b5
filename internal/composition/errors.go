package composition

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for composition validation failures. Callers classify with
// errors.Is; the wrapping Error carries the offending names.
var (
	ErrInvalidNode       = errors.New("invalid node declaration")
	ErrDuplicateNode     = errors.New("duplicate node")
	ErrDuplicateMixin    = errors.New("duplicate mixin")
	ErrDuplicateField    = errors.New("duplicate field")
	ErrUnknownAncestor   = errors.New("unknown ancestor")
	ErrMissingRoot       = errors.New("missing root")
	ErrCyclicComposition = errors.New("cyclic composition")
	ErrDisconnected      = errors.New("disconnected node")
)

// Error wraps a deterministic composition validation failure.
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

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = strings.Join(path, " -> ")
	}
	return &Error{Kind: ErrCyclicComposition, Msg: msg}
}
