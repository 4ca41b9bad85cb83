package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide how to recover.
type ErrorKind string

const (
	KindInvalidGeometry       ErrorKind = "invalid_geometry"
	KindInvalidLocale         ErrorKind = "invalid_locale"
	KindNetworkTransient      ErrorKind = "network_transient"
	KindNotFound              ErrorKind = "not_found"
	KindConflictingBackground ErrorKind = "conflicting_background"
	KindInternalInvariant     ErrorKind = "internal_invariant"
	KindInvalidInput          ErrorKind = "invalid_input"
	KindUnknownNode           ErrorKind = "unknown_node"
)

// Sentinels for errors.Is. A *Error matches the sentinel of its kind.
var (
	ErrInvalidGeometry       = &Error{Kind: KindInvalidGeometry}
	ErrInvalidLocale         = &Error{Kind: KindInvalidLocale}
	ErrNetworkTransient      = &Error{Kind: KindNetworkTransient}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrConflictingBackground = &Error{Kind: KindConflictingBackground}
	ErrInternalInvariant     = &Error{Kind: KindInternalInvariant}
	ErrInvalidInput          = &Error{Kind: KindInvalidInput}
	ErrUnknownNode           = &Error{Kind: KindUnknownNode}
)

// Error is the error type returned by model, layout, history and sync operations.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Errorf builds an *Error of the given kind with a formatted cause.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind and operation to err. A nil err stays nil.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
