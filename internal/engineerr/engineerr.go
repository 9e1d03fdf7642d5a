// Package engineerr defines the error kinds surfaced by the impact engine.
package engineerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidGeometry
	KindNotFound
	KindInvalidArgument
	KindComputationFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidGeometry:
		return "invalid geometry"
	case KindNotFound:
		return "not found"
	case KindInvalidArgument:
		return "invalid argument"
	case KindComputationFailure:
		return "computation failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrInvalidGeometry    = &Error{Kind: KindInvalidGeometry}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrComputationFailure = &Error{Kind: KindComputationFailure}
)

// Error is an engine error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == ""
}

func InvalidGeometry(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidGeometry, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func InvalidArgument(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func ComputationFailure(op, format string, args ...any) error {
	return &Error{Kind: KindComputationFailure, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first engine error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
