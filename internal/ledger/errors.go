package ledger

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Match with errors.Is.
var (
	ErrInvalidRange        = errors.New("invalid range")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrExternalRead        = errors.New("external read failure")
	ErrValidation          = errors.New("validation failure")
	ErrNotFound            = errors.New("not found")
)

// Error carries the failing operation alongside one of the sentinel kinds.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error's kind so errors.Is(err, ErrValidation) works through wrapping.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// Errorf builds an *Error of the given kind with a formatted detail message.
func Errorf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// ReadFailure wraps a collaborator error as ErrExternalRead. A nil err stays nil.
// Errors that already carry ErrNotFound keep that kind.
func ReadFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return &Error{Kind: ErrNotFound, Op: op, Err: err}
	}
	return &Error{Kind: ErrExternalRead, Op: op, Err: err}
}

// IsExternal reports whether err came from a collaborator rather than the engine.
func IsExternal(err error) bool {
	return errors.Is(err, ErrExternalRead)
}
