package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindConflict    ErrorKind = "conflict"
	KindNotFound    ErrorKind = "not_found"
	KindPersistence ErrorKind = "persistence"
)

// Error is the typed failure returned by every engine operation. Two errors
// match under errors.Is when kind and code are equal, so sentinel values can
// be compared after details (status, cause) have been attached.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	// Status is the current connection status for RequestExists conflicts.
	Status ConnectionStatus
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithStatus returns a copy of e carrying the given connection status.
func (e *Error) WithStatus(status ConnectionStatus) *Error {
	cp := *e
	cp.Status = status
	return &cp
}

func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Persistence wraps a storage failure.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Code: "PersistenceError", Message: op, Err: err}
}

// KindOf reports the kind of err, treating anything untyped as a persistence failure.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindPersistence
}

var ErrMissingIdentity = NewError(KindValidation, "MissingIdentity", "caller identity is required")
