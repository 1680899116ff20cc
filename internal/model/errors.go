package model

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned by identity providers with no acting user.
var ErrUnauthenticated = errors.New("no authenticated user")

// TransportError reports a failed remote read or write.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError reports that a key resolves to no value.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ConflictError is reserved for remote stores that detect write conflicts.
// Nothing in this module raises it.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: conflicting write", e.Kind, e.ID)
}

// ValidationError reports a malformed record at the remote boundary.
type ValidationError struct {
	Kind   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Kind, e.Field, e.Reason)
}

// PartialWriteError reports a write whose primary effect reached the remote
// store while a follow-up write failed. The primary effect stands; retrying
// the whole operation would repeat it.
type PartialWriteError struct {
	Op  string
	Err error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: %s: %v", e.Op, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// IsPartialWrite reports whether err wraps a PartialWriteError.
func IsPartialWrite(err error) bool {
	var pw *PartialWriteError
	return errors.As(err, &pw)
}

// IsTransport reports whether err wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Classified reports whether err already belongs to the error taxonomy.
func Classified(err error) bool {
	var (
		te *TransportError
		nf *NotFoundError
		ce *ConflictError
		ve *ValidationError
		pw *PartialWriteError
	)
	return errors.As(err, &te) || errors.As(err, &nf) || errors.As(err, &ce) ||
		errors.As(err, &ve) || errors.As(err, &pw) || errors.Is(err, ErrUnauthenticated)
}
