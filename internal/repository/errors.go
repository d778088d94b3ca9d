package repository

import (
	"errors"
	"fmt"
)

// Code is an RFC 8181 error code.
type Code string

const (
	CodeObjectAlreadyPresent Code = "object_already_present"
	CodeNoObjectPresent      Code = "no_object_present"
	CodeNoObjectMatchingHash Code = "no_object_matching_hash"
	CodePermissionFailure    Code = "permission_failure"
)

// Error rejects one element of a publish query. The whole query is rolled
// back when any element fails.
type Error struct {
	Code Code
	URI  string
	Tag  string
}

func (e *Error) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("repository: %s: %s (tag %s)", e.Code, e.URI, e.Tag)
	}
	return fmt.Sprintf("repository: %s: %s", e.Code, e.URI)
}

// Is matches the Err* sentinels by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrObjectAlreadyPresent = &Error{Code: CodeObjectAlreadyPresent}
	ErrNoObjectPresent      = &Error{Code: CodeNoObjectPresent}
	ErrNoObjectMatchingHash = &Error{Code: CodeNoObjectMatchingHash}
	ErrPermissionFailure    = &Error{Code: CodePermissionFailure}

	ErrUnknownPublisher = errors.New("repository: unknown publisher")
	ErrPublisherExists  = errors.New("repository: publisher already registered")
	ErrInvalidPublisher = errors.New("repository: invalid publisher")
	ErrNotQuery         = errors.New("repository: message is not a query")
)

// CodeOf returns the RFC 8181 code carried by err, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
