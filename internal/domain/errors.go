package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindSourceUnavailable       ErrorKind = "SOURCE_UNAVAILABLE"
	KindCorruptArchive          ErrorKind = "CORRUPT_ARCHIVE"
	KindInvalidManifest         ErrorKind = "INVALID_MANIFEST"
	KindMissingDatabasePayload  ErrorKind = "MISSING_DATABASE_PAYLOAD"
	KindDestinationWriteFailure ErrorKind = "DESTINATION_WRITE_FAILURE"
	KindCancelled               ErrorKind = "CANCELLED"
	KindOperationInProgress     ErrorKind = "OPERATION_IN_PROGRESS"
)

var (
	ErrSourceUnavailable       = &Error{Kind: KindSourceUnavailable}
	ErrCorruptArchive          = &Error{Kind: KindCorruptArchive}
	ErrInvalidManifest         = &Error{Kind: KindInvalidManifest}
	ErrMissingDatabasePayload  = &Error{Kind: KindMissingDatabasePayload}
	ErrDestinationWriteFailure = &Error{Kind: KindDestinationWriteFailure}
	ErrCancelled               = &Error{Kind: KindCancelled}
	ErrOperationInProgress     = &Error{Kind: KindOperationInProgress}
)

// Error carries a taxonomy kind through wrapped errors.
type Error struct {
	Kind    ErrorKind
	Message string
	Path    string
	Err     error
}

func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
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
