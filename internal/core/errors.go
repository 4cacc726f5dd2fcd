package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned across a package boundary carries exactly one of these,
// reachable with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateRecord = errors.New("duplicate record")
	ErrConsistency     = errors.New("consistency error")
	ErrDownstream      = errors.New("downstream error")
	ErrInternal        = errors.New("internal error")
)

var kinds = []error{
	ErrValidation,
	ErrNotFound,
	ErrDuplicateRecord,
	ErrConsistency,
	ErrDownstream,
	ErrInternal,
}

// Error is a classified error. Kind is one of the sentinels above.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, err error, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NewValidationError(format string, args ...any) error {
	return newError(ErrValidation, nil, format, args...)
}

func NewNotFoundError(format string, args ...any) error {
	return newError(ErrNotFound, nil, format, args...)
}

func NewDuplicateRecordError(format string, args ...any) error {
	return newError(ErrDuplicateRecord, nil, format, args...)
}

func NewConsistencyError(err error, format string, args ...any) error {
	return newError(ErrConsistency, err, format, args...)
}

func NewDownstreamError(err error, format string, args ...any) error {
	return newError(ErrDownstream, err, format, args...)
}

func NewInternalError(err error, format string, args ...any) error {
	return newError(ErrInternal, err, format, args...)
}

// KindOf returns the kind sentinel carried by err. Unclassified errors are internal.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// KindName is the stable, lower-case name of err's kind used in API error bodies and metrics.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrValidation:
		return "validation_error"
	case ErrNotFound:
		return "not_found"
	case ErrDuplicateRecord:
		return "duplicate_record"
	case ErrConsistency:
		return "consistency_error"
	case ErrDownstream:
		return "downstream_error"
	default:
		return "internal_error"
	}
}
