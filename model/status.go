// Package model defines the data types shared by every subpiece
// component: the piece table, the trainer/normalizer specs, the
// self-describing binary artifact, and the status/error kinds that
// every operation in the package tree reports through.
package model

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the status codes a subpiece operation can
// report. The kinds are named after the canonical RPC status codes;
// a kind lives only in a returned Status and is never written to the
// artifact.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	Cancelled
	InvalidArgument
	NotFound
	AlreadyExists
	PermissionDenied
	ResourceExhausted
	FailedPrecondition
	Aborted
	OutOfRange
	Unimplemented
	Internal
	Unavailable
	DataLoss
	Unauthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case Cancelled:
		return "cancelled"
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case AlreadyExists:
		return "already_exists"
	case PermissionDenied:
		return "permission_denied"
	case ResourceExhausted:
		return "resource_exhausted"
	case FailedPrecondition:
		return "failed_precondition"
	case Aborted:
		return "aborted"
	case OutOfRange:
		return "out_of_range"
	case Unimplemented:
		return "unimplemented"
	case Internal:
		return "internal"
	case Unavailable:
		return "unavailable"
	case DataLoss:
		return "data_loss"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Status is the error type returned by subpiece operations. It carries
// a kind plus a human-readable message and optionally wraps a cause.
type Status struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (s *Status) Error() string {
	if s.Cause != nil {
		return fmt.Sprintf("subpiece: %s: %s: %v", s.Kind, s.Message, s.Cause)
	}
	return fmt.Sprintf("subpiece: %s: %s", s.Kind, s.Message)
}

func (s *Status) Unwrap() error { return s.Cause }

// Is reports whether target is a *Status with the same Kind, so
// errors.Is(err, model.ErrInternal) style checks work against a
// sentinel of the same kind.
func (s *Status) Is(target error) bool {
	var ts *Status
	if errors.As(target, &ts) {
		return ts.Kind == s.Kind
	}
	return false
}

// NewStatus builds a *Status of the given kind.
func NewStatus(kind ErrorKind, format string, args ...any) *Status {
	return &Status{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a *Status of the given kind around an existing error.
func Wrap(kind ErrorKind, cause error, format string, args ...any) *Status {
	return &Status{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Sentinel statuses for errors.Is-style comparison against a bare kind.
var (
	ErrInternal         = &Status{Kind: Internal, Message: "internal error"}
	ErrInvalidArgument  = &Status{Kind: InvalidArgument, Message: "invalid argument"}
	ErrNotFound         = &Status{Kind: NotFound, Message: "not found"}
	ErrFailedPrecond    = &Status{Kind: FailedPrecondition, Message: "failed precondition"}
	ErrDataLoss         = &Status{Kind: DataLoss, Message: "data loss"}
	ErrOutOfRange       = &Status{Kind: OutOfRange, Message: "out of range"}
	ErrResourceExhausted = &Status{Kind: ResourceExhausted, Message: "resource exhausted"}
)
