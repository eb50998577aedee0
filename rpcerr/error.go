// Package rpcerr holds the structured error that operation transformers
// return to callers. An *Error carries a gRPC status code, an optional
// cause and a retryable flag, and it converts to a *status.Status.
package rpcerr

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies an Error. Each kind has a matching sentinel so callers
// can test with errors.Is.
type Kind int

const (
	KindUnknown Kind = iota
	KindOperationFailed
	KindResultUnpackFailed
	KindMetadataUnpackFailed
)

var (
	ErrOperationFailed      = errors.New("operation failed")
	ErrResultUnpackFailed   = errors.New("operation result unpack failed")
	ErrMetadataUnpackFailed = errors.New("operation metadata unpack failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindOperationFailed:
		return ErrOperationFailed
	case KindResultUnpackFailed:
		return ErrResultUnpackFailed
	case KindMetadataUnpackFailed:
		return ErrMetadataUnpackFailed
	default:
		return nil
	}
}

func (k Kind) String() string {
	switch k {
	case KindOperationFailed:
		return "operation_failed"
	case KindResultUnpackFailed:
		return "result_unpack_failed"
	case KindMetadataUnpackFailed:
		return "metadata_unpack_failed"
	default:
		return "unknown"
	}
}

type Error struct {
	Message   string
	Cause     error
	Code      codes.Code
	Retryable bool
	Kind      Kind
}

// New builds an Error with KindUnknown. Use WithKind to classify it.
func New(msg string, cause error, code codes.Code, retryable bool) *Error {
	return &Error{Message: msg, Cause: cause, Code: code, Retryable: retryable}
}

// WithKind returns e after setting its kind.
func (e *Error) WithKind(k Kind) *Error {
	e.Kind = k
	return e
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

func (e *Error) IsRetryable() bool { return e.Retryable }

// GRPCStatus lets status.FromError and status.Code see through an Error.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Error())
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
