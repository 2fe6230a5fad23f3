// Package svcerrors bridges the closed POSIX taxonomy in pkg/vfserrors to
// the operational metadata a service boundary needs: an error category,
// an HTTP status, and a retryable flag (adapted from the teacher's
// structured error type, pkg/errors/errors.go). It also carries
// connection/storage-backend failures that have no POSIX equivalent.
package svcerrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/vfscore/vfskernel/pkg/vfserrors"
)

// Category groups errors by the subsystem that raised them.
type Category string

const (
	CategoryFilesystem Category = "filesystem"
	CategoryStorage    Category = "storage"
	CategoryConnection Category = "connection"
	CategoryInternal   Category = "internal"
)

// ServiceError wraps a lower-level error with request-facing metadata.
type ServiceError struct {
	Category   Category
	Message    string
	Cause      error
	Component  string
	Operation  string
	RequestID  string
	Timestamp  time.Time
	retryable  bool
	httpStatus int
}

func (e *ServiceError) Error() string {
	if e.Component != "" && e.Operation != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Category, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// Retryable satisfies pkg/retry's retryableError interface.
func (e *ServiceError) Retryable() bool { return e.retryable }

// HTTPStatus is the status code an HTTP-facing adapter should report.
func (e *ServiceError) HTTPStatus() int { return e.httpStatus }

// Codes absent from this map are reported as 500 by FromPOSIX.
var posixHTTPStatus = map[vfserrors.Code]int{
	vfserrors.ENOENT:       404,
	vfserrors.EPERM:        403,
	vfserrors.EACCES:       403,
	vfserrors.EEXIST:       409,
	vfserrors.ENOTDIR:      400,
	vfserrors.EISDIR:       400,
	vfserrors.EINVAL:       400,
	vfserrors.ENOTEMPTY:    409,
}

// FromPOSIX wraps a vfserrors.Error (or any error) as a ServiceError,
// deriving an HTTP status from the POSIX code when present and never
// marking POSIX conditions retryable — they describe caller mistakes or
// filesystem state, not transient backend failures.
func FromPOSIX(err error, component, operation string) *ServiceError {
	se := &ServiceError{
		Category:   CategoryFilesystem,
		Message:    err.Error(),
		Cause:      err,
		Component:  component,
		Operation:  operation,
		Timestamp:  time.Now(),
		httpStatus: 500,
	}
	var pe *vfserrors.Error
	if errors.As(err, &pe) {
		if status, ok := posixHTTPStatus[pe.Code]; ok {
			se.httpStatus = status
		}
	}
	return se
}

// NewStorage builds a ServiceError for a storage-backend failure (blob
// read/write, dedup bookkeeping), optionally retryable.
func NewStorage(message string, cause error, retryable bool) *ServiceError {
	status := 500
	if retryable {
		status = 503
	}
	return &ServiceError{
		Category:   CategoryStorage,
		Message:    message,
		Cause:      cause,
		Timestamp:  time.Now(),
		retryable:  retryable,
		httpStatus: status,
	}
}

// NewConnection builds a ServiceError for a transport-level failure
// (dial timeout, connection refused); these are always retryable.
func NewConnection(message string, cause error) *ServiceError {
	return &ServiceError{
		Category:   CategoryConnection,
		Message:    message,
		Cause:      cause,
		Timestamp:  time.Now(),
		retryable:  true,
		httpStatus: 503,
	}
}

// WithRequestID returns a copy of e carrying the given request id, for
// correlating a response with server-side logs.
func (e *ServiceError) WithRequestID(id string) *ServiceError {
	n := *e
	n.RequestID = id
	return &n
}
