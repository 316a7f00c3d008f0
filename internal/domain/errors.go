package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrBusy is returned when a submission arrives while another one of the
	// same kind is still outstanding.
	ErrBusy = errors.New("request already in progress")

	// ErrUnavailable wraps transport failures talking to the forensic backend.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrDanglingLink marks graph data whose links reference unknown nodes.
	ErrDanglingLink = errors.New("graph link references unknown node")

	// ErrExportUnsupported is returned by export formats that are not implemented.
	ErrExportUnsupported = errors.New("export format not supported")
)

// NotFoundError indicates a resource was not found
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string        { return e.Message }
func (e *NotFoundError) StatusCode() int      { return http.StatusNotFound }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// APIError is a non-2xx response from the forensic backend.
type APIError struct {
	Status  int
	Message string
	Path    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Path, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Path, e.Status, e.Message)
}

// StatusCode implements the HTTPError interface
func (e *APIError) StatusCode() int {
	return e.Status
}

// Is lets errors.Is() match backend statuses against the sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return e.Status == http.StatusBadRequest
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrUnavailable:
		return e.Status == http.StatusBadGateway ||
			e.Status == http.StatusServiceUnavailable ||
			e.Status == http.StatusGatewayTimeout
	}
	return false
}

// IsServerError reports whether the backend failed with a 5xx status.
func (e *APIError) IsServerError() bool {
	return e.Status >= http.StatusInternalServerError
}
