package admin

import (
	"errors"
	"fmt"
)

// ErrUploadTimedOut is returned when a submission exceeds the upload bound.
// It is kept apart from TransportError so callers can suggest smaller files
// instead of a blind retry.
var ErrUploadTimedOut = errors.New("upload timed out: try smaller files or check your connection")

// ErrUnsupported is returned when the backing API has no endpoint for an operation.
var ErrUnsupported = errors.New("operation not supported by the backing API")

// ErrNotAuthenticated is returned when no valid session is available.
var ErrNotAuthenticated = errors.New("not logged in: run `cadmin login` first")

// Reason classifies why a candidate file was rejected.
type Reason string

const (
	ReasonType       Reason = "type"
	ReasonSize       Reason = "size"
	ReasonCapacity   Reason = "capacity"
	ReasonUnreadable Reason = "unreadable"
)

// ValidationError rejects a single candidate file. It never reaches the network
// and is reported as data rather than returned as a failure.
type ValidationError struct {
	File   string
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s rejected (%s): %s", e.File, e.Reason, e.Detail)
}

// StaleIndexError signals that a caller referenced a ledger position or asset
// that no longer exists. It indicates a stale reference, not an operator mistake.
type StaleIndexError struct {
	Group   string
	Index   int
	AssetID string
	Len     int
}

func (e *StaleIndexError) Error() string {
	if e.AssetID != "" {
		return fmt.Sprintf("stale reference: %s asset %q not in ledger", e.Group, e.AssetID)
	}
	return fmt.Sprintf("stale reference: %s index %d out of range [0,%d)", e.Group, e.Index, e.Len)
}

// TransportError is a network failure or a 5xx response.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport failure: HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteRejection is a response the backing API refused with a message,
// either as success:false or as a 4xx status.
type RemoteRejection struct {
	StatusCode int
	Message    string
}

func (e *RemoteRejection) Error() string {
	if e.Message == "" {
		return "request rejected by server"
	}
	return e.Message
}

// UserMessage maps an error from any console operation to the single line an
// operator sees.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var rejection *RemoteRejection
	var transport *TransportError
	var stale *StaleIndexError
	var validation *ValidationError
	switch {
	case errors.Is(err, ErrUploadTimedOut):
		return "Upload timed out. Please try with smaller images or check your internet connection."
	case errors.As(err, &rejection):
		if rejection.Message == "" {
			return "Operation failed"
		}
		return rejection.Message
	case errors.As(err, &transport):
		return "Could not reach the server. Please try again."
	case errors.As(err, &stale):
		return stale.Error()
	case errors.As(err, &validation):
		return validation.Error()
	default:
		return err.Error()
	}
}
