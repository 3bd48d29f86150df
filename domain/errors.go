package domain

import (
	"errors"
	"net/http"
)

var (
	ErrPlaceNotFound        = errors.New("place not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrUnresolvedCoordinate = errors.New("place has no resolvable coordinate")
	ErrSyncInProgress       = errors.New("full sync already in progress")
	ErrIgnoredEvent         = errors.New("change event ignored")
	ErrMalformedEvent       = errors.New("malformed change event")
	ErrUnknownChangeType    = errors.New("unknown event type")
	ErrInvalidObservation   = errors.New("invalid observation")
	ErrInvalidFilter        = errors.New("invalid filter")
)

// RepositoryError represents an error from the repository layer.
type RepositoryError struct {
	Op    string
	Err   string
	Cause error
}

func (e *RepositoryError) Error() string {
	return e.Op + ": " + e.Err
}

func (e *RepositoryError) Unwrap() error { return e.Cause }

// SearchEngineError represents an error from the index. StatusCode is the
// engine's HTTP status when one was returned, otherwise 0.
type SearchEngineError struct {
	Op         string
	Err        string
	StatusCode int
	Cause      error
}

func (e *SearchEngineError) Error() string {
	return e.Op + ": " + e.Err
}

func (e *SearchEngineError) Unwrap() error { return e.Cause }

// SearchError is the read-path error returned to clients.
type SearchError struct {
	Message    string
	StatusCode int
	Cause      error
}

func (e *SearchError) Error() string { return e.Message }

func (e *SearchError) Unwrap() error { return e.Cause }

// NewSearchError derives the client-visible status from err. Engine
// statuses in the 4xx/5xx range are passed through.
func NewSearchError(message string, err error) *SearchError {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrInvalidFilter) {
		status = http.StatusBadRequest
	}
	var se *SearchEngineError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 600 {
		status = se.StatusCode
	}
	if err != nil && message == "" {
		message = err.Error()
	}
	return &SearchError{Message: message, StatusCode: status, Cause: err}
}
