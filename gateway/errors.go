package gateway

import (
	"errors"

	"place-indexer/domain"
	"place-indexer/driver"
)

func repositoryError(op string, err error) *domain.RepositoryError {
	return &domain.RepositoryError{Op: op, Err: err.Error(), Cause: err}
}

// searchEngineError keeps the remote status so read handlers can pass it
// through to clients.
func searchEngineError(op string, err error) *domain.SearchEngineError {
	se := &domain.SearchEngineError{Op: op, Err: err.Error(), Cause: err}
	var de *driver.DriverError
	if errors.As(err, &de) {
		se.StatusCode = de.StatusCode
	}
	return se
}
