package domain

import (
	"fmt"
	"strings"
)

// PlacesTable is the only table whose changes affect the index.
const PlacesTable = "places"

// ChangeType is the store operation a notification reports.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeNotification is a store change, from the webhook or the stream.
type ChangeNotification struct {
	Table   string
	Type    ChangeType
	PlaceID string
}

// Validate classifies the notification. Non-place tables yield
// ErrIgnoredEvent; a missing id yields ErrMalformedEvent.
func (n ChangeNotification) Validate() error {
	if n.Table != PlacesTable {
		return fmt.Errorf("%w: table %q", ErrIgnoredEvent, n.Table)
	}
	if strings.TrimSpace(n.PlaceID) == "" {
		return fmt.Errorf("%w: no place id", ErrMalformedEvent)
	}
	return nil
}

// Known reports whether Type is one of the handled operations.
func (n ChangeNotification) Known() bool {
	switch n.Operation() {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return true
	}
	return false
}

// Operation returns the upper-cased change type.
func (n ChangeNotification) Operation() ChangeType {
	return ChangeType(strings.ToUpper(string(n.Type)))
}
