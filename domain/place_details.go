package domain

// RecentObservationLimit caps the observation list on a detail view.
const RecentObservationLimit = 10

// PlaceDetails is a place with its observation summary.
type PlaceDetails struct {
	Place              PlaceResult   `json:"place"`
	Stats              PlaceStats    `json:"stats"`
	RecentObservations []Observation `json:"recentObservations"`
}
