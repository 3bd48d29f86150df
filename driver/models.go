package driver

import "time"

// PlaceRow is a places row with its coordinate extracted by PostGIS.
// Lat/Lng are nil when the location column is NULL.
type PlaceRow struct {
	ID               string
	OSMID            *string
	Name             string
	Categories       []string
	Address          *string
	Website          *string
	Phone            *string
	OpeningHours     *string
	WifiAvailable    *bool
	OutletsAvailable *bool
	WorkabilityScore *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Lat              *float64
	Lng              *float64
}

// NearbyPlaceRow adds the distance from the query center.
type NearbyPlaceRow struct {
	PlaceRow
	DistanceMeters float64
}

// ObservationRow is an observations row joined with the poster's name.
type ObservationRow struct {
	ID                string
	PlaceID           string
	UserID            *string
	WifiSpeedDownload *float64
	WifiSpeedUpload   *float64
	WifiLatency       *float64
	NoiseLevel        *float64
	OutletCount       *int
	Crowdedness       *int
	Notes             *string
	CreatedAt         time.Time
	AuthorName        *string
}

// NewObservationRow is the insert payload for an observation.
type NewObservationRow struct {
	PlaceID           string
	UserID            *string
	WifiSpeedDownload *float64
	WifiSpeedUpload   *float64
	WifiLatency       *float64
	NoiseLevel        *float64
	OutletCount       *int
	Crowdedness       *int
	Notes             *string
}

// PlaceDocument is the Meilisearch representation of a place.
type PlaceDocument struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Categories       []string `json:"categories"`
	Address          string   `json:"address,omitempty"`
	WorkabilityScore *float64 `json:"workability_score,omitempty"`
	WifiAvailable    *bool    `json:"wifi_available,omitempty"`
	OutletsAvailable *bool    `json:"outlets_available,omitempty"`
	Geo              GeoField `json:"_geo"`
	CreatedAt        int64    `json:"created_at"`
	UpdatedAt        int64    `json:"updated_at"`
	SearchableText   string   `json:"searchable_text"`
}

// GeoField is Meilisearch's reserved geopoint shape.
type GeoField struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SearchRequest is a rendered search call.
type SearchRequest struct {
	Query     string
	Filter    string
	Sort      []string
	Page      int64
	PerPage   int64
	Facets    []string
	SearchOn  []string
	Highlight bool
}

// SearchHit is a decoded hit plus the engine-computed extras.
type SearchHit struct {
	Document     PlaceDocument
	GeoDistance  *float64
	Formatted    map[string]any
	RankingScore *float64
}

// SearchResponse is the decoded Meilisearch response.
type SearchResponse struct {
	Hits              []SearchHit
	TotalHits         int64
	Page              int64
	ProcessingTimeMs  int64
	FacetDistribution map[string]map[string]int64
}

// DocumentFailure reports a document rejected before or during import.
type DocumentFailure struct {
	ID     string
	Reason string
}

// DriverError represents an error from the driver layer. StatusCode
// carries the remote HTTP status when there was one.
type DriverError struct {
	Op         string
	Err        string
	StatusCode int
	Cause      error
}

func (e *DriverError) Error() string {
	return e.Op + ": " + e.Err
}

func (e *DriverError) Unwrap() error { return e.Cause }
