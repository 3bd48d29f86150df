package domain

// PlaceResult is the normalized place shape returned by both read paths.
// DistanceMeters, Highlights and TextMatchScore are only set on index
// results (distance only for geo queries).
type PlaceResult struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Categories       []string          `json:"categories"`
	Address          *string           `json:"address,omitempty"`
	WorkabilityScore *float64          `json:"workability_score"`
	WifiAvailable    TriState          `json:"wifi_available"`
	OutletsAvailable TriState          `json:"outlets_available"`
	PlaceLat         *float64          `json:"place_lat,omitempty"`
	PlaceLng         *float64          `json:"place_lng,omitempty"`
	DistanceMeters   *float64          `json:"distance_meters,omitempty"`
	Highlights       map[string]string `json:"highlights,omitempty"`
	TextMatchScore   *float64          `json:"text_match_score,omitempty"`
}

// PlaceResultFromPlace builds a store-path result.
func PlaceResultFromPlace(p *Place) PlaceResult {
	r := PlaceResult{
		ID:               p.ID(),
		Name:             p.Name(),
		Categories:       p.Categories(),
		WorkabilityScore: p.WorkabilityScore(),
		WifiAvailable:    p.WifiAvailable(),
		OutletsAvailable: p.OutletsAvailable(),
	}
	if a := p.Address(); a != "" {
		r.Address = &a
	}
	if loc := p.Location(); loc != nil {
		r.PlaceLat = &loc.Lat
		r.PlaceLng = &loc.Lng
	}
	return r
}

// FacetCount is one value bucket of a facet.
type FacetCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Facet groups counts for one field.
type Facet struct {
	FieldName string       `json:"field_name"`
	Counts    []FacetCount `json:"counts"`
}

// PlaceSearchResult is the router's normalized response.
type PlaceSearchResult struct {
	Places       []PlaceResult `json:"places"`
	Found        int64         `json:"found"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	TotalPages   int           `json:"total_pages"`
	Facets       []Facet       `json:"facet_counts"`
	SearchTimeMs int64         `json:"search_time_ms"`
	Source       Route         `json:"source"`
}

// TotalPagesFor is ceil(found/perPage).
func TotalPagesFor(found int64, perPage int) int {
	if perPage <= 0 || found <= 0 {
		return 0
	}
	return int((found + int64(perPage) - 1) / int64(perPage))
}

// IndexHit is a raw index match before normalization.
type IndexHit struct {
	Document       IndexDocument
	DistanceMeters *float64
	Highlights     map[string]string
	RankingScore   *float64
}

// IndexSearchResponse is the index client's search output.
type IndexSearchResponse struct {
	Hits             []IndexHit
	TotalHits        int64
	Page             int
	ProcessingTimeMs int64
	Facets           map[string]map[string]int64
}
