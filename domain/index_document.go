package domain

import (
	"strings"
)

// IndexDocument is the search-index projection of a Place. Unknown
// tri-state values and missing optionals are omitted, never defaulted.
type IndexDocument struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Categories       []string `json:"categories"`
	Address          string   `json:"address,omitempty"`
	WorkabilityScore *float64 `json:"workability_score,omitempty"`
	WifiAvailable    *bool    `json:"wifi_available,omitempty"`
	OutletsAvailable *bool    `json:"outlets_available,omitempty"`
	Geo              GeoPoint `json:"_geo"`
	CreatedAt        int64    `json:"created_at"`
	UpdatedAt        int64    `json:"updated_at"`
	SearchableText   string   `json:"searchable_text"`
}

// ToIndexDocument maps p to its index document. It fails with
// ErrUnresolvedCoordinate when p has no usable location.
func ToIndexDocument(p *Place) (IndexDocument, error) {
	if p == nil {
		return IndexDocument{}, ErrUnresolvedCoordinate
	}
	loc := p.Location()
	if loc == nil || !loc.Valid() {
		return IndexDocument{}, ErrUnresolvedCoordinate
	}

	return IndexDocument{
		ID:               p.ID(),
		Name:             p.Name(),
		Categories:       p.Categories(),
		Address:          p.Address(),
		WorkabilityScore: p.WorkabilityScore(),
		WifiAvailable:    p.WifiAvailable().Ptr(),
		OutletsAvailable: p.OutletsAvailable().Ptr(),
		Geo:              *loc,
		CreatedAt:        p.CreatedAt().UnixMilli(),
		UpdatedAt:        p.UpdatedAt().UnixMilli(),
		SearchableText:   SearchableText(p.Name(), p.Address(), p.Categories()),
	}, nil
}

// SearchableText lowercases name, address (if any) and categories joined
// by single spaces.
func SearchableText(name, address string, categories []string) string {
	parts := make([]string, 0, len(categories)+2)
	if name != "" {
		parts = append(parts, name)
	}
	if address != "" {
		parts = append(parts, address)
	}
	for _, c := range categories {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}
