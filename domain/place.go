package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point is finite and within WGS84 range.
func (g GeoPoint) Valid() bool {
	if math.IsNaN(g.Lat) || math.IsNaN(g.Lng) || math.IsInf(g.Lat, 0) || math.IsInf(g.Lng, 0) {
		return false
	}
	return g.Lat >= -90 && g.Lat <= 90 && g.Lng >= -180 && g.Lng <= 180
}

// PlaceAttrs carries the raw store columns for NewPlace.
type PlaceAttrs struct {
	ID               string
	OSMID            string
	Name             string
	Categories       []string
	Location         *GeoPoint
	Address          string
	Website          string
	Phone            string
	OpeningHours     string
	WifiAvailable    TriState
	OutletsAvailable TriState
	WorkabilityScore *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Place is the store-owned catalogue entry.
type Place struct {
	id               string
	osmID            string
	name             string
	categories       []string
	location         *GeoPoint
	address          string
	website          string
	phone            string
	openingHours     string
	wifiAvailable    TriState
	outletsAvailable TriState
	workabilityScore *float64
	createdAt        time.Time
	updatedAt        time.Time
}

// NewPlace validates and normalizes a. A missing or invalid location is
// allowed; such places exist in the store but are not indexable.
func NewPlace(a PlaceAttrs) (*Place, error) {
	if strings.TrimSpace(a.ID) == "" {
		return nil, errors.New("place ID cannot be empty")
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return nil, errors.New("place name cannot be empty")
	}
	if s := a.WorkabilityScore; s != nil && (math.IsNaN(*s) || *s < 0 || *s > 1) {
		return nil, fmt.Errorf("workability score %v out of range [0,1]", *s)
	}

	var loc *GeoPoint
	if a.Location != nil {
		l := *a.Location
		loc = &l
	}
	var score *float64
	if a.WorkabilityScore != nil {
		s := *a.WorkabilityScore
		score = &s
	}

	return &Place{
		id:               a.ID,
		osmID:            a.OSMID,
		name:             name,
		categories:       NormalizeCategories(a.Categories),
		location:         loc,
		address:          strings.TrimSpace(a.Address),
		website:          a.Website,
		phone:            a.Phone,
		openingHours:     a.OpeningHours,
		wifiAvailable:    a.WifiAvailable,
		outletsAvailable: a.OutletsAvailable,
		workabilityScore: score,
		createdAt:        a.CreatedAt,
		updatedAt:        a.UpdatedAt,
	}, nil
}

func (p *Place) ID() string { return p.id }
func (p *Place) OSMID() string { return p.osmID }
func (p *Place) Name() string { return p.name }
func (p *Place) Address() string { return p.address }
func (p *Place) Website() string { return p.website }
func (p *Place) Phone() string { return p.phone }
func (p *Place) OpeningHours() string { return p.openingHours }
func (p *Place) WifiAvailable() TriState { return p.wifiAvailable }
func (p *Place) OutletsAvailable() TriState { return p.outletsAvailable }
func (p *Place) CreatedAt() time.Time { return p.createdAt }
func (p *Place) UpdatedAt() time.Time { return p.updatedAt }
func (p *Place) WorkabilityScore() *float64 { return copyFloat(p.workabilityScore) }

func (p *Place) Categories() []string {
	out := make([]string, len(p.categories))
	copy(out, p.categories)
	return out
}

// Location returns nil when the coordinate could not be resolved.
func (p *Place) Location() *GeoPoint {
	if p.location == nil {
		return nil
	}
	l := *p.location
	return &l
}

// Indexable reports whether the place has a valid coordinate.
func (p *Place) Indexable() bool {
	return p.location != nil && p.location.Valid()
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
