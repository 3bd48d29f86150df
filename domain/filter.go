package domain

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultPage       = 1
	DefaultPerPage    = 50
	MaxPerPage        = 250
	MaxRadiusMeters   = 100_000.0
	// MaxOffset bounds (Page-1)*PerPage so it fits a Postgres integer.
	MaxOffset         = math.MaxInt32
	wildcardQuery     = "*"
	maxQueryRuneCount = 200
)

// Route names the backend a read is served from.
type Route string

const (
	RouteStore Route = "store"
	RouteIndex Route = "index"
)

// AmenityPolicy selects how amenity filters are evaluated on the store
// path. The index path always uses the place record flags.
type AmenityPolicy string

const (
	// AmenityFromRecord matches only places whose own flag is true.
	AmenityFromRecord AmenityPolicy = "record"
	// AmenityFromRecordOrObservations also accepts places with an
	// observation showing a positive reading (wifi download > 0 or
	// outlet_count > 0). Applied when an amenity filter is combined
	// with a geo radius.
	AmenityFromRecordOrObservations AmenityPolicy = "record_or_observations"
)

// ParseAmenityPolicy accepts the config spelling of a policy.
func ParseAmenityPolicy(s string) (AmenityPolicy, error) {
	switch AmenityPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case AmenityFromRecord:
		return AmenityFromRecord, nil
	case AmenityFromRecordOrObservations, "":
		return AmenityFromRecordOrObservations, nil
	default:
		return "", fmt.Errorf("unknown amenity policy %q", s)
	}
}

// GeoRadius is a center plus radius in meters.
type GeoRadius struct {
	Center       GeoPoint
	RadiusMeters float64
}

// SortDirective is a caller-requested ordering, "field:asc|desc".
type SortDirective struct {
	Field string
	Desc  bool
}

var sortableFields = map[string]bool{
	"name":              true,
	"workability_score": true,
	"created_at":        true,
	"updated_at":        true,
}

// ParseSort parses "field:dir". An empty string yields nil.
func ParseSort(s string) (*SortDirective, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	field, dir, _ := strings.Cut(s, ":")
	if !sortableFields[field] {
		return nil, fmt.Errorf("unsupported sort field %q", field)
	}
	switch dir {
	case "", "asc":
		return &SortDirective{Field: field}, nil
	case "desc":
		return &SortDirective{Field: field, Desc: true}, nil
	default:
		return nil, fmt.Errorf("unsupported sort direction %q", dir)
	}
}

func (s SortDirective) String() string {
	if s.Desc {
		return s.Field + ":desc"
	}
	return s.Field + ":asc"
}

// PlaceFilter is the backend-neutral description of a place read. The
// store and index renderers both consume it.
type PlaceFilter struct {
	Query          string
	Categories     []string
	RequireWifi    bool
	RequireOutlets bool
	MinScore       float64
	Geo            *GeoRadius
	Sort           *SortDirective
	Page           int
	PerPage        int
	Highlight      bool
}

// Normalize fills pagination defaults and validates ranges.
func (f *PlaceFilter) Normalize() error {
	f.Query = strings.TrimSpace(f.Query)
	if len([]rune(f.Query)) > maxQueryRuneCount {
		return fmt.Errorf("query too long: maximum %d characters", maxQueryRuneCount)
	}
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	if f.Page-1 > MaxOffset/f.PerPage {
		return fmt.Errorf("page %d out of range for per_page %d", f.Page, f.PerPage)
	}
	if f.MinScore < 0 || f.MinScore > 1 {
		return fmt.Errorf("minScore %v out of range [0,1]", f.MinScore)
	}
	if len(f.Categories) > 0 {
		f.Categories = dedupe(f.Categories)
		if err := ValidateFilterCategories(f.Categories); err != nil {
			return err
		}
	}
	if f.Geo != nil {
		if !f.Geo.Center.Valid() {
			return fmt.Errorf("invalid coordinate %v,%v", f.Geo.Center.Lat, f.Geo.Center.Lng)
		}
		if f.Geo.RadiusMeters <= 0 || f.Geo.RadiusMeters > MaxRadiusMeters {
			return fmt.Errorf("radius %vm out of range (0,%v]", f.Geo.RadiusMeters, MaxRadiusMeters)
		}
	}
	return nil
}

// HasCategoryFilter, HasAmenityFilter and HasScoreFilter report active
// dimensions.
func (f PlaceFilter) HasCategoryFilter() bool { return len(f.Categories) > 0 }
func (f PlaceFilter) HasAmenityFilter() bool { return f.RequireWifi || f.RequireOutlets }
func (f PlaceFilter) HasScoreFilter() bool { return f.MinScore > 0 }
func (f PlaceFilter) HasGeo() bool { return f.Geo != nil }

// IsMatchAll reports an empty or wildcard text query.
func (f PlaceFilter) IsMatchAll() bool {
	return f.Query == "" || f.Query == wildcardQuery
}

// Routing picks the index whenever a geo, category, amenity or score
// dimension is active, and the store listing otherwise.
func (f PlaceFilter) Routing() Route {
	if f.HasGeo() || f.HasCategoryFilter() || f.HasAmenityFilter() || f.HasScoreFilter() {
		return RouteIndex
	}
	return RouteStore
}

// Offset is the zero-based row offset for the current page.
func (f PlaceFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}

// UsesObservationEvidence reports whether the store path should OR the
// amenity flags with observation evidence under policy.
func (f PlaceFilter) UsesObservationEvidence(policy AmenityPolicy) bool {
	return policy == AmenityFromRecordOrObservations && f.HasAmenityFilter() && f.HasGeo()
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
