package driver

import (
	"fmt"
	"strings"

	"place-indexer/domain"
)

const (
	wifiEvidenceSQL   = "EXISTS (SELECT 1 FROM observations o WHERE o.place_id = p.id AND o.wifi_speed_download > 0)"
	outletEvidenceSQL = "EXISTS (SELECT 1 FROM observations o WHERE o.place_id = p.id AND o.outlet_count > 0)"
)

// SQLFilter is a rendered WHERE clause with positional args. When the
// filter has a geo radius, DistanceExpr computes meters from the center
// using the same args.
type SQLFilter struct {
	Where        string
	Args         []any
	DistanceExpr string
}

// Placeholder appends v and returns its $n reference.
func (s *SQLFilter) Placeholder(v any) string {
	s.Args = append(s.Args, v)
	return fmt.Sprintf("$%d", len(s.Args))
}

// RenderSQLFilter renders f for the places table aliased as p. Under
// AmenityFromRecordOrObservations with a geo radius, amenity clauses also
// accept places with a positive observation reading.
func RenderSQLFilter(f domain.PlaceFilter, policy domain.AmenityPolicy) SQLFilter {
	var out SQLFilter
	var clauses []string

	if f.Geo != nil {
		lng := out.Placeholder(f.Geo.Center.Lng)
		lat := out.Placeholder(f.Geo.Center.Lat)
		center := fmt.Sprintf("ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography", lng, lat)
		radius := out.Placeholder(f.Geo.RadiusMeters)
		clauses = append(clauses, fmt.Sprintf("ST_DWithin(p.location::geography, %s, %s)", center, radius))
		out.DistanceExpr = fmt.Sprintf("ST_Distance(p.location::geography, %s)", center)
	}
	if !f.IsMatchAll() {
		like := out.Placeholder("%" + escapeLike(f.Query) + "%")
		clauses = append(clauses, fmt.Sprintf("(p.name ILIKE %s OR p.address ILIKE %s)", like, like))
	}
	if len(f.Categories) > 0 {
		clauses = append(clauses, fmt.Sprintf("p.categories && %s::text[]", out.Placeholder(f.Categories)))
	}

	evidence := f.UsesObservationEvidence(policy)
	if f.RequireWifi {
		if evidence {
			clauses = append(clauses, "(p.wifi_available = true OR "+wifiEvidenceSQL+")")
		} else {
			clauses = append(clauses, "p.wifi_available = true")
		}
	}
	if f.RequireOutlets {
		if evidence {
			clauses = append(clauses, "(p.outlets_available = true OR "+outletEvidenceSQL+")")
		} else {
			clauses = append(clauses, "p.outlets_available = true")
		}
	}
	if f.MinScore > 0 {
		clauses = append(clauses, "p.workability_score >= "+out.Placeholder(f.MinScore))
	}

	if len(clauses) == 0 {
		out.Where = "TRUE"
	} else {
		out.Where = strings.Join(clauses, " AND ")
	}
	return out
}

// RenderSQLOrder maps a sort directive to an ORDER BY list. Unsorted
// listings use score descending with nulls last.
func RenderSQLOrder(f domain.PlaceFilter) string {
	const fallback = "p.workability_score DESC NULLS LAST, p.id"
	if f.Sort == nil {
		return fallback
	}
	col, ok := sqlSortColumns[f.Sort.Field]
	if !ok {
		return fallback
	}
	dir := "ASC"
	if f.Sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s NULLS LAST, p.id", col, dir)
}

var sqlSortColumns = map[string]string{
	"name":              "p.name",
	"workability_score": "p.workability_score",
	"created_at":        "p.created_at",
	"updated_at":        "p.updated_at",
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
