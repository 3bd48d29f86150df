package driver

import (
	"fmt"
	"strconv"
	"strings"

	"place-indexer/domain"
)

// escapeMeilisearchValue escapes special characters in Meilisearch filter values.
func escapeMeilisearchValue(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderMeilisearchFilter renders the filter dimensions as one
// conjunctive Meilisearch expression. Amenity clauses test the document
// flags only, so a missing flag never matches.
func RenderMeilisearchFilter(f domain.PlaceFilter) string {
	var clauses []string

	if len(f.Categories) > 0 {
		parts := make([]string, 0, len(f.Categories))
		for _, c := range f.Categories {
			parts = append(parts, fmt.Sprintf("categories = \"%s\"", escapeMeilisearchValue(c)))
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}
	if f.RequireWifi {
		clauses = append(clauses, "wifi_available = true")
	}
	if f.RequireOutlets {
		clauses = append(clauses, "outlets_available = true")
	}
	if f.MinScore > 0 {
		clauses = append(clauses, "workability_score >= "+formatFloat(f.MinScore))
	}
	if f.Geo != nil {
		clauses = append(clauses, fmt.Sprintf("_geoRadius(%s, %s, %s)",
			formatFloat(f.Geo.Center.Lat),
			formatFloat(f.Geo.Center.Lng),
			formatFloat(f.Geo.RadiusMeters),
		))
	}

	return strings.Join(clauses, " AND ")
}

// RenderMeilisearchSort returns the sort list. An explicit directive wins;
// otherwise geo queries sort by distance and the rest by score.
func RenderMeilisearchSort(f domain.PlaceFilter) []string {
	if f.Sort != nil {
		return []string{f.Sort.String()}
	}
	if f.Geo != nil {
		return []string{fmt.Sprintf("_geoPoint(%s, %s):asc",
			formatFloat(f.Geo.Center.Lat),
			formatFloat(f.Geo.Center.Lng),
		)}
	}
	return []string{"workability_score:desc"}
}
