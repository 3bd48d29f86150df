package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	CategoryCafe       = "cafe"
	CategoryLibrary    = "library"
	CategoryCoworking  = "coworking"
	CategoryFastFood   = "fast_food"
	CategoryRestaurant = "restaurant"
	CategoryBookstore  = "bookstore"
	CategoryOther      = "other"
)

// KnownCategories is the seeded taxonomy. Stored places may carry other
// labels (e.g. "wifi_spot"); those are kept as-is.
var KnownCategories = []string{
	CategoryCafe,
	CategoryLibrary,
	CategoryCoworking,
	CategoryFastFood,
	CategoryRestaurant,
	CategoryBookstore,
	CategoryOther,
}

const maxFilterCategories = 20

var categoryPattern = regexp.MustCompile(`^[\p{L}\p{N}_\-]{1,64}$`)

// NormalizeCategories trims and de-duplicates while keeping first-seen
// order. An empty result becomes {"other"}.
func NormalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return []string{CategoryOther}
	}
	return out
}

// ValidateFilterCategories rejects category filters that could not be a
// stored label. Values end up quoted inside index filter expressions.
func ValidateFilterCategories(cats []string) error {
	if len(cats) > maxFilterCategories {
		return fmt.Errorf("too many categories: maximum %d allowed, got %d", maxFilterCategories, len(cats))
	}
	for _, c := range cats {
		if !categoryPattern.MatchString(c) {
			return fmt.Errorf("invalid category %q", c)
		}
	}
	return nil
}
