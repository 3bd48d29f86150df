// Package utils holds request-input helpers shared by the HTTP layer.
package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	scriptBlock = regexp.MustCompile(`(?is)<script[^>]*>.*?(</script\s*>|$)`)
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
)

// zeroWidth are invisible runes that break tokenization in the index.
var zeroWidth = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
	"\u200e", "",
	"\u200f", "",
)

// QueryError reports free-text input that cannot be searched.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return "invalid query: " + e.Reason
}

// SanitizeQuery cleans a free-text search query. Markup and zero-width
// runes are dropped and whitespace is collapsed. Case is preserved. Null
// bytes and other control characters are rejected.
func SanitizeQuery(query string) (string, error) {
	if query == "" {
		return "", nil
	}

	for _, r := range query {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return "", &QueryError{Reason: fmt.Sprintf("control character %U", r)}
		}
	}

	query = zeroWidth.Replace(query)
	query = scriptBlock.ReplaceAllString(query, " ")
	query = htmlTag.ReplaceAllString(query, " ")

	return strings.Join(strings.Fields(query), " "), nil
}
