// Package keyword normalizes search keywords and finds them in landing-page
// URLs. All matching in the pipeline runs on Normalize output.
package keyword

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/clickconverter/internal/content"
)

// QueryParams lists the landing-page query parameters that may carry the
// search keyword, in lookup order. Ad networks typically fill utm_term.
var QueryParams = []string{"keyword", "utm_term", "q", "search", "k", "kw"}

// Normalize trims and lowercases raw. Empty input yields "".
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	// Casers keep state; never share one between goroutines.
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

// Capitalize upper-cases the first letter of s and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	r, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(string(r)) + cases.Lower(language.Und).String(s[size:])
}

// FromQuery returns the first non-blank keyword parameter in values, trimmed.
func FromQuery(values url.Values) string {
	for _, p := range QueryParams {
		if v := strings.TrimSpace(values.Get(p)); v != "" {
			return v
		}
	}
	return ""
}

// FromURL parses raw and returns FromQuery of its query string.
func FromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse landing url: %w: %v", content.ErrInvalidInput, err)
	}
	return FromQuery(u.Query()), nil
}
