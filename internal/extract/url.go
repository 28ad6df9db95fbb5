package extract

import (
    "fmt"
    "net/url"
    "regexp"
    "strings"

    "github.com/hyperifyio/clickconverter/internal/content"
)

var schemeRE = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// Origin returns scheme://host[:port] of an absolute http(s) URL. Anything
// else is rejected with content.ErrInvalidInput.
func Origin(baseURL string) (string, error) {
    raw := strings.TrimSpace(baseURL)
    if raw == "" {
        return "", fmt.Errorf("base url is empty: %w", content.ErrInvalidInput)
    }
    u, err := url.Parse(raw)
    if err != nil {
        return "", fmt.Errorf("parse base url %q: %w: %v", raw, content.ErrInvalidInput, err)
    }
    if u.Scheme != "http" && u.Scheme != "https" {
        return "", fmt.Errorf("base url %q is not absolute http(s): %w", raw, content.ErrInvalidInput)
    }
    if u.Host == "" {
        return "", fmt.Errorf("base url %q has no host: %w", raw, content.ErrInvalidInput)
    }
    return u.Scheme + "://" + u.Host, nil
}

// Resolve makes raw absolute against origin. Relative paths are taken from
// the origin root, not from the current document path.
func Resolve(origin, raw string) string {
    raw = strings.TrimSpace(raw)
    switch {
    case raw == "":
        return ""
    case strings.HasPrefix(raw, "//"):
        return "https:" + raw
    case schemeRE.MatchString(raw):
        return raw
    case strings.HasPrefix(raw, "/"):
        return origin + raw
    default:
        return origin + "/" + raw
    }
}
