package extract

import (
    "bytes"
    "fmt"
    "strings"
    "unicode/utf8"

    "github.com/PuerkitoBio/goquery"
    "golang.org/x/net/html"

    "github.com/hyperifyio/clickconverter/internal/content"
)

// Length bounds per field. Both ends are exclusive and counted in runes.
const (
    headlineMin, headlineMax   = 3, 200
    paragraphMin, paragraphMax = 20, 500
    buttonMin, buttonMax       = 2, 50
    navMin, navMax             = 1, 30
)

const (
    headlineSelector = "h1, h2, h3"
    buttonSelector   = `button, [role="button"], input[type="submit"], input[type="button"], a[class*="btn"], a[class*="button"], a[class*="cta"]`
    navSelector      = "nav a, header a"
)

// logoContainers are tried in order after the attribute scan over all images.
var logoContainers = []string{
    ".logo img",
    "#logo img",
    ".site-logo img",
    ".navbar-brand img",
    ".brand img",
    `a[class*="logo"] img`,
    `[class*="logo"] img`,
    `[id*="logo"] img`,
    "header img",
    "nav img",
}

// imageBlocklist filters tracking beacons. Matching is case-sensitive.
var imageBlocklist = []string{"tracking", "pixel"}

// FromHTML extracts the structured content model from an HTML page. Every
// field is best-effort: a missing element yields an empty value, never an
// error. baseURL must be an absolute http(s) URL; its origin is the base for
// all URL resolution.
func FromHTML(input []byte, baseURL string) (content.Structured, error) {
    origin, err := Origin(baseURL)
    if err != nil {
        return content.Structured{}, err
    }
    node, err := html.Parse(bytes.NewReader(input))
    if err != nil || node == nil {
        return content.Structured{}, fmt.Errorf("parse html: %w: %v", content.ErrInvalidInput, err)
    }
    doc := goquery.NewDocumentFromNode(node)

    out := content.Structured{
        Title:           cleanText(doc.Find("title").First().Text()),
        MetaDescription: metaDescription(doc),
        Favicon:         favicon(doc, origin),
        Logo:            logo(doc, origin),
        Headlines:       collectTexts(doc.Find(headlineSelector), headlineMin, headlineMax, content.MaxHeadlines, false),
        Paragraphs:      collectTexts(doc.Find("p"), paragraphMin, paragraphMax, content.MaxParagraphs, false),
        Buttons:         collectTexts(doc.Find(buttonSelector), buttonMin, buttonMax, content.MaxButtons, true),
        Images:          images(doc, origin),
        Navigation:      collectTexts(doc.Find(navSelector), navMin, navMax, content.MaxNavigation, true),
        BaseURL:         origin,
    }
    return out.Normalized(), nil
}

// Extract is FromHTML for string input.
func Extract(htmlText string, baseURL string) (content.Structured, error) {
    return FromHTML([]byte(htmlText), baseURL)
}

func metaDescription(doc *goquery.Document) string {
    var desc string
    doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
        if strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), "description") {
            desc = strings.TrimSpace(s.AttrOr("content", ""))
            return false
        }
        return true
    })
    return desc
}

func favicon(doc *goquery.Document, origin string) string {
    var href string
    doc.Find("link[rel][href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
        for _, rel := range strings.Fields(strings.ToLower(s.AttrOr("rel", ""))) {
            if rel == "icon" || rel == "apple-touch-icon" {
                href = strings.TrimSpace(s.AttrOr("href", ""))
                break
            }
        }
        return href == ""
    })
    if href == "" {
        href = "/favicon.ico"
    }
    return Resolve(origin, href)
}

func logo(doc *goquery.Document, origin string) string {
    // Attribute hints on the image itself win.
    var src string
    doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
        hint := strings.ToLower(s.AttrOr("alt", "") + " " + s.AttrOr("class", "") + " " + s.AttrOr("id", ""))
        if strings.Contains(hint, "logo") {
            src = strings.TrimSpace(s.AttrOr("src", ""))
        }
        return src == ""
    })
    if src != "" {
        return Resolve(origin, src)
    }
    for _, sel := range logoContainers {
        doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
            src = strings.TrimSpace(s.AttrOr("src", ""))
            return src == ""
        })
        if src != "" {
            return Resolve(origin, src)
        }
    }
    return ""
}

func images(doc *goquery.Document, origin string) []string {
    out := make([]string, 0, content.MaxImages)
    doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
        src := strings.TrimSpace(s.AttrOr("src", ""))
        // Every image entry must be an absolute URL; inline data: URIs have
        // no origin to resolve against and are dropped with the beacons.
        if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") || containsAny(src, imageBlocklist) {
            return true
        }
        out = append(out, Resolve(origin, src))
        return len(out) < content.MaxImages
    })
    return out
}

// collectTexts gathers cleaned element texts whose rune length lies strictly
// between lo and hi, in document order, stopping at limit.
func collectTexts(sel *goquery.Selection, lo, hi, limit int, dedup bool) []string {
    out := make([]string, 0, limit)
    seen := map[string]struct{}{}
    sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
        text := elementText(s)
        n := utf8.RuneCountInString(text)
        if n <= lo || n >= hi {
            return true
        }
        if dedup {
            if _, ok := seen[text]; ok {
                return true
            }
            seen[text] = struct{}{}
        }
        out = append(out, text)
        return len(out) < limit
    })
    return out
}

// elementText returns the visible label of an element. Inputs carry their
// label in the value attribute.
func elementText(s *goquery.Selection) string {
    if goquery.NodeName(s) == "input" {
        return cleanText(s.AttrOr("value", ""))
    }
    return cleanText(s.Text())
}

func cleanText(s string) string {
    return collapseSpaces(strings.TrimSpace(s))
}

func collapseSpaces(s string) string {
    var b strings.Builder
    lastSpace := false
    for _, r := range s {
        if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' {
            if !lastSpace {
                b.WriteByte(' ')
                lastSpace = true
            }
            continue
        }
        b.WriteRune(r)
        lastSpace = false
    }
    return b.String()
}

func containsAny(s string, needles []string) bool {
    for _, n := range needles {
        if strings.Contains(s, n) {
            return true
        }
    }
    return false
}
