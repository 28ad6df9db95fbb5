package fetch

import (
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// minDetectConfidence is the chardet confidence below which the declared or
// default encoding is kept.
const minDetectConfidence = 50

// defaultGuess is what DetermineEncoding reports when nothing is declared.
const defaultGuess = "windows-1252"

// DecodeHTML converts body to UTF-8. A BOM or a charset parameter in
// contentType is authoritative. Otherwise valid UTF-8 is kept as is, then a
// <meta> declaration wins, and only undeclared bytes go through statistical
// detection before the windows-1252 default.
func DecodeHTML(body []byte, contentType string) []byte {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain {
		if utf8.Valid(body) {
			return body
		}
		if name == defaultGuess {
			r, err := chardet.NewHtmlDetector().DetectBest(body)
			if err == nil && r != nil && r.Confidence >= minDetectConfidence {
				if e, n := charset.Lookup(r.Charset); e != nil {
					enc, name = e, n
				}
			}
		}
	}
	if name == "utf-8" {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}
