package extract

import "github.com/hyperifyio/clickconverter/internal/content"

// Extractor turns one HTML page into the structured content model.
type Extractor interface {
    // Extract parses input and resolves URLs against baseURL. It fails only
    // when baseURL is not a valid absolute URL.
    Extract(input []byte, baseURL string) (content.Structured, error)
}

// HeuristicExtractor applies the selector heuristics of FromHTML.
type HeuristicExtractor struct{}

func (HeuristicExtractor) Extract(input []byte, baseURL string) (content.Structured, error) {
    return FromHTML(input, baseURL)
}
