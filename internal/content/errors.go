package content

import "errors"

// Error kinds shared by the pipeline. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrInvalidInput marks a malformed base URL, page URL or missing
	// required request field. Not retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable marks a transport failure or non-success status
	// from the text-generation service or the website fetch.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse marks a reply that arrived but does not match the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)
