package personalize

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/hyperifyio/clickconverter/internal/content"
)

// Fallback reasons. Only used for logging and metrics; every reason leads to
// the same deterministic fallback.
const (
	ReasonOffline        = "offline"
	ReasonNotConfigured  = "not_configured"
	ReasonMissingKeyword = "missing_keyword"
	ReasonUpstream       = "upstream_unavailable"
	ReasonEmptyMessage   = "empty_message"
	ReasonInvalidJSON    = "invalid_json"
)

// Rewrite is the JSON object the model must return.
type Rewrite struct {
	HeroHeadline    string   `json:"heroHeadline"`
	HeroSubheadline string   `json:"heroSubheadline"`
	HeroCTA         string   `json:"heroCta"`
	Headlines       []string `json:"headlines"`
	Paragraphs      []string `json:"paragraphs"`
	Buttons         []string `json:"buttons"`
}

// Failure describes why the model path produced no usable rewrite. It
// unwraps to one of the content error kinds and to the underlying cause.
type Failure struct {
	Reason string
	Kind   error
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Reason
	}
	return f.Reason + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if f.Kind != nil {
		errs = append(errs, f.Kind)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// Outcome is either a decoded Rewrite or a Failure, never both.
type Outcome struct {
	Rewrite Rewrite
	Failure *Failure
}

// OK reports whether the outcome carries a usable rewrite.
func (o Outcome) OK() bool { return o.Failure == nil }

// Reason returns the failure reason or "".
func (o Outcome) Reason() string {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Reason
}

func failed(reason string, kind error, err error) Outcome {
	return Outcome{Failure: &Failure{Reason: reason, Kind: kind, Err: err}}
}

// StripCodeFence removes optional Markdown code fences around a model reply:
// a leading "```json", then a leading "```", then a trailing "```".
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeRewrite parses a raw assistant message into a Rewrite.
func decodeRewrite(raw string) Outcome {
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return failed(ReasonEmptyMessage, content.ErrMalformedResponse, errors.New("empty message"))
	}
	var r Rewrite
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return failed(ReasonInvalidJSON, content.ErrMalformedResponse, err)
	}
	return Outcome{Rewrite: r}
}
