// Package personalize rewrites extracted page content for a search keyword.
// A chat model produces the rewrite when configured; a deterministic
// keyword-prefix variant is used whenever the model path fails.
package personalize

import (
	"context"
	"errors"
	"html"
	"math"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/clickconverter/internal/content"
	"github.com/hyperifyio/clickconverter/internal/keyword"
	"github.com/hyperifyio/clickconverter/internal/llm"
	"github.com/hyperifyio/clickconverter/internal/metrics"
)

// Defaults for the chat request. DefaultTemperature is applied by the
// configuration layer; LLMPersonalizer sends Temperature as given.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1500
)

// Personalizer turns extracted content into a keyword-specific variant.
type Personalizer interface {
	Personalize(ctx context.Context, c content.Structured, kw string) (content.Personalized, error)
}

// LLMPersonalizer asks a chat model for a JSON rewrite and composes it with
// the original content field by field.
type LLMPersonalizer struct {
	Client      llm.Client
	Model       string
	// Temperature is sent as is, including 0.
	Temperature float32
	MaxTokens   int
	// Sanitizer strips markup from model strings. Nil uses a strict policy.
	Sanitizer *bluemonday.Policy
	Metrics   *metrics.Metrics
}

// Rewrite performs a single chat completion and decodes the reply.
func (p *LLMPersonalizer) Rewrite(ctx context.Context, c content.Structured, kw string) Outcome {
	if p == nil || p.Client == nil || strings.TrimSpace(p.Model) == "" {
		return failed(ReasonNotConfigured, content.ErrUpstreamUnavailable, errors.New("no model configured"))
	}
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return failed(ReasonMissingKeyword, content.ErrInvalidInput, errors.New("keyword is required"))
	}
	req := openai.ChatCompletionRequest{
		Model: p.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(c, kw)},
		},
		Temperature: p.temperature(),
		MaxTokens:   p.maxTokens(),
		N:           1,
	}
	start := time.Now()
	resp, err := p.Client.CreateChatCompletion(ctx, req)
	p.Metrics.ObserveLLMRequest(time.Since(start))
	if err != nil {
		return failed(ReasonUpstream, content.ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return failed(ReasonEmptyMessage, content.ErrMalformedResponse, errors.New("no choices"))
	}
	return decodeRewrite(resp.Choices[0].Message.Content)
}

// Personalize returns the composed model rewrite or the model failure. It
// never falls back on its own; see Engine.
func (p *LLMPersonalizer) Personalize(ctx context.Context, c content.Structured, kw string) (content.Personalized, error) {
	o := p.Rewrite(ctx, c, kw)
	if !o.OK() {
		return content.Personalized{}, o.Failure
	}
	return Compose(c, kw, o.Rewrite, p.policy()), nil
}

// temperature maps 0 to the smallest positive float32. The request field is
// omitempty, and an omitted temperature means the server default instead of
// greedy sampling.
func (p *LLMPersonalizer) temperature() float32 {
	if p.Temperature <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return p.Temperature
}

func (p *LLMPersonalizer) maxTokens() int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return DefaultMaxTokens
}

func (p *LLMPersonalizer) policy() *bluemonday.Policy {
	if p.Sanitizer != nil {
		return p.Sanitizer
	}
	return bluemonday.StrictPolicy()
}

// Compose builds the personalized result from a decoded rewrite. Fields the
// model omitted or emptied keep the original value; when the original has
// none either, the deterministic fallback value is used. Lists never grow
// beyond their source counterpart.
func Compose(c content.Structured, kw string, r Rewrite, policy *bluemonday.Policy) content.Personalized {
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}
	base := Fallback(c, kw)
	out := content.Personalized{
		Structured:             copyStructured(c),
		PersonalizedHeadlines:  pickList(sanitizeList(policy, r.Headlines), c.Headlines),
		PersonalizedParagraphs: pickList(sanitizeList(policy, r.Paragraphs), c.Paragraphs),
		PersonalizedButtons:    pickList(sanitizeList(policy, r.Buttons), c.Buttons),
		HeroHeadline:           pick(sanitize(policy, r.HeroHeadline), content.First(c.Headlines), base.HeroHeadline),
		HeroSubheadline:        pick(sanitize(policy, r.HeroSubheadline), content.First(c.Paragraphs)),
		HeroCTA:                pick(sanitize(policy, r.HeroCTA), content.First(c.Buttons), base.HeroCTA),
		Keyword:                strings.TrimSpace(kw),
		Source:                 content.SourceLLM,
	}
	return out
}

// sanitize reduces s to plain text.
func sanitize(policy *bluemonday.Policy, s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

func sanitizeList(policy *bluemonday.Policy, list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if v := sanitize(policy, s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func pick(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func pickList(rewritten, original []string) []string {
	if len(rewritten) == 0 {
		return content.Clone(original)
	}
	return content.Head(rewritten, len(original))
}

func copyStructured(c content.Structured) content.Structured {
	c.Headlines = content.Clone(c.Headlines)
	c.Paragraphs = content.Clone(c.Paragraphs)
	c.Buttons = content.Clone(c.Buttons)
	c.Images = content.Clone(c.Images)
	c.Navigation = content.Clone(c.Navigation)
	return c
}

// Engine runs the model path and degrades to the fallback on any failure.
// It never returns an error.
type Engine struct {
	// Primary is usually an *LLMPersonalizer. Nil means offline.
	Primary Personalizer
	Metrics *metrics.Metrics
}

// Personalize returns a fully populated result for c and kw.
func (e *Engine) Personalize(ctx context.Context, c content.Structured, kw string) content.Personalized {
	reason := ReasonOffline
	if e != nil && e.Primary != nil {
		out, err := e.Primary.Personalize(ctx, c, kw)
		if err == nil {
			e.metrics().IncPersonalization(content.SourceLLM, "")
			return out
		}
		reason = failureReason(err)
		log.Warn().Err(err).Str("reason", reason).Str("keyword", kw).Msg("personalization failed; using fallback")
	}
	out := Fallback(c, kw)
	out.FallbackReason = reason
	e.metrics().IncPersonalization(content.SourceFallback, reason)
	return out
}

func (e *Engine) metrics() *metrics.Metrics {
	if e == nil {
		return nil
	}
	return e.Metrics
}

func failureReason(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	if errors.Is(err, content.ErrMalformedResponse) {
		return ReasonInvalidJSON
	}
	return ReasonUpstream
}

// DefaultCTA labels the hero button when the page has no buttons.
const DefaultCTA = "Jetzt entdecken"

const defaultHero = "Willkommen"

// FallbackPersonalizer is the deterministic path. It never fails.
type FallbackPersonalizer struct{}

func (FallbackPersonalizer) Personalize(_ context.Context, c content.Structured, kw string) (content.Personalized, error) {
	return Fallback(c, kw), nil
}

// Fallback prefixes the first headline with the capitalized keyword and
// reuses the rest of the page as is. Same input, same output.
func Fallback(c content.Structured, kw string) content.Personalized {
	kw = strings.TrimSpace(kw)
	k := keyword.Capitalize(kw)

	headlines := content.Clone(c.Headlines)
	hero := prefixed(k, defaultHero)
	if len(headlines) > 0 {
		headlines[0] = prefixed(k, headlines[0])
		hero = headlines[0]
	}
	return content.Personalized{
		Structured:             copyStructured(c),
		PersonalizedHeadlines:  headlines,
		PersonalizedParagraphs: content.Clone(c.Paragraphs),
		PersonalizedButtons:    content.Clone(c.Buttons),
		HeroHeadline:           hero,
		HeroSubheadline:        content.First(c.Paragraphs),
		HeroCTA:                pick(content.First(c.Buttons), DefaultCTA),
		Keyword:                kw,
		Source:                 content.SourceFallback,
	}
}

func prefixed(k, s string) string {
	if k == "" {
		return s
	}
	return k + " - " + s
}
