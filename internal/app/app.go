// Package app wires configuration, fetching, extraction, persona matching and
// personalization into the operations the CLI exposes.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/clickconverter/internal/cache"
	"github.com/hyperifyio/clickconverter/internal/content"
	"github.com/hyperifyio/clickconverter/internal/demo"
	"github.com/hyperifyio/clickconverter/internal/extract"
	"github.com/hyperifyio/clickconverter/internal/fetch"
	"github.com/hyperifyio/clickconverter/internal/keyword"
	"github.com/hyperifyio/clickconverter/internal/llm"
	"github.com/hyperifyio/clickconverter/internal/metrics"
	"github.com/hyperifyio/clickconverter/internal/persona"
	"github.com/hyperifyio/clickconverter/internal/personalize"
)

const llmRequestTimeout = 60 * time.Second

type App struct {
	cfg       Config
	llm       llm.Client
	fetcher   fetch.Fetcher
	extractor extract.Extractor
	engine    *personalize.Engine
	personas  *persona.Catalog
	metrics   *metrics.Metrics
}

// Option customizes New, mainly for tests.
type Option func(*App)

// WithLLMClient replaces the OpenAI-compatible client.
func WithLLMClient(c llm.Client) Option { return func(a *App) { a.llm = c } }

// WithFetcher replaces the configured page fetcher.
func WithFetcher(f fetch.Fetcher) Option { return func(a *App) { a.fetcher = f } }

// WithCatalog replaces the built-in persona catalog.
func WithCatalog(c *persona.Catalog) Option { return func(a *App) { a.personas = c } }

func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrInvalidInput, err)
	}
	a := &App{
		cfg:       cfg,
		extractor: extract.HeuristicExtractor{},
		personas:  persona.Builtin(),
		metrics:   metrics.New(),
	}
	if !cfg.Offline && (cfg.LLMAPIKey != "" || cfg.LLMBaseURL != "") {
		a.llm = llm.NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, newHTTPClient(llmRequestTimeout))
	}
	a.fetcher = a.newFetcher()
	for _, o := range opts {
		o(a)
	}

	var primary personalize.Personalizer
	if !cfg.Offline && a.llm != nil {
		primary = &personalize.LLMPersonalizer{
			Client:      a.llm,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Metrics:     a.metrics,
		}
	} else if !cfg.Offline {
		log.Warn().Msg("no LLM endpoint or API key configured; personalization uses the fallback")
	}
	a.engine = &personalize.Engine{Primary: primary, Metrics: a.metrics}

	if cfg.Preflight && primary != nil {
		a.preflight(ctx)
	}
	return a, nil
}

func (a *App) newFetcher() fetch.Fetcher {
	cfg := a.cfg
	if cfg.FetchBrowser {
		return &fetch.BrowserFetcher{UserAgent: cfg.FetchUserAgent, Timeout: cfg.FetchTimeout, ExecPath: cfg.ChromePath, Metrics: a.metrics}
	}
	f := &fetch.HTTPFetcher{
		HTTPClient:        newHTTPClient(0),
		UserAgent:         cfg.FetchUserAgent,
		PerRequestTimeout: cfg.FetchTimeout,
		RelayURL:          cfg.FetchRelayURL,
		MaxBodyBytes:      cfg.FetchMaxBodyBytes,
		BypassCache:       cfg.CacheBypass,
		Metrics:           a.metrics,
	}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		// Invalidation is best-effort; a broken cache never blocks a fetch.
		if n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("cache purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged expired cache entries")
		}
		if n, err := cache.EnforceHTTPCacheLimits(cfg.CacheDir, cfg.CacheMaxBytes, cfg.CacheMaxEntries); err != nil {
			log.Warn().Err(err).Msg("cache limit enforcement failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("evicted cache entries")
		}
		f.Cache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}
	return f
}

// preflight lists models to surface a misconfigured endpoint early. It never
// fails the run.
func (a *App) preflight(ctx context.Context) {
	lister, ok := a.llm.(llm.ModelLister)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	found := false
	for _, m := range models.Models {
		if m.ID == a.cfg.LLMModel {
			found = true
			break
		}
	}
	log.Info().Int("count", len(models.Models)).Bool("model_listed", found).Str("model", a.cfg.LLMModel).Msg("LLM models available")
}

// Close flushes metrics to the configured textfile.
func (a *App) Close() error {
	if a.cfg.MetricsFile == "" {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// Metrics exposes the run's collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// ExtractURL fetches pageURL and extracts its content. The page URL's origin
// is the base for URL resolution.
func (a *App) ExtractURL(ctx context.Context, pageURL string) (content.Structured, error) {
	page, err := a.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return content.Structured{}, err
	}
	log.Debug().Str("url", page.URL).Str("final", page.FinalURL).Int("bytes", len(page.HTML)).Msg("fetched page")
	return a.ExtractHTML(page.HTML, page.URL)
}

// ExtractHTML extracts content from an HTML document.
func (a *App) ExtractHTML(html []byte, baseURL string) (content.Structured, error) {
	out, err := a.extractor.Extract(html, baseURL)
	if err != nil {
		a.metrics.IncExtraction("invalid_input")
		return content.Structured{}, err
	}
	a.metrics.IncExtraction("ok")
	log.Debug().
		Int("headlines", len(out.Headlines)).
		Int("paragraphs", len(out.Paragraphs)).
		Int("buttons", len(out.Buttons)).
		Int("images", len(out.Images)).
		Msg("extracted content")
	return out, nil
}

// ExtractFile reads an HTML file and extracts it against baseURL.
func (a *App) ExtractFile(path string, baseURL string) (content.Structured, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return content.Structured{}, fmt.Errorf("read %s: %w: %v", path, content.ErrInvalidInput, err)
	}
	return a.ExtractHTML(b, baseURL)
}

// Personalize never fails; see personalize.Engine.
func (a *App) Personalize(ctx context.Context, c content.Structured, kw string) content.Personalized {
	return a.engine.Personalize(ctx, c, kw)
}

// MatchPersona returns the first persona whose keywords match kw.
func (a *App) MatchPersona(kw string) persona.Persona {
	p := a.personas.Match(kw)
	a.metrics.IncPersonaMatch(p.ID)
	return p
}

// Personas lists the catalog in match order.
func (a *App) Personas() []persona.Persona { return a.personas.All() }

// SelectDemo picks the demo bundle for kw.
func (a *App) SelectDemo(kw string) demo.Bundle { return demo.Select(kw) }

// Request describes one landing-page personalization.
type Request struct {
	// URL is fetched when set; otherwise HTML is extracted against BaseURL.
	URL     string
	HTML    []byte
	BaseURL string
	// Keyword wins over a keyword found in LandingURL's query.
	Keyword    string
	LandingURL string
}

// Result is the full output of Run.
type Result struct {
	Content content.Personalized `json:"content"`
	Persona persona.Persona      `json:"persona"`
}

// ResolveKeyword returns req.Keyword or the keyword carried by LandingURL.
func ResolveKeyword(req Request) (string, error) {
	if kw := strings.TrimSpace(req.Keyword); kw != "" {
		return kw, nil
	}
	if req.LandingURL == "" {
		return "", nil
	}
	return keyword.FromURL(req.LandingURL)
}

// Run extracts, personalizes and matches a persona for one request. It only
// fails on invalid input or when the page cannot be retrieved.
func (a *App) Run(ctx context.Context, req Request) (Result, error) {
	kw, err := ResolveKeyword(req)
	if err != nil {
		return Result{}, err
	}
	if kw == "" {
		return Result{}, fmt.Errorf("%w: keyword is required", content.ErrInvalidInput)
	}
	var c content.Structured
	if req.URL != "" {
		c, err = a.ExtractURL(ctx, req.URL)
	} else {
		c, err = a.ExtractHTML(req.HTML, req.BaseURL)
	}
	if err != nil {
		return Result{}, err
	}
	out := a.Personalize(ctx, c, kw)
	p := a.MatchPersona(kw)
	log.Info().Str("keyword", kw).Str("source", out.Source).Str("persona", p.ID).Msg("personalized")
	return Result{Content: out, Persona: p}, nil
}
