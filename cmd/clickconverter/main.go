package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/hyperifyio/clickconverter/internal/app"
	"github.com/hyperifyio/clickconverter/internal/content"
	"github.com/hyperifyio/clickconverter/internal/demo"
	"github.com/hyperifyio/clickconverter/internal/keyword"
	"github.com/hyperifyio/clickconverter/internal/persona"
)

// Exit codes.
const (
	exitOK       = 0
	exitInvalid  = 1
	exitUpstream = 2
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("clickconverter failed")
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, content.ErrUpstreamUnavailable):
		return exitUpstream
	default:
		return exitInvalid
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "clickconverter",
		Usage: "personalize landing pages for the search keyword that brought the visitor",
		Flags: globalFlags(),
		// Errors are mapped to exit codes in main.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "extract structured content from a page",
				Flags:  sourceFlags(),
				Action: extractAction,
			},
			{
				Name:  "personalize",
				Usage: "extract a page and rewrite it for a keyword",
				Flags: append(sourceFlags(),
					&cli.StringFlag{Name: "keyword", Aliases: []string{"k"}, Usage: "search keyword"},
					&cli.StringFlag{Name: "landing", Usage: "landing URL whose query carries the keyword (utm_term, q, ...)"},
					&cli.BoolFlag{Name: "offline", Usage: "skip the model and use the deterministic rewrite"},
				),
				Action: personalizeAction,
			},
			{
				Name:  "persona",
				Usage: "match a keyword to a persona",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "keyword", Aliases: []string{"k"}, Usage: "search keyword"},
					&cli.StringFlag{Name: "landing", Usage: "landing URL whose query carries the keyword"},
				},
				Action: personaAction,
			},
			{
				Name:   "personas",
				Usage:  "list the persona catalog in match order",
				Action: personasAction,
			},
			{
				Name:  "demo",
				Usage: "select demo copy for a keyword",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "keyword", Aliases: []string{"k"}, Usage: "search keyword"},
				},
				Action: demoAction,
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "YAML or JSON config file"},
		&cli.StringSliceFlag{Name: "env-file", Value: cli.NewStringSlice(".env"), Usage: "dotenv files to load; later files win"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},

		&cli.StringFlag{Name: "llm.base", Usage: "OpenAI-compatible base URL"},
		&cli.StringFlag{Name: "llm.model", Usage: "model name"},
		&cli.StringFlag{Name: "llm.key", Usage: "API key for the model endpoint"},
		&cli.Float64Flag{Name: "llm.temperature", Usage: "sampling temperature in [0,2]"},
		&cli.IntFlag{Name: "llm.maxTokens", Usage: "completion token limit"},
		&cli.BoolFlag{Name: "llm.preflight", Usage: "list models at startup and log whether the model exists"},

		&cli.StringFlag{Name: "fetch.relay", Usage: "relay prefix; the page URL is appended query-escaped"},
		&cli.StringFlag{Name: "fetch.ua", Usage: "User-Agent for page fetches"},
		&cli.DurationFlag{Name: "fetch.timeout", Usage: "page fetch timeout"},
		&cli.Int64Flag{Name: "fetch.maxBodyBytes", Usage: "page size limit"},
		&cli.BoolFlag{Name: "fetch.browser", Usage: "render pages in headless Chrome"},
		&cli.StringFlag{Name: "fetch.chrome", Usage: "Chrome binary for --fetch.browser"},

		&cli.StringFlag{Name: "cache.dir", Usage: "on-disk page cache; empty disables"},
		&cli.DurationFlag{Name: "cache.maxAge", Usage: "purge cache entries older than this; 0 disables"},
		&cli.IntFlag{Name: "cache.maxEntries", Usage: "evict least recently used pages beyond this count"},
		&cli.Int64Flag{Name: "cache.maxBytes", Usage: "evict least recently used pages beyond this total size"},
		&cli.BoolFlag{Name: "cache.clear", Usage: "clear the cache before running"},
		&cli.BoolFlag{Name: "cache.strictPerms", Usage: "restrict cache permissions (0700 dirs, 0600 files)"},
		&cli.BoolFlag{Name: "cache.bypass", Usage: "fetch fresh but still store the response"},

		&cli.StringFlag{Name: "metrics.file", Usage: "write Prometheus metrics to this textfile on exit"},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "url", Usage: "page URL to fetch"},
		&cli.StringFlag{Name: "file", Usage: "local HTML file instead of --url"},
		&cli.StringFlag{Name: "base", Usage: "base URL for --file"},
	}
}

// loadConfig layers defaults, config file, env and explicitly set flags.
func loadConfig(c *cli.Context) (app.Config, error) {
	if err := app.LoadEnvFiles(c.StringSlice("env-file")...); err != nil {
		return app.Config{}, fmt.Errorf("%w: env file: %v", content.ErrInvalidInput, err)
	}
	cfg := app.DefaultConfig()
	if p := c.String("config"); p != "" {
		fc, err := app.LoadConfigFile(p)
		if err != nil {
			return cfg, fmt.Errorf("%w: %v", content.ErrInvalidInput, err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.ApplyEnvOverrides(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", content.ErrInvalidInput, err)
	}
	applyFlags(c, &cfg)
	return cfg, nil
}

func applyFlags(c *cli.Context, cfg *app.Config) {
	str := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}
	str("llm.base", &cfg.LLMBaseURL)
	str("llm.model", &cfg.LLMModel)
	str("llm.key", &cfg.LLMAPIKey)
	if c.IsSet("llm.temperature") {
		cfg.LLMTemperature = float32(c.Float64("llm.temperature"))
	}
	if c.IsSet("llm.maxTokens") {
		cfg.LLMMaxTokens = c.Int("llm.maxTokens")
	}
	boolean("llm.preflight", &cfg.Preflight)
	boolean("offline", &cfg.Offline)

	str("fetch.relay", &cfg.FetchRelayURL)
	str("fetch.ua", &cfg.FetchUserAgent)
	if c.IsSet("fetch.timeout") {
		cfg.FetchTimeout = c.Duration("fetch.timeout")
	}
	if c.IsSet("fetch.maxBodyBytes") {
		cfg.FetchMaxBodyBytes = c.Int64("fetch.maxBodyBytes")
	}
	boolean("fetch.browser", &cfg.FetchBrowser)
	str("fetch.chrome", &cfg.ChromePath)

	str("cache.dir", &cfg.CacheDir)
	if c.IsSet("cache.maxAge") {
		cfg.CacheMaxAge = c.Duration("cache.maxAge")
	}
	if c.IsSet("cache.maxEntries") {
		cfg.CacheMaxEntries = c.Int("cache.maxEntries")
	}
	if c.IsSet("cache.maxBytes") {
		cfg.CacheMaxBytes = c.Int64("cache.maxBytes")
	}
	boolean("cache.clear", &cfg.CacheClear)
	boolean("cache.strictPerms", &cfg.CacheStrictPerms)
	boolean("cache.bypass", &cfg.CacheBypass)

	str("metrics.file", &cfg.MetricsFile)
	boolean("verbose", &cfg.Verbose)
}

// withApp builds the app for one command and flushes metrics afterwards.
func withApp(c *cli.Context, fn func(*app.App) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	a, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Close(); err != nil {
		log.Warn().Err(err).Msg("metrics flush failed")
	}
	return runErr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func readSource(c *cli.Context) (app.Request, error) {
	req := app.Request{URL: c.String("url"), BaseURL: c.String("base")}
	file := c.String("file")
	switch {
	case req.URL != "" && file != "":
		return req, fmt.Errorf("%w: use either --url or --file", content.ErrInvalidInput)
	case req.URL == "" && file == "":
		return req, fmt.Errorf("%w: --url or --file is required", content.ErrInvalidInput)
	case file != "":
		if req.BaseURL == "" {
			return req, fmt.Errorf("%w: --base is required with --file", content.ErrInvalidInput)
		}
		b, err := os.ReadFile(file)
		if err != nil {
			return req, fmt.Errorf("%w: %v", content.ErrInvalidInput, err)
		}
		req.HTML = b
	}
	return req, nil
}

func extractAction(c *cli.Context) error {
	req, err := readSource(c)
	if err != nil {
		return err
	}
	return withApp(c, func(a *app.App) error {
		var out content.Structured
		if req.URL != "" {
			out, err = a.ExtractURL(c.Context, req.URL)
		} else {
			out, err = a.ExtractHTML(req.HTML, req.BaseURL)
		}
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, out)
	})
}

func personalizeAction(c *cli.Context) error {
	req, err := readSource(c)
	if err != nil {
		return err
	}
	req.Keyword = c.String("keyword")
	req.LandingURL = c.String("landing")
	return withApp(c, func(a *app.App) error {
		res, err := a.Run(c.Context, req)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, res)
	})
}

func personaAction(c *cli.Context) error {
	kw, err := app.ResolveKeyword(app.Request{Keyword: c.String("keyword"), LandingURL: c.String("landing")})
	if err != nil {
		return err
	}
	return withApp(c, func(a *app.App) error {
		return writeJSON(c.App.Writer, a.MatchPersona(kw))
	})
}

func personasAction(c *cli.Context) error {
	type entry struct {
		persona.Persona
		// DemoURL is a landing query that selects this persona.
		DemoURL string `json:"demoUrl,omitempty"`
	}
	all := persona.All()
	out := make([]entry, 0, len(all))
	for _, p := range all {
		e := entry{Persona: p}
		if kw := p.PrimaryKeyword(); kw != "" {
			e.DemoURL = "?" + keyword.QueryParams[0] + "=" + url.QueryEscape(kw)
		}
		out = append(out, e)
	}
	return writeJSON(c.App.Writer, out)
}

func demoAction(c *cli.Context) error {
	return writeJSON(c.App.Writer, demo.Select(c.String("keyword")))
}
