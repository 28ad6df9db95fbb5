package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/clickconverter/internal/content"
	"github.com/hyperifyio/clickconverter/internal/metrics"
)

// BrowserFetcher renders the page in headless Chrome and returns the
// serialized DOM. Use it for landing pages that build their content in
// JavaScript. Requires a Chrome or Chromium binary on the host.
type BrowserFetcher struct {
	UserAgent string
	// Timeout bounds navigation and serialization. Zero means 30s.
	Timeout time.Duration
	// ExecPath overrides Chrome discovery.
	ExecPath string
	Metrics  *metrics.Metrics
}

func (b *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	target, err := ValidateURL(pageURL)
	if err != nil {
		b.Metrics.IncFetch("browser", "invalid_input")
		return Page{}, err
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.Debug().Msgf(format, args...)
	}))
	defer cancelTask()
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	taskCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	actions := []chromedp.Action{}
	if b.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(b.UserAgent))
	}
	var doc, finalURL string
	actions = append(actions,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &doc, chromedp.ByQuery),
	)
	start := time.Now()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		b.Metrics.IncFetch("browser", "error")
		return Page{}, fmt.Errorf("render %s: %w: %v", target, content.ErrUpstreamUnavailable, err)
	}
	log.Debug().Str("url", target).Dur("took", time.Since(start)).Int("bytes", len(doc)).Msg("rendered page")
	b.Metrics.IncFetch("browser", "ok")
	if finalURL == "" {
		finalURL = target
	}
	return Page{URL: target, FinalURL: finalURL, ContentType: "text/html; charset=utf-8", HTML: []byte(doc)}, nil
}
