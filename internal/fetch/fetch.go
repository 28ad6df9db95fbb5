// Package fetch retrieves landing pages for extraction. HTTPFetcher issues a
// single GET, optionally through a relay and an on-disk cache; BrowserFetcher
// renders the page in headless Chrome first.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hyperifyio/clickconverter/internal/cache"
	"github.com/hyperifyio/clickconverter/internal/content"
	"github.com/hyperifyio/clickconverter/internal/metrics"
)

// DefaultMaxBodyBytes caps a fetched page.
const DefaultMaxBodyBytes = 10 << 20

// Page is a retrieved HTML document, decoded to UTF-8.
type Page struct {
	URL         string
	FinalURL    string
	ContentType string
	HTML        []byte
}

// Fetcher retrieves the HTML of a page URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (Page, error)
}

// HTTPFetcher wraps http.Client with a timeout, an optional relay and an
// optional conditional-request cache. It never retries.
type HTTPFetcher struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds the request. Zero leaves it to ctx.
	PerRequestTimeout time.Duration
	// RelayURL, when set, is prefixed to the query-escaped page URL, e.g.
	// "https://relay.example/raw?url=".
	RelayURL string
	// MaxBodyBytes caps the body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Optional on-disk cache for GET bodies and validators.
	Cache *cache.HTTPCache
	// If true, skip conditional headers but still save the latest response.
	BypassCache bool

	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests per fetcher. Zero means unlimited.
	MaxConcurrent int

	Metrics *metrics.Metrics

	limiter     chan struct{}
	limiterOnce sync.Once
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	finalURL     string
	status       int
}

// Fetch validates pageURL, performs one GET and returns the decoded page.
// Invalid URLs wrap content.ErrInvalidInput; every transport or status
// failure wraps content.ErrUpstreamUnavailable.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	target, err := ValidateURL(pageURL)
	if err != nil {
		f.Metrics.IncFetch("http", "invalid_input")
		return Page{}, err
	}
	page, err := f.fetch(ctx, target)
	if err != nil {
		f.Metrics.IncFetch("http", "error")
		return Page{}, err
	}
	f.Metrics.IncFetch("http", "ok")
	return page, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, target string) (Page, error) {
	var etag, lastMod string
	if f.Cache != nil && !f.BypassCache {
		if meta, err := f.Cache.LoadMeta(ctx, target); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	resp, err := f.tryOnce(ctx, target, etag, lastMod)
	if err != nil {
		return Page{}, err
	}
	if resp.status == http.StatusNotModified {
		if f.Cache == nil {
			return Page{}, fmt.Errorf("%w: unexpected 304 for %s", content.ErrUpstreamUnavailable, target)
		}
		meta, merr := f.Cache.LoadMeta(ctx, target)
		body, berr := f.Cache.LoadBody(ctx, target)
		if merr != nil || berr != nil {
			return Page{}, fmt.Errorf("%w: 304 without cached body for %s", content.ErrUpstreamUnavailable, target)
		}
		return decodePage(target, meta.FinalURL, meta.ContentType, body), nil
	}
	if f.Cache != nil {
		_ = f.Cache.Save(ctx, cache.HTTPEntry{
			URL:          target,
			FinalURL:     resp.finalURL,
			ContentType:  resp.contentType,
			ETag:         resp.etag,
			LastModified: resp.lastModified,
		}, resp.body)
	}
	return decodePage(target, resp.finalURL, resp.contentType, resp.body), nil
}

func decodePage(target, finalURL, contentType string, body []byte) Page {
	if finalURL == "" {
		finalURL = target
	}
	return Page{URL: target, FinalURL: finalURL, ContentType: contentType, HTML: DecodeHTML(body, contentType)}
}

// requestURL is target itself or target routed through the relay.
func (f *HTTPFetcher) requestURL(target string) string {
	if f.RelayURL == "" {
		return target
	}
	return f.RelayURL + url.QueryEscape(target)
}

func (f *HTTPFetcher) getHTTPClient() *http.Client {
	if f.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *f.HTTPClient
		base.CheckRedirect = f.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: f.checkRedirectFunc()}
}

func (f *HTTPFetcher) tryOnce(ctx context.Context, target string, etag string, lastMod string) (response, error) {
	f.acquire()
	defer f.release()

	if f.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.requestURL(target), nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w: %v", content.ErrInvalidInput, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := f.getHTTPClient().Do(req)
	if err != nil {
		return response{}, fmt.Errorf("get %s: %w: %v", target, content.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && (etag != "" || lastMod != "") {
		return response{status: resp.StatusCode}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, fmt.Errorf("get %s: %w: status %d", target, content.ErrUpstreamUnavailable, resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !isAllowedHTMLContentType(contentType) {
		return response{}, fmt.Errorf("get %s: %w: unsupported content type %q", target, content.ErrUpstreamUnavailable, contentType)
	}
	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return response{}, fmt.Errorf("read body: %w: %v", content.ErrUpstreamUnavailable, err)
	}
	if int64(len(b)) > limit {
		return response{}, fmt.Errorf("get %s: %w: body exceeds %d bytes", target, content.ErrUpstreamUnavailable, limit)
	}
	finalURL := target
	if f.RelayURL == "" && resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return response{
		body:         b,
		contentType:  contentType,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		finalURL:     finalURL,
		status:       resp.StatusCode,
	}, nil
}

// ValidateURL trims raw and checks it is an absolute http(s) URL with a host.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("page url: %w: %v", content.ErrInvalidInput, err)
	}
	if !isHTTPScheme(u) || u.Host == "" {
		return "", fmt.Errorf("page url %q: %w: need absolute http(s) url", raw, content.ErrInvalidInput)
	}
	return raw, nil
}

func (f *HTTPFetcher) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := f.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// Relays commonly omit the type; let the parser decide.
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (f *HTTPFetcher) acquire() {
	if f.MaxConcurrent <= 0 {
		return
	}
	f.limiterOnce.Do(func() {
		f.limiter = make(chan struct{}, f.MaxConcurrent)
	})
	f.limiter <- struct{}{}
}

func (f *HTTPFetcher) release() {
	if f.MaxConcurrent <= 0 || f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}
