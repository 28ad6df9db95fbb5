package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/clickconverter/internal/cache"
	"github.com/hyperifyio/clickconverter/internal/content"
)

func TestFetch_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := &HTTPFetcher{UserAgent: "clickconverter-test", PerRequestTimeout: 2 * time.Second}
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.ContentType == "" || string(page.HTML) != "<html><body>ok</body></html>" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.URL != srv.URL || page.FinalURL == "" {
		t.Fatalf("unexpected urls: %q %q", page.URL, page.FinalURL)
	}
	if gotUA != "clickconverter-test" {
		t.Fatalf("user agent = %q", gotUA)
	}
}

func TestFetch_NoRetryOn5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(502)
	}))
	defer srv.Close()

	f := &HTTPFetcher{PerRequestTimeout: 2 * time.Second}
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, content.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := &HTTPFetcher{}
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); !errors.Is(err, content.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error for 404, got %v", err)
	}
}

func TestFetch_Conditional304_UsesCache(t *testing.T) {
	// First return 200 with ETag. Subsequent requests that include If-None-Match should get 304.
	var calls int
	etag := `"abc123"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "text/html")
		if calls == 1 {
			w.Header().Set("ETag", etag)
			_, _ = w.Write([]byte("first"))
			return
		}
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		fmt.Fprintln(w, "unexpected")
	}))
	defer srv.Close()

	f := &HTTPFetcher{PerRequestTimeout: 2 * time.Second, Cache: &cache.HTTPCache{Dir: t.TempDir()}}

	p1, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("first fetch error: %v", err)
	}
	if string(p1.HTML) != "first" {
		t.Fatalf("unexpected body1: %q", p1.HTML)
	}
	p2, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second fetch error: %v", err)
	}
	if string(p2.HTML) != "first" {
		t.Fatalf("expected cached body, got %q", p2.HTML)
	}
	if calls != 2 {
		t.Fatalf("expected 2 requests, got %d", calls)
	}
}

func TestFetch_BypassCacheSendsNoValidators(t *testing.T) {
	var sawValidator bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			sawValidator = true
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("ETag", `"v"`)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	c := &cache.HTTPCache{Dir: t.TempDir()}
	f := &HTTPFetcher{Cache: c}
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("prime: %v", err)
	}
	f.BypassCache = true
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("bypass: %v", err)
	}
	if sawValidator {
		t.Fatalf("bypass should not send conditional headers")
	}
}

func TestFetch_ThroughRelay(t *testing.T) {
	var gotTarget string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.URL.Query().Get("url")
		_, _ = w.Write([]byte("<html><body><h1>relayed</h1></body></html>"))
	}))
	defer relay.Close()

	f := &HTTPFetcher{RelayURL: relay.URL + "/raw?url="}
	target := "https://acme.test/landing?utm_term=crm&x=1"
	page, err := f.Fetch(context.Background(), target)
	if err != nil {
		t.Fatalf("relay fetch: %v", err)
	}
	if gotTarget != target {
		t.Fatalf("relay saw %q, want %q", gotTarget, target)
	}
	if page.URL != target || page.FinalURL != target {
		t.Fatalf("page urls should name the target: %+v", page)
	}
	if !strings.Contains(string(page.HTML), "relayed") {
		t.Fatalf("unexpected body %q", page.HTML)
	}
}

func TestFetch_RejectsInvalidURL(t *testing.T) {
	f := &HTTPFetcher{}
	for _, u := range []string{"file:///etc/hosts", "not a url", "/relative", "https://"} {
		if _, err := f.Fetch(context.Background(), u); !errors.Is(err, content.ErrInvalidInput) {
			t.Fatalf("%q: expected invalid input, got %v", u, err)
		}
	}
}

func TestFetch_ContentTypeGating(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	f := &HTTPFetcher{}
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, content.ErrUpstreamUnavailable) {
		t.Fatalf("expected error for unsupported content type, got %v", err)
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer srv.Close()

	f := &HTTPFetcher{MaxBodyBytes: 32}
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, content.ErrUpstreamUnavailable) {
		t.Fatalf("expected body limit error, got %v", err)
	}
}

func TestFetch_RedirectLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/next", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := &HTTPFetcher{RedirectMaxHops: 1}
	if _, err := f.Fetch(context.Background(), srv.URL+"/"); err == nil {
		t.Fatalf("expected redirect limit error")
	}
	f = &HTTPFetcher{}
	page, err := f.Fetch(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("redirect fetch: %v", err)
	}
	if !strings.HasSuffix(page.FinalURL, "/next") {
		t.Fatalf("final url = %q", page.FinalURL)
	}
}

func TestFetch_MaxConcurrent(t *testing.T) {
	var inFlight int32
	var maxObserved int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		curr := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxObserved)
			if curr > prev {
				if atomic.CompareAndSwapInt32(&maxObserved, prev, curr) {
					break
				}
				continue
			}
			break
		}
		time.Sleep(150 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("ok"))
		atomic.AddInt32(&inFlight, -1)
	}))
	defer srv.Close()

	f := &HTTPFetcher{PerRequestTimeout: 2 * time.Second, MaxConcurrent: 2}

	var wg sync.WaitGroup
	start := make(chan struct{})
	num := 6
	wg.Add(num)
	for i := 0; i < num; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, _ = f.Fetch(context.Background(), srv.URL)
		}()
	}
	close(start)
	wg.Wait()

	if maxObserved > 2 {
		t.Fatalf("expected max concurrency <= 2, got %d", maxObserved)
	}
}
