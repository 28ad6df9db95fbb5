package cache

import (
    "context"
    "fmt"
    "testing"
    "time"
)

func save(t *testing.T, c *HTTPCache, url string, body string) {
    t.Helper()
    if err := c.Save(context.Background(), HTTPEntry{URL: url, ContentType: "text/html"}, []byte(body)); err != nil {
        t.Fatalf("save %s: %v", url, err)
    }
}

func TestHTTPCache_SaveLoad(t *testing.T) {
    t.Parallel()
    c := &HTTPCache{Dir: t.TempDir()}
    e := HTTPEntry{URL: "https://acme.test/", FinalURL: "https://acme.test/de/", ContentType: "text/html", ETag: `"v1"`}
    if err := c.Save(context.Background(), e, []byte("<html></html>")); err != nil {
        t.Fatalf("save: %v", err)
    }
    meta, err := c.LoadMeta(context.Background(), e.URL)
    if err != nil {
        t.Fatalf("load meta: %v", err)
    }
    if meta.ETag != `"v1"` || meta.FinalURL != "https://acme.test/de/" || meta.SavedAt.IsZero() {
        t.Fatalf("unexpected meta: %+v", meta)
    }
    body, err := c.LoadBody(context.Background(), e.URL)
    if err != nil || string(body) != "<html></html>" {
        t.Fatalf("body = %q, err = %v", body, err)
    }
    if err := c.Delete(context.Background(), e.URL); err != nil {
        t.Fatalf("delete: %v", err)
    }
    if _, err := c.LoadMeta(context.Background(), e.URL); err == nil {
        t.Fatalf("expected entry gone after delete")
    }
    if err := c.Delete(context.Background(), e.URL); err != nil {
        t.Fatalf("second delete should be a no-op: %v", err)
    }
}

func TestHTTPCache_Unconfigured(t *testing.T) {
    t.Parallel()
    var c *HTTPCache
    if _, err := c.LoadMeta(context.Background(), "https://x.test"); err == nil {
        t.Fatalf("expected error for nil cache")
    }
}

func TestHTTPCache_LRUEnforcement_Count(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    c := &HTTPCache{Dir: dir}
    urls := []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"}
    for i, u := range urls {
        save(t, c, u, fmt.Sprintf("body-%d", i))
        time.Sleep(10 * time.Millisecond)
    }
    // Touch second to make it MRU compared to first
    if _, err := c.LoadBody(context.Background(), urls[1]); err != nil {
        t.Fatalf("touch body: %v", err)
    }
    removed, err := EnforceHTTPCacheLimits(dir, 0, 2)
    if err != nil {
        t.Fatalf("enforce: %v", err)
    }
    if removed != 1 {
        t.Fatalf("expected 1 removed, got %d", removed)
    }
    if _, err := c.LoadBody(context.Background(), urls[0]); err == nil {
        t.Fatalf("expected oldest evicted")
    }
    if _, err := c.LoadBody(context.Background(), urls[1]); err != nil {
        t.Fatalf("recently used entry evicted: %v", err)
    }
}

func TestHTTPCache_LRUEnforcement_Bytes(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    c := &HTTPCache{Dir: dir}
    save(t, c, "https://b.com/1", "1111111111")
    time.Sleep(10 * time.Millisecond)
    save(t, c, "https://b.com/2", "22")
    removed, err := EnforceHTTPCacheLimits(dir, 5, 0)
    if err != nil {
        t.Fatalf("enforce: %v", err)
    }
    if removed != 1 {
        t.Fatalf("expected 1 removal, got %d", removed)
    }
    if _, err := c.LoadBody(context.Background(), "https://b.com/2"); err != nil {
        t.Fatalf("small recent entry should survive: %v", err)
    }
}

func TestEnforceHTTPCacheLimits_NoLimits(t *testing.T) {
    t.Parallel()
    removed, err := EnforceHTTPCacheLimits(t.TempDir(), 0, 0)
    if err != nil || removed != 0 {
        t.Fatalf("removed=%d err=%v", removed, err)
    }
}
