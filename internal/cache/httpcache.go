// Package cache keeps raw fetched landing pages on disk so repeated runs
// against the same URL can revalidate instead of downloading again. Only
// fetched HTML is stored; extracted and personalized content never is.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HTTPEntry captures enough metadata to support conditional revalidation and
// to return a page without hitting the network.
type HTTPEntry struct {
	URL          string    `json:"url"`
	FinalURL     string    `json:"final_url,omitempty"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	SavedAt      time.Time `json:"saved_at"`
}

// HTTPCache stores responses as <key>.meta.json and <key>.body where key is
// sha256(url). No eviction runs implicitly; see PurgeHTTPCacheByAge and
// EnforceHTTPCacheLimits.
type HTTPCache struct {
	Dir string
	// StrictPerms writes the directory as 0700 and files as 0600.
	StrictPerms bool
}

func (c *HTTPCache) dirMode() os.FileMode {
	if c.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (c *HTTPCache) fileMode() os.FileMode {
	if c.StrictPerms {
		return 0o600
	}
	return 0o644
}

func (c *HTTPCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	if err := os.MkdirAll(c.Dir, c.dirMode()); err != nil {
		return err
	}
	if c.StrictPerms {
		// MkdirAll leaves an existing directory untouched.
		return os.Chmod(c.Dir, c.dirMode())
	}
	return nil
}

func (c *HTTPCache) key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *HTTPCache) metaPath(key string) string { return filepath.Join(c.Dir, key+".meta.json") }
func (c *HTTPCache) bodyPath(key string) string { return filepath.Join(c.Dir, key+".body") }

// LoadMeta returns entry metadata if present.
func (c *HTTPCache) LoadMeta(_ context.Context, url string) (*HTTPEntry, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(c.metaPath(c.key(url)))
	if err != nil {
		return nil, err
	}
	var e HTTPEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &e, nil
}

// LoadBody returns the cached body if present. Reading refreshes the entry's
// access time for EnforceHTTPCacheLimits.
func (c *HTTPCache) LoadBody(_ context.Context, url string) ([]byte, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	p := c.bodyPath(c.key(url))
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, nil
}

// Save stores a new cache entry. The body is written first so a visible meta
// file always has a body next to it.
func (c *HTTPCache) Save(_ context.Context, e HTTPEntry, body []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	key := c.key(e.URL)
	if err := os.WriteFile(c.bodyPath(key), body, c.fileMode()); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	tmp := c.metaPath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, c.fileMode()); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return os.Rename(tmp, c.metaPath(key))
}

// Delete drops the entry for url. Missing entries are not an error.
func (c *HTTPCache) Delete(_ context.Context, url string) error {
	if c == nil || c.Dir == "" {
		return nil
	}
	key := c.key(url)
	for _, p := range []string{c.metaPath(key), c.bodyPath(key)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
