package cache

import (
    "encoding/json"
    "errors"
    "io/fs"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
    if strings.TrimSpace(dir) == "" {
        return errors.New("empty dir")
    }
    if err := os.RemoveAll(dir); err != nil {
        return err
    }
    return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge removes entries whose SavedAt is older than maxAge.
// Unreadable or malformed meta files are skipped.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
    if maxAge <= 0 {
        return 0, nil
    }
    now := time.Now().UTC()
    removed := 0
    err := walkMeta(dir, func(metaPath string, _ fs.DirEntry) {
        b, err := os.ReadFile(metaPath)
        if err != nil {
            return
        }
        var e HTTPEntry
        if err := json.Unmarshal(b, &e); err != nil {
            return
        }
        if now.Sub(e.SavedAt) <= maxAge {
            return
        }
        removed++
        removeEntry(metaPath)
    })
    return removed, err
}

// EnforceHTTPCacheLimits evicts least recently used entries until at most
// maxEntries remain and the bodies total at most maxBytes. A limit <= 0 is
// ignored. Recency is the body's modification time, which LoadBody refreshes.
func EnforceHTTPCacheLimits(dir string, maxBytes int64, maxEntries int) (int, error) {
    if maxBytes <= 0 && maxEntries <= 0 {
        return 0, nil
    }
    type entry struct {
        meta string
        size int64
        used time.Time
    }
    var entries []entry
    var total int64
    err := walkMeta(dir, func(metaPath string, _ fs.DirEntry) {
        info, err := os.Stat(bodyFor(metaPath))
        if err != nil {
            return
        }
        entries = append(entries, entry{meta: metaPath, size: info.Size(), used: info.ModTime()})
        total += info.Size()
    })
    if err != nil {
        return 0, err
    }
    sort.Slice(entries, func(i, j int) bool { return entries[i].used.Before(entries[j].used) })
    removed := 0
    for _, e := range entries {
        overCount := maxEntries > 0 && len(entries)-removed > maxEntries
        overBytes := maxBytes > 0 && total > maxBytes
        if !overCount && !overBytes {
            break
        }
        removeEntry(e.meta)
        total -= e.size
        removed++
    }
    return removed, nil
}

func walkMeta(dir string, fn func(metaPath string, d fs.DirEntry)) error {
    err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
        if err != nil {
            return err
        }
        if d.IsDir() || !strings.HasSuffix(d.Name(), ".meta.json") {
            return nil
        }
        fn(path, d)
        return nil
    })
    if errors.Is(err, fs.ErrNotExist) {
        return nil
    }
    return err
}

func bodyFor(metaPath string) string {
    return strings.TrimSuffix(metaPath, ".meta.json") + ".body"
}

func removeEntry(metaPath string) {
    _ = os.Remove(metaPath)
    _ = os.Remove(bodyFor(metaPath))
}
