package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Index keeps sizes and access times of cached files.
type Index interface {
	CacheTouch(ctx context.Context, hash string, size int64, created bool) error
	CacheRemove(ctx context.Context, hash string) error
	CacheTotalBytes(ctx context.Context) (int64, error)
	CacheOldest(ctx context.Context) (string, error)
}

// FileCache stores downloaded episode audio on disk, evicting the least
// recently used files once the total size passes limit.
type FileCache struct {
	dir   string
	limit int64
	index Index
	http  *http.Client
	mu    sync.Mutex
	keyMu sync.Map
}

func NewFileCache(dir string, limit int64, index Index) (*FileCache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &FileCache{
		dir:   dir,
		limit: limit,
		index: index,
		http:  &http.Client{Timeout: 30 * time.Minute},
	}, nil
}

func (c *FileCache) HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) PathFor(hash string) string {
	return filepath.Join(c.dir, hash)
}

func (c *FileCache) Get(ctx context.Context, hash string) (string, bool) {
	p := c.PathFor(hash)
	if _, err := os.Stat(p); err == nil {
		_ = c.index.CacheTouch(ctx, hash, 0, false)
		return p, true
	}
	_ = c.index.CacheRemove(ctx, hash)
	return "", false
}

// Lookup is Get keyed by the source location, usually the episode URL.
func (c *FileCache) Lookup(ctx context.Context, key string) (string, bool) {
	return c.Get(ctx, c.HashKey(key))
}

func (c *FileCache) CreateTemp(hash string) (*os.File, string, error) {
	f, err := os.CreateTemp(filepath.Join(c.dir, "tmp"), hash+"-*")
	if err != nil {
		return nil, "", err
	}
	return f, f.Name(), nil
}

func (c *FileCache) Commit(ctx context.Context, tmp, finalPath, hash string) error {
	info, err := os.Stat(tmp)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		_ = os.Remove(tmp)
		return nil
	}
	if err := os.Rename(tmp, finalPath); err != nil {
		return err
	}
	if err := c.index.CacheTouch(ctx, hash, info.Size(), true); err != nil {
		return err
	}
	return c.evictIfNeeded(ctx, hash)
}

// evictIfNeeded removes the oldest files until the cache fits. keep is never
// evicted.
func (c *FileCache) evictIfNeeded(ctx context.Context, keep string) error {
	if c.limit <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	total, err := c.index.CacheTotalBytes(ctx)
	if err != nil {
		return err
	}
	for total > c.limit {
		oldest, err := c.index.CacheOldest(ctx)
		if err != nil {
			return err
		}
		if oldest == keep {
			return nil
		}
		_ = os.Remove(c.PathFor(oldest))
		if err := c.index.CacheRemove(ctx, oldest); err != nil {
			return err
		}
		slog.Debug("cache evicted", "hash", oldest)
		total, err = c.index.CacheTotalBytes(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *FileCache) lockKey(hash string) func() {
	v, _ := c.keyMu.LoadOrStore(hash, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (c *FileCache) WriteStream(ctx context.Context, key string, src io.Reader) (string, error) {
	hash := c.HashKey(key)
	final := c.PathFor(hash)
	if _, ok := c.Get(ctx, hash); ok {
		return final, nil
	}
	f, tmp, err := c.CreateTemp(hash)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := c.Commit(ctx, tmp, final, hash); err != nil {
		return "", err
	}
	return final, nil
}

// Fetch returns the cached copy of url, downloading it first if needed.
func (c *FileCache) Fetch(ctx context.Context, url string, headers map[string]string) (string, error) {
	hash := c.HashKey(url)
	unlock := c.lockKey(hash)
	defer unlock()

	if p, ok := c.Get(ctx, hash); ok {
		return p, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("download %s: http %d", url, resp.StatusCode)
	}
	start := time.Now()
	p, err := c.WriteStream(ctx, url, resp.Body)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	slog.Info("episode cached", "url", url, "took", time.Since(start).Round(time.Millisecond))
	return p, nil
}
