package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sonroyaalmerol/podcaster/internal/repository"
)

func newTestCache(t *testing.T, limit int64) *FileCache {
	t.Helper()
	dir := t.TempDir()
	db, err := repository.OpenDB(dir)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	c, err := NewFileCache(dir+"/cache", limit, repository.NewRepo(db))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	return c
}

func TestWriteStreamAndLookup(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 0)

	p, err := c.WriteStream(ctx, "https://cdn/a.mp3", strings.NewReader("audio"))
	if err != nil {
		t.Fatalf("WriteStream: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "audio" {
		t.Fatalf("cached file = %q, %v", b, err)
	}
	if got, ok := c.Lookup(ctx, "https://cdn/a.mp3"); !ok || got != p {
		t.Fatalf("Lookup = %q, %v; want %q", got, ok, p)
	}
	if _, ok := c.Lookup(ctx, "https://cdn/b.mp3"); ok {
		t.Fatalf("Lookup found an uncached key")
	}
}

func TestEviction(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 8)

	first, _ := c.WriteStream(ctx, "a", strings.NewReader("12345"))
	second, _ := c.WriteStream(ctx, "b", strings.NewReader("67890"))

	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("oldest file not evicted: %v", err)
	}
	if _, err := os.Stat(second); err != nil {
		t.Fatalf("newest file evicted: %v", err)
	}
}

func TestFetchDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("User-Agent") != "podcaster" {
			http.Error(w, "ua", http.StatusForbidden)
			return
		}
		w.Write([]byte("episode bytes"))
	}))
	defer srv.Close()

	ctx := context.Background()
	c := newTestCache(t, 0)
	for range 2 {
		p, err := c.Fetch(ctx, srv.URL+"/ep.mp3", map[string]string{"User-Agent": "podcaster"})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if b, _ := os.ReadFile(p); string(b) != "episode bytes" {
			t.Fatalf("cached content = %q", b)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, want 1", got)
	}

	if _, err := c.Fetch(ctx, srv.URL+"/ep.mp3?x", nil); err == nil {
		t.Fatalf("Fetch without user agent succeeded, want http 403 error")
	}
}
