package episodes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func record(i int) string {
	return fmt.Sprintf(`{"id":"ep-%d","title":"Episode %d","members":"Host %d","published_at":"2021-01-%02d 10:00:00","file":{"url":"https://cdn/%d.mp3","duration":"%d"}}`, i, i, i, i+1, i, 60*i)
}

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case r.URL.Path == "/episodes":
			q := r.URL.Query()
			if q.Get("_limit") != "12" || q.Get("_sort") != "published_at" || q.Get("_order") != "desc" {
				http.Error(w, "bad query "+r.URL.RawQuery, http.StatusBadRequest)
				return
			}
			recs := make([]string, 0, 5)
			for i := range 5 {
				recs = append(recs, record(i))
			}
			fmt.Fprintf(w, "[%s]", strings.Join(recs, ","))
		case r.URL.Path == "/episodes/ep-3":
			fmt.Fprint(w, record(3))
		case r.URL.Path == "/episodes/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHomeSplit(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	c := NewClient(srv.URL + "/")

	home, err := c.Home(context.Background())
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if len(home.Latest) != 2 || len(home.All) != 3 {
		t.Fatalf("split = %d/%d, want 2/3", len(home.Latest), len(home.All))
	}
	combined := home.Combined()
	if len(combined) != 5 {
		t.Fatalf("Combined len = %d, want 5", len(combined))
	}
	for i := range home.Latest {
		if combined[home.LatestIndex(i)].ID != home.Latest[i].ID {
			t.Fatalf("LatestIndex(%d) mismatch", i)
		}
	}
	for i := range home.All {
		if combined[home.AllIndex(i)].ID != home.All[i].ID {
			t.Fatalf("AllIndex(%d) mismatch", i)
		}
	}
	if home.AllIndex(0) != 2 {
		t.Fatalf("AllIndex(0) = %d, want 2", home.AllIndex(0))
	}
}

func TestListIsCached(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	c := NewClient(srv.URL)

	for range 3 {
		if _, err := c.Home(context.Background()); err != nil {
			t.Fatalf("Home: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, want 1", got)
	}
	c.Purge()
	if _, err := c.Home(context.Background()); err != nil {
		t.Fatalf("Home: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits after purge = %d, want 2", got)
	}
}

func TestZeroRevalidateDisablesCache(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	c := NewClient(srv.URL, WithRevalidate(0, 0))
	for range 2 {
		if _, err := c.Get(context.Background(), "ep-3"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want 2", got)
	}
}

func TestGet(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	c := NewClient(srv.URL, WithLocale(LocaleEnUS))

	ep, err := c.Get(context.Background(), "ep-3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ep.Title != "Episode 3" || ep.Duration != 180 || ep.PublishedAt != "4 Jan 21" {
		t.Fatalf("Get = %+v", ep)
	}

	if _, err := c.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}
	if _, err := c.Get(context.Background(), "broken"); err == nil || !strings.Contains(err.Error(), "http 500") {
		t.Fatalf("Get(broken) err = %v, want http 500", err)
	}
}

func TestSearch(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	c := NewClient(srv.URL)

	got, err := c.Search(context.Background(), "host 4", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ep-4" {
		t.Fatalf("Search = %+v", got)
	}
	all, _ := c.Search(context.Background(), "", 3)
	if len(all) != 3 {
		t.Fatalf("Search limit = %d, want 3", len(all))
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache[int](time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry to expire")
	}
}
