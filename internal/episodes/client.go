package episodes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	base   string
	http   *http.Client
	locale Locale

	limit  int
	latest int

	lists   *Cache[[]Episode]
	details *Cache[Episode]
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLocale(l Locale) Option { return func(c *Client) { c.locale = l } }

// WithRevalidate sets how long list and detail responses are reused.
func WithRevalidate(list, detail time.Duration) Option {
	return func(c *Client) {
		c.lists = NewCache[[]Episode](list)
		c.details = NewCache[Episode](detail)
	}
}

// WithHomeSize sets how many episodes the home list fetches and how many of
// them count as latest.
func WithHomeSize(limit, latest int) Option {
	return func(c *Client) {
		c.limit = limit
		c.latest = latest
	}
}

func NewClient(base string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		locale:  LocalePtBR,
		limit:   12,
		latest:  2,
		lists:   NewCache[[]Episode](8 * time.Hour),
		details: NewCache[Episode](24 * time.Hour),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}

// List fetches a page of episodes. Records that cannot be shaped are skipped.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Episode, error) {
	u, err := url.Parse(c.base + "/episodes")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if opts.Limit > 0 {
		q.Set("_limit", strconv.Itoa(opts.Limit))
	}
	if opts.Sort != "" {
		q.Set("_sort", opts.Sort)
	}
	if opts.Order != "" {
		q.Set("_order", opts.Order)
	}
	u.RawQuery = q.Encode()
	key := u.String()

	if eps, ok := c.lists.Get(key); ok {
		return eps, nil
	}

	var recs []Record
	if err := c.get(ctx, key, &recs); err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	eps := make([]Episode, 0, len(recs))
	for _, r := range recs {
		ep, err := Shape(r, c.locale)
		if err != nil {
			slog.Warn("skipping episode", "id", r.ID, "err", err)
			continue
		}
		eps = append(eps, ep)
	}
	c.lists.Set(key, eps)
	return eps, nil
}

func (c *Client) Get(ctx context.Context, id string) (Episode, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Episode{}, ErrNotFound
	}
	if ep, ok := c.details.Get(id); ok {
		return ep, nil
	}
	var rec Record
	if err := c.get(ctx, c.base+"/episodes/"+url.PathEscape(id), &rec); err != nil {
		return Episode{}, fmt.Errorf("get episode %s: %w", id, err)
	}
	ep, err := Shape(rec, c.locale)
	if err != nil {
		return Episode{}, err
	}
	c.details.Set(id, ep)
	return ep, nil
}

func (c *Client) homeOptions() ListOptions {
	return ListOptions{Limit: c.limit, Sort: "published_at", Order: "desc"}
}

// Home lists the newest episodes and splits off the latest ones.
func (c *Client) Home(ctx context.Context) (Home, error) {
	eps, err := c.List(ctx, c.homeOptions())
	if err != nil {
		return Home{}, err
	}
	return SplitHome(eps, c.latest), nil
}

func SplitHome(eps []Episode, latest int) Home {
	latest = max(0, min(latest, len(eps)))
	return Home{
		Latest: append([]Episode(nil), eps[:latest]...),
		All:    append([]Episode(nil), eps[latest:]...),
	}
}

// Search matches query against titles and members of the home list.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Episode, error) {
	eps, err := c.List(ctx, c.homeOptions())
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Episode
	for _, ep := range eps {
		if limit > 0 && len(out) >= limit {
			break
		}
		if q == "" ||
			strings.Contains(strings.ToLower(ep.Title), q) ||
			strings.Contains(strings.ToLower(ep.Members), q) ||
			strings.EqualFold(ep.ID, q) {
			out = append(out, ep)
		}
	}
	return out, nil
}

// Purge drops every cached response.
func (c *Client) Purge() {
	c.lists.Purge()
	c.details.Purge()
}
