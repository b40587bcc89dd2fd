package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	TypeShow    = "show"
	TypeEpisode = "episode"
)

// Client reads podcast shows and episodes with client credentials.
type Client struct {
	raw    *spotify.Client
	market string
	locale episodes.Locale
}

func NewClientCredentials(clientID, clientSecret string, locale episodes.Locale) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("spotify credentials not configured")
	}
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	cl := spotify.New(httpClient, spotify.WithRetry(true))
	return &Client{raw: cl, market: marketFor(locale), locale: locale}, nil
}

func marketFor(l episodes.Locale) string {
	if l == episodes.LocaleEnUS {
		return "US"
	}
	return "BR"
}

// ParseID accepts spotify:show:<id>, spotify:episode:<id> and
// open.spotify.com links for shows and episodes.
func ParseID(raw string) (typ string, id spotify.ID, err error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[2] == "" {
			return "", "", fmt.Errorf("invalid spotify URI")
		}
		return checkType(parts[1], parts[2])
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
		return "", "", fmt.Errorf("not a spotify URL")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid spotify URL path")
	}
	return checkType(parts[0], parts[1])
}

func checkType(typ, id string) (string, spotify.ID, error) {
	switch typ {
	case TypeShow, TypeEpisode:
		return typ, spotify.ID(id), nil
	}
	return "", "", fmt.Errorf("unsupported spotify type %q", typ)
}

// episode is the subset of a Spotify episode turned into an episodes.Record.
type episode struct {
	ID          string
	Name        string
	Description string
	ReleaseDate string
	DurationMs  int
	URL         string
	Image       string
	Publisher   string
}

func (e episode) record() episodes.Record {
	r := episodes.Record{
		ID:          "spotify:episode:" + e.ID,
		Title:       e.Name,
		Members:     e.Publisher,
		Thumbnail:   e.Image,
		Description: e.Description,
		PublishedAt: e.ReleaseDate,
	}
	r.File.URL = e.URL
	r.File.Duration = episodes.Seconds(strconv.Itoa(e.DurationMs / 1000))
	return r
}

func fromPage(p spotify.EpisodePage, publisher string) episode {
	e := episode{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		ReleaseDate: p.ReleaseDate,
		DurationMs:  int(p.Duration_ms),
		URL:         p.ExternalURLs["spotify"],
		Publisher:   publisher,
	}
	if e.Publisher == "" {
		e.Publisher = p.Show.Publisher
	}
	if len(p.Images) > 0 {
		e.Image = p.Images[0].URL
	}
	return e
}

// ShowEpisodes lists up to limit episodes of a show, newest first.
func (c *Client) ShowEpisodes(ctx context.Context, id spotify.ID, limit int) ([]episodes.Episode, string, error) {
	show, err := c.raw.GetShow(ctx, id, spotify.Market(c.market))
	if err != nil {
		return nil, "", err
	}
	page, err := c.raw.GetShowEpisodes(ctx, id.String(), spotify.Market(c.market))
	if err != nil {
		return nil, "", err
	}
	var out []episodes.Episode
	add := func(items []spotify.EpisodePage) {
		for _, it := range items {
			if limit > 0 && len(out) >= limit {
				return
			}
			ep, err := episodes.Shape(fromPage(it, show.Publisher).record(), c.locale)
			if err != nil {
				continue
			}
			out = append(out, ep)
		}
	}
	add(page.Episodes)
	for page.Next != "" && (limit <= 0 || len(out) < limit) {
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
		add(page.Episodes)
	}
	return out, show.Name, nil
}

func (c *Client) Episode(ctx context.Context, id spotify.ID) (episodes.Episode, error) {
	p, err := c.raw.GetEpisode(ctx, id.String(), spotify.Market(c.market))
	if err != nil {
		return episodes.Episode{}, err
	}
	return episodes.Shape(fromPage(*p, "").record(), c.locale)
}

// Show is a search hit.
type Show struct {
	ID        spotify.ID
	Name      string
	Publisher string
}

func (c *Client) SearchShows(ctx context.Context, query string, limit int) ([]Show, error) {
	if limit <= 0 {
		limit = 10
	}
	res, err := c.raw.Search(ctx, query, spotify.SearchTypeShow, spotify.Market(c.market), spotify.Limit(limit))
	if err != nil {
		return nil, err
	}
	if res.Shows == nil {
		return nil, nil
	}
	out := make([]Show, 0, len(res.Shows.Shows))
	for _, s := range res.Shows.Shows {
		if len(out) >= limit {
			break
		}
		out = append(out, Show{ID: s.ID, Name: s.Name, Publisher: s.Publisher})
	}
	return out, nil
}
