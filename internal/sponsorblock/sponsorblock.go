package sponsorblock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const defaultBase = "https://sponsor.ajay.app/api/skipSegments"

// ErrUnavailable is returned while the SponsorBlock API is overloaded.
var ErrUnavailable = errors.New("sponsorblock unavailable")

// Categories skipped in episodes found on YouTube.
var Categories = []string{"sponsor", "selfpromo", "interaction", "intro", "outro"}

type Segment struct {
	Category   string     `json:"category"`
	Segment    [2]float64 `json:"segment"` // [start, end] seconds
	UUID       string     `json:"UUID"`
	ActionType string     `json:"actionType"`
}

func (s Segment) Start() float64 { return s.Segment[0] }
func (s Segment) End() float64   { return s.Segment[1] }

type Client struct {
	base string
	http *http.Client
}

func NewClient() *Client {
	return &Client{
		base: defaultBase,
		http: &http.Client{Timeout: 8 * time.Second},
	}
}

// GetSegments fetches skip segments of the given categories for a YouTube
// video. A video without segments yields an empty slice.
func (c *Client) GetSegments(ctx context.Context, videoID string, categories []string) ([]Segment, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("videoID", videoID)
	for _, cat := range categories {
		q.Add("category", cat)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return []Segment{}, nil
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("sponsorblock http %d", resp.StatusCode)
	}

	var segs []Segment
	if err := json.NewDecoder(resp.Body).Decode(&segs); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	out := segs[:0]
	for _, s := range segs {
		if s.ActionType == "" || s.ActionType == "skip" {
			out = append(out, s)
		}
	}
	return out, nil
}

// MergeSegments sorts segments by start and joins overlapping ones.
func MergeSegments(segs []Segment) []Segment {
	if len(segs) == 0 {
		return segs
	}
	sorted := append([]Segment(nil), segs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start() < sorted[j].Start()
	})
	out := []Segment{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.Start() <= last.End() {
			if s.End() > last.End() {
				last.Segment[1] = s.End()
			}
			continue
		}
		out = append(out, s)
	}
	return out
}
