package episodes

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("episode not found")

// Record is an episode as the episode API returns it.
type Record struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Members     string `json:"members"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	PublishedAt string `json:"published_at"`
	File        struct {
		URL      string  `json:"url"`
		Type     string  `json:"type,omitempty"`
		Duration Seconds `json:"duration"`
	} `json:"file"`
}

// Seconds holds a duration that the API sends either as a number or as a
// numeric string.
type Seconds string

func (s *Seconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Seconds(str)
	default:
		*s = Seconds(b)
	}
	return nil
}

// Episode is the normalized shape handed to views and the player.
type Episode struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Members          string    `json:"members"`
	Thumbnail        string    `json:"thumbnail"`
	Duration         int       `json:"duration"`
	DurationAsString string    `json:"durationAsString"`
	URL              string    `json:"url"`
	PublishedAt      string    `json:"publishedAt"`
	Published        time.Time `json:"-"`
	Description      string    `json:"description,omitempty"`
}

type ListOptions struct {
	Limit int
	Sort  string
	Order string
}

// Home is the list page split: the newest episodes get their own section.
type Home struct {
	Latest []Episode `json:"latestEpisodes"`
	All    []Episode `json:"allEpisodes"`
}

// Combined is the queue the list view plays from.
func (h Home) Combined() []Episode {
	out := make([]Episode, 0, len(h.Latest)+len(h.All))
	out = append(out, h.Latest...)
	return append(out, h.All...)
}

func (h Home) LatestIndex(i int) int { return i }

func (h Home) AllIndex(i int) int { return i + len(h.Latest) }
