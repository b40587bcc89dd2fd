package episodes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sonroyaalmerol/podcaster/internal/utils"
)

type Locale string

const (
	LocalePtBR Locale = "pt-BR"
	LocaleEnUS Locale = "en-US"
)

var monthNames = map[Locale][12]string{
	LocalePtBR: {"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	LocaleEnUS: {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func ParseLocale(s string) Locale {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "en-us":
		return LocaleEnUS
	default:
		return LocalePtBR
	}
}

func parsePublished(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable published_at %q", s)
}

// FormatDate renders t as "d MMM yy".
func FormatDate(t time.Time, loc Locale) string {
	names, ok := monthNames[loc]
	if !ok {
		names = monthNames[LocalePtBR]
	}
	return fmt.Sprintf("%d %s %02d", t.Day(), names[t.Month()-1], t.Year()%100)
}

func parseSeconds(s Seconds) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(f)
}

func Shape(r Record, loc Locale) (Episode, error) {
	published, err := parsePublished(r.PublishedAt)
	if err != nil {
		return Episode{}, fmt.Errorf("episode %s: %w", r.ID, err)
	}
	dur := parseSeconds(r.File.Duration)
	return Episode{
		ID:               r.ID,
		Title:            r.Title,
		Members:          r.Members,
		Thumbnail:        r.Thumbnail,
		Duration:         dur,
		DurationAsString: utils.DurationToTimeString(dur),
		URL:              r.File.URL,
		PublishedAt:      FormatDate(published, loc),
		Published:        published,
		Description:      r.Description,
	}, nil
}
