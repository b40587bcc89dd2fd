package sponsorblock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sonroyaalmerol/podcaster/internal/episodes"
)

// minSkip is the shortest remainder of a segment worth a seek.
const minSkip = 1.0

// Skipper looks up merged skip segments with caching. After the API reports
// being overloaded lookups are suspended for a while.
type Skipper struct {
	client     *Client
	cache      *episodes.Cache[[]Segment]
	disableFor time.Duration

	mu            sync.Mutex
	disabledUntil time.Time
}

func NewSkipper(timeoutMinutes int) *Skipper {
	return &Skipper{
		client:     NewClient(),
		cache:      episodes.NewCache[[]Segment](time.Hour),
		disableFor: time.Duration(timeoutMinutes) * time.Minute,
	}
}

func (s *Skipper) Segments(ctx context.Context, videoID string) []Segment {
	if videoID == "" {
		return nil
	}
	if segs, ok := s.cache.Get(videoID); ok {
		return segs
	}

	s.mu.Lock()
	suspended := time.Now().Before(s.disabledUntil)
	s.mu.Unlock()
	if suspended {
		return nil
	}

	segs, err := s.client.GetSegments(ctx, videoID, Categories)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			s.mu.Lock()
			s.disabledUntil = time.Now().Add(s.disableFor)
			s.mu.Unlock()
		}
		slog.Debug("sponsorblock lookup failed", "videoID", videoID, "err", err)
		return nil
	}
	segs = MergeSegments(segs)
	s.cache.Set(videoID, segs)
	return segs
}

// SkipTarget returns where playback at pos should jump to, if pos lies
// inside a segment.
func SkipTarget(segs []Segment, pos float64) (float64, bool) {
	for _, s := range segs {
		if pos >= s.Start() && pos < s.End() && s.End()-pos >= minSkip {
			return s.End(), true
		}
	}
	return 0, false
}
