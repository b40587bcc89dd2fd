package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/utils"
)

var audioExts = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".ogg": true,
	".opus": true, ".wav": true, ".flac": true,
}

// IsDirectAudio reports whether u points straight at an audio file.
func IsDirectAudio(u string) bool {
	pu, err := url.Parse(u)
	if err != nil {
		return false
	}
	return audioExts[strings.ToLower(path.Ext(pu.Path))]
}

func IsSpotify(u string) bool {
	return strings.HasPrefix(u, "spotify:") || strings.Contains(u, "open.spotify.com/")
}

// Resolved is a source ready to be opened by the decoder.
type Resolved struct {
	Input    string
	Headers  string
	Duration int
	Local    bool
	// VideoID is set for YouTube results.
	VideoID string
}

// Fetcher downloads direct audio to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (string, error)
}

type infoFunc func(ctx context.Context, target string) (*YTDLPInfo, error)

type resolvedEntry struct {
	res Resolved
	at  time.Time
}

// Resolver maps episode sources to decoder inputs.
type Resolver struct {
	fetcher Fetcher
	http    *http.Client
	info    infoFunc

	mu     sync.Mutex
	recent map[string]resolvedEntry
}

// NewResolver builds a resolver. With a non-nil fetcher direct audio is
// downloaded and played from disk.
func NewResolver(fetcher Fetcher) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		http:    &http.Client{Timeout: 10 * time.Second},
		info:    YtdlpGetInfo,
		recent:  make(map[string]resolvedEntry),
	}
}

// resolved yt-dlp urls expire upstream; reuse them for a while only
const resolvedTTL = 4 * time.Hour

func searchQuery(src player.Source) string {
	q := strings.TrimSpace(src.Members + " " + src.Title)
	return "ytsearch1:" + q
}

func (r *Resolver) isAudioContent(ctx context.Context, u string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", utils.RandomUserAgent())
	resp, err := r.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return strings.HasPrefix(mt, "audio/")
}

func (r *Resolver) Resolve(ctx context.Context, src player.Source) (Resolved, error) {
	if src.URL == "" && src.Title == "" {
		return Resolved{}, errors.New("empty source")
	}

	if !IsSpotify(src.URL) && src.URL != "" &&
		(IsDirectAudio(src.URL) || r.isAudioContent(ctx, src.URL)) {
		return r.direct(ctx, src)
	}

	target := src.URL
	if target == "" || IsSpotify(target) {
		target = searchQuery(src)
	}

	r.mu.Lock()
	ent, ok := r.recent[target]
	r.mu.Unlock()
	if ok && time.Since(ent.at) < resolvedTTL {
		return ent.res, nil
	}

	info, err := r.info(ctx, target)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve %q: %w", target, err)
	}
	media := YtdlpAudioURL(info)
	if media == "" {
		return Resolved{}, fmt.Errorf("resolve %q: no usable media url", target)
	}
	res := Resolved{
		Input:    media,
		Headers:  utils.BuildFFmpegHeaders(nil),
		Duration: int(info.Duration),
		VideoID:  youtubeID(info),
	}
	slog.Debug("resolved via yt-dlp", "target", target, "title", info.Title)

	r.mu.Lock()
	r.recent[target] = resolvedEntry{res: res, at: time.Now()}
	r.mu.Unlock()
	return res, nil
}

func youtubeID(info *YTDLPInfo) string {
	u := info.WebpageURL
	if strings.Contains(u, "youtube.com/") || strings.Contains(u, "youtu.be/") {
		return info.ID
	}
	return ""
}

func (r *Resolver) direct(ctx context.Context, src player.Source) (Resolved, error) {
	res := Resolved{
		Input:    src.URL,
		Headers:  utils.BuildFFmpegHeaders(nil),
		Duration: src.Duration,
	}
	if r.fetcher == nil {
		return res, nil
	}
	p, err := r.fetcher.Fetch(ctx, src.URL, map[string]string{"User-Agent": utils.RandomUserAgent()})
	if err != nil {
		// stream it instead
		slog.Warn("episode download failed", "url", src.URL, "err", err)
		return res, nil
	}
	return Resolved{Input: p, Duration: src.Duration, Local: true}, nil
}
