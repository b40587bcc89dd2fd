package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	ytdlp "github.com/lrstanley/go-ytdlp"
)

// YTDLPInfo is the part of yt-dlp's JSON dump needed to play a result.
type YTDLPInfo struct {
	ID               string
	Title            string
	Uploader         string
	Duration         float64
	IsLive           bool
	WebpageURL       string
	URL              string
	Formats          []string
	RequestedFormats []string
}

var installOnce sync.Once

func str(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatURLs(fs []*ytdlp.ExtractedFormat) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		if f != nil && f.URL != "" {
			out = append(out, f.URL)
		}
	}
	return out
}

func infoOf(e *ytdlp.ExtractedInfo) *YTDLPInfo {
	out := &YTDLPInfo{
		ID:               e.ID,
		Title:            str(e.Title),
		Uploader:         str(e.Uploader),
		WebpageURL:       str(e.WebpageURL),
		URL:              str(e.URL),
		Formats:          formatURLs(e.Formats),
		RequestedFormats: formatURLs(e.RequestedFormats),
	}
	if e.Duration != nil {
		out.Duration = *e.Duration
	}
	if e.IsLive != nil {
		out.IsLive = *e.IsLive
	}
	return out
}

// YtdlpGetInfo runs yt-dlp -J with an audio-first format selection. For
// searches and playlists the first entry is returned.
func YtdlpGetInfo(ctx context.Context, target string) (*YTDLPInfo, error) {
	installOnce.Do(func() {
		// a missing binary surfaces as a run error below
		ytdlp.MustInstall(ctx, nil)
	})

	cmd := ytdlp.New().
		Format("ba[ext=m4a]/ba[acodec^=opus]/bestaudio/best").
		NoCheckCertificates().
		NoPlaylist().
		DumpJSON()

	res, err := cmd.Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp run: %w", err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp json: %w", err)
	}
	for _, info := range infos {
		if info == nil {
			continue
		}
		if len(info.Entries) > 0 {
			for _, e := range info.Entries {
				if e != nil {
					return infoOf(e), nil
				}
			}
			continue
		}
		return infoOf(info), nil
	}
	return nil, errors.New("yt-dlp returned no results")
}

// YtdlpAudioURL returns the best playable URL: requested formats first, then
// the top-level url, then any format.
func YtdlpAudioURL(info *YTDLPInfo) string {
	for _, u := range info.RequestedFormats {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	if strings.HasPrefix(info.URL, "http") {
		return info.URL
	}
	for _, u := range info.Formats {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	return ""
}
