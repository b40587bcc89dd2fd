package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/sponsorblock"
)

var _ player.Element = (*VoiceElement)(nil)

func TestVoiceElementCommandsBeforeLoad(t *testing.T) {
	e := NewVoiceElement("g1", NewResolver(nil))
	if err := e.Play(); !errors.Is(err, ErrNothingLoaded) {
		t.Fatalf("Play err = %v, want ErrNothingLoaded", err)
	}
	if err := e.Seek(10); !errors.Is(err, ErrNothingLoaded) {
		t.Fatalf("Seek err = %v, want ErrNothingLoaded", err)
	}
	if err := e.Pause(); err != nil {
		t.Fatalf("Pause err = %v", err)
	}
	e.Unload()
	if e.ChannelID() != "" {
		t.Fatalf("ChannelID = %q, want empty", e.ChannelID())
	}
}

func TestVoiceElementLoadEmitsMetadata(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.mp3")
	e := NewVoiceElement("g1", NewResolver(nil))

	if err := e.Load(context.Background(), player.Source{EpisodeID: "ep", URL: missing, Duration: 75, Seq: 7}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	select {
	case ev := <-e.Events():
		if ev.Kind != player.EventMetadataLoaded || ev.Duration != 75 || ev.Seq != 7 {
			t.Fatalf("event = %+v, want metadata-loaded for load 7 with duration 75", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no metadata event")
	}

	if err := e.Play(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Play err = %v, want ErrNotConnected", err)
	}

	// Paused seeks only move the position, clamped to the duration.
	if err := e.Seek(500); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := e.Position(); got != 75 {
		t.Fatalf("Position = %v, want 75", got)
	}
}

type segmentsFunc func(ctx context.Context, videoID string) []sponsorblock.Segment

func (f segmentsFunc) Segments(ctx context.Context, videoID string) []sponsorblock.Segment {
	return f(ctx, videoID)
}

func TestVoiceElementLoadsSegments(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	media := srv.URL + "/audio.webm"
	r := NewResolver(nil)
	r.info = func(context.Context, string) (*YTDLPInfo, error) {
		return &YTDLPInfo{
			ID:               "vid",
			WebpageURL:       "https://youtu.be/vid",
			Duration:         120,
			RequestedFormats: []string{media},
		}, nil
	}
	var asked string
	e := NewVoiceElement("g1", r, WithSegments(segmentsFunc(func(_ context.Context, id string) []sponsorblock.Segment {
		asked = id
		return []sponsorblock.Segment{{Segment: [2]float64{0, 12}}}
	})))

	if err := e.Load(context.Background(), player.Source{EpisodeID: "ep", Title: "t"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if asked != "vid" {
		t.Fatalf("segments asked for %q, want vid", asked)
	}
	e.mu.Lock()
	n := len(e.segments)
	e.mu.Unlock()
	if n != 1 {
		t.Fatalf("got %d segments, want 1", n)
	}

	e.Unload()
	e.mu.Lock()
	n = len(e.segments)
	e.mu.Unlock()
	if n != 0 {
		t.Fatalf("segments kept after Unload")
	}
}
