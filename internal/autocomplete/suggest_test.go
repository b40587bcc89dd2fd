package autocomplete

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/spotify"
)

type fakeEpisodes struct {
	eps   []episodes.Episode
	err   error
	limit int
}

func (f *fakeEpisodes) Search(_ context.Context, _ string, limit int) ([]episodes.Episode, error) {
	f.limit = limit
	return f.eps, f.err
}

type fakeShows []spotify.Show

func (f fakeShows) SearchShows(context.Context, string, int) ([]spotify.Show, error) {
	return f, nil
}

func TestEpisodeChoices(t *testing.T) {
	src := &fakeEpisodes{eps: []episodes.Episode{
		{ID: "a", Title: "Faladev #30", DurationAsString: "01:02:03"},
		{ID: "b", Title: strings.Repeat("x", 150)},
		{ID: ""},
	}}
	got, err := EpisodeChoices(context.Background(), src, "fala", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.limit != defaultLimit {
		t.Fatalf("limit = %d, want %d", src.limit, defaultLimit)
	}
	if len(got) != 2 {
		t.Fatalf("got %d choices, want 2", len(got))
	}
	if got[0].Name != "Faladev #30 (01:02:03)" || got[0].Value != "a" {
		t.Fatalf("got %q=%v", got[0].Name, got[0].Value)
	}
	if n := len([]rune(got[1].Name)); n != choiceLimit {
		t.Fatalf("name length = %d, want %d", n, choiceLimit)
	}
}

func TestEpisodeChoicesError(t *testing.T) {
	src := &fakeEpisodes{err: errors.New("down")}
	got, err := EpisodeChoices(context.Background(), src, "", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil choices, got %v", got)
	}
}

func TestShowChoices(t *testing.T) {
	got, err := ShowChoices(context.Background(), nil, "x", 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("nil searcher: got %v, %v", got, err)
	}

	sp := fakeShows{{ID: "abc", Name: "Hipsters", Publisher: "Alura"}, {ID: "def", Name: "Other"}}
	got, err = ShowChoices(context.Background(), sp, "hip", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d choices, want 1", len(got))
	}
	if got[0].Value != "spotify:show:abc" {
		t.Fatalf("value = %v", got[0].Value)
	}
	if !strings.Contains(got[0].Name, "Hipsters - Alura") {
		t.Fatalf("name = %q", got[0].Name)
	}
}
