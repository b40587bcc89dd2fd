package config

import (
	"errors"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DATA_DIR", t.TempDir())

	_, err := LoadConfig()
	var cerr ErrConfig
	if !errors.As(err, &cerr) {
		t.Fatalf("LoadConfig() error = %v, want ErrConfig", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("EPISODES_API_URL", "http://api.example.com/")
	t.Setenv("LIST_REVALIDATE", "")
	t.Setenv("ENABLE_SPONSORBLOCK", "")
	t.Setenv("SPONSORBLOCK_TIMEOUT", "")
	t.Setenv("EPISODES_LIMIT", "")
	t.Setenv("LATEST_EPISODES", "")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.EpisodesAPIURL != "http://api.example.com" {
		t.Fatalf("EpisodesAPIURL = %q", cfg.EpisodesAPIURL)
	}
	if cfg.EpisodesLimit != 12 || cfg.LatestEpisodes != 2 {
		t.Fatalf("limits = %d/%d, want 12/2", cfg.EpisodesLimit, cfg.LatestEpisodes)
	}
	if cfg.ListRevalidate != 8*time.Hour || cfg.DetailRevalidate != 24*time.Hour {
		t.Fatalf("revalidate = %v/%v", cfg.ListRevalidate, cfg.DetailRevalidate)
	}
	if cfg.CacheDir != filepath.Join(dir, "cache") {
		t.Fatalf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.EnableSponsorBlock || cfg.SponsorBlockTimeoutMin != 5 {
		t.Fatalf("sponsorblock = %v/%d, want false/5", cfg.EnableSponsorBlock, cfg.SponsorBlockTimeoutMin)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.HTTPAllowedOrigins, want) {
		t.Fatalf("HTTPAllowedOrigins = %v, want %v", cfg.HTTPAllowedOrigins, want)
	}
}

func TestLatestEpisodesCappedByLimit(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("EPISODES_LIMIT", "3")
	t.Setenv("LATEST_EPISODES", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LatestEpisodes != 3 {
		t.Fatalf("LatestEpisodes = %d, want 3", cfg.LatestEpisodes)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		c := &Config{LogLevel: in}
		if got := c.SlogLevel(); got != want {
			t.Fatalf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
