package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func mustAtoi64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func atoiDefault(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func durationDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadConfig() (*Config, error) {
	dataDir := getenv("DATA_DIR", "./data")
	cacheDir := filepath.Join(dataDir, "cache")

	// CACHE_LIMIT is a plain byte count.
	cacheLimit := getenv("CACHE_LIMIT", "2147483648") // default 2GB
	cfg := &Config{
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),

		EpisodesAPIURL:   strings.TrimRight(getenv("EPISODES_API_URL", "http://localhost:3333"), "/"),
		EpisodesLimit:    atoiDefault(getenv("EPISODES_LIMIT", "12"), 12),
		LatestEpisodes:   atoiDefault(getenv("LATEST_EPISODES", "2"), 2),
		EpisodesLocale:   getenv("EPISODES_LOCALE", "pt-BR"),
		ListRevalidate:   durationDefault(getenv("LIST_REVALIDATE", "8h"), 8*time.Hour),
		DetailRevalidate: durationDefault(getenv("DETAIL_REVALIDATE", "24h"), 24*time.Hour),

		DataDir:         dataDir,
		CacheDir:        cacheDir,
		CacheLimitBytes: mustAtoi64(cacheLimit),
		CacheEpisodes:   getenv("CACHE_EPISODES", "false") == "true",

		EnableSponsorBlock:     getenv("ENABLE_SPONSORBLOCK", "false") == "true",
		SponsorBlockTimeoutMin: atoiDefault(getenv("SPONSORBLOCK_TIMEOUT", "5"), 5),

		HTTPAddr:           os.Getenv("HTTP_ADDR"),
		HTTPAllowedOrigins: splitList(getenv("HTTP_ALLOWED_ORIGINS", "*")),

		BotStatus:             getenv("BOT_STATUS", "online"),
		BotActivity:           getenv("BOT_ACTIVITY", "podcasts"),
		RegisterCommandsOnBot: getenv("REGISTER_COMMANDS_ON_BOT", "false") == "true",
		LogLevel:              getenv("LOG_LEVEL", "info"),
	}
	if _, ok := os.LookupEnv("HTTP_ADDR"); !ok {
		cfg.HTTPAddr = ":8080"
	}

	if cfg.DiscordToken == "" {
		return nil, ErrConfig("DISCORD_TOKEN required")
	}
	if cfg.LatestEpisodes > cfg.EpisodesLimit {
		cfg.LatestEpisodes = cfg.EpisodesLimit
	}
	_ = os.MkdirAll(cfg.DataDir, 0o755)
	_ = os.MkdirAll(cfg.CacheDir, 0o755)
	_ = os.MkdirAll(filepath.Join(cfg.CacheDir, "tmp"), 0o755)
	return cfg, nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
