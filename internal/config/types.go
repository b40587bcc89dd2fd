package config

import "time"

type Config struct {
	DiscordToken        string
	SpotifyClientID     string
	SpotifyClientSecret string

	EpisodesAPIURL   string
	EpisodesLimit    int
	LatestEpisodes   int
	EpisodesLocale   string // pt-BR/en-US
	ListRevalidate   time.Duration
	DetailRevalidate time.Duration

	DataDir         string
	CacheDir        string
	CacheLimitBytes int64
	CacheEpisodes   bool

	EnableSponsorBlock     bool
	SponsorBlockTimeoutMin int

	HTTPAddr           string
	HTTPAllowedOrigins []string

	BotStatus             string // online/dnd/idle
	BotActivity           string
	RegisterCommandsOnBot bool
	LogLevel              string
}
