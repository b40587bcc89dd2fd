package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonroyaalmerol/podcaster/internal/cache"
	"github.com/sonroyaalmerol/podcaster/internal/config"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/handlers"
	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/repository"
	"github.com/sonroyaalmerol/podcaster/internal/sponsorblock"
	"github.com/sonroyaalmerol/podcaster/internal/spotify"
	"github.com/sonroyaalmerol/podcaster/internal/stream"
	"github.com/sonroyaalmerol/podcaster/internal/web"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := repository.OpenDB(cfg.DataDir)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	repo := repository.NewRepo(db)

	var fetcher stream.Fetcher
	if cfg.CacheEpisodes {
		fc, err := cache.NewFileCache(cfg.CacheDir, cfg.CacheLimitBytes, repo)
		if err != nil {
			log.Fatal(err)
		}
		fetcher = fc
	}
	resolver := stream.NewResolver(fetcher)

	locale := episodes.ParseLocale(cfg.EpisodesLocale)
	eps := episodes.NewClient(cfg.EpisodesAPIURL,
		episodes.WithLocale(locale),
		episodes.WithRevalidate(cfg.ListRevalidate, cfg.DetailRevalidate),
		episodes.WithHomeSize(cfg.EpisodesLimit, cfg.LatestEpisodes),
	)

	var sp *spotify.Client
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		sp, err = spotify.NewClientCredentials(cfg.SpotifyClientID, cfg.SpotifyClientSecret, locale)
		if err != nil {
			slog.Warn("spotify disabled", "err", err)
			sp = nil
		}
	}

	var elOpts []stream.ElementOption
	if cfg.EnableSponsorBlock {
		elOpts = append(elOpts, stream.WithSegments(sponsorblock.NewSkipper(cfg.SponsorBlockTimeoutMin)))
	}
	pm := player.NewManager(func(guildID string) player.Element {
		return stream.NewVoiceElement(guildID, resolver, elOpts...)
	})

	bot, err := handlers.NewBot(cfg, repo, eps, sp, pm)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.HTTPAddr != "" {
		srv := web.NewServer(eps, pm, cfg.HTTPAllowedOrigins)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				slog.Error("http api stopped", "err", err)
			}
		}()
	}

	slog.Info("starting podcaster", "episodesAPI", cfg.EpisodesAPIURL, "locale", locale, "cacheEpisodes", cfg.CacheEpisodes)
	if err := bot.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
