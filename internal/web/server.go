package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/player"
)

const (
	shutdownTimeout = 5 * time.Second
	progressTick    = time.Second
)

// EpisodeSource is the part of the episode client the API serves.
type EpisodeSource interface {
	Home(ctx context.Context) (episodes.Home, error)
	Get(ctx context.Context, id string) (episodes.Episode, error)
}

// Server is the remote control API for the guild players.
type Server struct {
	eps     EpisodeSource
	pm      *player.Manager
	origins []string
	tick    time.Duration
	handler http.Handler
}

func NewServer(eps EpisodeSource, pm *player.Manager, allowedOrigins []string) *Server {
	s := &Server{
		eps:     eps,
		pm:      pm,
		origins: allowedOrigins,
		tick:    progressTick,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/episodes", s.listEpisodes).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id}", s.getEpisode).Methods(http.MethodGet)
	api.HandleFunc("/players/{guildID}", s.getPlayer).Methods(http.MethodGet)
	api.HandleFunc("/players/{guildID}/ws", s.playerSocket).Methods(http.MethodGet)
	api.HandleFunc("/players/{guildID}/{action}", s.playerAction).Methods(http.MethodPost)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
