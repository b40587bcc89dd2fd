package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/player"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encode response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, RequestID: requestID(r.Context())})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"players": len(s.pm.GuildIDs()),
	})
}

func (s *Server) listEpisodes(w http.ResponseWriter, r *http.Request) {
	home, err := s.eps.Home(r.Context())
	if err != nil {
		slog.Warn("home fetch failed", "requestID", requestID(r.Context()), "err", err)
		writeError(w, r, http.StatusBadGateway, "episode source unavailable")
		return
	}
	if home.Latest == nil {
		home.Latest = []episodes.Episode{}
	}
	if home.All == nil {
		home.All = []episodes.Episode{}
	}
	writeJSON(w, http.StatusOK, home)
}

func (s *Server) getEpisode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ep, err := s.eps.Get(r.Context(), id)
	switch {
	case errors.Is(err, episodes.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "episode not found")
	case err != nil:
		slog.Warn("episode fetch failed", "requestID", requestID(r.Context()), "episode", id, "err", err)
		writeError(w, r, http.StatusBadGateway, "episode source unavailable")
	default:
		writeJSON(w, http.StatusOK, ep)
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*player.Session, bool) {
	sess, err := s.pm.Lookup(mux.Vars(r)["guildID"])
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) getPlayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View.NowPlaying())
}

// actionBody holds the parameters of every player action; each action
// reads the fields it needs.
type actionBody struct {
	EpisodeID string `json:"episodeId"`
	Index     *int   `json:"index"`
	Seconds   *int   `json:"seconds"`
	Playing   *bool  `json:"playing"`
}

func (s *Server) playerAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body actionBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	action := mux.Vars(r)["action"]
	store := sess.Store
	switch action {
	case "play":
		if body.EpisodeID == "" {
			writeError(w, r, http.StatusBadRequest, "episodeId required")
			return
		}
		ep, err := s.eps.Get(r.Context(), body.EpisodeID)
		if errors.Is(err, episodes.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "episode not found")
			return
		}
		if err != nil {
			slog.Warn("episode fetch failed", "requestID", requestID(r.Context()), "episode", body.EpisodeID, "err", err)
			writeError(w, r, http.StatusBadGateway, "episode source unavailable")
			return
		}
		store.Play(ep)
	case "play-list":
		home, err := s.eps.Home(r.Context())
		if err != nil {
			slog.Warn("home fetch failed", "requestID", requestID(r.Context()), "err", err)
			writeError(w, r, http.StatusBadGateway, "episode source unavailable")
			return
		}
		list := home.Combined()
		index := 0
		if body.Index != nil {
			index = *body.Index
		}
		if index < 0 || index >= len(list) {
			writeError(w, r, http.StatusBadRequest, "index out of range")
			return
		}
		store.PlayList(list, index)
	case "toggle-play":
		store.TogglePlay()
	case "toggle-loop":
		store.ToggleLoop()
	case "toggle-shuffle":
		store.ToggleShuffle()
	case "next":
		store.PlayNext()
	case "previous":
		store.PlayPrevious()
	case "clear":
		store.Clear()
	case "seek":
		if body.Seconds == nil {
			writeError(w, r, http.StatusBadRequest, "seconds required")
			return
		}
		if err := sess.View.Seek(*body.Seconds); err != nil {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
	case "playing":
		if body.Playing == nil {
			writeError(w, r, http.StatusBadRequest, "playing required")
			return
		}
		store.SetPlayingState(*body.Playing)
	default:
		writeError(w, r, http.StatusNotFound, "unknown action")
		return
	}

	slog.Info("api player action", "requestID", requestID(r.Context()), "guildID", sess.GuildID, "action", action)
	writeJSON(w, http.StatusOK, sess.View.NowPlaying())
}
