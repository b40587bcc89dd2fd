package autocomplete

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/spotify"
	"github.com/sonroyaalmerol/podcaster/internal/utils"
)

// discord rejects longer choice names and values
const choiceLimit = 100

const defaultLimit = 10

type EpisodeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]episodes.Episode, error)
}

type ShowSearcher interface {
	SearchShows(ctx context.Context, query string, limit int) ([]spotify.Show, error)
}

func episodeChoice(ep episodes.Episode) *discordgo.ApplicationCommandOptionChoice {
	name := ep.Title
	if ep.DurationAsString != "" {
		name = fmt.Sprintf("%s (%s)", ep.Title, ep.DurationAsString)
	}
	return &discordgo.ApplicationCommandOptionChoice{
		Name:  utils.Truncate(name, choiceLimit),
		Value: ep.ID,
	}
}

// EpisodeChoices suggests episodes whose title or members match query.
// An empty query suggests the newest episodes.
func EpisodeChoices(ctx context.Context, src EpisodeSearcher, query string, limit int) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	eps, err := src.Search(ctx, query, limit)
	if err != nil {
		return []*discordgo.ApplicationCommandOptionChoice{}, err
	}
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(eps))
	for _, ep := range eps {
		if ep.ID == "" || len(ep.ID) > choiceLimit {
			continue
		}
		out = append(out, episodeChoice(ep))
	}
	return out, nil
}

// ShowChoices suggests Spotify shows. A nil searcher or blank query yields
// no choices.
func ShowChoices(ctx context.Context, sp ShowSearcher, query string, limit int) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	out := []*discordgo.ApplicationCommandOptionChoice{}
	if sp == nil || query == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	shows, err := sp.SearchShows(ctx, query, limit)
	if err != nil {
		return out, err
	}
	for _, s := range shows {
		name := "Spotify: 🎙️ " + s.Name
		if s.Publisher != "" {
			name += " - " + s.Publisher
		}
		out = append(out, &discordgo.ApplicationCommandOptionChoice{
			Name:  utils.Truncate(name, choiceLimit),
			Value: "spotify:show:" + s.ID.String(),
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
