package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/ui"
)

func (h *CommandHandler) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	id := data.CustomID
	switch {
	case strings.HasPrefix(id, ui.TransportPrefix):
		h.onTransport(s, i, id)
	case id == ui.HomeSelect:
		h.onHomeSelect(s, i, data.Values)
	default:
		if epID, ok := ui.EpisodeIDFromCustomID(id); ok {
			h.onEpisodePlay(s, i, epID)
			return
		}
		slog.Debug("unknown component", "customID", id, "guildID", i.GuildID)
	}
}

// applyTransport runs the store mutation behind a transport button. It
// reports false for unknown buttons and for buttons their control state
// disables.
func applyTransport(store *player.Store, id string) bool {
	cs := player.Controls(store.Snapshot())
	switch id {
	case ui.TransportShuffle:
		if cs.Shuffle.Disabled {
			return false
		}
		store.ToggleShuffle()
	case ui.TransportPrevious:
		if cs.Previous.Disabled {
			return false
		}
		store.PlayPrevious()
	case ui.TransportToggle:
		if cs.PlayPause.Disabled {
			return false
		}
		store.TogglePlay()
	case ui.TransportNext:
		if cs.Next.Disabled {
			return false
		}
		store.PlayNext()
	case ui.TransportLoop:
		if cs.Loop.Disabled {
			return false
		}
		store.ToggleLoop()
	default:
		return false
	}
	return true
}

func (h *CommandHandler) onTransport(s *discordgo.Session, i *discordgo.InteractionCreate, id string) {
	sess, ok := h.active(i.GuildID)
	if !ok {
		h.reply(s, i, "nothing is currently playing", true)
		return
	}

	// resuming needs a voice connection
	if id == ui.TransportToggle && !sess.Store.Snapshot().IsPlaying {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		err := h.ensureJoined(ctx, s, i, sess)
		cancel()
		if err != nil {
			slog.Warn("voice connect failed", "guildID", i.GuildID, "err", err)
			h.reply(s, i, joinFailure(err), true)
			return
		}
	}

	if !applyTransport(sess.Store, id) {
		slog.Debug("transport ignored", "guildID", i.GuildID, "customID", id)
	} else {
		slog.Info("transport", "guildID", i.GuildID, "userID", userIDOf(i), "action", strings.TrimPrefix(id, ui.TransportPrefix))
	}

	np := sess.View.NowPlaying()
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{ui.BuildNowPlayingEmbed(np)},
			Components: ui.TransportRow(np.Controls),
		},
	}); err != nil {
		slog.Warn("transport update failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) onHomeSelect(s *discordgo.Session, i *discordgo.InteractionCreate, values []string) {
	if len(values) == 0 {
		return
	}
	index, err := strconv.Atoi(values[0])
	if err != nil {
		slog.Debug("bad home selection", "guildID", i.GuildID, "value", values[0])
		return
	}
	if _, ok := userInVoice(s, i.GuildID, userIDOf(i)); !ok {
		h.reply(s, i, joinFailure(errNotInVoice), true)
		return
	}
	h.deferReply(s, i, false)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	home, err := h.eps.Home(ctx)
	if err != nil {
		slog.Warn("home fetch failed", "guildID", i.GuildID, "err", err)
		h.editReply(s, i, "couldn't reach the episode source")
		return
	}
	h.playList(ctx, s, i, home.Combined(), index)
}

func (h *CommandHandler) onEpisodePlay(s *discordgo.Session, i *discordgo.InteractionCreate, id string) {
	slog.Info("episode play button", "guildID", i.GuildID, "userID", userIDOf(i), "episode", id)
	h.playEpisode(s, i, id)
}
