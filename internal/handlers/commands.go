package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/podcaster/internal/autocomplete"
	"github.com/sonroyaalmerol/podcaster/internal/config"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/repository"
	"github.com/sonroyaalmerol/podcaster/internal/spotify"
	"github.com/sonroyaalmerol/podcaster/internal/stream"
	"github.com/sonroyaalmerol/podcaster/internal/ui"
	"github.com/sonroyaalmerol/podcaster/internal/utils"
)

const requestTimeout = 15 * time.Second

var (
	errNotInVoice      = errors.New("user not in a voice channel")
	errSpotifyDisabled = errors.New("spotify not configured")
)

type CommandHandler struct {
	cfg  *config.Config
	repo *repository.Repo
	eps  *episodes.Client
	sp   *spotify.Client
	pm   *player.Manager
}

func NewCommandHandler(cfg *config.Config, repo *repository.Repo, eps *episodes.Client, sp *spotify.Client, pm *player.Manager) *CommandHandler {
	return &CommandHandler{cfg: cfg, repo: repo, eps: eps, sp: sp, pm: pm}
}

func boolOpt(name, desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Name: name, Description: desc, Type: discordgo.ApplicationCommandOptionBoolean, Required: true}
}

func commandList() []*discordgo.ApplicationCommand {
	minPosition := 1.0
	episodeID := &discordgo.ApplicationCommandOption{
		Name:         "id",
		Description:  "episode id or title",
		Type:         discordgo.ApplicationCommandOptionString,
		Required:     true,
		Autocomplete: true,
	}
	return []*discordgo.ApplicationCommand{
		{Name: "episodes", Description: "List the latest episodes"},
		{
			Name:        "episode",
			Description: "Show an episode",
			Options:     []*discordgo.ApplicationCommandOption{episodeID},
		},
		{
			Name:        "play",
			Description: "Play an episode",
			Options:     []*discordgo.ApplicationCommandOption{episodeID},
		},
		{
			Name:        "play-all",
			Description: "Play the episode list, starting at a position",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "position", Description: "position in /episodes [default: 1]", Type: discordgo.ApplicationCommandOptionInteger, MinValue: &minPosition},
			},
		},
		{
			Name:        "spotify",
			Description: "Play a Spotify show or episode",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "url", Description: "show or episode link", Type: discordgo.ApplicationCommandOptionString, Required: true, Autocomplete: true},
			},
		},
		{Name: "now-playing", Description: "Show the player"},
		{Name: "pause", Description: "Pause playback"},
		{Name: "resume", Description: "Resume playback"},
		{Name: "next", Description: "Skip to the next episode"},
		{Name: "previous", Description: "Go back to the previous episode"},
		{Name: "shuffle", Description: "Toggle shuffle"},
		{Name: "loop", Description: "Toggle looping the current episode"},
		{
			Name:        "seek",
			Description: "Seek in the current episode",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "time", Description: "seconds, 1m30s or HH:MM:SS", Type: discordgo.ApplicationCommandOptionString, Required: true},
			},
		},
		{Name: "clear", Description: "Clear the queue"},
		{Name: "disconnect", Description: "Stop and leave the voice channel"},
		{
			Name:        "config",
			Description: "Configure bot settings",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "get", Description: "show settings"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-wait-after-queue-empties", Description: "time to wait before leaving VC", Options: []*discordgo.ApplicationCommandOption{
					{Name: "delay", Description: "seconds (0 never leave)", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-leave-if-no-listeners", Description: "leave when no listeners", Options: []*discordgo.ApplicationCommandOption{
					boolOpt("value", "true/false"),
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-auto-announce", Description: "announce the next episode", Options: []*discordgo.ApplicationCommandOption{
					boolOpt("value", "true/false"),
				}},
			},
		},
	}
}

func (h *CommandHandler) RegisterCommands(s *discordgo.Session, appID string, guildID string) error {
	start := time.Now()
	slog.Info("registering application commands", "appID", appID, "guildID", guildID)

	cmds := commandList()
	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, cmds); err != nil {
		slog.Error("failed to register application commands", "guildID", guildID, "err", err)
		return err
	}

	slog.Info("finished registering commands", "guildID", guildID, "count", len(cmds), "took", time.Since(start))
	return nil
}

func (h *CommandHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		slog.Debug("interaction: application command", "guildID", i.GuildID, "userID", userIDOf(i), "command", i.ApplicationCommandData().Name)
		h.handleChatCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		slog.Debug("interaction: autocomplete", "guildID", i.GuildID, "userID", userIDOf(i))
		h.handleAutocomplete(s, i)
	case discordgo.InteractionMessageComponent:
		slog.Debug("interaction: component", "guildID", i.GuildID, "userID", userIDOf(i), "customID", i.MessageComponentData().CustomID)
		h.handleComponent(s, i)
	default:
		slog.Debug("interaction: ignored type", "type", i.Type, "guildID", i.GuildID)
	}
}

func (h *CommandHandler) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	var query string
	for _, opt := range data.Options {
		if opt.Focused {
			query = strings.TrimSpace(opt.StringValue())
			break
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	var (
		choices []*discordgo.ApplicationCommandOptionChoice
		err     error
	)
	switch data.Name {
	case "play", "episode":
		choices, err = autocomplete.EpisodeChoices(ctx, h.eps, query, 10)
	case "spotify":
		var sp autocomplete.ShowSearcher
		if h.sp != nil {
			sp = h.sp
		}
		choices, err = autocomplete.ShowChoices(ctx, sp, query, 10)
	default:
		return
	}
	if err != nil {
		slog.Warn("autocomplete suggestions error", "guildID", i.GuildID, "command", data.Name, "err", err)
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}); err != nil {
		slog.Debug("autocomplete respond failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) handleChatCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "episodes":
		h.cmdEpisodes(s, i)
	case "episode":
		h.cmdEpisode(s, i)
	case "play":
		h.cmdPlay(s, i)
	case "play-all":
		h.cmdPlayAll(s, i)
	case "spotify":
		h.cmdSpotify(s, i)
	case "now-playing":
		h.cmdNowPlaying(s, i)
	case "pause":
		h.cmdPause(s, i)
	case "resume":
		h.cmdResume(s, i)
	case "next":
		h.cmdNext(s, i)
	case "previous":
		h.cmdPrevious(s, i)
	case "shuffle":
		h.cmdShuffle(s, i)
	case "loop":
		h.cmdLoop(s, i)
	case "seek":
		h.cmdSeek(s, i)
	case "clear":
		h.cmdClear(s, i)
	case "disconnect":
		h.cmdDisconnect(s, i)
	case "config":
		h.cmdConfig(s, i)
	default:
		slog.Debug("unknown command", "name", data.Name, "guildID", i.GuildID, "userID", userIDOf(i))
	}
}

func (h *CommandHandler) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	}); err != nil {
		slog.Warn("reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) replyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	}); err != nil {
		slog.Warn("embed reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	}); err != nil {
		slog.Warn("defer reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}); err != nil {
		slog.Warn("edit reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) editReplyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	embeds := []*discordgo.MessageEmbed{embed}
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}); err != nil {
		slog.Warn("edit embed reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func userInVoice(s *discordgo.Session, guildID, userID string) (channelID string, ok bool) {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		g, _ = s.Guild(guildID)
	}
	if g == nil {
		return "", false
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}

func voiceOf(sess *player.Session) (*stream.VoiceElement, bool) {
	el, ok := sess.Element.(*stream.VoiceElement)
	return el, ok
}

// join returns the caller's session with its element connected to the
// caller's voice channel.
func (h *CommandHandler) join(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) (*player.Session, error) {
	chID, ok := userInVoice(s, i.GuildID, userIDOf(i))
	if !ok {
		return nil, errNotInVoice
	}
	sess := h.pm.Get(i.GuildID)
	sess.SetTextChannelID(i.ChannelID)
	if el, ok := voiceOf(sess); ok {
		if err := el.Connect(ctx, s, chID); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// ensureJoined is join for an existing session: an element already in a
// channel is left where it is.
func (h *CommandHandler) ensureJoined(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sess *player.Session) error {
	if el, ok := voiceOf(sess); ok && el.ChannelID() != "" {
		return nil
	}
	_, err := h.join(ctx, s, i)
	return err
}

func joinFailure(err error) string {
	if errors.Is(err, errNotInVoice) {
		return "gotta be in a voice channel"
	}
	return "couldn't connect to channel"
}

// leave disconnects from voice and tears the guild's session down.
// leave drops the guild's session; removing it leaves the voice channel.
func (h *CommandHandler) leave(guildID string) {
	h.pm.Remove(guildID)
}

// active returns the guild's session when it has a current episode.
func (h *CommandHandler) active(guildID string) (*player.Session, bool) {
	sess := h.pm.Peek(guildID)
	if sess == nil || sess.Store.Current() == nil {
		return nil, false
	}
	return sess, true
}

func (h *CommandHandler) lookupEpisode(ctx context.Context, id string) (episodes.Episode, error) {
	if strings.HasPrefix(id, "spotify:") {
		if h.sp == nil {
			return episodes.Episode{}, errSpotifyDisabled
		}
		typ, sid, err := spotify.ParseID(id)
		if err != nil || typ != spotify.TypeEpisode {
			return episodes.Episode{}, episodes.ErrNotFound
		}
		return h.sp.Episode(ctx, sid)
	}
	ep, err := h.eps.Get(ctx, id)
	if !errors.Is(err, episodes.ErrNotFound) {
		return ep, err
	}
	// typed a title instead of picking a suggestion
	hits, serr := h.eps.Search(ctx, id, 1)
	if serr != nil || len(hits) == 0 {
		return episodes.Episode{}, err
	}
	return hits[0], nil
}

func lookupFailure(err error) string {
	switch {
	case errors.Is(err, episodes.ErrNotFound):
		return "episode not found"
	case errors.Is(err, errSpotifyDisabled):
		return "spotify is not configured"
	default:
		return "couldn't reach the episode source"
	}
}

func (h *CommandHandler) cmdEpisodes(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.deferReply(s, i, false)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	home, err := h.eps.Home(ctx)
	if err != nil {
		slog.Warn("home fetch failed", "guildID", i.GuildID, "err", err)
		h.editReply(s, i, "couldn't reach the episode source")
		return
	}
	slog.Debug("cmd episodes", "guildID", i.GuildID, "latest", len(home.Latest), "all", len(home.All))
	h.editReplyEmbed(s, i, ui.BuildHomeEmbed(home), ui.HomeSelectMenu(home))
}

func (h *CommandHandler) cmdEpisode(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := optionString(i.ApplicationCommandData().Options, "id")
	h.deferReply(s, i, false)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	ep, err := h.lookupEpisode(ctx, id)
	if err != nil {
		slog.Debug("episode lookup failed", "guildID", i.GuildID, "episode", id, "err", err)
		h.editReply(s, i, lookupFailure(err))
		return
	}
	slog.Debug("cmd episode", "guildID", i.GuildID, "episode", ep.ID)
	h.editReplyEmbed(s, i, ui.BuildEpisodeEmbed(ep), ui.EpisodeButtons(ep))
}

func (h *CommandHandler) cmdPlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := optionString(i.ApplicationCommandData().Options, "id")
	slog.Info("cmd play", "guildID", i.GuildID, "userID", userIDOf(i), "id", id)
	h.playEpisode(s, i, id)
}

// playEpisode answers an interaction by playing the episode with the given id.
func (h *CommandHandler) playEpisode(s *discordgo.Session, i *discordgo.InteractionCreate, id string) {
	if _, ok := userInVoice(s, i.GuildID, userIDOf(i)); !ok {
		h.reply(s, i, joinFailure(errNotInVoice), true)
		return
	}
	h.deferReply(s, i, false)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	ep, err := h.lookupEpisode(ctx, id)
	if err != nil {
		slog.Debug("episode lookup failed", "guildID", i.GuildID, "episode", id, "err", err)
		h.editReply(s, i, lookupFailure(err))
		return
	}
	sess, err := h.join(ctx, s, i)
	if err != nil {
		slog.Warn("voice connect failed", "guildID", i.GuildID, "err", err)
		h.editReply(s, i, joinFailure(err))
		return
	}
	sess.Store.Play(ep)
	slog.Debug("episode started", "guildID", i.GuildID, "episode", ep.ID)
	h.editReply(s, i, fmt.Sprintf("▶️ playing **%s**", utils.EscapeMd(ep.Title)))
}

func (h *CommandHandler) cmdPlayAll(s *discordgo.Session, i *discordgo.InteractionCreate) {
	pos := 1
	if v, ok := optionInt(i.ApplicationCommandData().Options, "position"); ok {
		pos = int(v)
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
	h.playList(ctx, s, i, home.Combined(), pos-1)
}

// playList connects and starts list at index, replying with the outcome.
// The reply must already be deferred.
func (h *CommandHandler) playList(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, list []episodes.Episode, index int) {
	if len(list) == 0 {
		h.editReply(s, i, "no episodes found")
		return
	}
	if index < 0 || index >= len(list) {
		h.editReply(s, i, fmt.Sprintf("position must be between 1 and %d", len(list)))
		return
	}
	sess, err := h.join(ctx, s, i)
	if err != nil {
		slog.Warn("voice connect failed", "guildID", i.GuildID, "err", err)
		h.editReply(s, i, joinFailure(err))
		return
	}
	sess.Store.PlayList(list, index)
	slog.Info("play list", "guildID", i.GuildID, "userID", userIDOf(i), "count", len(list), "index", index)
	h.editReply(s, i, fmt.Sprintf("▶️ playing **%s** (%d of %d)", utils.EscapeMd(list[index].Title), index+1, len(list)))
}

func (h *CommandHandler) cmdSpotify(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if h.sp == nil {
		h.reply(s, i, "spotify is not configured", true)
		return
	}
	raw := optionString(i.ApplicationCommandData().Options, "url")
	typ, id, err := spotify.ParseID(raw)
	if err != nil {
		h.reply(s, i, "that's not a spotify show or episode link", true)
		return
	}
	if _, ok := userInVoice(s, i.GuildID, userIDOf(i)); !ok {
		h.reply(s, i, joinFailure(errNotInVoice), true)
		return
	}
	h.deferReply(s, i, false)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch typ {
	case spotify.TypeShow:
		list, show, err := h.sp.ShowEpisodes(ctx, id, h.cfg.EpisodesLimit)
		if err != nil {
			slog.Warn("spotify show fetch failed", "guildID", i.GuildID, "show", id, "err", err)
			h.editReply(s, i, "couldn't load that show")
			return
		}
		slog.Info("cmd spotify show", "guildID", i.GuildID, "show", show, "count", len(list))
		h.playList(ctx, s, i, list, 0)
	case spotify.TypeEpisode:
		ep, err := h.sp.Episode(ctx, id)
		if err != nil {
			slog.Warn("spotify episode fetch failed", "guildID", i.GuildID, "episode", id, "err", err)
			h.editReply(s, i, "couldn't load that episode")
			return
		}
		sess, err := h.join(ctx, s, i)
		if err != nil {
			slog.Warn("voice connect failed", "guildID", i.GuildID, "err", err)
			h.editReply(s, i, joinFailure(err))
			return
		}
		sess.Store.Play(ep)
		slog.Info("cmd spotify episode", "guildID", i.GuildID, "episode", ep.ID)
		h.editReply(s, i, fmt.Sprintf("▶️ playing **%s**", utils.EscapeMd(ep.Title)))
	}
}

func (h *CommandHandler) cmdNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.active(i.GuildID)
	if !ok {
		h.reply(s, i, "nothing is currently playing", true)
		return
	}
	np := sess.View.NowPlaying()
	slog.Debug("cmd now-playing", "guildID", i.GuildID, "userID", userIDOf(i), "episode", np.Episode.ID)
	h.replyEmbed(s, i, ui.BuildNowPlayingEmbed(np), ui.TransportRow(np.Controls))
}

func (h *CommandHandler) cmdPause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.active(i.GuildID)
	if !ok || !sess.Store.Snapshot().IsPlaying {
		h.reply(s, i, "not currently playing", true)
		return
	}
	sess.Store.SetPlayingState(false)
	slog.Info("cmd pause", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "⏸️ paused", false)
}

func (h *CommandHandler) cmdResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.active(i.GuildID)
	if !ok {
		h.reply(s, i, "nothing to play", true)
		return
	}
	if sess.Store.Snapshot().IsPlaying {
		h.reply(s, i, "already playing", true)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := h.ensureJoined(ctx, s, i, sess); err != nil {
		slog.Warn("voice connect failed", "guildID", i.GuildID, "err", err)
		h.reply(s, i, joinFailure(err), true)
		return
	}
	sess.Store.SetPlayingState(true)
	slog.Info("cmd resume", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "▶️ resumed", false)
}

func (h *CommandHandler) cmdNext(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.active(i.GuildID)
	if !ok || !sess.Store.HasNext() {
		h.reply(s, i, "no episode to skip to", true)
		return
	}
	sess.Store.PlayNext()
	cur := sess.Store.Current()
	slog.Info("cmd next", "guildID", i.GuildID, "userID", userIDOf(i), "episode", cur.ID)
	h.reply(s, i, fmt.Sprintf("⏭️ skipped to **%s**", utils.EscapeMd(cur.Title)), false)
}

func (h *CommandHandler) cmdPrevious(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.active(i.GuildID)
	if !ok || !sess.Store.HasPrevious() {
		h.reply(s, i, "no episode to go back to", true)
		return
	}
	sess.Store.PlayPrevious()
	cur := sess.Store.Current()
	slog.Info("cmd previous", "guildID", i.GuildID, "userID", userIDOf(i), "episode", cur.ID)
	h.reply(s, i, fmt.Sprintf("⏮️ back to **%s**", utils.EscapeMd(cur.Title)), false)
}

func (h *CommandHandler) cmdShuffle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.active(i.GuildID)
	if !ok {
		h.reply(s, i, "nothing to shuffle", true)
		return
	}
	sess.Store.ToggleShuffle()
	on := sess.Store.Snapshot().IsShuffling
	slog.Info("cmd shuffle", "guildID", i.GuildID, "userID", userIDOf(i), "on", on)
	if on {
		h.reply(s, i, "🔀 shuffle on", false)
	} else {
		h.reply(s, i, "shuffle off", false)
	}
}

func (h *CommandHandler) cmdLoop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.active(i.GuildID)
	if !ok {
		h.reply(s, i, "no episode to loop!", true)
		return
	}
	sess.Store.ToggleLoop()
	on := sess.Store.Snapshot().IsLooping
	slog.Info("cmd loop", "guildID", i.GuildID, "userID", userIDOf(i), "on", on)
	if on {
		h.reply(s, i, "🔁 looped :)", false)
	} else {
		h.reply(s, i, "stopped looping :(", false)
	}
}

func (h *CommandHandler) cmdSeek(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.active(i.GuildID)
	if !ok {
		h.reply(s, i, "nothing is playing", true)
		return
	}
	sec := utils.ParseDurationString(optionString(i.ApplicationCommandData().Options, "time"))
	if sec < 0 {
		h.reply(s, i, "invalid time", true)
		return
	}
	if err := sess.View.Seek(sec); err != nil {
		slog.Debug("seek failed", "guildID", i.GuildID, "sec", sec, "err", err)
		h.reply(s, i, "seek failed", true)
		return
	}
	np := sess.View.NowPlaying()
	slog.Info("cmd seek", "guildID", i.GuildID, "userID", userIDOf(i), "sec", sec)
	h.reply(s, i, "👍 seeked to "+np.ProgressText, false)
}

func (h *CommandHandler) cmdClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess := h.pm.Peek(i.GuildID)
	if sess == nil {
		h.reply(s, i, "nothing to clear", true)
		return
	}
	sess.Store.Clear()
	slog.Info("cmd clear", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "clearer than a field after a fresh harvest", false)
}

func (h *CommandHandler) cmdDisconnect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess := h.pm.Peek(i.GuildID)
	if sess == nil {
		h.reply(s, i, "not connected", true)
		return
	}
	h.leave(i.GuildID)
	slog.Info("cmd disconnect", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "u betcha, disconnected", false)
}

func settingsMessage(set repository.Settings) string {
	wait := "never leave"
	if set.SecondsWaitAfterEmpty > 0 {
		wait = fmt.Sprintf("%ds", set.SecondsWaitAfterEmpty)
	}
	return fmt.Sprintf(
		"Config\n- Wait before leaving after queue empty: %s\n- Leave if no listeners: %t\n- Auto announce next episode: %t",
		wait, set.LeaveIfNoListeners, set.AutoAnnounceNext,
	)
}

func (h *CommandHandler) cmdConfig(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	set, err := h.repo.UpsertSettings(ctx, i.GuildID)
	if err != nil {
		slog.Error("upsert settings failed", "guildID", i.GuildID, "err", err)
		h.reply(s, i, "failed to fetch config", true)
		return
	}
	sub := i.ApplicationCommandData().Options[0]

	var msg string
	switch sub.Name {
	case "get":
		slog.Debug("config get", "guildID", i.GuildID)
		h.reply(s, i, settingsMessage(*set), false)
		return
	case "set-wait-after-queue-empties":
		delay, _ := optionInt(sub.Options, "delay")
		if delay < 0 {
			h.reply(s, i, "delay can't be negative", true)
			return
		}
		set.SecondsWaitAfterEmpty = int(delay)
		msg = "👍 wait delay updated"
	case "set-leave-if-no-listeners":
		set.LeaveIfNoListeners = optionBool(sub.Options, "value")
		msg = "👍 leave setting updated"
	case "set-auto-announce":
		set.AutoAnnounceNext = optionBool(sub.Options, "value")
		msg = "👍 auto announce setting updated"
	default:
		return
	}
	if err := h.repo.UpdateSettings(ctx, set); err != nil {
		slog.Error("update settings failed", "guildID", i.GuildID, "key", sub.Name, "err", err)
		h.reply(s, i, "failed to update config", true)
		return
	}
	slog.Info("config updated", "guildID", i.GuildID, "key", sub.Name)
	h.reply(s, i, msg, false)
}

func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return strings.TrimSpace(o.StringValue())
		}
	}
	return ""
}

func optionInt(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) (int64, bool) {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionInteger {
			return o.IntValue(), true
		}
	}
	return 0, false
}

func optionBool(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionBoolean {
			return o.BoolValue()
		}
	}
	return false
}

func userIDOf(i *discordgo.InteractionCreate) string {
	if i == nil {
		return ""
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
