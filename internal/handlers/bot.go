package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/podcaster/internal/config"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/repository"
	"github.com/sonroyaalmerol/podcaster/internal/spotify"
	"github.com/sonroyaalmerol/podcaster/internal/ui"
)

type Bot struct {
	cfg  *config.Config
	repo *repository.Repo
	pm   *player.Manager
	dg   *discordgo.Session
	cmd  *CommandHandler
}

// NewBot prepares the Discord session. sp may be nil when Spotify is not
// configured.
func NewBot(cfg *config.Config, repo *repository.Repo, eps *episodes.Client, sp *spotify.Client, pm *player.Manager) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	b := &Bot{
		cfg:  cfg,
		repo: repo,
		pm:   pm,
		dg:   dg,
		cmd:  NewCommandHandler(cfg, repo, eps, sp, pm),
	}
	pm.OnCreate(b.watchSession)
	return b, nil
}

func (b *Bot) Run(ctx context.Context) error {
	dg := b.dg

	// On ready: register commands depending on configuration
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("connected", "user", s.State.User.Username)
		b.updateStatus(s)
		appID := s.State.User.ID

		if b.cfg.RegisterCommandsOnBot {
			if err := b.cmd.RegisterCommands(s, appID, ""); err != nil {
				slog.Error("register global commands", "err", err)
			} else {
				slog.Info("registered global application commands")
			}
			return
		}

		var wg sync.WaitGroup
		for _, g := range s.State.Guilds {
			wg.Add(1)
			go func(guildID string) {
				defer wg.Done()
				if err := b.cmd.RegisterCommands(s, appID, guildID); err != nil {
					slog.Error("register guild commands", "guild", guildID, "err", err)
				}
			}(g.ID)
		}
		wg.Wait()

		if _, err := s.ApplicationCommandBulkOverwrite(appID, "", []*discordgo.ApplicationCommand{}); err != nil {
			slog.Error("clear global commands", "err", err)
		} else {
			slog.Info("cleared global application commands")
		}
		slog.Info("registered commands on all guilds")
	})

	// If registering per-guild, register on new guilds too
	dg.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if b.cfg.RegisterCommandsOnBot {
			return
		}
		if err := b.cmd.RegisterCommands(s, s.State.User.ID, g.ID); err != nil {
			slog.Error("register guild commands on join", "guild", g.ID, "err", err)
		} else {
			slog.Info("registered commands on new guild", "guild", g.ID)
		}
	})

	dg.AddHandler(func(s *discordgo.Session, g *discordgo.GuildDelete) {
		if g.Unavailable {
			return
		}
		b.pm.Remove(g.ID)
	})

	dg.AddHandler(b.cmd.HandleInteraction)
	dg.AddHandler(b.onVoiceStateUpdate)

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	<-ctx.Done()
	b.pm.Close()
	return nil
}

func (b *Bot) updateStatus(s *discordgo.Session) {
	data := discordgo.UpdateStatusData{Status: b.cfg.BotStatus}
	if b.cfg.BotActivity != "" {
		data.Activities = []*discordgo.Activity{{Name: b.cfg.BotActivity, Type: discordgo.ActivityTypeListening}}
	}
	if err := s.UpdateStatusComplex(data); err != nil {
		slog.Warn("update status failed", "err", err)
	}
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	gid := vs.GuildID
	sess := b.pm.Peek(gid)
	if sess == nil {
		return
	}
	el, ok := voiceOf(sess)
	if !ok {
		return
	}

	// kicked or moved out by someone else
	if s.State.User != nil && vs.UserID == s.State.User.ID && vs.ChannelID == "" && el.ChannelID() != "" {
		slog.Info("bot left voice channel", "guildID", gid)
		b.cmd.leave(gid)
		return
	}

	chID := el.ChannelID()
	if chID == "" {
		return
	}
	set := b.repo.SettingsOrDefault(context.Background(), gid)
	if !set.LeaveIfNoListeners {
		return
	}
	if getNonBotSize(s, gid, chID) == 0 {
		slog.Info("no listeners left, disconnecting", "guildID", gid, "channelID", chID)
		b.cmd.leave(gid)
	}
}

// watchSession follows a session's store to announce track changes and to
// leave voice once the queue has stayed empty for the guild's wait time.
func (b *Bot) watchSession(sess *player.Session) {
	changes, cancel := sess.Store.Subscribe()
	go func() {
		defer cancel()
		var idle *time.Timer
		defer func() {
			if idle != nil {
				idle.Stop()
			}
		}()
		for {
			select {
			case <-sess.Done():
				return
			case c, ok := <-changes:
				if !ok {
					return
				}
				if c.State.Current() == nil {
					if c.Fields.Has(player.FieldQueue) && idle == nil {
						idle = b.scheduleIdleLeave(sess)
					}
					continue
				}
				if idle != nil {
					idle.Stop()
					idle = nil
				}
				// Play and PlayList are answered by the command itself
				if c.Fields.Has(player.FieldTrack) && !c.Fields.Has(player.FieldQueue) {
					b.announce(sess)
				}
			}
		}
	}()
}

func (b *Bot) scheduleIdleLeave(sess *player.Session) *time.Timer {
	set := b.repo.SettingsOrDefault(context.Background(), sess.GuildID)
	if set.SecondsWaitAfterEmpty <= 0 {
		return nil
	}
	wait := time.Duration(set.SecondsWaitAfterEmpty) * time.Second
	slog.Debug("queue empty, scheduling disconnect", "guildID", sess.GuildID, "wait", wait)
	return time.AfterFunc(wait, func() {
		if b.pm.Peek(sess.GuildID) != sess || sess.Store.Current() != nil {
			return
		}
		slog.Info("queue stayed empty, disconnecting", "guildID", sess.GuildID)
		b.cmd.leave(sess.GuildID)
	})
}

func (b *Bot) announce(sess *player.Session) {
	ch := sess.TextChannelID()
	if ch == "" {
		return
	}
	set := b.repo.SettingsOrDefault(context.Background(), sess.GuildID)
	if !set.AutoAnnounceNext {
		return
	}
	np := sess.View.NowPlaying()
	if np.Episode == nil {
		return
	}
	_, err := b.dg.ChannelMessageSendComplex(ch, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{ui.BuildNowPlayingEmbed(np)},
		Components: ui.TransportRow(np.Controls),
	})
	if err != nil {
		slog.Warn("announce failed", "guildID", sess.GuildID, "channelID", ch, "err", err)
	}
}

func getNonBotSize(s *discordgo.Session, guildID, channelID string) int {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		return 0
	}
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		m := vs.Member
		if m == nil {
			m, _ = s.State.Member(guildID, vs.UserID)
		}
		if m != nil && m.User != nil && !m.User.Bot {
			n++
		}
	}
	return n
}
