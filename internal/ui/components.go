package ui

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/utils"
)

// Component custom IDs.
const (
	TransportPrefix   = "transport:"
	TransportShuffle  = TransportPrefix + "shuffle"
	TransportPrevious = TransportPrefix + "previous"
	TransportToggle   = TransportPrefix + "toggle"
	TransportNext     = TransportPrefix + "next"
	TransportLoop     = TransportPrefix + "loop"

	HomeSelect        = "home:play"
	EpisodePlayPrefix = "episode:play:"

	selectOptionLimit = 25
	customIDLimit     = 100
)

func style(c player.Control) discordgo.ButtonStyle {
	if c.Active {
		return discordgo.PrimaryButton
	}
	return discordgo.SecondaryButton
}

func button(id, emoji string, c player.Control) discordgo.Button {
	return discordgo.Button{
		CustomID: id,
		Style:    style(c),
		Disabled: c.Disabled,
		Emoji:    &discordgo.ComponentEmoji{Name: emoji},
	}
}

// TransportRow renders the player buttons from their control state.
func TransportRow(cs player.ControlState) []discordgo.MessageComponent {
	toggle := "▶️"
	if cs.Playing {
		toggle = "⏸️"
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			button(TransportShuffle, "🔀", cs.Shuffle),
			button(TransportPrevious, "⏮️", cs.Previous),
			button(TransportToggle, toggle, cs.PlayPause),
			button(TransportNext, "⏭️", cs.Next),
			button(TransportLoop, "🔁", cs.Loop),
		}},
	}
}

// HomeSelectMenu lets a user start the combined home list at any position.
func HomeSelectMenu(home episodes.Home) []discordgo.MessageComponent {
	combined := home.Combined()
	if len(combined) == 0 {
		return nil
	}
	opts := make([]discordgo.SelectMenuOption, 0, min(len(combined), selectOptionLimit))
	for i, ep := range combined {
		if i >= selectOptionLimit {
			break
		}
		opts = append(opts, discordgo.SelectMenuOption{
			Label:       utils.Truncate(strconv.Itoa(i+1)+". "+ep.Title, 100),
			Value:       strconv.Itoa(i),
			Description: utils.Truncate(ep.Members+" • "+ep.DurationAsString, 100),
		})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    HomeSelect,
				Placeholder: "Play from…",
				Options:     opts,
			},
		}},
	}
}

// EpisodeButtons is the play button of the detail view. It is omitted when
// the episode id does not fit in a custom id.
func EpisodeButtons(ep episodes.Episode) []discordgo.MessageComponent {
	id := EpisodePlayPrefix + ep.ID
	if len(id) > customIDLimit {
		return nil
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Play episode",
				CustomID: id,
				Style:    discordgo.SuccessButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "▶️"},
			},
		}},
	}
}

// EpisodeIDFromCustomID returns the episode id of a play button.
func EpisodeIDFromCustomID(customID string) (string, bool) {
	id, ok := strings.CutPrefix(customID, EpisodePlayPrefix)
	return id, ok && id != ""
}
