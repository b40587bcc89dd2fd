package ui

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/utils"
)

const (
	colorPlaying = 0x8257e5
	colorPaused  = 0x4e4e4e
	colorIdle    = 0x992222

	descriptionLimit = 1500
	upNextLimit      = 5
)

func episodeLink(ep episodes.Episode) string {
	title := utils.EscapeMd(ep.Title)
	if ep.URL == "" {
		return title
	}
	return fmt.Sprintf("[%s](%s)", title, ep.URL)
}

// BuildNowPlayingEmbed renders the player. An idle player shows a neutral
// placeholder rather than an error.
func BuildNowPlayingEmbed(np player.NowPlaying) *discordgo.MessageEmbed {
	if np.Episode == nil {
		return &discordgo.MessageEmbed{
			Title:       "Nothing playing",
			Description: "Select an episode to listen to.",
			Color:       colorIdle,
		}
	}
	ep := *np.Episode

	button := "▶️"
	title := "Paused"
	color := colorPaused
	if np.State.IsPlaying {
		button = "⏸️"
		title = "Now playing"
		color = colorPlaying
	}
	modes := ""
	if np.State.IsLooping {
		modes += " 🔂"
	}
	if np.State.IsShuffling {
		modes += " 🔀"
	}

	bar := player.ProgressBar(12, player.Fraction(np.Progress, np.Duration))
	desc := fmt.Sprintf("**%s**\n%s\n\n%s %s `[ %s / %s ]`%s",
		episodeLink(ep),
		utils.EscapeMd(ep.Members),
		button, bar, np.ProgressText, np.DurationText, modes,
	)

	st := np.State
	if next := upNext(st); next != "" {
		desc += "\n\n**Up next:**\n" + next
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Episode %d of %d • %s", st.CurrentIndex+1, len(st.Queue), ep.PublishedAt),
		},
	}
	if ep.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: ep.Thumbnail}
	}
	return embed
}

func upNext(st player.State) string {
	if st.IsShuffling {
		return ""
	}
	var b strings.Builder
	for i := st.CurrentIndex + 1; i < len(st.Queue) && i <= st.CurrentIndex+upNextLimit; i++ {
		ep := st.Queue[i]
		fmt.Fprintf(&b, "`%d.` %s `[ %s ]`\n", i+1, utils.EscapeMd(ep.Title), ep.DurationAsString)
	}
	if rest := len(st.Queue) - st.CurrentIndex - 1 - upNextLimit; rest > 0 {
		fmt.Fprintf(&b, "…and %d more\n", rest)
	}
	return b.String()
}

func homeLine(n int, ep episodes.Episode) string {
	return fmt.Sprintf("`%d.` **%s**\n%s • %s • `%s`\n",
		n, utils.EscapeMd(ep.Title), utils.EscapeMd(ep.Members), ep.PublishedAt, ep.DurationAsString)
}

// BuildHomeEmbed lists the latest episodes apart from the rest. Numbers are
// positions in the combined queue.
func BuildHomeEmbed(home episodes.Home) *discordgo.MessageEmbed {
	if len(home.Latest)+len(home.All) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "Episodes",
			Description: "No episodes found.",
			Color:       colorIdle,
		}
	}
	var latest, all strings.Builder
	for i, ep := range home.Latest {
		latest.WriteString(homeLine(home.LatestIndex(i)+1, ep))
	}
	for i, ep := range home.All {
		all.WriteString(homeLine(home.AllIndex(i)+1, ep))
	}

	embed := &discordgo.MessageEmbed{
		Title: "Episodes",
		Color: colorPlaying,
	}
	if latest.Len() > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Latest releases",
			Value: utils.Truncate(latest.String(), 1024),
		})
	}
	if all.Len() > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "All episodes",
			Value: utils.Truncate(all.String(), 1024),
		})
	}
	if len(home.Latest) > 0 && home.Latest[0].Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: home.Latest[0].Thumbnail}
	}
	return embed
}

func BuildEpisodeEmbed(ep episodes.Episode) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       utils.Truncate(ep.Title, 256),
		Description: utils.Truncate(utils.StripHTML(ep.Description), descriptionLimit),
		Color:       colorPlaying,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Members", Value: orDash(ep.Members), Inline: true},
			{Name: "Published", Value: orDash(ep.PublishedAt), Inline: true},
			{Name: "Duration", Value: ep.DurationAsString, Inline: true},
		},
	}
	if strings.HasPrefix(ep.URL, "http") {
		embed.URL = ep.URL
	}
	if ep.Thumbnail != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: ep.Thumbnail}
	}
	return embed
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return utils.EscapeMd(s)
}
