package repository

import "database/sql"

type Repo struct {
	db *sql.DB
}

// Settings are per-guild bot preferences. Player state is never stored.
type Settings struct {
	GuildID               string `json:"guildId"`
	SecondsWaitAfterEmpty int    `json:"secondsWaitAfterEmpty"`
	LeaveIfNoListeners    bool   `json:"leaveIfNoListeners"`
	AutoAnnounceNext      bool   `json:"autoAnnounceNextEpisode"`
}

func DefaultSettings(guild string) Settings {
	return Settings{
		GuildID:               guild,
		SecondsWaitAfterEmpty: 30,
		LeaveIfNoListeners:    true,
	}
}
