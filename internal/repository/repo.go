package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertSettings(ctx context.Context, guild string) (*Settings, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings(guild_id) VALUES (?)`, guild,
	); err != nil {
		return nil, err
	}
	return r.GetSettings(ctx, guild)
}

func (r *Repo) GetSettings(ctx context.Context, guild string) (*Settings, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT guild_id, seconds_wait_after_empty, leave_if_no_listeners, auto_announce_next_episode
	FROM settings WHERE guild_id = ?`, guild)

	var s Settings
	var leave, announce int
	if err := row.Scan(&s.GuildID, &s.SecondsWaitAfterEmpty, &leave, &announce); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	s.LeaveIfNoListeners = leave != 0
	s.AutoAnnounceNext = announce != 0
	return &s, nil
}

// SettingsOrDefault never fails: unknown guilds and read errors yield the
// defaults.
func (r *Repo) SettingsOrDefault(ctx context.Context, guild string) Settings {
	s, err := r.GetSettings(ctx, guild)
	if err != nil || s == nil {
		return DefaultSettings(guild)
	}
	return *s
}

func (r *Repo) UpdateSettings(ctx context.Context, s *Settings) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settings SET
		  seconds_wait_after_empty=?,
		  leave_if_no_listeners=?,
		  auto_announce_next_episode=?,
		  updated_at=?
		WHERE guild_id=?`,
		s.SecondsWaitAfterEmpty, boolToInt(s.LeaveIfNoListeners),
		boolToInt(s.AutoAnnounceNext), time.Now().Unix(), s.GuildID,
	)
	return err
}

func (r *Repo) CacheTouch(ctx context.Context, hash string, size int64, created bool) error {
	now := time.Now().UnixNano()
	if created {
		_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO file_cache(hash,bytes,accessed_at,created_at) VALUES (?,?,?,COALESCE((SELECT created_at FROM file_cache WHERE hash=?),?))`,
			hash, size, now, hash, now)
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE file_cache SET accessed_at=? WHERE hash=?`, now, hash)
	return err
}

func (r *Repo) CacheRemove(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM file_cache WHERE hash=?`, hash)
	return err
}

func (r *Repo) CacheTotalBytes(ctx context.Context) (int64, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(bytes),0) FROM file_cache`)
	var v int64
	if err := row.Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *Repo) CacheOldest(ctx context.Context) (string, error) {
	row := r.db.QueryRowContext(ctx, `SELECT hash FROM file_cache ORDER BY accessed_at ASC LIMIT 1`)
	var hash string
	if err := row.Scan(&hash); err != nil {
		return "", err
	}
	return hash, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
