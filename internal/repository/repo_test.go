package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := OpenDB(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepo(db)
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := openTestRepo(t)

	if _, err := r.GetSettings(ctx, "g1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("GetSettings on unknown guild err = %v, want sql.ErrNoRows", err)
	}
	if got := r.SettingsOrDefault(ctx, "g1"); got != DefaultSettings("g1") {
		t.Fatalf("SettingsOrDefault = %+v", got)
	}

	s, err := r.UpsertSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}
	if *s != DefaultSettings("g1") {
		t.Fatalf("fresh settings = %+v, want defaults", *s)
	}

	s.SecondsWaitAfterEmpty = 0
	s.LeaveIfNoListeners = false
	s.AutoAnnounceNext = true
	if err := r.UpdateSettings(ctx, s); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	got, err := r.GetSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if *got != *s {
		t.Fatalf("GetSettings = %+v, want %+v", *got, *s)
	}

	// Upserting again keeps the stored values.
	again, _ := r.UpsertSettings(ctx, "g1")
	if *again != *s {
		t.Fatalf("UpsertSettings overwrote settings: %+v", *again)
	}
}

func TestFileCacheIndex(t *testing.T) {
	ctx := context.Background()
	r := openTestRepo(t)

	if err := r.CacheTouch(ctx, "a", 10, true); err != nil {
		t.Fatalf("CacheTouch: %v", err)
	}
	if err := r.CacheTouch(ctx, "b", 5, true); err != nil {
		t.Fatalf("CacheTouch: %v", err)
	}
	total, err := r.CacheTotalBytes(ctx)
	if err != nil || total != 15 {
		t.Fatalf("CacheTotalBytes = %d, %v; want 15", total, err)
	}
	oldest, err := r.CacheOldest(ctx)
	if err != nil || oldest != "a" {
		t.Fatalf("CacheOldest = %q, %v; want a", oldest, err)
	}

	_ = r.CacheTouch(ctx, "a", 0, false)
	if oldest, _ = r.CacheOldest(ctx); oldest != "b" {
		t.Fatalf("CacheOldest after touch = %q, want b", oldest)
	}

	_ = r.CacheRemove(ctx, "b")
	if total, _ = r.CacheTotalBytes(ctx); total != 10 {
		t.Fatalf("CacheTotalBytes after remove = %d, want 10", total)
	}
}

func TestOpenDBTwiceIsNoChange(t *testing.T) {
	dir := t.TempDir()
	db, err := OpenDB(dir)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	db.Close()
	db, err = OpenDB(dir)
	if err != nil {
		t.Fatalf("second OpenDB: %v", err)
	}
	db.Close()
}
