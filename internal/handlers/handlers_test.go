package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/repository"
	"github.com/sonroyaalmerol/podcaster/internal/ui"
)

func queue(n int) []episodes.Episode {
	out := make([]episodes.Episode, n)
	for i := range out {
		out[i] = episodes.Episode{ID: fmt.Sprint(i), Title: fmt.Sprint("ep ", i)}
	}
	return out
}

func TestCommandListNames(t *testing.T) {
	want := []string{
		"episodes", "episode", "play", "play-all", "spotify", "now-playing",
		"pause", "resume", "next", "previous", "shuffle", "loop", "seek",
		"clear", "disconnect", "config",
	}
	got := map[string]bool{}
	for _, c := range commandList() {
		if got[c.Name] {
			t.Fatalf("duplicate command %q", c.Name)
		}
		got[c.Name] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("missing command %q", name)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("got %d commands, want %d", len(got), len(want))
	}
}

func TestApplyTransport(t *testing.T) {
	st := player.NewStore(player.WithRand(func(int) int { return 0 }))

	if applyTransport(st, ui.TransportToggle) {
		t.Fatal("toggle applied on an empty player")
	}

	st.PlayList(queue(3), 0)
	if applyTransport(st, ui.TransportPrevious) {
		t.Fatal("previous applied at index 0")
	}
	if !applyTransport(st, ui.TransportNext) || st.Snapshot().CurrentIndex != 1 {
		t.Fatalf("next: index = %d, want 1", st.Snapshot().CurrentIndex)
	}
	if !applyTransport(st, ui.TransportToggle) || st.Snapshot().IsPlaying {
		t.Fatal("toggle did not pause")
	}
	if !applyTransport(st, ui.TransportLoop) || !st.Snapshot().IsLooping {
		t.Fatal("loop not enabled")
	}
	if !applyTransport(st, ui.TransportShuffle) || !st.Snapshot().IsShuffling {
		t.Fatal("shuffle not enabled")
	}
	if applyTransport(st, ui.TransportPrefix+"bogus") {
		t.Fatal("unknown button applied")
	}

	st.Play(queue(1)[0])
	if applyTransport(st, ui.TransportShuffle) {
		t.Fatal("shuffle applied with a single episode")
	}
}

func TestSettingsMessage(t *testing.T) {
	set := repository.DefaultSettings("g")
	msg := settingsMessage(set)
	if !strings.Contains(msg, "30s") || !strings.Contains(msg, "Leave if no listeners: true") {
		t.Fatalf("unexpected message %q", msg)
	}
	set.SecondsWaitAfterEmpty = 0
	if msg := settingsMessage(set); !strings.Contains(msg, "never leave") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestOptions(t *testing.T) {
	opts := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "id", Type: discordgo.ApplicationCommandOptionString, Value: "  42 "},
		{Name: "position", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
		{Name: "value", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
	}
	if got := optionString(opts, "id"); got != "42" {
		t.Fatalf("optionString = %q", got)
	}
	if got, ok := optionInt(opts, "position"); !ok || got != 3 {
		t.Fatalf("optionInt = %d, %v", got, ok)
	}
	if _, ok := optionInt(opts, "missing"); ok {
		t.Fatal("optionInt found a missing option")
	}
	if !optionBool(opts, "value") || optionBool(opts, "missing") {
		t.Fatal("optionBool mismatch")
	}
}

func TestFailureMessages(t *testing.T) {
	if got := joinFailure(errNotInVoice); got != "gotta be in a voice channel" {
		t.Fatalf("joinFailure = %q", got)
	}
	if got := joinFailure(errors.New("boom")); got != "couldn't connect to channel" {
		t.Fatalf("joinFailure = %q", got)
	}
	if got := lookupFailure(fmt.Errorf("get: %w", episodes.ErrNotFound)); got != "episode not found" {
		t.Fatalf("lookupFailure = %q", got)
	}
	if got := lookupFailure(errSpotifyDisabled); got != "spotify is not configured" {
		t.Fatalf("lookupFailure = %q", got)
	}
}

type voiceStub struct {
	events      chan player.Event
	disconnects atomic.Int32
}

func (v *voiceStub) Load(context.Context, player.Source) error { return nil }
func (v *voiceStub) Play() error                               { return nil }
func (v *voiceStub) Pause() error                              { return nil }
func (v *voiceStub) Seek(int) error                            { return nil }
func (v *voiceStub) SetLoop(bool)                              {}
func (v *voiceStub) Unload()                                   {}
func (v *voiceStub) Events() <-chan player.Event               { return v.events }
func (v *voiceStub) Disconnect()                               { v.disconnects.Add(1) }

func TestLeaveDisconnects(t *testing.T) {
	el := &voiceStub{events: make(chan player.Event)}
	pm := player.NewManager(func(string) player.Element { return el })
	h := &CommandHandler{pm: pm}

	pm.Get("g1")
	h.leave("g1")
	if pm.Peek("g1") != nil {
		t.Fatalf("session kept after leave")
	}
	if got := el.disconnects.Load(); got != 1 {
		t.Fatalf("disconnects = %d, want 1", got)
	}
	h.leave("g1")
	if got := el.disconnects.Load(); got != 1 {
		t.Fatalf("leave without a session disconnected again")
	}
}
