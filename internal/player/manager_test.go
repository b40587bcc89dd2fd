package player

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestManagerSessions(t *testing.T) {
	var created atomic.Int32
	elements := map[string]*fakeElement{}
	m := NewManager(func(guildID string) Element {
		el := newFakeElement()
		elements[guildID] = el
		return el
	})
	m.OnCreate(func(*Session) { created.Add(1) })
	defer m.Close()

	if _, err := m.Lookup("g1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Lookup err = %v, want ErrNoSession", err)
	}

	a := m.Get("g1")
	if b := m.Get("g1"); a != b {
		t.Fatalf("Get returned a new session for the same guild")
	}
	if m.Peek("g2") != nil {
		t.Fatalf("Peek created a session")
	}
	m.Get("g2")
	if got := created.Load(); got != 2 {
		t.Fatalf("OnCreate ran %d times, want 2", got)
	}

	a.SetTextChannelID("c1")
	a.SetTextChannelID("")
	if got := a.TextChannelID(); got != "c1" {
		t.Fatalf("TextChannelID = %q, want c1", got)
	}

	a.Store.Play(eps(1)[0])
	waitFor(t, "play", func() bool { return elements["g1"].count("play") == 1 })

	m.Remove("g1")
	select {
	case <-a.Done():
	default:
		t.Fatalf("Done not closed after Remove")
	}
	if m.Peek("g1") != nil {
		t.Fatalf("session still present after Remove")
	}
	if elements["g1"].count("unload") == 0 {
		t.Fatalf("element not unloaded on Remove")
	}
	if got := disconnects(elements["g1"]); got != 1 {
		t.Fatalf("Remove disconnected %d times, want 1", got)
	}
	m.Remove("g1")

	m.Close()
	if got := disconnects(elements["g2"]); got != 1 {
		t.Fatalf("Close disconnected %d times, want 1", got)
	}
	if len(m.GuildIDs()) != 0 {
		t.Fatalf("sessions left after Close: %v", m.GuildIDs())
	}
}

func disconnects(f *fakeElement) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}
