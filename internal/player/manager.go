package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrNoSession = errors.New("no player session")

// Session is the player of one guild.
type Session struct {
	GuildID string
	Store   *Store
	View    *View
	Element Element

	mu            sync.Mutex
	textChannelID string

	cancel context.CancelFunc
	done   chan struct{}
}

// TextChannelID is where the session was started from.
func (s *Session) TextChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textChannelID
}

func (s *Session) SetTextChannelID(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	s.textChannelID = id
	s.mu.Unlock()
}

// Done is closed once the session has been removed and its view stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) stop() {
	s.cancel()
	<-s.done
}

type ElementFactory func(guildID string) Element

// Disconnecter is implemented by elements holding a connection that has to
// be released with the session.
type Disconnecter interface {
	Disconnect()
}

// Manager owns one session per guild.
type Manager struct {
	newElement ElementFactory
	storeOpts  []StoreOption

	mu       sync.Mutex
	sessions map[string]*Session
	onCreate []func(*Session)
}

func NewManager(newElement ElementFactory, opts ...StoreOption) *Manager {
	return &Manager{
		newElement: newElement,
		storeOpts:  opts,
		sessions:   make(map[string]*Session),
	}
}

// OnCreate registers fn to run for every new session.
func (m *Manager) OnCreate(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreate = append(m.onCreate, fn)
}

// Get returns the guild's session, creating and starting it on first use.
func (m *Manager) Get(guildID string) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[guildID]; ok {
		m.mu.Unlock()
		return s
	}

	store := NewStore(m.storeOpts...)
	el := m.newElement(guildID)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		GuildID: guildID,
		Store:   store,
		View:    NewView(guildID, store, el),
		Element: el,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.sessions[guildID] = s
	hooks := append([]func(*Session){}, m.onCreate...)
	m.mu.Unlock()

	go func() {
		defer close(s.done)
		s.View.Run(ctx)
	}()
	for _, fn := range hooks {
		fn(s)
	}
	slog.Info("player session started", "guildID", guildID)
	return s
}

func (m *Manager) Peek(guildID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

// Lookup is Peek with an error for missing sessions.
func (m *Manager) Lookup(guildID string) (*Session, error) {
	if s := m.Peek(guildID); s != nil {
		return s, nil
	}
	return nil, ErrNoSession
}

// Remove stops the guild's session, disconnects its element and forgets it.
func (m *Manager) Remove(guildID string) {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	delete(m.sessions, guildID)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.stop()
	if d, ok := s.Element.(Disconnecter); ok {
		d.Disconnect()
	}
	slog.Info("player session stopped", "guildID", guildID)
}

func (m *Manager) GuildIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out
}

func (m *Manager) Close() {
	for _, id := range m.GuildIDs() {
		m.Remove(id)
	}
}
