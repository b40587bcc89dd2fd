package player

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
)

const subscriberBuffer = 16

// Store is the single source of truth for what is queued and playing in
// one session. Every operation is total.
type Store struct {
	mu    sync.Mutex
	state State
	intn  func(n int) int
	// bumped on every published change, and on every change that needs a
	// (re)load
	version      uint64
	trackVersion uint64

	subMu sync.Mutex
	subs  map[string]chan Change
}

type StoreOption func(*Store)

// WithRand replaces the source used to pick shuffled tracks.
func WithRand(intn func(n int) int) StoreOption {
	return func(s *Store) { s.intn = intn }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		intn: rand.IntN,
		subs: make(map[string]chan Change),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.Queue = slices.Clone(s.state.Queue)
	return st
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// versioned returns the state with the version of the last change it
// reflects and the version of the last track change.
func (s *Store) versioned() (State, uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), s.version, s.trackVersion
}

func (s *Store) HasNext() bool     { return s.Snapshot().HasNext() }
func (s *Store) HasPrevious() bool { return s.Snapshot().HasPrevious() }

func (s *Store) Current() *episodes.Episode { return s.Snapshot().Current() }

// update applies fn under the lock and publishes the resulting change.
func (s *Store) update(fn func(st *State) Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.snapshotLocked()
	forced := fn(&s.state)
	cur := s.snapshotLocked()

	fields := diff(old, cur) | forced
	if fields == 0 {
		return
	}
	s.version++
	if fields.Has(FieldTrack) {
		s.trackVersion++
	}
	s.publish(Change{State: cur, Fields: fields, Version: s.version})
}

func (s *Store) Play(ep episodes.Episode) {
	s.update(func(st *State) Fields {
		st.Queue = []episodes.Episode{ep}
		st.CurrentIndex = 0
		st.IsPlaying = true
		return 0
	})
}

// PlayList replaces the queue with list and starts at index. An index out of
// range is clamped; an empty list clears the queue.
func (s *Store) PlayList(list []episodes.Episode, index int) {
	s.update(func(st *State) Fields {
		st.Queue = slices.Clone(list)
		switch {
		case len(list) == 0:
			st.Queue = nil
			index = 0
		case index < 0:
			index = 0
		case index >= len(list):
			index = len(list) - 1
		}
		st.CurrentIndex = index
		st.IsPlaying = true
		return 0
	})
}

func (s *Store) TogglePlay() {
	s.update(func(st *State) Fields {
		st.IsPlaying = !st.IsPlaying
		return 0
	})
}

func (s *Store) ToggleLoop() {
	s.update(func(st *State) Fields {
		st.IsLooping = !st.IsLooping
		return 0
	})
}

func (s *Store) ToggleShuffle() {
	s.update(func(st *State) Fields {
		st.IsShuffling = !st.IsShuffling
		return 0
	})
}

func (s *Store) SetPlayingState(playing bool) {
	s.update(func(st *State) Fields {
		st.IsPlaying = playing
		return 0
	})
}

// next moves to the following track: a uniformly random index while
// shuffling, the current one included, otherwise the next index. It reports
// false when there is nothing to move to.
func (s *Store) next(st *State) (Fields, bool) {
	if len(st.Queue) == 0 {
		return 0, false
	}
	if st.IsShuffling {
		st.CurrentIndex = s.intn(len(st.Queue))
		return FieldTrack, true
	}
	if !st.HasNext() {
		return 0, false
	}
	st.CurrentIndex++
	return 0, true
}

// PlayNext is a no-op at the end of the queue unless shuffling.
func (s *Store) PlayNext() {
	s.update(func(st *State) Fields {
		f, _ := s.next(st)
		return f
	})
}

// Advance moves past an episode that finished: to the next one when there
// is one, otherwise the queue is cleared.
func (s *Store) Advance() {
	s.update(func(st *State) Fields {
		if f, ok := s.next(st); ok {
			return f
		}
		st.Queue = nil
		st.CurrentIndex = 0
		return 0
	})
}

func (s *Store) PlayPrevious() {
	s.update(func(st *State) Fields {
		if st.HasPrevious() {
			st.CurrentIndex--
		}
		return 0
	})
}

// Clear empties the queue. Transport flags are kept.
func (s *Store) Clear() {
	s.update(func(st *State) Fields {
		st.Queue = nil
		st.CurrentIndex = 0
		return 0
	})
}

// Subscribe returns a channel of changes and a func that cancels the
// subscription. Changes are dropped for subscribers that fall behind.
func (s *Store) Subscribe() (<-chan Change, func()) {
	id := uuid.NewString()
	ch := make(chan Change, subscriberBuffer)

	s.subMu.Lock()
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

// publish runs under s.mu so subscribers see changes in order.
func (s *Store) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
