package player

import (
	"github.com/sonroyaalmerol/podcaster/internal/episodes"
)

// State is a copy of a store's observable state.
type State struct {
	Queue        []episodes.Episode `json:"queue"`
	CurrentIndex int                `json:"currentIndex"`
	IsPlaying    bool               `json:"isPlaying"`
	IsLooping    bool               `json:"isLooping"`
	IsShuffling  bool               `json:"isShuffling"`
}

func (s State) HasPrevious() bool { return s.CurrentIndex > 0 }

// HasNext is always true while shuffling since the next pick is random.
func (s State) HasNext() bool {
	return s.IsShuffling || s.CurrentIndex+1 < len(s.Queue)
}

func (s State) Current() *episodes.Episode {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return nil
	}
	ep := s.Queue[s.CurrentIndex]
	return &ep
}

type Fields uint8

const (
	FieldQueue Fields = 1 << iota
	FieldIndex
	FieldPlaying
	FieldLooping
	FieldShuffling
	// FieldTrack means the view has to (re)load the current episode.
	FieldTrack
)

func (f Fields) Has(o Fields) bool { return f&o != 0 }

// Change is published once per mutation that altered the state.
type Change struct {
	State   State
	Fields  Fields
	Version uint64
}

func sameQueue(a, b []episodes.Episode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].URL != b[i].URL {
			return false
		}
	}
	return true
}

func diff(old, cur State) Fields {
	var f Fields
	if !sameQueue(old.Queue, cur.Queue) {
		f |= FieldQueue
	}
	if old.CurrentIndex != cur.CurrentIndex {
		f |= FieldIndex
	}
	if old.IsPlaying != cur.IsPlaying {
		f |= FieldPlaying
	}
	if old.IsLooping != cur.IsLooping {
		f |= FieldLooping
	}
	if old.IsShuffling != cur.IsShuffling {
		f |= FieldShuffling
	}
	oc, cc := old.Current(), cur.Current()
	switch {
	case (oc == nil) != (cc == nil):
		f |= FieldTrack
	case oc != nil && (oc.ID != cc.ID || oc.URL != cc.URL || f.Has(FieldIndex)):
		f |= FieldTrack
	}
	return f
}
