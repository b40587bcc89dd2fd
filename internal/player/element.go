package player

import (
	"context"

	"github.com/sonroyaalmerol/podcaster/internal/episodes"
)

// Source is what an element needs to load an episode.
type Source struct {
	EpisodeID string
	URL       string
	Title     string
	Members   string
	Duration  int
	// Seq identifies the load; events about this source carry it back.
	Seq uint64
}

func SourceOf(ep episodes.Episode) Source {
	return Source{
		EpisodeID: ep.ID,
		URL:       ep.URL,
		Title:     ep.Title,
		Members:   ep.Members,
		Duration:  ep.Duration,
	}
}

type EventKind int

const (
	EventMetadataLoaded EventKind = iota
	EventPlay
	EventPause
	EventTimeUpdate
	EventEnded
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventMetadataLoaded:
		return "metadata-loaded"
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventTimeUpdate:
		return "timeupdate"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is a lifecycle notification from an element. Duration is set for
// metadata-loaded, Position for timeupdate and Err for error. Seq is the
// Source.Seq of the load the event belongs to.
type Event struct {
	Kind     EventKind
	Seq      uint64
	Duration int
	Position float64
	Err      error
}

// Element plays one source at a time. With loop enabled it restarts at 0
// instead of emitting Ended.
type Element interface {
	Load(ctx context.Context, src Source) error
	Play() error
	Pause() error
	Seek(sec int) error
	SetLoop(loop bool)
	Unload()
	Events() <-chan Event
}
