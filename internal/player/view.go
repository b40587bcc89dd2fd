package player

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/sonroyaalmerol/podcaster/internal/episodes"
	"github.com/sonroyaalmerol/podcaster/internal/utils"
)

var ErrNothingLoaded = errors.New("nothing loaded")

// NowPlaying is what renderers need to draw the player.
type NowPlaying struct {
	Episode      *episodes.Episode `json:"episode"`
	Progress     int               `json:"progress"`
	Duration     int               `json:"duration"`
	ProgressText string            `json:"progressText"`
	DurationText string            `json:"durationText"`
	Controls     ControlState      `json:"controls"`
	State        State             `json:"state"`
}

// View binds a store to an element. Store changes become element commands
// and element events flow back into the store.
type View struct {
	store   *Store
	el      Element
	guildID string

	// owned by the Run goroutine
	applied     uint64
	loadedTrack uint64
	loadSeq     uint64
	ready       bool
	sentPlaying bool
	sentLoop    bool

	mu          sync.Mutex
	loaded      *episodes.Episode
	loadedIndex int
	progress    int
	duration    int
	tracking    bool
}

func NewView(guildID string, store *Store, el Element) *View {
	return &View{store: store, el: el, guildID: guildID}
}

// Run handles store changes and element events one at a time until ctx is
// done. The element is unloaded on return.
func (v *View) Run(ctx context.Context) {
	changes, cancel := v.store.Subscribe()
	defer cancel()
	defer v.el.Unload()

	v.sync(ctx, 0)

	events := v.el.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			v.apply(ctx, c)
		case ev, ok := <-events:
			if !ok {
				return
			}
			v.handle(ev)
		}
	}
}

func (v *View) isLoaded(st State) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	cur := st.Current()
	if cur == nil || v.loaded == nil {
		return cur == nil && v.loaded == nil
	}
	return cur.ID == v.loaded.ID && cur.URL == v.loaded.URL && st.CurrentIndex == v.loadedIndex
}

// apply skips changes an earlier sync already covered. Subscribers may miss
// changes, so the element is always driven from the latest store state.
func (v *View) apply(ctx context.Context, c Change) {
	if c.Version <= v.applied {
		return
	}
	v.sync(ctx, c.Fields)
}

func (v *View) sync(ctx context.Context, fields Fields) {
	st, ver, track := v.store.versioned()
	v.applied = ver
	if track != v.loadedTrack || !v.isLoaded(st) {
		v.loadedTrack = track
		v.load(ctx, st)
		return
	}
	if st.Current() == nil || !v.ready {
		return
	}
	if fields.Has(FieldLooping) || st.IsLooping != v.sentLoop {
		v.setLoop(st.IsLooping)
	}
	if fields.Has(FieldPlaying) || st.IsPlaying != v.sentPlaying {
		v.setPlaying(st.IsPlaying)
	}
}

func (v *View) load(ctx context.Context, st State) {
	cur := st.Current()

	v.mu.Lock()
	v.loaded = cur
	v.loadedIndex = st.CurrentIndex
	v.progress = 0
	v.duration = 0
	v.tracking = false
	if cur != nil {
		v.duration = cur.Duration
	}
	v.mu.Unlock()
	v.ready = false

	if cur == nil {
		v.el.Unload()
		return
	}

	v.loadSeq++
	src := SourceOf(*cur)
	src.Seq = v.loadSeq
	slog.Debug("view load", "guildID", v.guildID, "episode", cur.ID, "index", st.CurrentIndex, "seq", src.Seq)
	if err := v.el.Load(ctx, src); err != nil {
		slog.Warn("load episode failed", "guildID", v.guildID, "episode", cur.ID, "err", err)
		return
	}
	v.ready = true

	// Load can block for a while; apply what the store says now.
	now, ver, track := v.store.versioned()
	if track != v.loadedTrack {
		// a pending change reloads
		return
	}
	v.applied = ver
	v.setLoop(now.IsLooping)
	v.setPlaying(now.IsPlaying)
}

func (v *View) setLoop(loop bool) {
	v.el.SetLoop(loop)
	v.sentLoop = loop
}

func (v *View) setPlaying(playing bool) {
	var err error
	if playing {
		err = v.el.Play()
	} else {
		err = v.el.Pause()
	}
	if err != nil {
		slog.Warn("element command failed", "guildID", v.guildID, "playing", playing, "err", err)
	}
	v.sentPlaying = playing
}

func (v *View) handle(ev Event) {
	switch ev.Kind {
	case EventMetadataLoaded, EventTimeUpdate, EventEnded:
		if ev.Seq != v.loadSeq {
			slog.Debug("stale element event", "guildID", v.guildID, "event", ev.Kind, "seq", ev.Seq, "current", v.loadSeq)
			return
		}
	}
	switch ev.Kind {
	case EventMetadataLoaded:
		if err := v.el.Seek(0); err != nil {
			slog.Warn("seek to start failed", "guildID", v.guildID, "err", err)
		}
		v.mu.Lock()
		v.progress = 0
		v.tracking = true
		if ev.Duration > 0 {
			v.duration = ev.Duration
		}
		v.mu.Unlock()
	case EventTimeUpdate:
		v.mu.Lock()
		if v.tracking {
			v.progress = int(math.Floor(ev.Position))
		}
		v.mu.Unlock()
	case EventPlay:
		v.store.SetPlayingState(true)
	case EventPause:
		v.store.SetPlayingState(false)
	case EventEnded:
		v.store.Advance()
	case EventError:
		slog.Warn("playback error", "guildID", v.guildID, "err", ev.Err)
	}
}

// Seek moves the element and the displayed progress to sec, clamped to the
// known duration.
func (v *View) Seek(sec int) error {
	v.mu.Lock()
	if v.loaded == nil {
		v.mu.Unlock()
		return ErrNothingLoaded
	}
	sec = max(sec, 0)
	if v.duration > 0 {
		sec = min(sec, v.duration)
	}
	v.progress = sec
	v.mu.Unlock()

	return v.el.Seek(sec)
}

func (v *View) NowPlaying() NowPlaying {
	st := v.store.Snapshot()
	np := NowPlaying{
		Episode:  st.Current(),
		Controls: Controls(st),
		State:    st,
	}
	if np.Episode != nil {
		np.Duration = np.Episode.Duration
		if v.isLoaded(st) {
			v.mu.Lock()
			np.Progress = v.progress
			if v.duration > 0 {
				np.Duration = v.duration
			}
			v.mu.Unlock()
		}
	}
	np.ProgressText = utils.DurationToTimeString(np.Progress)
	np.DurationText = utils.DurationToTimeString(np.Duration)
	return np
}
