package player

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// fakeElement records the commands it receives. Tests emit events on it
// with send.
type fakeElement struct {
	mu          sync.Mutex
	cmds        []string
	loaded      Source
	loop        bool
	loadErr     error
	events      chan Event
	unloaded    int
	disconnects int
	// when set, Load waits for it to be closed
	gate chan struct{}
}

func newFakeElement() *fakeElement {
	return &fakeElement{events: make(chan Event, 16)}
}

func (f *fakeElement) record(cmd string) {
	f.mu.Lock()
	f.cmds = append(f.cmds, cmd)
	f.mu.Unlock()
}

func (f *fakeElement) Load(_ context.Context, src Source) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	err := f.loadErr
	if err == nil {
		f.loaded = src
	}
	f.mu.Unlock()
	f.record("load " + src.EpisodeID)
	return err
}

func (f *fakeElement) Play() error  { f.record("play"); return nil }
func (f *fakeElement) Pause() error { f.record("pause"); return nil }

func (f *fakeElement) Seek(sec int) error {
	f.record(fmt.Sprintf("seek %d", sec))
	return nil
}

func (f *fakeElement) SetLoop(loop bool) {
	f.mu.Lock()
	f.loop = loop
	f.mu.Unlock()
	f.record(fmt.Sprintf("loop %v", loop))
}

func (f *fakeElement) Unload() {
	f.mu.Lock()
	f.unloaded++
	f.loaded = Source{}
	f.mu.Unlock()
	f.record("unload")
}

func (f *fakeElement) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
}

func (f *fakeElement) Events() <-chan Event { return f.events }

// seq is the load id of the current source.
func (f *fakeElement) seq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded.Seq
}

func (f *fakeElement) last(prefixes ...string) string {
	cmds := f.commands()
	for i := len(cmds) - 1; i >= 0; i-- {
		for _, p := range prefixes {
			if strings.HasPrefix(cmds[i], p) {
				return cmds[i]
			}
		}
	}
	return ""
}

func (f *fakeElement) send(ev Event) { f.events <- ev }

func (f *fakeElement) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cmds...)
}

func (f *fakeElement) count(cmd string) int {
	n := 0
	for _, c := range f.commands() {
		if c == cmd {
			n++
		}
	}
	return n
}
