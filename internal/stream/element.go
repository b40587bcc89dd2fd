package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/podcaster/internal/player"
	"github.com/sonroyaalmerol/podcaster/internal/sponsorblock"
)

var (
	ErrNotConnected  = errors.New("not connected to a voice channel")
	ErrNothingLoaded = errors.New("nothing loaded")
)

const (
	defaultBitrate   = 128_000
	bufferPackets    = 100
	prefillPackets   = 10
	timeUpdateEvery  = 250 * time.Millisecond
	stopWaitTimeout  = 3 * time.Second
	eventsBufferSize = 64
)

type playSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	start  int
	seq    uint64

	pcm *PCMStreamer
	enc *Encoder
	buf *opusBuffer

	produced chan struct{}
	done     chan struct{}
}

// SegmentSource lists the parts of a YouTube video to skip.
type SegmentSource interface {
	Segments(ctx context.Context, videoID string) []sponsorblock.Segment
}

type ElementOption func(*VoiceElement)

func WithSegments(src SegmentSource) ElementOption {
	return func(e *VoiceElement) { e.segSrc = src }
}

// VoiceElement plays episodes into a Discord voice connection. It
// implements player.Element.
type VoiceElement struct {
	guildID  string
	resolver *Resolver
	segSrc   SegmentSource
	bitrate  int64
	events   chan player.Event

	// serializes commands
	opMu sync.Mutex

	mu        sync.Mutex
	conn      *discordgo.VoiceConnection
	channelID string
	src       *player.Source
	input     Resolved
	segments  []sponsorblock.Segment
	duration  int
	position  float64
	loop      bool
	playing   bool
	cur       *playSession
}

func NewVoiceElement(guildID string, resolver *Resolver, opts ...ElementOption) *VoiceElement {
	e := &VoiceElement{
		guildID:  guildID,
		resolver: resolver,
		bitrate:  defaultBitrate,
		events:   make(chan player.Event, eventsBufferSize),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *VoiceElement) Events() <-chan player.Event { return e.events }

func (e *VoiceElement) emit(ev player.Event) {
	select {
	case e.events <- ev:
	default:
		if ev.Kind != player.EventTimeUpdate {
			slog.Warn("element event dropped", "guildID", e.guildID, "event", ev.Kind)
		}
	}
}

// Connect joins channelID, leaving any other channel of the guild first.
func (e *VoiceElement) Connect(ctx context.Context, s *discordgo.Session, channelID string) error {
	e.mu.Lock()
	if e.conn != nil && e.channelID == channelID {
		e.mu.Unlock()
		return nil
	}
	old := e.conn
	e.conn = nil
	e.channelID = ""
	e.mu.Unlock()

	if old != nil {
		_ = safeDisconnect(e.guildID, old)
	}

	vc, err := s.ChannelVoiceJoin(ctx, e.guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("join voice channel: %w", err)
	}
	ensureVoiceChannels(vc)

	e.mu.Lock()
	e.conn = vc
	e.channelID = channelID
	e.mu.Unlock()
	return nil
}

// ChannelID is the voice channel currently joined, empty when disconnected.
func (e *VoiceElement) ChannelID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channelID
}

// Disconnect stops playback and leaves the voice channel.
func (e *VoiceElement) Disconnect() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	sess := e.cur
	e.cur = nil
	wasPlaying := e.playing
	e.playing = false
	vc := e.conn
	e.conn = nil
	e.channelID = ""
	e.mu.Unlock()

	stopSession(sess)
	if wasPlaying {
		e.emit(player.Event{Kind: player.EventPause})
	}
	if vc != nil {
		_ = safeDisconnect(e.guildID, vc)
	}
}

func ensureVoiceChannels(vc *discordgo.VoiceConnection) {
	// Kill() panics on nil channels
	if vc.OpusSend == nil {
		vc.OpusSend = make(chan []byte, 2)
	}
	if vc.OpusRecv == nil {
		vc.OpusRecv = make(chan *discordgo.Packet, 2)
	}
}

func safeDisconnect(guildID string, vc *discordgo.VoiceConnection) error {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("voice disconnect panic recovered", "panic", r, "guildID", guildID)
		}
	}()
	ensureVoiceChannels(vc)
	_ = vc.Speaking(false)
	time.Sleep(150 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return vc.Disconnect(ctx)
}

func (e *VoiceElement) Load(ctx context.Context, src player.Source) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	sess := e.cur
	e.cur = nil
	e.playing = false
	e.src = nil
	e.position = 0
	e.mu.Unlock()
	stopSession(sess)

	res, err := e.resolver.Resolve(ctx, src)
	if err != nil {
		return err
	}
	dur := res.Duration
	if probed, err := ProbeDuration(res.Input, res.Headers); err == nil && probed > 0 {
		dur = probed
	} else if err != nil {
		slog.Debug("duration probe failed", "guildID", e.guildID, "input", res.Input, "err", err)
	}
	if dur <= 0 {
		dur = src.Duration
	}
	var segs []sponsorblock.Segment
	if e.segSrc != nil && res.VideoID != "" {
		segs = e.segSrc.Segments(ctx, res.VideoID)
	}

	e.mu.Lock()
	e.src = &src
	e.input = res
	e.segments = segs
	e.duration = dur
	e.mu.Unlock()

	slog.Info("episode loaded", "guildID", e.guildID, "episode", src.EpisodeID, "duration", dur, "local", res.Local)
	e.emit(player.Event{Kind: player.EventMetadataLoaded, Seq: src.Seq, Duration: dur})
	return nil
}

func (e *VoiceElement) Play() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	switch {
	case e.src == nil:
		e.mu.Unlock()
		return ErrNothingLoaded
	case e.playing:
		e.mu.Unlock()
		return nil
	case e.conn == nil:
		e.mu.Unlock()
		return ErrNotConnected
	}
	pos := int(e.position)
	if e.duration > 0 && pos >= e.duration {
		pos = 0
	}
	e.mu.Unlock()

	if err := e.startLocked(pos); err != nil {
		return err
	}
	e.emit(player.Event{Kind: player.EventPlay})
	return nil
}

// startLocked starts a play session at pos. Caller holds opMu.
func (e *VoiceElement) startLocked(pos int) error {
	e.mu.Lock()
	input := e.input
	vc := e.conn
	var seq uint64
	if e.src != nil {
		seq = e.src.Seq
	}
	e.mu.Unlock()
	if vc == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithCancel(context.Background())
	pcm, err := StartPCMStream(ctx, input.Input, PCMOptions{Headers: input.Headers, StartSec: pos})
	if err != nil {
		cancel()
		return err
	}
	enc, err := NewEncoder(e.bitrate)
	if err != nil {
		pcm.Close()
		cancel()
		return err
	}
	sess := &playSession{
		ctx:      ctx,
		cancel:   cancel,
		start:    pos,
		seq:      seq,
		pcm:      pcm,
		enc:      enc,
		buf:      newOpusBuffer(bufferPackets),
		produced: make(chan struct{}),
		done:     make(chan struct{}),
	}

	e.mu.Lock()
	e.cur = sess
	e.playing = true
	e.position = float64(pos)
	e.mu.Unlock()

	go e.sendLoop(vc, sess)
	return nil
}

func (e *VoiceElement) Pause() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return nil
	}
	sess := e.cur
	e.cur = nil
	e.playing = false
	e.mu.Unlock()

	stopSession(sess)
	e.emit(player.Event{Kind: player.EventPause})
	return nil
}

// Seek moves to sec. A playing element restarts decoding there.
func (e *VoiceElement) Seek(sec int) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.src == nil {
		e.mu.Unlock()
		return ErrNothingLoaded
	}
	sec = max(sec, 0)
	if e.duration > 0 {
		sec = min(sec, e.duration)
	}
	sess := e.cur
	// a session that just started at sec needs no restart
	if !e.playing || (sess != nil && sess.start == sec && int(e.position) == sec) {
		e.position = float64(sec)
		e.mu.Unlock()
		return nil
	}
	e.cur = nil
	e.position = float64(sec)
	e.mu.Unlock()

	stopSession(sess)
	if err := e.startLocked(sec); err != nil {
		e.mu.Lock()
		e.playing = false
		e.mu.Unlock()
		e.emit(player.Event{Kind: player.EventPause})
		return err
	}
	return nil
}

func (e *VoiceElement) SetLoop(loop bool) {
	e.mu.Lock()
	e.loop = loop
	e.mu.Unlock()
}

func (e *VoiceElement) Unload() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	sess := e.cur
	e.cur = nil
	e.playing = false
	e.src = nil
	e.input = Resolved{}
	e.segments = nil
	e.position = 0
	e.duration = 0
	e.mu.Unlock()
	stopSession(sess)
}

// Position is the last sent position in seconds.
func (e *VoiceElement) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func stopSession(sess *playSession) {
	if sess == nil {
		return
	}
	sess.cancel()
	select {
	case <-sess.done:
	case <-time.After(stopWaitTimeout):
		slog.Warn("play session did not stop in time")
	}
}

func (e *VoiceElement) sendLoop(vc *discordgo.VoiceConnection, sess *playSession) {
	natural := false
	defer func() {
		sess.cancel()
		sess.buf.Close()
		sess.pcm.Close()
		<-sess.produced
		sess.enc.Close()
		close(sess.done)
		if natural {
			go e.finish(sess)
		}
	}()

	ensureVoiceChannels(vc)
	_ = vc.Speaking(true)
	defer vc.Speaking(false)

	go e.produce(sess)
	natural = e.consume(vc, sess)
	if err := sess.pcm.Err(); err != nil && natural {
		e.emit(player.Event{Kind: player.EventError, Err: err})
	}
}

func (e *VoiceElement) produce(sess *playSession) {
	defer close(sess.produced)
	defer sess.buf.MarkEOS()

	r := bufio.NewReaderSize(sess.pcm.Stdout(), 128*1024)
	frame := make([]byte, frameBytes)
	var packets int64

	push := func(pkt []byte) error {
		offset := time.Duration(packets) * frameDuration
		packets++
		for !sess.buf.Push(pkt, offset) {
			if sess.buf.Ended() {
				return io.ErrClosedPipe
			}
			select {
			case <-sess.ctx.Done():
				return sess.ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
		}
		return nil
	}

	for {
		n, err := io.ReadFull(r, frame)
		last := errors.Is(err, io.ErrUnexpectedEOF)
		if last {
			// pad the tail to a whole frame
			clear(frame[n:])
		} else if err != nil {
			break
		}
		if err := sess.enc.EncodeFrame(frame, push); err != nil {
			if sess.ctx.Err() == nil {
				slog.Warn("opus encode failed", "guildID", e.guildID, "err", err)
			}
			return
		}
		if last {
			break
		}
	}
	if sess.ctx.Err() == nil {
		_ = sess.enc.Flush(push)
	}
}

// consume sends packets at real time pace. It reports whether the stream
// ran to its end rather than being stopped.
func (e *VoiceElement) consume(vc *discordgo.VoiceConnection, sess *playSession) bool {
	deadline := time.Now().Add(10 * time.Second)
	for sess.buf.BufferedCount() < prefillPackets && !sess.buf.Ended() {
		if time.Now().After(deadline) {
			slog.Warn("buffer fill timeout", "guildID", e.guildID)
			break
		}
		select {
		case <-sess.ctx.Done():
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}

	e.mu.Lock()
	segs := e.segments
	e.mu.Unlock()

	start := time.Now()
	var lastUpdate time.Time
	dropped := 0
	skipping := false
	for {
		pkt, ok := sess.buf.Pop(sess.ctx)
		if !ok {
			return sess.ctx.Err() == nil
		}

		if d := time.Until(start.Add(pkt.offset)); d > 0 {
			select {
			case <-sess.ctx.Done():
				return false
			case <-time.After(d):
			}
		}

		select {
		case <-sess.ctx.Done():
			return false
		case vc.OpusSend <- pkt.data:
			dropped = 0
		case <-time.After(200 * time.Millisecond):
			dropped++
			slog.Debug("dropped packet", "guildID", e.guildID, "consecutive", dropped)
		}

		pos := float64(sess.start) + (pkt.offset + frameDuration).Seconds()
		e.mu.Lock()
		if e.cur == sess {
			e.position = pos
		}
		e.mu.Unlock()

		if now := time.Now(); now.Sub(lastUpdate) >= timeUpdateEvery {
			lastUpdate = now
			e.emit(player.Event{Kind: player.EventTimeUpdate, Seq: sess.seq, Position: pos})
		}

		if !skipping {
			if to, ok := sponsorblock.SkipTarget(segs, pos); ok {
				skipping = true
				go e.skip(sess, int(math.Ceil(to)))
			}
		}
	}
}

// skip restarts sess at to, past a sponsor segment.
func (e *VoiceElement) skip(sess *playSession, to int) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.cur != sess {
		e.mu.Unlock()
		return
	}
	if e.duration > 0 {
		to = min(to, e.duration)
	}
	e.cur = nil
	e.position = float64(to)
	e.mu.Unlock()

	stopSession(sess)
	slog.Info("skipping segment", "guildID", e.guildID, "to", to)
	if err := e.startLocked(to); err != nil {
		e.mu.Lock()
		e.playing = false
		e.mu.Unlock()
		e.emit(player.Event{Kind: player.EventError, Err: err})
		e.emit(player.Event{Kind: player.EventPause})
		return
	}
	e.emit(player.Event{Kind: player.EventTimeUpdate, Seq: sess.seq, Position: float64(to)})
}

// finish handles the natural end of sess: restart when looping, else end.
func (e *VoiceElement) finish(sess *playSession) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.cur != sess {
		e.mu.Unlock()
		return
	}
	e.cur = nil
	loop := e.loop
	if !loop {
		e.playing = false
		e.position = float64(e.duration)
	}
	e.mu.Unlock()

	if !loop {
		slog.Info("episode ended", "guildID", e.guildID)
		e.emit(player.Event{Kind: player.EventEnded, Seq: sess.seq})
		return
	}
	if err := e.startLocked(0); err != nil {
		e.mu.Lock()
		e.playing = false
		e.mu.Unlock()
		e.emit(player.Event{Kind: player.EventError, Err: err})
		e.emit(player.Event{Kind: player.EventPause})
	}
}
