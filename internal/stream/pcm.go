package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/asticode/go-astiav"
)

// PCMOptions control how an input is opened.
type PCMOptions struct {
	// Headers is a CRLF separated header block for http inputs.
	Headers  string
	StartSec int
}

// PCMStreamer decodes an input and writes s16le stereo 48 kHz PCM to the
// reader returned by Stdout.
type PCMStreamer struct {
	fc          *astiav.FormatContext
	audioStream *astiav.Stream
	decCtx      *astiav.CodecContext
	swr         *astiav.SoftwareResampleContext
	srcFrame    *astiav.Frame
	dstFrame    *astiav.Frame
	pkt         *astiav.Packet

	pr *io.PipeReader
	pw *io.PipeWriter

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	duration int

	errMu  sync.Mutex
	runErr error
}

func isRemote(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

func openInput(input string, opts PCMOptions) (*astiav.FormatContext, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("alloc format context")
	}

	dict := astiav.NewDictionary()
	defer dict.Free()
	if isRemote(input) {
		_ = dict.Set("reconnect", "1", 0)
		_ = dict.Set("reconnect_streamed", "1", 0)
		_ = dict.Set("reconnect_delay_max", "5", 0)
		if opts.Headers != "" {
			_ = dict.Set("headers", opts.Headers, 0)
		}
	}

	if err := fc.OpenInput(input, nil, dict); err != nil {
		fc.Free()
		return nil, fmt.Errorf("open input: %w", err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("find stream info: %w", err)
	}
	return fc, nil
}

// containerSeconds is the container duration, 0 when unknown.
func containerSeconds(fc *astiav.FormatContext) int {
	d := fc.Duration()
	if d <= 0 {
		return 0
	}
	return int(d / 1_000_000)
}

// ProbeDuration opens input only to read its duration in seconds.
func ProbeDuration(input string, headers string) (int, error) {
	fc, err := openInput(input, PCMOptions{Headers: headers})
	if err != nil {
		return 0, err
	}
	defer func() {
		fc.CloseInput()
		fc.Free()
	}()
	return containerSeconds(fc), nil
}

func StartPCMStream(ctx context.Context, input string, opts PCMOptions) (*PCMStreamer, error) {
	fc, err := openInput(input, opts)
	if err != nil {
		return nil, err
	}

	st, codec, err := fc.FindBestStream(astiav.MediaTypeAudio, -1, -1)
	if err != nil || st == nil || codec == nil {
		fc.CloseInput()
		fc.Free()
		if err != nil {
			return nil, fmt.Errorf("find best audio stream: %w", err)
		}
		return nil, errors.New("no audio stream found")
	}

	decCtx := astiav.AllocCodecContext(codec)
	if decCtx == nil {
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("alloc codec context")
	}
	if err := decCtx.FromCodecParameters(st.CodecParameters()); err != nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("codec from params: %w", err)
	}
	decCtx.SetTimeBase(st.TimeBase())
	if err := decCtx.Open(codec, nil); err != nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("open decoder: %w", err)
	}

	if opts.StartSec > 0 {
		tb := st.TimeBase()
		ts := int64(float64(opts.StartSec) / tb.Float64())
		if err := fc.SeekFrame(st.Index(), ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
			decCtx.Free()
			fc.CloseInput()
			fc.Free()
			return nil, fmt.Errorf("seek to %ds: %w", opts.StartSec, err)
		}
		decCtx.FlushBuffers()
	}

	pr, pw := io.Pipe()
	runCtx, cancel := context.WithCancel(ctx)
	s := &PCMStreamer{
		fc:          fc,
		audioStream: st,
		decCtx:      decCtx,
		swr:         astiav.AllocSoftwareResampleContext(),
		srcFrame:    astiav.AllocFrame(),
		dstFrame:    astiav.AllocFrame(),
		pkt:         astiav.AllocPacket(),
		pr:          pr,
		pw:          pw,
		cancel:      cancel,
		done:        make(chan struct{}),
		duration:    containerSeconds(fc),
	}

	go s.run(runCtx)
	return s, nil
}

func (s *PCMStreamer) Stdout() io.Reader { return s.pr }

// Duration is the probed length of the input in seconds, 0 if unknown.
func (s *PCMStreamer) Duration() int { return s.duration }

// Err is the decode error that ended the stream early, if any.
func (s *PCMStreamer) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.runErr
}

// Close stops decoding and frees every ffmpeg resource once the decode
// goroutine has returned.
func (s *PCMStreamer) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.pr.Close()
		<-s.done

		s.pkt.Free()
		s.srcFrame.Free()
		s.dstFrame.Free()
		s.swr.Free()
		s.decCtx.Free()
		s.fc.CloseInput()
		s.fc.Free()
	})
}

func (s *PCMStreamer) run(ctx context.Context) {
	defer close(s.done)
	defer s.pw.Close()

	for {
		if ctx.Err() != nil {
			return
		}

		s.pkt.Unref()
		if err := s.fc.ReadFrame(s.pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				if err := s.decode(nil); err != nil {
					s.setErr(err)
				}
				return
			}
			if errors.Is(err, astiav.ErrEagain) {
				continue
			}
			s.setErr(fmt.Errorf("read frame: %w", err))
			return
		}

		if s.pkt.StreamIndex() != s.audioStream.Index() {
			continue
		}
		if err := s.decode(s.pkt); err != nil {
			s.setErr(err)
			return
		}
	}
}

// decode sends pkt (nil flushes) and writes every frame the decoder returns.
func (s *PCMStreamer) decode(pkt *astiav.Packet) error {
	if err := s.decCtx.SendPacket(pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
		if pkt == nil && errors.Is(err, astiav.ErrEof) {
			return nil
		}
		return fmt.Errorf("send packet: %w", err)
	}
	for {
		s.srcFrame.Unref()
		if err := s.decCtx.ReceiveFrame(s.srcFrame); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("receive frame: %w", err)
		}
		if err := s.writePCM(s.srcFrame); err != nil {
			return err
		}
	}
}

func (s *PCMStreamer) writePCM(src *astiav.Frame) error {
	// left without buffers so the resampler sizes the output itself
	s.dstFrame.Unref()
	s.dstFrame.SetChannelLayout(astiav.ChannelLayoutStereo)
	s.dstFrame.SetSampleRate(sampleRate)
	s.dstFrame.SetSampleFormat(astiav.SampleFormatS16)

	if err := s.swr.ConvertFrame(src, s.dstFrame); err != nil {
		return fmt.Errorf("swr convert: %w", err)
	}
	if s.dstFrame.NbSamples() == 0 {
		return nil
	}
	b, err := s.dstFrame.Data().Bytes(0)
	if err != nil {
		return fmt.Errorf("dst bytes: %w", err)
	}
	// planes can be padded past the sample data
	if n := s.dstFrame.NbSamples() * channels * 2; len(b) > n {
		b = b[:n]
	}
	if _, err := s.pw.Write(b); err != nil {
		return fmt.Errorf("write pcm: %w", err)
	}
	return nil
}

func (s *PCMStreamer) setErr(err error) {
	if err == nil || errors.Is(err, io.ErrClosedPipe) {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.runErr == nil {
		s.runErr = err
	}
}
