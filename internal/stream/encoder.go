package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asticode/go-astiav"
)

const (
	sampleRate    = 48000
	channels      = 2
	frameSize     = 960 // samples per channel in 20 ms
	frameDuration = 20 * time.Millisecond
	frameBytes    = frameSize * channels * 2
)

type OpusPacketHandler func(pkt []byte) error

// Encoder turns 20 ms s16le stereo frames into Opus packets with libopus.
type Encoder struct {
	cc     *astiav.CodecContext
	frame  *astiav.Frame
	packet *astiav.Packet
	pts    int64
}

func NewEncoder(bitrate int64) (*Encoder, error) {
	codec := astiav.FindEncoderByName("libopus")
	if codec == nil {
		return nil, errors.New("libopus encoder not found (check ffmpeg installation)")
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("failed to allocate codec context for libopus")
	}
	cc.SetSampleRate(sampleRate)
	cc.SetChannelLayout(astiav.ChannelLayoutStereo)
	cc.SetSampleFormat(astiav.SampleFormatS16)
	cc.SetTimeBase(astiav.NewRational(1, sampleRate))
	cc.SetBitRate(bitrate)

	opts := astiav.NewDictionary()
	defer opts.Free()
	_ = opts.Set("frame_duration", "20", 0)
	// speech-heavy content, but music beds sound better in audio mode
	_ = opts.Set("application", "audio", 0)

	if err := cc.Open(codec, opts); err != nil {
		cc.Free()
		return nil, fmt.Errorf("open opus encoder: %w", err)
	}
	slog.Debug("opus encoder opened", "rate", cc.SampleRate(), "bitrate", cc.BitRate())

	frame := astiav.AllocFrame()
	frame.SetSampleRate(sampleRate)
	frame.SetChannelLayout(astiav.ChannelLayoutStereo)
	frame.SetSampleFormat(astiav.SampleFormatS16)
	frame.SetNbSamples(frameSize)
	if err := frame.AllocBuffer(0); err != nil {
		frame.Free()
		cc.Free()
		return nil, fmt.Errorf("allocate frame buffer: %w", err)
	}

	return &Encoder{
		cc:     cc,
		frame:  frame,
		packet: astiav.AllocPacket(),
	}, nil
}

func (e *Encoder) Close() {
	if e.packet != nil {
		e.packet.Free()
	}
	if e.frame != nil {
		e.frame.Free()
	}
	if e.cc != nil {
		e.cc.Free()
	}
}

// EncodeFrame expects exactly one 20 ms frame of interleaved s16le PCM.
func (e *Encoder) EncodeFrame(pcm []byte, onPacket OpusPacketHandler) error {
	if len(pcm) != frameBytes {
		return fmt.Errorf("invalid PCM frame size: expected %d bytes, got %d", frameBytes, len(pcm))
	}
	if err := e.frame.MakeWritable(); err != nil {
		return fmt.Errorf("frame writable: %w", err)
	}
	if err := e.frame.Data().SetBytes(pcm, 0); err != nil {
		return fmt.Errorf("set frame bytes: %w", err)
	}
	e.frame.SetPts(e.pts)
	e.pts += frameSize
	if err := e.cc.SendFrame(e.frame); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return e.drain(onPacket)
}

// Flush drains packets still held by the encoder.
func (e *Encoder) Flush(onPacket OpusPacketHandler) error {
	if err := e.cc.SendFrame(nil); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return nil
		}
		return fmt.Errorf("send flush frame: %w", err)
	}
	return e.drain(onPacket)
}

func (e *Encoder) drain(onPacket OpusPacketHandler) error {
	for {
		e.packet.Unref()
		if err := e.cc.ReceivePacket(e.packet); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("receive opus packet: %w", err)
		}
		if err := onPacket(e.packet.Data()); err != nil {
			return fmt.Errorf("packet handler: %w", err)
		}
	}
}
