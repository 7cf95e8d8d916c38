package audio

import (
	"math"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"

	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

// mixRate is the fixed speaker sample rate; decoded streams at other
// rates are resampled.
const mixRate = beep.SampleRate(44100)

// BeepBackend drives the sound card through the beep speaker. The
// speaker is initialised once; every sink is resampled onto it, which
// lets two sinks coexist during a crossfade.
type BeepBackend struct{}

// NewBeepBackend initialises the speaker. Failure to open the output
// stream is fatal when audio is required.
func NewBeepBackend() (*BeepBackend, error) {
	if err := speaker.Init(mixRate, mixRate.N(time.Second/10)); err != nil {
		return nil, apperr.New(apperr.KindFatal, "speaker init", err)
	}
	return &BeepBackend{}, nil
}

func (b *BeepBackend) Open(path string) (Sink, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.New(apperr.KindIO, "open audio file", err)
	}

	streamer, format, err := Decode(f, path)
	if err != nil {
		f.Close()
		return nil, apperr.New(apperr.KindDecode, "decode audio", err)
	}

	s := &beepSink{
		streamer: streamer,
		format:   format,
		ctrl:     &beep.Ctrl{Streamer: streamer},
	}
	var out beep.Streamer = s.ctrl
	if format.SampleRate != mixRate {
		out = beep.Resample(4, format.SampleRate, mixRate, out)
	}
	s.vol = &effects.Volume{Streamer: out, Base: 2, Silent: true}

	speaker.Play(s.vol)
	return s, nil
}

func (b *BeepBackend) Close() {
	speaker.Clear()
}

type beepSink struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume
}

func (s *beepSink) Play() {
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
}

func (s *beepSink) Pause() {
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

func (s *beepSink) SetGain(g float64) {
	speaker.Lock()
	if g <= 0.001 {
		s.vol.Silent = true
	} else {
		s.vol.Silent = false
		// effects.Volume applies Base^Volume, so log2 keeps the
		// amplitude scaling linear in g.
		s.vol.Volume = math.Log2(g)
	}
	speaker.Unlock()
}

func (s *beepSink) Empty() bool {
	speaker.Lock()
	defer speaker.Unlock()
	if s.ctrl.Streamer == nil {
		return true
	}
	return s.streamer.Position() >= s.streamer.Len()
}

func (s *beepSink) PositionMs() int64 {
	speaker.Lock()
	defer speaker.Unlock()
	return s.format.SampleRate.D(s.streamer.Position()).Milliseconds()
}

func (s *beepSink) DurationMs() int64 {
	speaker.Lock()
	defer speaker.Unlock()
	return s.format.SampleRate.D(s.streamer.Len()).Milliseconds()
}

func (s *beepSink) SeekMs(ms int64) error {
	speaker.Lock()
	defer speaker.Unlock()
	pos := s.format.SampleRate.N(time.Duration(ms) * time.Millisecond)
	if pos < 0 {
		pos = 0
	}
	if max := s.streamer.Len() - 1; pos > max {
		pos = max
	}
	return s.streamer.Seek(pos)
}

func (s *beepSink) Close() {
	speaker.Lock()
	s.ctrl.Streamer = nil
	speaker.Unlock()
	s.streamer.Close()
}
