package audio

import "time"

// NullBackend produces silent sinks that advance with the wall clock.
// Used when NO_AUDIO=1 and by engine tests.
type NullBackend struct {
	// FixedDurationMs, when non-zero, is reported by every opened sink.
	FixedDurationMs int64
}

func NewNullBackend() *NullBackend {
	return &NullBackend{}
}

func (b *NullBackend) Open(path string) (Sink, error) {
	return &nullSink{
		startedAt:  time.Now(),
		durationMs: b.FixedDurationMs,
	}, nil
}

func (b *NullBackend) Close() {}

type nullSink struct {
	startedAt  time.Time
	durationMs int64
	pausedAt   time.Time
	pausedMs   int64
	paused     bool
	gain       float64
	closed     bool
}

func (s *nullSink) Play() {
	if s.paused {
		s.pausedMs += time.Since(s.pausedAt).Milliseconds()
		s.paused = false
	}
}

func (s *nullSink) Pause() {
	if !s.paused {
		s.pausedAt = time.Now()
		s.paused = true
	}
}

func (s *nullSink) SetGain(g float64) {
	s.gain = g
}

func (s *nullSink) Empty() bool {
	if s.closed {
		return true
	}
	if s.durationMs <= 0 {
		return false
	}
	return s.PositionMs() >= s.durationMs
}

func (s *nullSink) PositionMs() int64 {
	if s.closed {
		return 0
	}
	elapsed := time.Since(s.startedAt).Milliseconds() - s.pausedMs
	if s.paused {
		elapsed -= time.Since(s.pausedAt).Milliseconds()
	}
	if s.durationMs > 0 && elapsed > s.durationMs {
		return s.durationMs
	}
	return elapsed
}

func (s *nullSink) DurationMs() int64 {
	return s.durationMs
}

func (s *nullSink) SeekMs(ms int64) error {
	s.startedAt = time.Now().Add(-time.Duration(ms) * time.Millisecond)
	s.pausedMs = 0
	if s.paused {
		s.pausedAt = time.Now()
	}
	return nil
}

func (s *nullSink) Close() {
	s.closed = true
}
