package audio

import "time"

// crossfade ramps gain linearly from the old sink to the new one.
// Driven by the engine's fade tick; pausing freezes the ramp.
type crossfade struct {
	from        Sink
	to          Sink
	start       time.Time
	duration    time.Duration
	pausedAt    time.Time
	pausedTotal time.Duration
}

func newCrossfade(from, to Sink, durationMs int64) *crossfade {
	if durationMs < 1 {
		durationMs = 1
	}
	return &crossfade{
		from:     from,
		to:       to,
		start:    time.Now(),
		duration: time.Duration(durationMs) * time.Millisecond,
	}
}

func (f *crossfade) pause() {
	if f.pausedAt.IsZero() {
		f.pausedAt = time.Now()
	}
	f.from.Pause()
	f.to.Pause()
}

func (f *crossfade) resume() {
	if !f.pausedAt.IsZero() {
		f.pausedTotal += time.Since(f.pausedAt)
		f.pausedAt = time.Time{}
	}
	f.from.Play()
	f.to.Play()
}

// apply sets both gains for the current ramp position. Returns true
// when the fade is complete; the old sink is closed at that point.
func (f *crossfade) apply(baseVolume float64) bool {
	now := time.Now()
	if !f.pausedAt.IsZero() {
		now = f.pausedAt
	}
	elapsed := now.Sub(f.start) - f.pausedTotal
	t := float64(elapsed) / float64(f.duration)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	f.from.SetGain(baseVolume * (1 - t))
	f.to.SetGain(baseVolume * t)
	if t >= 1 {
		f.from.Close()
		return true
	}
	return false
}

// stop abandons the fade, closing the old sink.
func (f *crossfade) stop() {
	f.from.Close()
}
