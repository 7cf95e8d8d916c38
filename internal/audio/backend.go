package audio

// Sink is one playing (or paused) audio stream. Sinks are confined to
// the engine's thread; they are never shared.
type Sink interface {
	Play()
	Pause()
	// SetGain sets the linear output gain (0 silences the sink).
	SetGain(g float64)
	// Empty reports whether the stream has drained to its end.
	Empty() bool
	PositionMs() int64
	DurationMs() int64
	SeekMs(ms int64) error
	Close()
}

// Backend opens audio files into sinks. The beep backend drives the
// sound card; the null backend (NO_AUDIO=1) produces silent sinks.
type Backend interface {
	Open(path string) (Sink, error)
	Close()
}
