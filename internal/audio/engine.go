package audio

import (
	"context"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/transfer"
	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

// maxPlayRetries bounds re-issuing a failed play request before giving
// up and auto-advancing.
const maxPlayRetries = 1

// pendingPlay is the one in-flight play request awaiting cache
// readiness. A transfer reply whose token differs is stale and dropped.
type pendingPlay struct {
	token   uint64
	key     transfer.Key
	title   string
	url     string
	retries int
}

// Engine owns the audio output and the active sink. It runs on a
// dedicated OS thread so audio handles never cross threads; everything
// reaches it through the command channel.
type Engine struct {
	backend Backend
	cmds    chan api.AudioCommand
	events  chan api.AudioEvent

	transferCmds chan<- transfer.Command
	transferEvts <-chan transfer.Event

	pending   *pendingPlay
	nextToken uint64

	current      Sink
	currentKey   transfer.Key
	currentPath  string
	currentTitle string
	playID       uint64
	endedForPlay uint64 // playID already reported as ended; 0 = none

	paused      bool
	volume      float64
	crossfadeMs int64
	fade        *crossfade

	log *logrus.Entry
}

// NewEngine creates an audio engine over backend and the transfer pool
// channels.
func NewEngine(backend Backend, pool *transfer.Pool, volume float64, crossfadeMs int64, log *logrus.Entry) *Engine {
	return &Engine{
		backend:      backend,
		cmds:         make(chan api.AudioCommand, 16),
		events:       make(chan api.AudioEvent, 32),
		transferCmds: pool.Commands(),
		transferEvts: pool.Events(),
		nextToken:    1,
		volume:       volume,
		crossfadeMs:  crossfadeMs,
		log:          log,
	}
}

// Commands returns the engine's command channel.
func (e *Engine) Commands() chan<- api.AudioCommand {
	return e.cmds
}

// Events returns the engine's event channel.
func (e *Engine) Events() <-chan api.AudioEvent {
	return e.events
}

// Run is the engine loop. It locks its goroutine to an OS thread so
// the backend's handles stay confined.
func (e *Engine) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	fadeTick := time.NewTicker(20 * time.Millisecond)
	defer fadeTick.Stop()
	endTick := time.NewTicker(200 * time.Millisecond)
	defer endTick.Stop()

	for {
		select {
		case <-ctx.Done():
			e.stopPlayback()
			e.backend.Close()
			return
		case <-fadeTick.C:
			e.tickFade()
		case <-endTick.C:
			e.tickEnd()
		case evt := <-e.transferEvts:
			e.handleTransferEvent(evt)
		case cmd := <-e.cmds:
			e.handleCommand(cmd)
		}
	}
}

func (e *Engine) tickFade() {
	if e.fade == nil {
		return
	}
	if e.fade.apply(e.volume) {
		e.fade = nil
		if e.current != nil {
			e.current.SetGain(e.volume)
		}
	}
}

// tickEnd polls the current sink for natural end of track; no
// per-track monitoring thread.
func (e *Engine) tickEnd() {
	if e.current == nil || e.paused {
		return
	}
	if e.endedForPlay == e.playID {
		return
	}
	if e.current.Empty() {
		e.endedForPlay = e.playID
		e.log.WithField("play_id", e.playID).Debug("sink drained")
		e.emit(api.AudioEvent{Type: api.AudioEvtEnded, PlayID: e.playID, SongID: e.currentKey.SongID})
	}
}

func (e *Engine) handleTransferEvent(evt transfer.Event) {
	switch evt.Type {
	case transfer.EvtReady:
		if e.pending == nil || e.pending.token != evt.Token {
			e.log.WithField("token", evt.Token).Debug("cache ready for stale token, dropped")
			return
		}
		p := e.pending
		e.pending = nil
		if err := e.startPlayback(evt.Key, evt.Path, p.title); err != nil {
			if p.retries < maxPlayRetries {
				p.retries++
				e.log.WithError(err).WithField("song_id", p.key.SongID).Warn("playback failed, retrying")
				e.transferCmds <- transfer.Command{Type: transfer.CmdInvalidate, Key: p.key}
				e.transferCmds <- transfer.Command{
					Type: transfer.CmdRequest, Token: p.token, Key: p.key,
					URL: p.url, Title: p.title, Priority: transfer.PriorityHigh,
				}
				e.pending = p
				return
			}
			e.emit(api.AudioEvent{
				Type: api.AudioEvtError, SongID: p.key.SongID,
				ErrKind: apperr.KindOf(err), Message: err.Error(),
			})
			e.emit(api.AudioEvent{Type: api.AudioEvtEnded, PlayID: e.playID, SongID: p.key.SongID})
		}
	case transfer.EvtFailed:
		if e.pending == nil || e.pending.token != evt.Token {
			return
		}
		p := e.pending
		if p.retries < maxPlayRetries {
			p.retries++
			e.log.WithField("song_id", p.key.SongID).Warn("transfer failed, re-issuing")
			e.transferCmds <- transfer.Command{
				Type: transfer.CmdRequest, Token: p.token, Key: p.key,
				URL: p.url, Title: p.title, Priority: transfer.PriorityHigh,
			}
			return
		}
		e.pending = nil
		e.emit(api.AudioEvent{
			Type: api.AudioEvtError, SongID: p.key.SongID,
			ErrKind: apperr.KindNetwork, Message: evt.Message,
		})
		e.emit(api.AudioEvent{Type: api.AudioEvtEnded, PlayID: e.playID, SongID: p.key.SongID})
	case transfer.EvtCacheCleared:
		e.emit(api.AudioEvent{Type: api.AudioEvtCacheCleared, Files: evt.Files, Bytes: evt.Bytes})
	}
}

func (e *Engine) handleCommand(cmd api.AudioCommand) {
	switch cmd.Type {
	case api.AudioPlayTrack:
		e.playTrack(cmd)
	case api.AudioPrefetch:
		e.transferCmds <- transfer.Command{
			Type:     transfer.CmdRequest,
			Token:    0,
			Key:      transfer.Key{SongID: cmd.SongID, Br: cmd.Br},
			URL:      cmd.URL,
			Title:    cmd.Title,
			Priority: transfer.PriorityLow,
		}
	case api.AudioTogglePause:
		e.togglePause()
	case api.AudioStop:
		e.pending = nil
		e.stopPlayback()
		e.emit(api.AudioEvent{Type: api.AudioEvtStopped})
	case api.AudioSeekToMs:
		e.seekTo(cmd.Ms)
	case api.AudioSetVolume:
		e.volume = clamp01(cmd.Volume)
		if e.fade != nil {
			e.fade.apply(e.volume)
		} else if e.current != nil {
			e.current.SetGain(e.volume)
		}
	case api.AudioSetCrossfadeMs:
		e.crossfadeMs = cmd.CrossfadeMs
		if e.crossfadeMs == 0 {
			e.clearFade()
			if e.current != nil {
				e.current.SetGain(e.volume)
			}
		}
	case api.AudioClearCache:
		e.transferCmds <- transfer.Command{Type: transfer.CmdClearAll, Keep: e.currentPath}
	case api.AudioSetCacheBr:
		e.transferCmds <- transfer.Command{Type: transfer.CmdPurgeNotBr, Br: cmd.Br, Keep: e.currentPath}
	}
}

func (e *Engine) playTrack(cmd api.AudioCommand) {
	if old := e.pending; old != nil {
		e.log.WithFields(logrus.Fields{"old_token": old.token, "song_id": old.key.SongID}).
			Debug("superseding pending play")
		e.transferCmds <- transfer.Command{Type: transfer.CmdCancel, Token: old.token, Key: old.key}
		e.pending = nil
	}
	e.clearFade()

	token := e.nextToken
	e.nextToken++
	if e.nextToken == 0 {
		e.nextToken = 1
	}

	key := transfer.Key{SongID: cmd.SongID, Br: cmd.Br}
	e.pending = &pendingPlay{token: token, key: key, title: cmd.Title, url: cmd.URL}

	e.log.WithFields(logrus.Fields{"song_id": cmd.SongID, "br": cmd.Br, "token": token}).
		Info("requesting audio")
	e.transferCmds <- transfer.Command{
		Type: transfer.CmdRequest, Token: token, Key: key,
		URL: cmd.URL, Title: cmd.Title, Priority: transfer.PriorityHigh,
	}
}

func (e *Engine) togglePause() {
	// A play command with no sink means we restarted with persisted
	// state; the reducer must resolve a fresh URL first.
	if e.current == nil {
		e.emit(api.AudioEvent{Type: api.AudioEvtNeedsReload})
		return
	}

	e.paused = !e.paused
	if e.fade != nil {
		if e.paused {
			e.fade.pause()
		} else {
			e.fade.resume()
		}
	} else if e.paused {
		e.current.Pause()
	} else {
		e.current.Play()
	}
	e.emit(api.AudioEvent{Type: api.AudioEvtPaused, Paused: e.paused})
}

func (e *Engine) seekTo(ms int64) {
	e.clearFade()
	if e.current == nil {
		return
	}
	if err := e.current.SeekMs(ms); err != nil {
		e.log.WithError(err).WithField("ms", ms).Warn("seek failed")
		e.emit(api.AudioEvent{
			Type: api.AudioEvtError, ErrKind: apperr.KindDecode,
			Message: "seek failed: " + err.Error(),
		})
		return
	}
	e.current.SetGain(e.volume)
	e.endedForPlay = 0
}

func (e *Engine) startPlayback(key transfer.Key, path, title string) error {
	sink, err := e.backend.Open(path)
	if err != nil {
		return err
	}

	canFade := e.crossfadeMs > 0 && e.current != nil && !e.paused
	if canFade {
		old := e.current
		sink.SetGain(0)
		sink.Play()
		e.fade = newCrossfade(old, sink, e.crossfadeMs)
		e.fade.apply(e.volume)
	} else {
		e.clearFade()
		e.stopSinkOnly()
		if e.paused {
			sink.Pause()
		} else {
			sink.Play()
		}
		sink.SetGain(e.volume)
	}

	e.current = sink
	e.currentKey = key
	e.currentPath = path
	e.currentTitle = title
	e.playID++
	e.endedForPlay = 0

	e.log.WithFields(logrus.Fields{"song_id": key.SongID, "path": path}).Debug("playback started")
	e.emit(api.AudioEvent{
		Type:       api.AudioEvtNowPlaying,
		SongID:     key.SongID,
		PlayID:     e.playID,
		Title:      title,
		DurationMs: sink.DurationMs(),
	})
	return nil
}

func (e *Engine) stopSinkOnly() {
	if e.current != nil {
		e.current.Close()
		e.current = nil
	}
}

func (e *Engine) stopPlayback() {
	e.clearFade()
	e.stopSinkOnly()
	e.currentPath = ""
	e.currentTitle = ""
	e.currentKey = transfer.Key{}
	e.endedForPlay = 0
}

func (e *Engine) clearFade() {
	if e.fade != nil {
		e.fade.stop()
		e.fade = nil
	}
}

func (e *Engine) emit(evt api.AudioEvent) {
	select {
	case e.events <- evt:
	default:
		e.log.WithField("type", evt.Type).Warn("audio event dropped, consumer is slow")
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
