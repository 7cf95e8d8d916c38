package audio

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/transfer"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return logrus.NewEntry(log)
}

// newTestEngine builds an engine around the null backend with buffered
// channels so handlers can be driven synchronously.
func newTestEngine(backend Backend) (*Engine, chan transfer.Command) {
	transferCmds := make(chan transfer.Command, 64)
	return &Engine{
		backend:      backend,
		cmds:         make(chan api.AudioCommand, 16),
		events:       make(chan api.AudioEvent, 64),
		transferCmds: transferCmds,
		transferEvts: make(chan transfer.Event, 16),
		nextToken:    1,
		volume:       0.5,
		log:          testLog(),
	}, transferCmds
}

func drainEvents(e *Engine) []api.AudioEvent {
	var out []api.AudioEvent
	for {
		select {
		case evt := <-e.events:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func playCmd(songID int64) api.AudioCommand {
	return api.AudioCommand{Type: api.AudioPlayTrack, SongID: songID, Br: 128, URL: "http://x/", Title: "t"}
}

func TestEngine_TokenMonotonicity(t *testing.T) {
	e, _ := newTestEngine(NewNullBackend())

	var last uint64
	for i := int64(1); i <= 5; i++ {
		e.handleCommand(playCmd(i))
		if e.pending == nil {
			t.Fatal("expected pending play")
		}
		if e.pending.token <= last {
			t.Errorf("token %d not greater than previous %d", e.pending.token, last)
		}
		last = e.pending.token
	}
}

func TestEngine_TokenWraparoundSaturatesAboveZero(t *testing.T) {
	e, _ := newTestEngine(NewNullBackend())
	e.nextToken = ^uint64(0) // next allocation wraps

	e.handleCommand(playCmd(1))
	if e.pending.token != ^uint64(0) {
		t.Fatalf("unexpected token %d", e.pending.token)
	}
	e.handleCommand(playCmd(2))
	if e.pending.token != 1 {
		t.Errorf("expected wraparound to 1, got %d", e.pending.token)
	}
}

func TestEngine_RapidNextPlaysOnlyLast(t *testing.T) {
	e, cmds := newTestEngine(NewNullBackend())

	e.handleCommand(playCmd(1)) // A
	tokA := e.pending.token
	e.handleCommand(playCmd(2)) // B
	tokB := e.pending.token
	e.handleCommand(playCmd(3)) // C
	tokC := e.pending.token

	// A and B were superseded; their Ready events are stale.
	e.handleTransferEvent(transfer.Event{Type: transfer.EvtReady, Token: tokA, Key: transfer.Key{SongID: 1, Br: 128}, Path: "a"})
	e.handleTransferEvent(transfer.Event{Type: transfer.EvtReady, Token: tokB, Key: transfer.Key{SongID: 2, Br: 128}, Path: "b"})

	if e.current != nil {
		t.Fatal("stale Ready events must not start playback")
	}

	e.handleTransferEvent(transfer.Event{Type: transfer.EvtReady, Token: tokC, Key: transfer.Key{SongID: 3, Br: 128}, Path: "c"})
	if e.current == nil || e.currentKey.SongID != 3 {
		t.Fatalf("expected C playing, got key %+v", e.currentKey)
	}

	var nowPlaying int
	for _, evt := range drainEvents(e) {
		if evt.Type == api.AudioEvtNowPlaying {
			nowPlaying++
			if evt.SongID != 3 {
				t.Errorf("unexpected NowPlaying for song %d", evt.SongID)
			}
		}
	}
	if nowPlaying != 1 {
		t.Errorf("expected exactly one NowPlaying, got %d", nowPlaying)
	}

	// Cancels were issued for the two superseded tokens.
	var cancels []uint64
	for {
		select {
		case c := <-cmds:
			if c.Type == transfer.CmdCancel {
				cancels = append(cancels, c.Token)
			}
			continue
		default:
		}
		break
	}
	if len(cancels) != 2 || cancels[0] != tokA || cancels[1] != tokB {
		t.Errorf("expected cancels for A and B, got %v", cancels)
	}
}

func TestEngine_TransferFailureRetriesThenEnds(t *testing.T) {
	e, cmds := newTestEngine(NewNullBackend())

	e.handleCommand(playCmd(1))
	tok := e.pending.token
	<-cmds // original request

	e.handleTransferEvent(transfer.Event{Type: transfer.EvtFailed, Token: tok, Message: "boom"})
	if e.pending == nil || e.pending.retries != 1 {
		t.Fatal("expected one retry to be issued")
	}
	re := <-cmds
	if re.Type != transfer.CmdRequest || re.Token != tok {
		t.Fatalf("expected re-issued request, got %+v", re)
	}

	e.handleTransferEvent(transfer.Event{Type: transfer.EvtFailed, Token: tok, Message: "boom"})
	if e.pending != nil {
		t.Error("pending should be cleared after retries are exhausted")
	}

	events := drainEvents(e)
	var sawError, sawEnded bool
	for _, evt := range events {
		if evt.Type == api.AudioEvtError {
			sawError = true
		}
		if evt.Type == api.AudioEvtEnded {
			sawEnded = true
		}
	}
	if !sawError || !sawEnded {
		t.Errorf("expected Error then Ended, got %+v", events)
	}
}

func TestEngine_StaleFailureIgnored(t *testing.T) {
	e, _ := newTestEngine(NewNullBackend())

	e.handleCommand(playCmd(1))
	e.handleCommand(playCmd(2))
	stale := e.pending.token - 1

	e.handleTransferEvent(transfer.Event{Type: transfer.EvtFailed, Token: stale, Message: "boom"})
	if e.pending == nil || e.pending.retries != 0 {
		t.Error("stale failure must not touch the pending play")
	}
}

func TestEngine_TogglePauseWithoutSinkEmitsNeedsReload(t *testing.T) {
	e, _ := newTestEngine(NewNullBackend())

	e.togglePause()

	events := drainEvents(e)
	if len(events) != 1 || events[0].Type != api.AudioEvtNeedsReload {
		t.Fatalf("expected NeedsReload, got %+v", events)
	}
}

func TestEngine_EndOfTrackDetectedOnce(t *testing.T) {
	backend := NewNullBackend()
	backend.FixedDurationMs = 10
	e, _ := newTestEngine(backend)

	e.handleCommand(playCmd(1))
	tok := e.pending.token
	e.handleTransferEvent(transfer.Event{Type: transfer.EvtReady, Token: tok, Key: transfer.Key{SongID: 1, Br: 128}, Path: "p"})
	drainEvents(e)

	time.Sleep(30 * time.Millisecond)
	e.tickEnd()
	e.tickEnd() // second poll must not re-report

	var ended int
	for _, evt := range drainEvents(e) {
		if evt.Type == api.AudioEvtEnded {
			ended++
		}
	}
	if ended != 1 {
		t.Errorf("expected exactly one Ended, got %d", ended)
	}
}

func TestEngine_StopClearsPendingAndEmitsNoEnded(t *testing.T) {
	e, _ := newTestEngine(NewNullBackend())

	e.handleCommand(playCmd(1))
	tok := e.pending.token
	e.handleTransferEvent(transfer.Event{Type: transfer.EvtReady, Token: tok, Key: transfer.Key{SongID: 1, Br: 128}, Path: "p"})
	drainEvents(e)

	e.handleCommand(api.AudioCommand{Type: api.AudioStop})
	e.tickEnd()

	events := drainEvents(e)
	for _, evt := range events {
		if evt.Type == api.AudioEvtEnded {
			t.Error("Stop must not be followed by Ended")
		}
	}
	if e.pending != nil || e.current != nil {
		t.Error("Stop should clear pending and sink")
	}
}

func TestEngine_CrossfadeKeepsBothSinksThenDropsOld(t *testing.T) {
	e, _ := newTestEngine(NewNullBackend())
	e.crossfadeMs = 40

	e.handleCommand(playCmd(1))
	e.handleTransferEvent(transfer.Event{Type: transfer.EvtReady, Token: e.pending.token, Key: transfer.Key{SongID: 1, Br: 128}, Path: "a"})
	first := e.current

	e.handleCommand(playCmd(2))
	e.handleTransferEvent(transfer.Event{Type: transfer.EvtReady, Token: e.pending.token, Key: transfer.Key{SongID: 2, Br: 128}, Path: "b"})

	if e.fade == nil {
		t.Fatal("expected crossfade to start")
	}
	if first.(*nullSink).closed {
		t.Error("old sink must stay alive during the fade")
	}

	time.Sleep(60 * time.Millisecond)
	e.tickFade()

	if e.fade != nil {
		t.Error("fade should be complete")
	}
	if !first.(*nullSink).closed {
		t.Error("old sink should be closed after the fade")
	}
	if e.currentKey.SongID != 2 {
		t.Errorf("expected song 2 current, got %d", e.currentKey.SongID)
	}
}
