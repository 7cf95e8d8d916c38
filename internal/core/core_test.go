package core

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/state"
)

type coreHarness struct {
	c     *Core
	gwHi  chan api.GatewayCommand
	gwLo  chan api.GatewayCommand
	audio chan api.AudioCommand
}

func newHarness(t *testing.T, dataDir string) *coreHarness {
	t.Helper()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)

	h := &coreHarness{
		gwHi:  make(chan api.GatewayCommand, 64),
		gwLo:  make(chan api.GatewayCommand, 64),
		audio: make(chan api.AudioCommand, 64),
	}
	h.c = New(Deps{
		DataDir:       dataDir,
		Settings:      state.DefaultSettings(),
		GatewayHi:     h.gwHi,
		GatewayLo:     h.gwLo,
		AudioCommands: h.audio,
		Log:           logrus.NewEntry(log),
	})
	return h
}

// command runs one user command through the reducer and drains effects.
func (h *coreHarness) command(cmd api.Command) {
	fx := &Effects{}
	h.c.handleCommand(cmd, fx)
	h.c.drain(fx)
}

func (h *coreHarness) gatewayEvent(evt api.GatewayEvent) {
	fx := &Effects{}
	h.c.handleGatewayEvent(evt, fx)
	h.c.drain(fx)
}

func (h *coreHarness) audioEvent(evt api.AudioEvent) {
	fx := &Effects{}
	h.c.handleAudioEvent(evt, fx)
	h.c.drain(fx)
}

func (h *coreHarness) tick(now time.Time) {
	fx := &Effects{}
	h.c.handleTick(now, fx)
	h.c.drain(fx)
}

func (h *coreHarness) nextHi(t *testing.T) api.GatewayCommand {
	t.Helper()
	select {
	case cmd := <-h.gwHi:
		return cmd
	default:
		t.Fatal("expected a high-priority gateway command")
		return api.GatewayCommand{}
	}
}

func (h *coreHarness) nextAudio(t *testing.T) api.AudioCommand {
	t.Helper()
	select {
	case cmd := <-h.audio:
		return cmd
	default:
		t.Fatal("expected an audio command")
		return api.AudioCommand{}
	}
}

func (h *coreHarness) noHi(t *testing.T) {
	t.Helper()
	select {
	case cmd := <-h.gwHi:
		t.Fatalf("unexpected gateway command: %+v", cmd)
	default:
	}
}

func drainChan[T any](ch chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func queueOf(h *coreHarness, ids ...int64) {
	songs := make([]api.Song, len(ids))
	for i, id := range ids {
		songs[i] = api.Song{ID: id, Name: "song", Artists: "artist", DurationMs: 180000}
	}
	h.c.app.Queue.SetSongs(songs, 0)
}

func TestCore_QrLoginSuccess(t *testing.T) {
	h := newHarness(t, t.TempDir())

	h.command(api.Command{Type: api.CmdLoginGenerateQr})
	qrReq := h.nextHi(t)
	if qrReq.Type != api.GwLoginQrKey {
		t.Fatalf("expected LoginQrKey, got %+v", qrReq)
	}

	h.gatewayEvent(api.GatewayEvent{Type: api.GwEvtLoginQrKey, ReqID: qrReq.ReqID, Unikey: "K"})
	if h.c.app.QrASCII == "" || !h.c.app.QrPolling {
		t.Fatal("expected rendered QR and polling enabled")
	}

	// Poll cycle: 801, 801, 802, then 803.
	now := time.Now()
	for i, code := range []int{api.QrCodeWaiting, api.QrCodeWaiting, api.QrCodeScanned} {
		now = now.Add(3 * time.Second)
		h.tick(now)
		poll := h.nextHi(t)
		if poll.Type != api.GwLoginQrCheck || poll.Unikey != "K" {
			t.Fatalf("poll %d: expected LoginQrCheck, got %+v", i, poll)
		}
		h.gatewayEvent(api.GatewayEvent{Type: api.GwEvtLoginQrStatus, ReqID: poll.ReqID, QrCode: code})
		if h.c.app.LoggedIn {
			t.Fatalf("poll %d: must not be logged in yet", i)
		}
	}

	now = now.Add(3 * time.Second)
	h.tick(now)
	poll := h.nextHi(t)
	h.gatewayEvent(api.GatewayEvent{Type: api.GwEvtLoginQrStatus, ReqID: poll.ReqID, QrCode: api.QrCodeConfirmed})

	if !h.c.app.LoggedIn {
		t.Fatal("expected Authenticated after 803")
	}
	if h.c.app.QrPolling {
		t.Error("polling must stop after confirmation")
	}

	acctReq := h.nextHi(t)
	if acctReq.Type != api.GwAccountInfo {
		t.Fatalf("expected AccountInfo after login, got %+v", acctReq)
	}
	h.gatewayEvent(api.GatewayEvent{
		Type: api.GwEvtAccount, ReqID: acctReq.ReqID,
		Account: &api.Account{UID: 9, Nickname: "n"},
	})

	plReq := h.nextHi(t)
	if plReq.Type != api.GwUserPlaylists || plReq.UID != 9 {
		t.Fatalf("expected one UserPlaylists request, got %+v", plReq)
	}
	h.noHi(t)
}

func TestCore_StaleSearchDropped(t *testing.T) {
	h := newHarness(t, t.TempDir())

	h.c.app.SearchQuery = "first"
	h.command(api.Command{Type: api.CmdSearchSubmit})
	first := h.nextHi(t)

	h.c.app.SearchQuery = "second"
	h.command(api.Command{Type: api.CmdSearchSubmit})
	second := h.nextHi(t)

	// The older reply lands after the newer request was issued.
	h.gatewayEvent(api.GatewayEvent{
		Type: api.GwEvtSearchSongs, ReqID: first.ReqID,
		Songs: []api.Song{{ID: 1, Name: "old"}},
	})
	if len(h.c.app.SearchResults) != 0 {
		t.Fatal("stale search results must not be applied")
	}

	h.gatewayEvent(api.GatewayEvent{
		Type: api.GwEvtSearchSongs, ReqID: second.ReqID,
		Songs: []api.Song{{ID: 2, Name: "new"}},
	})
	if len(h.c.app.SearchResults) != 1 || h.c.app.SearchResults[0].ID != 2 {
		t.Fatalf("expected only the latest results, got %+v", h.c.app.SearchResults)
	}
}

func TestCore_UnavailableAutoSkip(t *testing.T) {
	h := newHarness(t, t.TempDir())
	queueOf(h, 101, 102, 103) // X, Y, Z

	fx := &Effects{}
	h.c.playCurrent(fx)
	h.c.drain(fx)
	urlReq := h.nextHi(t)
	if urlReq.SongID != 101 {
		t.Fatalf("expected url request for X, got %d", urlReq.SongID)
	}

	h.gatewayEvent(api.GatewayEvent{Type: api.GwEvtSongUrlUnavailable, ReqID: urlReq.ReqID, SongID: 101})

	if got := h.c.app.Queue.Current().ID; got != 102 {
		t.Fatalf("cursor should advance to Y, got %d", got)
	}
	next := h.nextHi(t)
	if next.Type != api.GwSongUrl || next.SongID != 102 {
		t.Fatalf("expected SongUrl request for Y, got %+v", next)
	}
}

func TestCore_SongURLStartsPlayback(t *testing.T) {
	h := newHarness(t, t.TempDir())
	queueOf(h, 7)

	fx := &Effects{}
	h.c.playCurrent(fx)
	h.c.drain(fx)
	urlReq := h.nextHi(t)

	h.gatewayEvent(api.GatewayEvent{
		Type: api.GwEvtSongUrl, ReqID: urlReq.ReqID,
		SongURL: &api.SongURL{ID: 7, URL: "http://cdn/a.mp3", Br: 999000, Code: 200},
	})

	play := h.nextAudio(t)
	if play.Type != api.AudioPlayTrack || play.SongID != 7 || play.URL != "http://cdn/a.mp3" {
		t.Fatalf("expected PlayTrack for 7, got %+v", play)
	}
}

func TestCore_EndedAdvancesAndStopsAtTail(t *testing.T) {
	h := newHarness(t, t.TempDir())
	queueOf(h, 1, 2)
	h.c.app.Queue.SetMode(api.ModeSequential)
	h.c.app.PlayID = 5
	h.c.app.Playing = true

	h.audioEvent(api.AudioEvent{Type: api.AudioEvtEnded, PlayID: 5})
	if got := h.c.app.Queue.Current().ID; got != 2 {
		t.Fatalf("expected advance to song 2, got %d", got)
	}
	h.nextHi(t) // url request for song 2

	h.audioEvent(api.AudioEvent{Type: api.AudioEvtEnded, PlayID: 5})
	if h.c.app.Playing {
		t.Error("end of sequential queue should stop playback")
	}
	stop := h.nextAudio(t)
	if stop.Type != api.AudioStop {
		t.Fatalf("expected Stop at queue end, got %+v", stop)
	}
}

func TestCore_StaleEndedIgnored(t *testing.T) {
	h := newHarness(t, t.TempDir())
	queueOf(h, 1, 2)
	h.c.app.PlayID = 9

	h.audioEvent(api.AudioEvent{Type: api.AudioEvtEnded, PlayID: 3})
	if got := h.c.app.Queue.Current().ID; got != 1 {
		t.Error("ended event for an older play must not advance the queue")
	}
}

func TestCore_NeedsReloadReissuesURL(t *testing.T) {
	h := newHarness(t, t.TempDir())
	queueOf(h, 1, 2, 3)
	h.c.app.Queue.SetCurrentIndex(1)
	h.c.app.PlaySongID = 2

	h.audioEvent(api.AudioEvent{Type: api.AudioEvtNeedsReload})

	req := h.nextHi(t)
	if req.Type != api.GwSongUrl || req.SongID != 2 {
		t.Fatalf("expected fresh SongUrl request for song 2, got %+v", req)
	}
}

func TestCore_RestartResume(t *testing.T) {
	dir := t.TempDir()

	h := newHarness(t, dir)
	queueOf(h, 11, 22, 33)
	h.c.app.Queue.SetCurrentIndex(1)
	h.c.app.PlaySongID = 22
	now := time.Now()
	h.c.app.Progress = Progress{
		StartedAt: now.Add(-45 * time.Second),
		TotalMs:   180000,
		Paused:    true,
		PausedAt:  now,
	}
	h.c.savePlayerState()

	// Restart.
	h2 := newHarness(t, dir)
	a := h2.c.app
	if a.Queue.Len() != 3 || a.Queue.Current() == nil || a.Queue.Current().ID != 22 {
		t.Fatalf("queue not restored, current %+v", a.Queue.Current())
	}
	if a.PlaySongID != 22 {
		t.Errorf("expected play_song_id 22, got %d", a.PlaySongID)
	}
	if !a.Progress.Paused {
		t.Error("restored state must be paused; playback never auto-resumes")
	}
	elapsed := a.Progress.ElapsedMs(time.Now())
	if elapsed < 44000 || elapsed > 46000 {
		t.Errorf("expected elapsed near 45s, got %dms", elapsed)
	}

	// No audio starts on load.
	drainChan(h2.audio)

	// TogglePause goes to the engine, which answers NeedsReload.
	h2.command(api.Command{Type: api.CmdPlayerTogglePause})
	toggle := h2.nextAudio(t)
	if toggle.Type != api.AudioTogglePause {
		t.Fatalf("expected TogglePause, got %+v", toggle)
	}
	h2.audioEvent(api.AudioEvent{Type: api.AudioEvtNeedsReload})
	req := h2.nextHi(t)
	if req.Type != api.GwSongUrl || req.SongID != 22 {
		t.Fatalf("expected SongUrl re-request for Y, got %+v", req)
	}
}

func TestCore_ModeCyclePersists(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir)
	queueOf(h, 1, 2, 3)

	// Default settings start in ListLoop; one cycle moves to SingleLoop.
	h.command(api.Command{Type: api.CmdPlayerCycleMode})
	if h.c.app.Queue.Mode() != api.ModeSingleLoop {
		t.Fatalf("expected SingleLoop after one cycle, got %v", h.c.app.Queue.Mode())
	}

	s := state.LoadSettings(dir)
	if s.PlayMode != "SingleLoop" {
		t.Errorf("mode change must persist immediately, got %q", s.PlayMode)
	}
}

func TestCore_VolumeClamped(t *testing.T) {
	h := newHarness(t, t.TempDir())
	h.c.app.Volume = 0.95

	h.command(api.Command{Type: api.CmdPlayerVolume, Delta: 0.1})
	if h.c.app.Volume != 1.0 {
		t.Errorf("volume must clamp at 1.0, got %f", h.c.app.Volume)
	}
	h.command(api.Command{Type: api.CmdPlayerVolume, Delta: -2})
	if h.c.app.Volume != 0 {
		t.Errorf("volume must clamp at 0, got %f", h.c.app.Volume)
	}
}

func TestCore_PrefetchAfterNowPlaying(t *testing.T) {
	h := newHarness(t, t.TempDir())
	queueOf(h, 1, 2, 3)
	drainChan(h.gwLo)

	h.audioEvent(api.AudioEvent{Type: api.AudioEvtNowPlaying, SongID: 1, PlayID: 1, DurationMs: 1000})

	select {
	case lo := <-h.gwLo:
		if lo.Type != api.GwSongUrl || lo.SongID != 2 {
			t.Fatalf("expected low-priority prefetch for song 2, got %+v", lo)
		}
		// The prefetch reply routes to the audio engine as Prefetch.
		h.gatewayEvent(api.GatewayEvent{
			Type: api.GwEvtSongUrl, ReqID: lo.ReqID,
			SongURL: &api.SongURL{ID: 2, URL: "http://cdn/b.mp3", Code: 200},
		})
		pf := h.nextAudio(t)
		if pf.Type != api.AudioPrefetch || pf.SongID != 2 {
			t.Fatalf("expected Prefetch command, got %+v", pf)
		}
	default:
		t.Fatal("expected next-song prefetch request")
	}
}

func TestCore_ShuffleModeDoesNotPrefetch(t *testing.T) {
	h := newHarness(t, t.TempDir())
	queueOf(h, 1, 2, 3)
	h.c.app.Queue.SetMode(api.ModeShuffle)
	drainChan(h.gwLo)

	h.audioEvent(api.AudioEvent{Type: api.AudioEvtNowPlaying, SongID: 1, PlayID: 1, DurationMs: 1000})

	select {
	case cmd := <-h.gwLo:
		if cmd.Type == api.GwSongUrl {
			t.Fatalf("shuffle must not prefetch, got %+v", cmd)
		}
	default:
	}
}
