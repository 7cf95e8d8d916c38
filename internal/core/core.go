package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/state"
)

// saveEvery is the periodic persistence cadence.
const saveEvery = 30 * time.Second

// qrPollEvery is the QR login polling cadence.
const qrPollEvery = 2 * time.Second

// Core is the single writer of App. It consumes user commands, gateway
// events, audio events, and ticks; handlers mutate App and append to a
// fresh Effects buffer which the core drains afterwards.
type Core struct {
	app      *App
	settings state.Settings
	dataDir  string

	reqID    uint64
	tracker  *RequestTracker[RequestKey]
	preload  *PreloadManager
	nextSong *NextSongCache
	loader   *tracksLoader // interactive playlist load, nil when idle

	cmds   chan api.Command
	gwEvts <-chan api.GatewayEvent
	auEvts <-chan api.AudioEvent
	out    chan api.AppEvent

	gwHi  chan<- api.GatewayCommand
	gwLo  chan<- api.GatewayCommand
	audio chan<- api.AudioCommand

	lastSave time.Time
	log      *logrus.Entry
}

// Deps wires the core to its collaborators.
type Deps struct {
	DataDir  string
	Settings state.Settings

	GatewayHi     chan<- api.GatewayCommand
	GatewayLo     chan<- api.GatewayCommand
	GatewayEvents <-chan api.GatewayEvent
	AudioCommands chan<- api.AudioCommand
	AudioEvents   <-chan api.AudioEvent

	Log *logrus.Entry
}

// New builds the core and restores persisted player state.
func New(deps Deps) *Core {
	c := &Core{
		app:      NewApp(),
		settings: deps.Settings,
		dataDir:  deps.DataDir,
		tracker:  NewRequestTracker[RequestKey](),
		preload:  NewPreloadManager(),
		nextSong: &NextSongCache{},
		cmds:     make(chan api.Command, 64),
		gwEvts:   deps.GatewayEvents,
		auEvts:   deps.AudioEvents,
		out:      make(chan api.AppEvent, 128),
		gwHi:     deps.GatewayHi,
		gwLo:     deps.GatewayLo,
		audio:    deps.AudioCommands,
		lastSave: time.Now(),
		log:      deps.Log,
	}
	c.applySettings()
	c.restorePlayerState()
	return c
}

// Commands returns the channel the UI feeds user commands into.
func (c *Core) Commands() chan<- api.Command {
	return c.cmds
}

// Events returns the channel the UI reads snapshots and toasts from.
func (c *Core) Events() <-chan api.AppEvent {
	return c.out
}

func (c *Core) applySettings() {
	c.app.Volume = c.settings.Volume
	c.app.Br = c.settings.Br
	c.app.CrossfadeMs = c.settings.CrossfadeMs
	c.app.LyricsOffsetMs = c.settings.LyricsOffsetMs
	c.app.Queue = NewPlayQueue(api.ParsePlayMode(c.settings.PlayMode))
}

// Run is the reducer loop. It exits after Quit or context cancellation,
// having written a final state snapshot.
func (c *Core) Run(ctx context.Context) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	fx := &Effects{}
	c.bootstrap(fx)
	c.drain(fx)

	for {
		fx := &Effects{}
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case cmd := <-c.cmds:
			if cmd.Type == api.CmdQuit {
				c.shutdown()
				c.out <- api.AppEvent{Type: api.AppEvtQuit}
				return
			}
			c.handleCommand(cmd, fx)
		case evt := <-c.gwEvts:
			c.handleGatewayEvent(evt, fx)
		case evt := <-c.auEvts:
			c.handleAudioEvent(evt, fx)
		case now := <-tick.C:
			c.handleTick(now, fx)
		}
		c.drain(fx)
	}
}

// nextID allocates a monotonically increasing request id.
func (c *Core) nextID() uint64 {
	c.reqID++
	return c.reqID
}

func (c *Core) bootstrap(fx *Effects) {
	fx.SendGatewayHi(api.GatewayCommand{Type: api.GwInit, ReqID: c.nextID()})
	fx.SendAudio(api.AudioCommand{Type: api.AudioSetVolume, Volume: c.app.Volume})
	fx.SendAudio(api.AudioCommand{Type: api.AudioSetCrossfadeMs, CrossfadeMs: c.app.CrossfadeMs})
	fx.EmitState()
}

// handleCommand dispatches a user command to its feature handler.
func (c *Core) handleCommand(cmd api.Command, fx *Effects) {
	switch cmd.Type {
	case api.CmdBootstrap:
		fx.EmitState()
	case api.CmdTabNext:
		c.app.View = (c.app.View + 1) % 4
		fx.EmitState()
	case api.CmdBack:
		c.handleBack(fx)

	case api.CmdLoginGenerateQr, api.CmdLoginToggleCookieInput, api.CmdLoginCookieInputChar,
		api.CmdLoginCookieInputBackspace, api.CmdLoginSubmitCookie, api.CmdLogout:
		c.loginCommand(cmd, fx)

	case api.CmdSearchInputChar, api.CmdSearchInputBackspace, api.CmdSearchSubmit,
		api.CmdSearchMoveUp, api.CmdSearchMoveDown, api.CmdSearchPlaySelected:
		c.searchCommand(cmd, fx)

	case api.CmdPlaylistsMoveUp, api.CmdPlaylistsMoveDown, api.CmdPlaylistSelect,
		api.CmdPlaylistTracksMoveUp, api.CmdPlaylistTracksMoveDown,
		api.CmdPlaylistTracksPlaySelected:
		c.playlistsCommand(cmd, fx)

	case api.CmdPlayerTogglePause, api.CmdPlayerStop, api.CmdPlayerNext, api.CmdPlayerPrev,
		api.CmdPlayerSeek, api.CmdPlayerVolume, api.CmdPlayerCycleMode, api.CmdPlayerClearCache:
		c.playerCommand(cmd, fx)

	case api.CmdLyricsToggleFollow, api.CmdLyricsMoveUp, api.CmdLyricsMoveDown,
		api.CmdLyricsGotoCurrent, api.CmdLyricOffset:
		c.lyricsCommand(cmd, fx)

	case api.CmdSettingsCycleBr, api.CmdSettingsCrossfade:
		c.settingsCommand(cmd, fx)
	}
}

// handleGatewayEvent dispatches a gateway event. Managers get first
// refusal (preload, next-song prefetch own their req ids); everything
// else is matched against the tracker by its feature handler.
func (c *Core) handleGatewayEvent(evt api.GatewayEvent, fx *Effects) {
	if c.preload.OwnsReq(evt.ReqID) {
		c.preload.HandleEvent(c, evt, fx)
		return
	}
	if c.nextSong.OwnsReq(evt.ReqID) {
		c.nextSong.HandleEvent(c, evt, fx)
		return
	}

	switch evt.Type {
	case api.GwEvtClientReady, api.GwEvtLoginQrKey, api.GwEvtLoginQrStatus,
		api.GwEvtLoginCookieSet, api.GwEvtLoggedOut, api.GwEvtAccount:
		c.loginEvent(evt, fx)
	case api.GwEvtPlaylists, api.GwEvtPlaylistTrackIds:
		c.playlistsEvent(evt, fx)
	case api.GwEvtSongs:
		c.songsEvent(evt, fx)
	case api.GwEvtSearchSongs:
		c.searchEvent(evt, fx)
	case api.GwEvtSongUrl, api.GwEvtSongUrlUnavailable:
		c.songURLEvent(evt, fx)
	case api.GwEvtLyrics:
		c.lyricsEvent(evt, fx)
	case api.GwEvtError:
		c.gatewayError(evt, fx)
	}
}

func (c *Core) handleTick(now time.Time, fx *Effects) {
	// QR polling runs off the tick; no hidden timer state elsewhere.
	if c.app.QrPolling && c.app.QrUnikey != "" && now.Sub(c.app.LastQrPoll) >= qrPollEvery {
		c.app.LastQrPoll = now
		id := c.tracker.Issue(KeyLoginQrPoll, c.nextID)
		fx.SendGatewayHi(api.GatewayCommand{Type: api.GwLoginQrCheck, ReqID: id, Unikey: c.app.QrUnikey})
	}

	if now.Sub(c.lastSave) >= saveEvery {
		c.lastSave = now
		c.savePlayerState()
	}

	// Progress and lyrics advance with the clock while playing.
	if c.app.Playing {
		fx.EmitState()
	}
}

func (c *Core) handleBack(fx *Effects) {
	if c.app.View == api.ViewPlaylists && c.app.OpenPlaylist >= 0 {
		c.app.OpenPlaylist = -1
		c.loader = nil
		c.tracker.Clear(KeyPlaylistDetail)
		c.tracker.Clear(KeyPlaylistTracks)
		fx.EmitState()
	}
}

// drain flushes the effects buffer: snapshot to the UI channel,
// commands to their actors. Sends never block the reducer; a full
// channel drops the message with a log line.
func (c *Core) drain(fx *Effects) {
	for _, cmd := range fx.audio {
		select {
		case c.audio <- cmd:
		default:
			c.log.WithField("type", cmd.Type).Warn("audio command dropped, channel full")
		}
	}
	for _, cmd := range fx.gwHi {
		select {
		case c.gwHi <- cmd:
		default:
			c.log.WithField("type", cmd.Type).Warn("gateway hi command dropped, channel full")
		}
	}
	for _, cmd := range fx.gwLo {
		select {
		case c.gwLo <- cmd:
		default:
			c.log.WithField("type", cmd.Type).Warn("gateway lo command dropped, channel full")
		}
	}
	for _, msg := range fx.toasts {
		c.send(api.AppEvent{Type: api.AppEvtToast, Message: msg})
	}
	for _, e := range fx.errors {
		c.send(api.AppEvent{Type: api.AppEvtError, ErrKind: e.kind, Message: e.msg})
	}
	if fx.emitState {
		c.send(api.AppEvent{Type: api.AppEvtState, State: c.app.Snapshot(time.Now())})
	}
}

func (c *Core) send(evt api.AppEvent) {
	select {
	case c.out <- evt:
	default:
		c.log.Warn("app event dropped, UI is slow")
	}
}

// shutdown writes the final snapshot; settings are persisted on every
// change already.
func (c *Core) shutdown() {
	c.savePlayerState()
}

// saveSettings persists settings immediately. Failures are logged and
// non-fatal.
func (c *Core) saveSettings() {
	if err := state.SaveSettings(c.dataDir, c.settings); err != nil {
		c.log.WithError(err).Warn("saving settings failed")
	}
}

// savePlayerState persists queue, progress, and playlist index.
func (c *Core) savePlayerState() {
	now := time.Now()
	a := c.app
	st := &state.PlayerState{
		PlaySongID: a.PlaySongID,
		Progress: state.BuildProgress(
			a.Progress.ElapsedMs(now), a.Progress.TotalMs, a.Progress.Paused, now),
		Queue: state.QueueState{
			Songs:  state.SongsLite(a.Queue.Songs()),
			Order:  append([]int(nil), a.Queue.Order()...),
			Cursor: a.Queue.Cursor(),
			Mode:   a.Queue.Mode().String(),
		},
		Volume:         a.Volume,
		PlayBr:         a.Br,
		CrossfadeMs:    a.CrossfadeMs,
		SavedAtEpochMs: now.UnixMilli(),
	}
	for _, pl := range a.Playlists {
		st.Playlists = append(st.Playlists, state.PlaylistLite{
			ID: pl.ID, Name: pl.Name, TrackCount: pl.TrackCount,
		})
	}
	if err := state.SavePlayerState(c.dataDir, st); err != nil {
		c.log.WithError(err).Warn("saving player state failed")
	}
}

// restorePlayerState reloads the previous session. Playback never
// auto-resumes: the restored state is paused until the user acts.
func (c *Core) restorePlayerState() {
	st, err := state.LoadPlayerState(c.dataDir)
	if err != nil {
		c.log.WithError(err).Warn("player state unusable, starting fresh")
		return
	}
	if st == nil {
		return
	}

	a := c.app
	mode := api.ParsePlayMode(st.Queue.Mode)
	a.Queue.Restore(state.SongsFromLite(st.Queue.Songs), st.Queue.Order, st.Queue.Cursor, mode)
	a.PlaySongID = st.PlaySongID
	a.Volume = st.Volume
	if st.PlayBr != 0 {
		a.Br = st.PlayBr
	}

	now := time.Now()
	rp := state.RestoreProgress(st, now)
	a.Progress = Progress{
		StartedAt:     rp.StartedAt,
		TotalMs:       rp.TotalMs,
		Paused:        true,
		PausedAt:      now,
		PausedAccumMs: 0,
	}
	if rp.StartedAt.IsZero() {
		a.Progress.Clear()
	}

	if song := a.Queue.Current(); song != nil && song.ID == a.PlaySongID {
		a.PlayTitle = song.Name
		a.PlayArtists = song.Artists
	}
	c.log.WithFields(logrus.Fields{
		"songs":   a.Queue.Len(),
		"song_id": a.PlaySongID,
	}).Info("restored player state")
}
