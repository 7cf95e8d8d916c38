package core

import (
	"fmt"
	"time"

	"github.com/xlfish233/netease-tui/api"
)

func (c *Core) playerCommand(cmd api.Command, fx *Effects) {
	a := c.app
	switch cmd.Type {
	case api.CmdPlayerTogglePause:
		fx.SendAudio(api.AudioCommand{Type: api.AudioTogglePause})

	case api.CmdPlayerStop:
		fx.SendAudio(api.AudioCommand{Type: api.AudioStop})

	case api.CmdPlayerNext:
		c.advance(fx)

	case api.CmdPlayerPrev:
		if idx := a.Queue.PrevIndex(); idx >= 0 {
			c.playCurrent(fx)
		}

	case api.CmdPlayerSeek:
		if a.Progress.StartedAt.IsZero() {
			return
		}
		now := time.Now()
		target := a.Progress.ElapsedMs(now) + cmd.DeltaMs
		if target < 0 {
			target = 0
		}
		if a.Progress.TotalMs > 0 && target > a.Progress.TotalMs {
			target = a.Progress.TotalMs
		}
		a.Progress.SeekTo(target, now)
		fx.SendAudio(api.AudioCommand{Type: api.AudioSeekToMs, Ms: target})
		fx.EmitState()

	case api.CmdPlayerVolume:
		v := a.Volume + cmd.Delta
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		a.Volume = v
		c.settings.Volume = v
		c.saveSettings()
		fx.SendAudio(api.AudioCommand{Type: api.AudioSetVolume, Volume: v})
		fx.EmitState()

	case api.CmdPlayerCycleMode:
		mode := a.Queue.Mode().Cycle()
		a.Queue.SetMode(mode)
		c.nextSong.Reset()
		c.settings.PlayMode = mode.String()
		c.saveSettings()
		fx.Toast("play mode: " + mode.String())
		fx.EmitState()

	case api.CmdPlayerClearCache:
		fx.SendAudio(api.AudioCommand{Type: api.AudioClearCache})
	}
}

// playCurrent requests a play URL for the song under the queue cursor.
func (c *Core) playCurrent(fx *Effects) {
	a := c.app
	song := a.Queue.Current()
	if song == nil {
		return
	}
	a.PlaySongID = song.ID
	a.PlayTitle = song.Name
	a.PlayArtists = song.Artists
	fx.EmitState()

	id := c.tracker.Issue(KeySongUrl, c.nextID)
	fx.SendGatewayHi(api.GatewayCommand{Type: api.GwSongUrl, ReqID: id, SongID: song.ID, Br: a.Br})
	c.requestLyrics(song.ID, fx)
}

// advance moves to the next song, or stops at the end of a sequential
// queue.
func (c *Core) advance(fx *Effects) {
	a := c.app
	if idx := a.Queue.NextIndex(); idx >= 0 {
		c.playCurrent(fx)
		return
	}
	a.Playing = false
	a.Progress.Clear()
	fx.SendAudio(api.AudioCommand{Type: api.AudioStop})
	fx.EmitState()
}

// songURLEvent handles a resolved (or unavailable) play URL for the
// interactive play path.
func (c *Core) songURLEvent(evt api.GatewayEvent, fx *Effects) {
	a := c.app
	switch evt.Type {
	case api.GwEvtSongUrl:
		if !c.tracker.Accept(KeySongUrl, evt.ReqID) {
			c.log.WithField("req_id", evt.ReqID).Debug("stale song url reply dropped")
			return
		}
		su := evt.SongURL
		fx.SendAudio(api.AudioCommand{
			Type:   api.AudioPlayTrack,
			SongID: su.ID,
			Br:     a.Br,
			URL:    su.URL,
			Title:  a.PlayTitle,
		})

	case api.GwEvtSongUrlUnavailable:
		if !c.tracker.Accept(KeySongUrl, evt.ReqID) {
			return
		}
		// Copyright/region/VIP: not retryable for this song, move on.
		fx.Toast(fmt.Sprintf("%s is unavailable, skipping", a.PlayTitle))
		c.advance(fx)
	}
}

func (c *Core) handleAudioEvent(evt api.AudioEvent, fx *Effects) {
	a := c.app
	switch evt.Type {
	case api.AudioEvtNowPlaying:
		a.PlayID = evt.PlayID
		a.Playing = true
		total := evt.DurationMs
		if total == 0 {
			// Fall back on the catalogue duration when the decoder
			// cannot tell (streaming formats).
			if song := a.Queue.Current(); song != nil {
				total = song.DurationMs
			}
		}
		a.Progress.Start(total, time.Now())
		fx.EmitState()
		c.nextSong.PrefetchNext(c, fx)

	case api.AudioEvtPaused:
		a.Progress.SetPaused(evt.Paused, time.Now())
		fx.EmitState()

	case api.AudioEvtStopped:
		a.Playing = false
		a.Progress.Clear()
		fx.EmitState()

	case api.AudioEvtEnded:
		if evt.PlayID != 0 && a.PlayID != 0 && evt.PlayID != a.PlayID {
			c.log.WithField("play_id", evt.PlayID).Debug("stale ended event dropped")
			return
		}
		c.advance(fx)

	case api.AudioEvtNeedsReload:
		// Restart case: persisted state has a current song but the
		// engine holds no sink. Resolve a fresh URL and replay.
		if a.PlaySongID == 0 {
			if song := a.Queue.Current(); song != nil {
				a.PlaySongID = song.ID
			} else {
				return
			}
		}
		if song := a.Queue.Current(); song != nil && song.ID == a.PlaySongID {
			c.playCurrent(fx)
		} else if a.Queue.SetCurrentIndex(indexOfSong(a.Queue.Songs(), a.PlaySongID)) {
			c.playCurrent(fx)
		}

	case api.AudioEvtCacheCleared:
		fx.Toast(fmt.Sprintf("cache cleared: %d files, %.1f MB", evt.Files,
			float64(evt.Bytes)/(1024*1024)))

	case api.AudioEvtError:
		fx.Error(evt.ErrKind, evt.Message)
	}
}

func indexOfSong(songs []api.Song, id int64) int {
	for i := range songs {
		if songs[i].ID == id {
			return i
		}
	}
	return -1
}
