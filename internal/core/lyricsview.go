package core

import (
	"time"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/lyrics"
)

func (c *Core) lyricsCommand(cmd api.Command, fx *Effects) {
	a := c.app
	switch cmd.Type {
	case api.CmdLyricsToggleFollow:
		a.LyricsFollow = !a.LyricsFollow
		fx.EmitState()

	case api.CmdLyricsMoveUp:
		a.LyricsFollow = false
		if a.LyricsScroll > 0 {
			a.LyricsScroll--
		}
		fx.EmitState()

	case api.CmdLyricsMoveDown:
		a.LyricsFollow = false
		if a.LyricsScroll+1 < len(a.Lyrics) {
			a.LyricsScroll++
		}
		fx.EmitState()

	case api.CmdLyricsGotoCurrent:
		a.LyricsFollow = true
		if idx := lyrics.LineAt(a.Lyrics, a.Progress.ElapsedMs(time.Now()), a.LyricsOffsetMs); idx >= 0 {
			a.LyricsScroll = idx
		}
		fx.EmitState()

	case api.CmdLyricOffset:
		a.LyricsOffsetMs += cmd.DeltaMs
		c.settings.LyricsOffsetMs = a.LyricsOffsetMs
		c.saveSettings()
		fx.EmitState()
	}
}

// requestLyrics fetches lyrics for the song about to play. Low
// priority: playback must not wait on lyric text.
func (c *Core) requestLyrics(songID int64, fx *Effects) {
	if c.app.LyricsSongID == songID && len(c.app.Lyrics) > 0 {
		return
	}
	id := c.tracker.Issue(KeyLyric, c.nextID)
	fx.SendGatewayLo(api.GatewayCommand{Type: api.GwLyrics, ReqID: id, SongID: songID})
}

func (c *Core) lyricsEvent(evt api.GatewayEvent, fx *Effects) {
	a := c.app
	if !c.tracker.Accept(KeyLyric, evt.ReqID) {
		return
	}
	a.Lyrics = evt.Lyrics
	a.LyricsSongID = evt.SongID
	a.LyricsScroll = 0
	fx.EmitState()
}
