package core

import (
	"fmt"

	"github.com/xlfish233/netease-tui/api"
)

// songDetailChunk is the batch size for song detail requests.
const songDetailChunk = 200

// tracksLoader drives the two-step playlist load: the full track-id
// list first, then song detail in chunks until complete.
type tracksLoader struct {
	playlistID int64
	ids        []int64
	loaded     []api.Song
	next       int // start of the next chunk
}

func (l *tracksLoader) nextChunk() []int64 {
	if l.next >= len(l.ids) {
		return nil
	}
	end := l.next + songDetailChunk
	if end > len(l.ids) {
		end = len(l.ids)
	}
	chunk := l.ids[l.next:end]
	l.next = end
	return chunk
}

func (c *Core) playlistsCommand(cmd api.Command, fx *Effects) {
	a := c.app
	switch cmd.Type {
	case api.CmdPlaylistsMoveUp:
		if a.PlaylistsSel > 0 {
			a.PlaylistsSel--
		}
		fx.EmitState()

	case api.CmdPlaylistsMoveDown:
		if a.PlaylistsSel+1 < len(a.Playlists) {
			a.PlaylistsSel++
		}
		fx.EmitState()

	case api.CmdPlaylistSelect:
		idx := cmd.Index
		if idx < 0 {
			idx = a.PlaylistsSel
		}
		if idx < 0 || idx >= len(a.Playlists) {
			return
		}
		c.openPlaylist(idx, fx)

	case api.CmdPlaylistTracksMoveUp:
		if a.TracksSel > 0 {
			a.TracksSel--
		}
		fx.EmitState()

	case api.CmdPlaylistTracksMoveDown:
		if pl := c.openedPlaylist(); pl != nil && a.TracksSel+1 < len(pl.Songs) {
			a.TracksSel++
		}
		fx.EmitState()

	case api.CmdPlaylistTracksPlaySelected:
		idx := cmd.Index
		if idx < 0 {
			idx = a.TracksSel
		}
		c.playFromOpenPlaylist(idx, fx)
	}
}

func (c *Core) openedPlaylist() *api.Playlist {
	a := c.app
	if a.OpenPlaylist < 0 || a.OpenPlaylist >= len(a.Playlists) {
		return nil
	}
	return &a.Playlists[a.OpenPlaylist]
}

// openPlaylist displays a playlist, fetching its tracks when it is
// still a stub.
func (c *Core) openPlaylist(idx int, fx *Effects) {
	a := c.app
	pl := &a.Playlists[idx]
	a.OpenPlaylist = idx
	a.TracksSel = 0

	if pl.Loaded() {
		a.LoadedTracks = len(pl.Songs)
		a.TotalTracks = len(pl.Songs)
		fx.EmitState()
		return
	}

	// The interactive load preempts any preload of the same playlist.
	c.preload.CancelPlaylist(a, pl.ID)
	a.LoadedTracks = 0
	a.TotalTracks = int(pl.TrackCount)
	a.PlaylistsStatus = fmt.Sprintf("loading %s...", pl.Name)
	fx.EmitState()

	id := c.tracker.Issue(KeyPlaylistDetail, c.nextID)
	fx.SendGatewayHi(api.GatewayCommand{Type: api.GwPlaylistTrackIds, ReqID: id, PlaylistID: pl.ID})
}

// playFromOpenPlaylist promotes the open playlist into the play queue
// and starts at idx. The queue gets its own copy of the songs; the
// playlist keeps the original slice for display.
func (c *Core) playFromOpenPlaylist(idx int, fx *Effects) {
	pl := c.openedPlaylist()
	if pl == nil || !pl.Loaded() || len(pl.Songs) == 0 {
		return
	}
	if idx < 0 || idx >= len(pl.Songs) {
		return
	}
	queue := append([]api.Song(nil), pl.Songs...)
	c.app.Queue.SetSongs(queue, idx)
	c.nextSong.Reset()
	c.playCurrent(fx)
}

func (c *Core) playlistsEvent(evt api.GatewayEvent, fx *Effects) {
	a := c.app
	switch evt.Type {
	case api.GwEvtPlaylists:
		if !c.tracker.Accept(KeyPlaylists, evt.ReqID) {
			return
		}
		a.Playlists = evt.Playlists
		a.PlaylistsSel = 0
		a.PlaylistsStatus = fmt.Sprintf("%d playlists", len(evt.Playlists))
		fx.EmitState()
		// Warm the top playlists in the background.
		c.preload.Start(c, fx, c.settings.PreloadCount)

	case api.GwEvtPlaylistTrackIds:
		if !c.tracker.Accept(KeyPlaylistDetail, evt.ReqID) {
			return
		}
		c.loader = &tracksLoader{playlistID: evt.PlaylistID, ids: evt.TrackIDs}
		a.TotalTracks = len(evt.TrackIDs)
		a.LoadedTracks = 0
		if len(evt.TrackIDs) == 0 {
			c.finishLoad(fx)
			return
		}
		c.requestNextChunk(fx)
	}
}

// songsEvent consumes one interactive song-detail chunk.
func (c *Core) songsEvent(evt api.GatewayEvent, fx *Effects) {
	if !c.tracker.Accept(KeyPlaylistTracks, evt.ReqID) {
		return
	}
	if c.loader == nil {
		return
	}
	c.loader.loaded = append(c.loader.loaded, evt.Songs...)
	c.app.LoadedTracks = len(c.loader.loaded)
	fx.EmitState()

	if c.loader.next < len(c.loader.ids) {
		c.requestNextChunk(fx)
		return
	}
	c.finishLoad(fx)
}

func (c *Core) requestNextChunk(fx *Effects) {
	chunk := c.loader.nextChunk()
	if chunk == nil {
		return
	}
	id := c.tracker.Issue(KeyPlaylistTracks, c.nextID)
	fx.SendGatewayHi(api.GatewayCommand{Type: api.GwSongDetailByIds, ReqID: id, SongIDs: chunk})
}

// finishLoad stores the loaded songs on their playlist.
func (c *Core) finishLoad(fx *Effects) {
	a := c.app
	if c.loader == nil {
		return
	}
	for i := range a.Playlists {
		if a.Playlists[i].ID == c.loader.playlistID {
			a.Playlists[i].Songs = c.loader.loaded
			if a.Playlists[i].Songs == nil {
				a.Playlists[i].Songs = []api.Song{}
			}
			break
		}
	}
	a.PlaylistsStatus = ""
	a.LoadedTracks = len(c.loader.loaded)
	c.loader = nil
	fx.EmitState()
}
