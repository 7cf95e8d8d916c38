package core

import (
	"fmt"

	"github.com/xlfish233/netease-tui/api"
)

type preloadKind int

const (
	preloadDetail preloadKind = iota
	preloadSongs
)

type preloadPending struct {
	generation uint64
	kind       preloadKind
	playlistID int64
}

// PreloadManager warms the top playlists after login using low-priority
// gateway requests. A generation counter invalidates every in-flight
// request on reset, so replies from a previous login cannot leak in.
type PreloadManager struct {
	generation uint64
	pending    map[uint64]preloadPending
	loaders    map[int64]*tracksLoader
}

func NewPreloadManager() *PreloadManager {
	return &PreloadManager{
		pending: make(map[uint64]preloadPending),
		loaders: make(map[int64]*tracksLoader),
	}
}

// OwnsReq reports whether req_id belongs to a live preload request.
func (m *PreloadManager) OwnsReq(reqID uint64) bool {
	p, ok := m.pending[reqID]
	return ok && p.generation == m.generation
}

// Reset drops all preload state.
func (m *PreloadManager) Reset(app *App) {
	m.generation++
	clear(m.pending)
	clear(m.loaders)
	app.PreloadSummary = ""
}

// CancelPlaylist abandons the preload of one playlist (the interactive
// load takes over).
func (m *PreloadManager) CancelPlaylist(app *App, playlistID int64) {
	delete(m.loaders, playlistID)
	for rid, p := range m.pending {
		if p.playlistID == playlistID {
			delete(m.pending, rid)
		}
	}
	m.updateSummary(app)
}

// Start schedules a preload of the first count unloaded playlists.
func (m *PreloadManager) Start(c *Core, fx *Effects, count int) {
	m.generation++
	clear(m.pending)
	clear(m.loaders)

	scheduled := 0
	for i := range c.app.Playlists {
		if scheduled >= count {
			break
		}
		pl := &c.app.Playlists[i]
		if pl.Loaded() {
			continue
		}
		rid := c.nextID()
		m.pending[rid] = preloadPending{
			generation: m.generation,
			kind:       preloadDetail,
			playlistID: pl.ID,
		}
		fx.SendGatewayLo(api.GatewayCommand{Type: api.GwPlaylistTrackIds, ReqID: rid, PlaylistID: pl.ID})
		scheduled++
	}
	m.updateSummary(c.app)
}

// HandleEvent consumes a gateway event owned by the preload manager.
func (m *PreloadManager) HandleEvent(c *Core, evt api.GatewayEvent, fx *Effects) {
	p := m.pending[evt.ReqID]
	delete(m.pending, evt.ReqID)

	switch evt.Type {
	case api.GwEvtPlaylistTrackIds:
		loader := &tracksLoader{playlistID: p.playlistID, ids: evt.TrackIDs}
		m.loaders[p.playlistID] = loader
		m.requestChunk(c, fx, loader)

	case api.GwEvtSongs:
		loader, ok := m.loaders[p.playlistID]
		if !ok {
			return
		}
		loader.loaded = append(loader.loaded, evt.Songs...)
		if loader.next < len(loader.ids) {
			m.requestChunk(c, fx, loader)
			return
		}
		m.complete(c, fx, loader)

	case api.GwEvtError:
		c.log.WithField("playlist_id", p.playlistID).WithField("err", evt.Message).
			Debug("playlist preload failed")
		delete(m.loaders, p.playlistID)
		m.updateSummary(c.app)
	}
}

func (m *PreloadManager) requestChunk(c *Core, fx *Effects, loader *tracksLoader) {
	chunk := loader.nextChunk()
	if chunk == nil {
		m.complete(c, fx, loader)
		return
	}
	rid := c.nextID()
	m.pending[rid] = preloadPending{
		generation: m.generation,
		kind:       preloadSongs,
		playlistID: loader.playlistID,
	}
	fx.SendGatewayLo(api.GatewayCommand{Type: api.GwSongDetailByIds, ReqID: rid, SongIDs: chunk})
}

func (m *PreloadManager) complete(c *Core, fx *Effects, loader *tracksLoader) {
	for i := range c.app.Playlists {
		if c.app.Playlists[i].ID == loader.playlistID {
			if c.app.Playlists[i].Songs == nil {
				songs := loader.loaded
				if songs == nil {
					songs = []api.Song{}
				}
				c.app.Playlists[i].Songs = songs
			}
			break
		}
	}
	delete(m.loaders, loader.playlistID)
	m.updateSummary(c.app)
	fx.EmitState()
}

func (m *PreloadManager) updateSummary(app *App) {
	active := make(map[int64]struct{}, len(m.loaders))
	for id := range m.loaders {
		active[id] = struct{}{}
	}
	for _, p := range m.pending {
		active[p.playlistID] = struct{}{}
	}
	if len(active) == 0 {
		app.PreloadSummary = ""
		return
	}
	app.PreloadSummary = fmt.Sprintf("preloading %d playlists", len(active))
}
