package core

import (
	"github.com/xlfish233/netease-tui/api"
)

// NextSongCache prefetches the audio of the upcoming song so track
// transitions start from the disk cache. Any queue change invalidates
// it.
type NextSongCache struct {
	pendingReq   uint64 // 0 = none
	cachedSongID int64
}

// Reset invalidates the prefetch state (queue mutation, mode switch,
// bitrate change).
func (n *NextSongCache) Reset() {
	n.pendingReq = 0
	n.cachedSongID = 0
}

// OwnsReq reports whether req_id belongs to the prefetch manager.
func (n *NextSongCache) OwnsReq(reqID uint64) bool {
	return n.pendingReq != 0 && n.pendingReq == reqID
}

// PrefetchNext requests the play URL of the next song over the
// low-priority queue. Shuffle is unpredictable and SingleLoop repeats
// the already-cached current song; neither prefetches.
func (n *NextSongCache) PrefetchNext(c *Core, fx *Effects) {
	a := c.app
	if a.Queue.IsEmpty() || a.Queue.Cursor() < 0 {
		return
	}
	switch a.Queue.Mode() {
	case api.ModeShuffle, api.ModeSingleLoop:
		return
	}

	nextIdx := a.Queue.PeekNextIndex()
	if nextIdx < 0 {
		return
	}
	next := a.Queue.Songs()[nextIdx]
	if n.cachedSongID == next.ID {
		return
	}

	rid := c.nextID()
	n.pendingReq = rid
	fx.SendGatewayLo(api.GatewayCommand{Type: api.GwSongUrl, ReqID: rid, SongID: next.ID, Br: a.Br})
}

// HandleEvent consumes a gateway event owned by the prefetch manager.
func (n *NextSongCache) HandleEvent(c *Core, evt api.GatewayEvent, fx *Effects) {
	n.pendingReq = 0
	switch evt.Type {
	case api.GwEvtSongUrl:
		su := evt.SongURL
		n.cachedSongID = su.ID
		fx.SendAudio(api.AudioCommand{
			Type:   api.AudioPrefetch,
			SongID: su.ID,
			Br:     c.app.Br,
			URL:    su.URL,
			Title:  titleForSong(c.app, su.ID),
		})
	case api.GwEvtSongUrlUnavailable, api.GwEvtError:
		// Prefetch is best effort; the real play attempt will surface
		// the error if it persists.
		c.log.WithField("req_id", evt.ReqID).Debug("next-song prefetch failed")
	}
}

func titleForSong(a *App, songID int64) string {
	for i := range a.Queue.Songs() {
		if a.Queue.Songs()[i].ID == songID {
			return a.Queue.Songs()[i].Name
		}
	}
	return ""
}
