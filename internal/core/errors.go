package core

import (
	"github.com/xlfish233/netease-tui/api"
	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

// gatewayError routes a typed gateway error. The tracker key it matches
// decides the feature reaction; errors never roll state back, except a
// failed cookie login which returns to Anonymous.
func (c *Core) gatewayError(evt api.GatewayEvent, fx *Effects) {
	a := c.app
	switch {
	case c.tracker.Accept(KeyLoginQr, evt.ReqID):
		a.LoginStatus = "QR generation failed, press l to retry"
		fx.Error(evt.ErrKind, evt.Message)
		fx.EmitState()

	case c.tracker.Accept(KeyLoginQrPoll, evt.ReqID):
		// Transient poll failure: the next tick polls again.
		c.log.WithField("err", evt.Message).Debug("qr poll failed")

	case c.tracker.Accept(KeyLoginCookie, evt.ReqID):
		a.LoggedIn = false
		a.LoginStatus = "cookie rejected, try again"
		fx.Error(apperr.KindCookieInvalid, evt.Message)
		fx.EmitState()

	case c.tracker.Accept(KeyAccount, evt.ReqID):
		a.PlaylistsStatus = "loading account failed"
		fx.Error(evt.ErrKind, evt.Message)
		fx.EmitState()

	case c.tracker.Accept(KeyPlaylists, evt.ReqID):
		a.PlaylistsStatus = "loading playlists failed"
		fx.Error(evt.ErrKind, evt.Message)
		fx.EmitState()

	case c.tracker.Accept(KeyPlaylistDetail, evt.ReqID),
		c.tracker.Accept(KeyPlaylistTracks, evt.ReqID):
		c.loader = nil
		a.PlaylistsStatus = "loading tracks failed"
		fx.Error(evt.ErrKind, evt.Message)
		fx.EmitState()

	case c.tracker.Accept(KeySongUrl, evt.ReqID):
		fx.Error(evt.ErrKind, evt.Message)

	case c.tracker.Accept(KeySearch, evt.ReqID):
		a.SearchStatus = "search failed"
		fx.Error(evt.ErrKind, evt.Message)
		fx.EmitState()

	case c.tracker.Accept(KeyLyric, evt.ReqID):
		c.log.WithField("err", evt.Message).Debug("lyric fetch failed")

	default:
		// Stale or unowned: log only, never mutate state.
		c.log.WithField("req_id", evt.ReqID).WithField("err", evt.Message).
			Debug("gateway error for unknown request dropped")
	}
}
