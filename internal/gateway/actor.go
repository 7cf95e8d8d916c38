package gateway

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/lyrics"
	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

// Actor serves gateway commands from two priority queues. A single
// consumer drains high before low on each cycle. The actor never
// composes multi-step flows; that is the reducer's job.
type Actor struct {
	client *Client
	hi     chan api.GatewayCommand
	lo     chan api.GatewayCommand
	events chan api.GatewayEvent
	log    *logrus.Entry
}

// NewActor wraps client in an actor.
func NewActor(client *Client, log *logrus.Entry) *Actor {
	return &Actor{
		client: client,
		hi:     make(chan api.GatewayCommand, 32),
		lo:     make(chan api.GatewayCommand, 128),
		events: make(chan api.GatewayEvent, 64),
		log:    log,
	}
}

// HighPriority returns the high-priority command queue.
func (a *Actor) HighPriority() chan<- api.GatewayCommand {
	return a.hi
}

// LowPriority returns the low-priority command queue.
func (a *Actor) LowPriority() chan<- api.GatewayCommand {
	return a.lo
}

// Events returns the actor's event channel.
func (a *Actor) Events() <-chan api.GatewayEvent {
	return a.events
}

// Run consumes commands until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) {
	for {
		// Drain everything high priority first.
		select {
		case cmd := <-a.hi:
			a.execute(ctx, cmd)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-a.hi:
			a.execute(ctx, cmd)
		case cmd := <-a.lo:
			a.execute(ctx, cmd)
		}
	}
}

// execute maps one command to exactly one typed event; errors carry the
// original req_id so the reducer can match them to the issuing key.
func (a *Actor) execute(ctx context.Context, cmd api.GatewayCommand) {
	switch cmd.Type {
	case api.GwInit:
		a.emit(api.GatewayEvent{
			Type:     api.GwEvtClientReady,
			ReqID:    cmd.ReqID,
			LoggedIn: a.client.LoggedIn(),
		})

	case api.GwLoginQrKey:
		unikey, err := a.client.QrKey(ctx)
		if err != nil {
			a.fail(cmd.ReqID, err)
			return
		}
		a.emit(api.GatewayEvent{Type: api.GwEvtLoginQrKey, ReqID: cmd.ReqID, Unikey: unikey})

	case api.GwLoginQrCheck:
		code, msg, err := a.client.QrCheck(ctx, cmd.Unikey)
		if err != nil {
			a.fail(cmd.ReqID, err)
			return
		}
		if code == api.QrCodeConfirmed {
			if err := a.client.SaveSession(); err != nil {
				a.log.WithError(err).Warn("persisting session after login failed")
			}
		}
		a.emit(api.GatewayEvent{Type: api.GwEvtLoginQrStatus, ReqID: cmd.ReqID, QrCode: code, Message: msg})

	case api.GwLoginByCookie:
		a.client.SetMusicU(cmd.Cookie)
		acct, err := a.client.Account(ctx)
		if err != nil {
			a.client.ClearSession()
			a.emit(api.GatewayEvent{
				Type: api.GwEvtLoginCookieSet, ReqID: cmd.ReqID,
				LoggedIn: false, Message: err.Error(), ErrKind: apperr.KindCookieInvalid,
			})
			return
		}
		if err := a.client.SaveSession(); err != nil {
			a.log.WithError(err).Warn("persisting session after cookie login failed")
		}
		a.emit(api.GatewayEvent{
			Type: api.GwEvtLoginCookieSet, ReqID: cmd.ReqID,
			LoggedIn: true, Account: acct,
		})

	case api.GwLogoutLocal:
		a.client.ClearSession()
		a.emit(api.GatewayEvent{Type: api.GwEvtLoggedOut, ReqID: cmd.ReqID})

	case api.GwAccountInfo:
		acct, err := a.client.Account(ctx)
		if err != nil {
			a.fail(cmd.ReqID, err)
			return
		}
		a.emit(api.GatewayEvent{Type: api.GwEvtAccount, ReqID: cmd.ReqID, Account: acct})

	case api.GwUserPlaylists:
		pls, err := a.client.UserPlaylists(ctx, cmd.UID)
		if err != nil {
			a.fail(cmd.ReqID, err)
			return
		}
		a.emit(api.GatewayEvent{Type: api.GwEvtPlaylists, ReqID: cmd.ReqID, Playlists: pls})

	case api.GwPlaylistTrackIds:
		ids, err := a.client.PlaylistTrackIds(ctx, cmd.PlaylistID)
		if err != nil {
			a.fail(cmd.ReqID, err)
			return
		}
		a.emit(api.GatewayEvent{
			Type: api.GwEvtPlaylistTrackIds, ReqID: cmd.ReqID,
			PlaylistID: cmd.PlaylistID, TrackIDs: ids,
		})

	case api.GwSongDetailByIds:
		songs, err := a.client.SongDetail(ctx, cmd.SongIDs)
		if err != nil {
			a.fail(cmd.ReqID, err)
			return
		}
		a.emit(api.GatewayEvent{Type: api.GwEvtSongs, ReqID: cmd.ReqID, Songs: songs})

	case api.GwSongUrl:
		su, err := a.client.SongURL(ctx, cmd.SongID, cmd.Br)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindURLUnavailable {
				a.emit(api.GatewayEvent{
					Type: api.GwEvtSongUrlUnavailable, ReqID: cmd.ReqID,
					SongID: cmd.SongID, Message: err.Error(),
				})
				return
			}
			a.fail(cmd.ReqID, err)
			return
		}
		a.emit(api.GatewayEvent{Type: api.GwEvtSongUrl, ReqID: cmd.ReqID, SongURL: su})

	case api.GwLyrics:
		lrc, translated, err := a.client.Lyric(ctx, cmd.SongID)
		if err != nil {
			a.fail(cmd.ReqID, err)
			return
		}
		a.emit(api.GatewayEvent{
			Type: api.GwEvtLyrics, ReqID: cmd.ReqID,
			SongID: cmd.SongID, Lyrics: lyrics.Parse(lrc, translated),
		})

	case api.GwSearch:
		songs, err := a.client.Search(ctx, cmd.Query, cmd.Limit, cmd.Offset)
		if err != nil {
			a.fail(cmd.ReqID, err)
			return
		}
		a.emit(api.GatewayEvent{Type: api.GwEvtSearchSongs, ReqID: cmd.ReqID, Songs: songs})
	}
}

func (a *Actor) fail(reqID uint64, err error) {
	a.log.WithError(err).WithField("req_id", reqID).Debug("gateway command failed")
	a.emit(api.GatewayEvent{
		Type:    api.GwEvtError,
		ReqID:   reqID,
		Message: err.Error(),
		ErrKind: apperr.KindOf(err),
	})
}

func (a *Actor) emit(evt api.GatewayEvent) {
	a.events <- evt
}
