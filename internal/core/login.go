package core

import (
	"fmt"
	"strings"

	"github.com/xlfish233/netease-tui/api"
	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

func (c *Core) loginCommand(cmd api.Command, fx *Effects) {
	a := c.app
	switch cmd.Type {
	case api.CmdLoginGenerateQr:
		if a.LoggedIn {
			return
		}
		a.LoginStatus = "generating QR code..."
		fx.EmitState()
		id := c.tracker.Issue(KeyLoginQr, c.nextID)
		fx.SendGatewayHi(api.GatewayCommand{Type: api.GwLoginQrKey, ReqID: id})

	case api.CmdLoginToggleCookieInput:
		a.CookieInputVisible = !a.CookieInputVisible
		a.CookieInput = ""
		if a.CookieInputVisible {
			a.LoginStatus = "cookie entry: paste the MUSIC_U value, enter to submit"
		} else {
			a.LoginStatus = "press l to generate a login QR code, c for cookie entry"
		}
		fx.EmitState()

	case api.CmdLoginCookieInputChar:
		a.CookieInput += string(cmd.Char)
		fx.EmitState()

	case api.CmdLoginCookieInputBackspace:
		if len(a.CookieInput) > 0 {
			a.CookieInput = a.CookieInput[:len(a.CookieInput)-1]
		}
		fx.EmitState()

	case api.CmdLoginSubmitCookie:
		cookie := strings.TrimSpace(a.CookieInput)
		if cookie == "" {
			a.LoginStatus = "MUSIC_U value must not be empty"
			fx.EmitState()
			return
		}
		a.LoginStatus = "verifying cookie..."
		fx.EmitState()
		id := c.tracker.Issue(KeyLoginCookie, c.nextID)
		fx.SendGatewayHi(api.GatewayCommand{Type: api.GwLoginByCookie, ReqID: id, Cookie: cookie})

	case api.CmdLogout:
		fx.SendGatewayHi(api.GatewayCommand{Type: api.GwLogoutLocal, ReqID: c.nextID()})
	}
}

func (c *Core) loginEvent(evt api.GatewayEvent, fx *Effects) {
	a := c.app
	switch evt.Type {
	case api.GwEvtClientReady:
		a.LoggedIn = evt.LoggedIn
		if a.LoggedIn {
			a.View = api.ViewPlaylists
			a.PlaylistsStatus = "restored session, loading account..."
			fx.EmitState()
			id := c.tracker.Issue(KeyAccount, c.nextID)
			fx.SendGatewayHi(api.GatewayCommand{Type: api.GwAccountInfo, ReqID: id})
		} else {
			fx.EmitState()
		}

	case api.GwEvtLoginQrKey:
		if !c.tracker.Accept(KeyLoginQr, evt.ReqID) {
			c.log.WithField("req_id", evt.ReqID).Debug("stale qr key reply dropped")
			return
		}
		a.QrUnikey = evt.Unikey
		a.QrURL = fmt.Sprintf("https://music.163.com/login?codekey=%s", evt.Unikey)
		a.QrASCII = renderQrASCII(a.QrURL)
		a.QrPolling = true
		a.LoginStatus = "scan with the mobile app; status polls automatically"
		fx.EmitState()

	case api.GwEvtLoginQrStatus:
		if !c.tracker.Accept(KeyLoginQrPoll, evt.ReqID) {
			c.log.WithField("req_id", evt.ReqID).Debug("stale qr poll reply dropped")
			return
		}
		c.qrStatus(evt, fx)

	case api.GwEvtLoginCookieSet:
		if !c.tracker.Accept(KeyLoginCookie, evt.ReqID) {
			return
		}
		if !evt.LoggedIn {
			// Cookie rejected: back to Anonymous.
			a.LoggedIn = false
			a.LoginStatus = "cookie rejected, try again"
			fx.Error(apperr.KindCookieInvalid, evt.Message)
			fx.EmitState()
			return
		}
		a.Account = evt.Account
		c.completeLogin("cookie login succeeded", fx)

	case api.GwEvtLoggedOut:
		c.resetToAnonymous(fx)
		fx.Toast("logged out")

	case api.GwEvtAccount:
		if !c.tracker.Accept(KeyAccount, evt.ReqID) {
			return
		}
		a.Account = evt.Account
		a.LoggedIn = true
		a.PlaylistsStatus = "loading playlists..."
		fx.EmitState()
		id := c.tracker.Issue(KeyPlaylists, c.nextID)
		fx.SendGatewayHi(api.GatewayCommand{Type: api.GwUserPlaylists, ReqID: id, UID: evt.Account.UID})
	}
}

// qrStatus consumes one poll result: 800 expired, 801 waiting,
// 802 scanned, 803 confirmed.
func (c *Core) qrStatus(evt api.GatewayEvent, fx *Effects) {
	a := c.app
	switch evt.QrCode {
	case api.QrCodeConfirmed:
		a.QrPolling = false
		a.QrUnikey = ""
		a.QrASCII = ""
		a.LoggedIn = true
		a.View = api.ViewPlaylists
		a.PlaylistsStatus = "login succeeded, loading account..."
		fx.Toast("QR login succeeded")
		fx.EmitState()
		id := c.tracker.Issue(KeyAccount, c.nextID)
		fx.SendGatewayHi(api.GatewayCommand{Type: api.GwAccountInfo, ReqID: id})
	case api.QrCodeExpired:
		a.QrPolling = false
		a.QrUnikey = ""
		a.QrASCII = ""
		a.LoginStatus = "QR code expired, press l for a new one"
		fx.EmitState()
	case api.QrCodeScanned:
		a.LoginStatus = "scanned, confirm on the phone"
		fx.EmitState()
	case api.QrCodeWaiting:
		a.LoginStatus = "waiting for scan..."
		fx.EmitState()
	default:
		a.LoginStatus = fmt.Sprintf("QR status code=%d %s", evt.QrCode, evt.Message)
		fx.EmitState()
	}
}

// completeLogin runs the common post-login sequence: account is set,
// fetch playlists next.
func (c *Core) completeLogin(toast string, fx *Effects) {
	a := c.app
	a.LoggedIn = true
	a.QrPolling = false
	a.CookieInputVisible = false
	a.CookieInput = ""
	a.View = api.ViewPlaylists
	a.PlaylistsStatus = "loading playlists..."
	fx.Toast(toast)
	fx.EmitState()
	if a.Account != nil {
		id := c.tracker.Issue(KeyPlaylists, c.nextID)
		fx.SendGatewayHi(api.GatewayCommand{Type: api.GwUserPlaylists, ReqID: id, UID: a.Account.UID})
	}
}

// resetToAnonymous clears everything derived from the session.
func (c *Core) resetToAnonymous(fx *Effects) {
	a := c.app
	a.LoggedIn = false
	a.Account = nil
	a.Playlists = nil
	a.PlaylistsSel = 0
	a.OpenPlaylist = -1
	a.QrPolling = false
	a.QrUnikey = ""
	a.QrASCII = ""
	a.View = api.ViewLogin
	a.LoginStatus = "press l to generate a login QR code, c for cookie entry"
	c.tracker.ResetAll()
	c.preload.Reset(a)
	c.loader = nil
	fx.EmitState()
}
