package gateway

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/xlfish233/netease-tui/internal/state"
	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

const sessionFile = "netease_state.json"

// sessionCookie is the persisted form of one session cookie.
type sessionCookie struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Domain    string `json:"domain"`
	Path      string `json:"path"`
	ExpiresMs int64  `json:"expires_epoch_ms"`
}

// sessionState is the schema of netease_state.json.
type sessionState struct {
	DeviceID string          `json:"device_id"`
	Cookies  []sessionCookie `json:"cookies"`
}

// loadSession restores the device id and cookie jar contents. A missing
// or corrupt file yields a fresh anonymous session with a new device id.
// SKIP_LOGIN=1 ignores persisted cookies entirely.
func (c *Client) loadSession() {
	if os.Getenv("SKIP_LOGIN") == "1" {
		c.deviceID = uuid.New().String()
		return
	}
	data, err := os.ReadFile(filepath.Join(c.dataDir, sessionFile))
	if err != nil {
		c.deviceID = uuid.New().String()
		return
	}

	var st sessionState
	if err := json.Unmarshal(data, &st); err != nil || st.DeviceID == "" {
		c.log.WithError(err).Warn("session file unusable, starting anonymous")
		c.deviceID = uuid.New().String()
		return
	}
	c.deviceID = st.DeviceID

	now := time.Now()
	var cookies []*http.Cookie
	for _, sc := range st.Cookies {
		if sc.ExpiresMs > 0 && time.UnixMilli(sc.ExpiresMs).Before(now) {
			continue
		}
		ck := &http.Cookie{
			Name:   sc.Name,
			Value:  sc.Value,
			Domain: sc.Domain,
			Path:   sc.Path,
		}
		if sc.ExpiresMs > 0 {
			ck.Expires = time.UnixMilli(sc.ExpiresMs)
		}
		cookies = append(cookies, ck)
	}
	if len(cookies) > 0 {
		c.jar.SetCookies(c.primaryURL(), cookies)
	}
}

// SaveSession persists the device id and current cookies. Failure here
// is a warning, not an error: the session just won't survive a restart.
func (c *Client) SaveSession() error {
	st := sessionState{DeviceID: c.deviceID}
	// The jar only exposes name/value; domain and expiry metadata are
	// its own business, so persist what we can.
	for _, ck := range c.jar.Cookies(c.primaryURL()) {
		sc := sessionCookie{
			Name:   ck.Name,
			Value:  ck.Value,
			Domain: ck.Domain,
			Path:   ck.Path,
		}
		if !ck.Expires.IsZero() {
			sc.ExpiresMs = ck.Expires.UnixMilli()
		}
		st.Cookies = append(st.Cookies, sc)
	}

	data, err := json.MarshalIndent(&st, "", "  ")
	if err != nil {
		return apperr.New(apperr.KindSerde, "marshal session", err)
	}
	if err := state.WriteFileAtomic(filepath.Join(c.dataDir, sessionFile), data); err != nil {
		return apperr.New(apperr.KindIO, "write session", err)
	}
	return nil
}

// ClearSession drops all cookies and the persisted session, keeping the
// device id.
func (c *Client) ClearSession() {
	c.resetJar()
	if err := c.SaveSession(); err != nil {
		c.log.WithError(err).Warn("clearing persisted session failed")
	}
}

func (c *Client) primaryURL() *url.URL {
	u, _ := url.Parse(c.hosts[0])
	return u
}
