package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xlfish233/netease-tui/api"
	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

// defaultHosts is the primary API domain plus fallbacks tried on dial
// failure.
var defaultHosts = []string{
	"https://music.163.com",
	"https://interface.music.163.com",
	"https://interface3.music.163.com",
}

// Client talks to the streaming service. It is stateful only in cookie
// and device-id terms; every call is otherwise independent.
type Client struct {
	http    *http.Client
	jar     http.CookieJar
	hosts   []string
	dataDir string

	deviceID string
	log      *logrus.Entry
}

// Config bounds the client's HTTP behaviour.
type Config struct {
	TimeoutSecs int
	ConnectSecs int
}

// NewClient builds a client, restoring any persisted session.
func NewClient(dataDir string, cfg Config, log *logrus.Entry) *Client {
	jar, _ := cookiejar.New(nil)
	dialer := &net.Dialer{Timeout: time.Duration(cfg.ConnectSecs) * time.Second}
	c := &Client{
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
			Jar:     jar,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
		jar:     jar,
		hosts:   defaultHosts,
		dataDir: dataDir,
		log:     log,
	}
	c.loadSession()
	return c
}

func (c *Client) resetJar() {
	jar, _ := cookiejar.New(nil)
	c.jar = jar
	c.http.Jar = jar
}

// LoggedIn reports whether a user session cookie is present.
func (c *Client) LoggedIn() bool {
	for _, ck := range c.jar.Cookies(c.primaryURL()) {
		if ck.Name == "MUSIC_U" && ck.Value != "" {
			return true
		}
	}
	return false
}

// SetMusicU installs a user-supplied MUSIC_U cookie.
func (c *Client) SetMusicU(value string) {
	c.jar.SetCookies(c.primaryURL(), []*http.Cookie{{
		Name:    "MUSIC_U",
		Value:   value,
		Domain:  ".music.163.com",
		Path:    "/",
		Expires: time.Now().AddDate(1, 0, 0),
	}})
}

// post sends a form POST, trying fallback hosts on transport failure.
// The reply body is decoded into out.
func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	if form == nil {
		form = url.Values{}
	}

	var lastErr error
	for _, host := range c.hosts {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, host+path,
			strings.NewReader(form.Encode()))
		if err != nil {
			return apperr.New(apperr.KindNetwork, "build request", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Referer", c.hosts[0]+"/")
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) netease-tui")
		req.AddCookie(&http.Cookie{Name: "os", Value: "pc"})
		req.AddCookie(&http.Cookie{Name: "deviceId", Value: c.deviceID})

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.log.WithError(err).WithField("host", host).Debug("request failed, trying fallback host")
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return apperr.New(apperr.KindNetwork, "read response", err)
		}
		if resp.StatusCode != http.StatusOK {
			return apperr.Newf(apperr.KindAPIStatus, path, "http status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return apperr.New(apperr.KindSerde, "decode "+path, err)
		}
		return nil
	}
	return apperr.New(apperr.KindNetwork, path, lastErr)
}

// QrKey requests a login QR unikey.
func (c *Client) QrKey(ctx context.Context) (string, error) {
	var reply struct {
		Code   int    `json:"code"`
		Unikey string `json:"unikey"`
	}
	form := url.Values{"type": {"1"}}
	if err := c.post(ctx, "/api/login/qrcode/unikey", form, &reply); err != nil {
		return "", err
	}
	if reply.Code != 200 || reply.Unikey == "" {
		return "", apperr.Newf(apperr.KindAPIStatus, "qr key", "code %d", reply.Code)
	}
	return reply.Unikey, nil
}

// QrCheck polls the QR login status. Codes: 800 expired, 801 waiting,
// 802 scanned, 803 confirmed.
func (c *Client) QrCheck(ctx context.Context, unikey string) (int, string, error) {
	var reply struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	form := url.Values{"key": {unikey}, "type": {"1"}}
	if err := c.post(ctx, "/api/login/qrcode/client/login", form, &reply); err != nil {
		return 0, "", err
	}
	return reply.Code, reply.Message, nil
}

// Account fetches the logged-in account; code 200 with a nil profile
// means the session is anonymous.
func (c *Client) Account(ctx context.Context) (*api.Account, error) {
	var reply struct {
		Code    int `json:"code"`
		Profile *struct {
			UserID   int64  `json:"userId"`
			Nickname string `json:"nickname"`
		} `json:"profile"`
	}
	if err := c.post(ctx, "/api/nuser/account/get", nil, &reply); err != nil {
		return nil, err
	}
	if reply.Code != 200 {
		return nil, apperr.Newf(apperr.KindAPIStatus, "account", "code %d", reply.Code)
	}
	if reply.Profile == nil {
		return nil, apperr.New(apperr.KindCookieInvalid, "account", apperr.ErrNotLoggedIn)
	}
	return &api.Account{UID: reply.Profile.UserID, Nickname: reply.Profile.Nickname}, nil
}

// UserPlaylists lists the user's playlists as stubs.
func (c *Client) UserPlaylists(ctx context.Context, uid int64) ([]api.Playlist, error) {
	var reply struct {
		Code     int `json:"code"`
		Playlist []struct {
			ID         int64  `json:"id"`
			Name       string `json:"name"`
			TrackCount int64  `json:"trackCount"`
		} `json:"playlist"`
	}
	form := url.Values{
		"uid":    {strconv.FormatInt(uid, 10)},
		"limit":  {"1000"},
		"offset": {"0"},
	}
	if err := c.post(ctx, "/api/user/playlist", form, &reply); err != nil {
		return nil, err
	}
	if reply.Code != 200 {
		return nil, apperr.Newf(apperr.KindAPIStatus, "user playlists", "code %d", reply.Code)
	}
	out := make([]api.Playlist, 0, len(reply.Playlist))
	for _, p := range reply.Playlist {
		out = append(out, api.Playlist{ID: p.ID, Name: p.Name, TrackCount: p.TrackCount})
	}
	return out, nil
}

// PlaylistTrackIds fetches the full track-id list of a playlist.
func (c *Client) PlaylistTrackIds(ctx context.Context, playlistID int64) ([]int64, error) {
	var reply struct {
		Code     int `json:"code"`
		Playlist *struct {
			TrackIds []struct {
				ID int64 `json:"id"`
			} `json:"trackIds"`
		} `json:"playlist"`
	}
	form := url.Values{"id": {strconv.FormatInt(playlistID, 10)}, "n": {"0"}}
	if err := c.post(ctx, "/api/v6/playlist/detail", form, &reply); err != nil {
		return nil, err
	}
	if reply.Code != 200 || reply.Playlist == nil {
		return nil, apperr.Newf(apperr.KindAPIStatus, "playlist detail", "code %d", reply.Code)
	}
	ids := make([]int64, 0, len(reply.Playlist.TrackIds))
	for _, t := range reply.Playlist.TrackIds {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

type songDTO struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"ar"`
	DurationMs int64 `json:"dt"`
}

func (d songDTO) toSong() api.Song {
	names := make([]string, 0, len(d.Artists))
	for _, a := range d.Artists {
		names = append(names, a.Name)
	}
	return api.Song{
		ID:         d.ID,
		Name:       d.Name,
		Artists:    strings.Join(names, "/"),
		DurationMs: d.DurationMs,
	}
}

// SongDetail fetches full song entities for up to 200 ids per call.
func (c *Client) SongDetail(ctx context.Context, ids []int64) ([]api.Song, error) {
	idObjs := make([]string, 0, len(ids))
	for _, id := range ids {
		idObjs = append(idObjs, fmt.Sprintf(`{"id":%d}`, id))
	}
	var reply struct {
		Code  int       `json:"code"`
		Songs []songDTO `json:"songs"`
	}
	form := url.Values{"c": {"[" + strings.Join(idObjs, ",") + "]"}}
	if err := c.post(ctx, "/api/v3/song/detail", form, &reply); err != nil {
		return nil, err
	}
	if reply.Code != 200 {
		return nil, apperr.Newf(apperr.KindAPIStatus, "song detail", "code %d", reply.Code)
	}
	out := make([]api.Song, 0, len(reply.Songs))
	for _, s := range reply.Songs {
		out = append(out, s.toSong())
	}
	return out, nil
}

// SongURL resolves a play URL. A 200 reply with an empty URL or a
// non-200 per-song code means the song is unavailable (copyright,
// region, or VIP), which is distinct from a transport error.
func (c *Client) SongURL(ctx context.Context, id, br int64) (*api.SongURL, error) {
	var reply struct {
		Code int `json:"code"`
		Data []struct {
			ID   int64  `json:"id"`
			URL  string `json:"url"`
			Br   int64  `json:"br"`
			Code int    `json:"code"`
		} `json:"data"`
	}
	form := url.Values{
		"ids": {fmt.Sprintf("[%d]", id)},
		"br":  {strconv.FormatInt(br, 10)},
	}
	if err := c.post(ctx, "/api/song/enhance/player/url", form, &reply); err != nil {
		return nil, err
	}
	if reply.Code != 200 || len(reply.Data) == 0 {
		return nil, apperr.Newf(apperr.KindAPIStatus, "song url", "code %d", reply.Code)
	}
	d := reply.Data[0]
	if d.URL == "" || d.Code != 200 {
		return nil, apperr.Newf(apperr.KindURLUnavailable, "song url", "song %d code %d", id, d.Code)
	}
	return &api.SongURL{ID: d.ID, URL: d.URL, Br: d.Br, Code: d.Code}, nil
}

// Lyric fetches the raw LRC text and optional translation.
func (c *Client) Lyric(ctx context.Context, songID int64) (lrc, translated string, err error) {
	var reply struct {
		Code int `json:"code"`
		Lrc  *struct {
			Lyric string `json:"lyric"`
		} `json:"lrc"`
		Tlyric *struct {
			Lyric string `json:"lyric"`
		} `json:"tlyric"`
	}
	form := url.Values{
		"id": {strconv.FormatInt(songID, 10)},
		"lv": {"-1"},
		"tv": {"-1"},
	}
	if err := c.post(ctx, "/api/song/lyric", form, &reply); err != nil {
		return "", "", err
	}
	if reply.Code != 200 {
		return "", "", apperr.Newf(apperr.KindAPIStatus, "lyric", "code %d", reply.Code)
	}
	if reply.Lrc != nil {
		lrc = reply.Lrc.Lyric
	}
	if reply.Tlyric != nil {
		translated = reply.Tlyric.Lyric
	}
	return lrc, translated, nil
}

// Search searches songs by keywords.
func (c *Client) Search(ctx context.Context, keywords string, limit, offset int) ([]api.Song, error) {
	var reply struct {
		Code   int `json:"code"`
		Result *struct {
			Songs []songDTO `json:"songs"`
		} `json:"result"`
	}
	form := url.Values{
		"s":      {keywords},
		"type":   {"1"},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	if err := c.post(ctx, "/api/cloudsearch/pc", form, &reply); err != nil {
		return nil, err
	}
	if reply.Code != 200 {
		return nil, apperr.Newf(apperr.KindAPIStatus, "search", "code %d", reply.Code)
	}
	if reply.Result == nil {
		return nil, nil
	}
	out := make([]api.Song, 0, len(reply.Result.Songs))
	for _, s := range reply.Result.Songs {
		out = append(out, s.toSong())
	}
	return out, nil
}
