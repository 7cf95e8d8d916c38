package core

import (
	"time"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/lyrics"
)

// Progress is monotonic playback progress bookkeeping.
type Progress struct {
	StartedAt     time.Time // zero when nothing has played
	TotalMs       int64
	Paused        bool
	PausedAt      time.Time
	PausedAccumMs int64
}

// ElapsedMs computes elapsed playback milliseconds:
// now - started - pausedAccum - (paused ? now - pausedAt : 0).
func (p *Progress) ElapsedMs(now time.Time) int64 {
	if p.StartedAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(p.StartedAt).Milliseconds() - p.PausedAccumMs
	if p.Paused && !p.PausedAt.IsZero() {
		elapsed -= now.Sub(p.PausedAt).Milliseconds()
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if p.TotalMs > 0 && elapsed > p.TotalMs {
		elapsed = p.TotalMs
	}
	return elapsed
}

// Start resets progress for a new track of totalMs.
func (p *Progress) Start(totalMs int64, now time.Time) {
	p.StartedAt = now
	p.TotalMs = totalMs
	p.Paused = false
	p.PausedAt = time.Time{}
	p.PausedAccumMs = 0
}

// SetPaused records a pause state flip.
func (p *Progress) SetPaused(paused bool, now time.Time) {
	if p.Paused == paused {
		return
	}
	if paused {
		p.PausedAt = now
	} else if !p.PausedAt.IsZero() {
		p.PausedAccumMs += now.Sub(p.PausedAt).Milliseconds()
		p.PausedAt = time.Time{}
	}
	p.Paused = paused
}

// SeekTo rebases progress so elapsed equals ms.
func (p *Progress) SeekTo(ms int64, now time.Time) {
	p.StartedAt = now.Add(-time.Duration(ms) * time.Millisecond)
	p.PausedAccumMs = 0
	if p.Paused {
		p.PausedAt = now
	}
}

// Clear resets progress to nothing-playing.
func (p *Progress) Clear() {
	*p = Progress{}
}

// App is the whole client state. The reducer is its sole writer; every
// other component sees it only through snapshots.
type App struct {
	View api.View

	// login
	LoggedIn           bool
	Account            *api.Account
	LoginStatus        string
	QrUnikey           string
	QrURL              string
	QrASCII            string
	QrPolling          bool
	LastQrPoll         time.Time
	CookieInputVisible bool
	CookieInput        string

	// playlists
	Playlists       []api.Playlist
	PlaylistsSel    int
	PlaylistsStatus string
	OpenPlaylist    int // index into Playlists, -1 = none
	TracksSel       int
	LoadedTracks    int
	TotalTracks     int
	PreloadSummary  string

	// search
	SearchQuery   string
	SearchResults []api.Song
	SearchSel     int
	SearchStatus  string

	// player
	Queue       *PlayQueue
	PlaySongID  int64
	PlayTitle   string
	PlayArtists string
	PlayID      uint64
	Playing     bool
	Progress    Progress
	Volume      float64
	Br          int64
	CrossfadeMs int64

	// lyrics
	Lyrics         []api.LyricLine
	LyricsSongID   int64
	LyricsFollow   bool
	LyricsScroll   int
	LyricsOffsetMs int64
}

// NewApp creates the initial state.
func NewApp() *App {
	return &App{
		View:         api.ViewLogin,
		OpenPlaylist: -1,
		Queue:        NewPlayQueue(api.ModeSequential),
		Volume:       1.0,
		LyricsFollow: true,
		LoginStatus:  "press l to generate a login QR code, c for cookie entry",
	}
}

// Snapshot projects App into the immutable form shipped to the UI.
// The Playlists slice is copied because the reducer updates its
// elements in place; the other slices are shared because the reducer
// never mutates them in place, it replaces them.
func (a *App) Snapshot(now time.Time) *api.Snapshot {
	s := &api.Snapshot{
		View: a.View,
		Login: api.LoginSnapshot{
			LoggedIn:           a.LoggedIn,
			Status:             a.LoginStatus,
			QrASCII:            a.QrASCII,
			CookieInputVisible: a.CookieInputVisible,
			CookieInput:        a.CookieInput,
		},
		Playlists: api.PlaylistsSnapshot{
			Playlists:     append([]api.Playlist(nil), a.Playlists...),
			Selected:      a.PlaylistsSel,
			Status:        a.PlaylistsStatus,
			TracksSel:     a.TracksSel,
			LoadedTracks:  a.LoadedTracks,
			TotalTracks:   a.TotalTracks,
			PreloadStatus: a.PreloadSummary,
		},
		Search: api.SearchSnapshot{
			Query:    a.SearchQuery,
			Results:  a.SearchResults,
			Selected: a.SearchSel,
			Status:   a.SearchStatus,
		},
		Player: api.PlayerSnapshot{
			SongID:    a.PlaySongID,
			Title:     a.PlayTitle,
			Artists:   a.PlayArtists,
			ElapsedMs: a.Progress.ElapsedMs(now),
			TotalMs:   a.Progress.TotalMs,
			Paused:    a.Progress.Paused,
			Playing:   a.Playing,
			Mode:      a.Queue.Mode(),
			Volume:    a.Volume,
			QueuePos:  a.Queue.Cursor(),
			QueueLen:  a.Queue.Len(),
		},
		Lyrics: api.LyricsSnapshot{
			Lines:    a.Lyrics,
			Scroll:   a.LyricsScroll,
			Follow:   a.LyricsFollow,
			OffsetMs: a.LyricsOffsetMs,
		},
	}
	if a.Account != nil {
		s.Login.Nickname = a.Account.Nickname
	}
	if a.OpenPlaylist >= 0 && a.OpenPlaylist < len(a.Playlists) {
		pl := &a.Playlists[a.OpenPlaylist]
		s.Playlists.OpenID = pl.ID
		s.Playlists.Tracks = pl.Songs
	}
	s.Lyrics.Current = -1
	if len(a.Lyrics) > 0 {
		s.Lyrics.Current = lyrics.LineAt(a.Lyrics, a.Progress.ElapsedMs(now), a.LyricsOffsetMs)
	}
	return s
}
