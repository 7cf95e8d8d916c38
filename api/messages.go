package api

import apperr "github.com/xlfish233/netease-tui/pkg/errors"

// CommandType tags a user command from the UI layer.
type CommandType int

const (
	CmdNone CommandType = iota
	CmdBootstrap
	CmdTabNext
	CmdBack
	CmdQuit

	CmdLoginGenerateQr
	CmdLoginToggleCookieInput
	CmdLoginCookieInputChar
	CmdLoginCookieInputBackspace
	CmdLoginSubmitCookie
	CmdLogout

	CmdSearchInputChar
	CmdSearchInputBackspace
	CmdSearchSubmit
	CmdSearchMoveUp
	CmdSearchMoveDown
	CmdSearchPlaySelected

	CmdPlaylistsMoveUp
	CmdPlaylistsMoveDown
	CmdPlaylistSelect
	CmdPlaylistTracksMoveUp
	CmdPlaylistTracksMoveDown
	CmdPlaylistTracksPlaySelected

	CmdPlayerTogglePause
	CmdPlayerStop
	CmdPlayerNext
	CmdPlayerPrev
	CmdPlayerSeek
	CmdPlayerVolume
	CmdPlayerCycleMode
	CmdPlayerClearCache

	CmdLyricsToggleFollow
	CmdLyricsMoveUp
	CmdLyricsMoveDown
	CmdLyricsGotoCurrent
	CmdLyricOffset

	CmdSettingsCycleBr
	CmdSettingsCrossfade
)

// Command is a user-issued command. Only the fields relevant to the
// type are populated.
type Command struct {
	Type    CommandType
	Char    rune    // input char for text-entry commands
	Index   int     // list index for selection commands
	DeltaMs int64   // signed ms for seek / lyric offset
	Delta   float64 // signed delta for volume
}

// GatewayCommandType tags a request to the gateway actor.
type GatewayCommandType int

const (
	GwInit GatewayCommandType = iota
	GwLoginQrKey
	GwLoginQrCheck
	GwLoginByCookie
	GwLogoutLocal
	GwAccountInfo
	GwUserPlaylists
	GwPlaylistTrackIds
	GwSongDetailByIds
	GwSongUrl
	GwLyrics
	GwSearch
)

// GatewayCommand carries the reducer's req_id; the matching event echoes it.
type GatewayCommand struct {
	Type  GatewayCommandType
	ReqID uint64

	Unikey     string
	Cookie     string
	UID        int64
	PlaylistID int64
	SongIDs    []int64
	SongID     int64
	Br         int64
	Query      string
	Limit      int
	Offset     int
}

// GatewayEventType tags a typed reply from the gateway actor.
type GatewayEventType int

const (
	GwEvtClientReady GatewayEventType = iota
	GwEvtLoginQrKey
	GwEvtLoginQrStatus
	GwEvtLoginCookieSet
	GwEvtLoggedOut
	GwEvtAccount
	GwEvtPlaylists
	GwEvtPlaylistTrackIds
	GwEvtSongs
	GwEvtSearchSongs
	GwEvtSongUrl
	GwEvtSongUrlUnavailable
	GwEvtLyrics
	GwEvtError
)

// GatewayEvent is a typed gateway reply. Every command maps to either a
// success event or a failure event (GwEvtError, GwEvtSongUrlUnavailable,
// or GwEvtLoginCookieSet with LoggedIn false) carrying the original
// req_id; nothing is silently dropped.
type GatewayEvent struct {
	Type  GatewayEventType
	ReqID uint64

	LoggedIn   bool
	Unikey     string
	QrCode     int
	Message    string
	Account    *Account
	Playlists  []Playlist
	PlaylistID int64
	TrackIDs   []int64
	Songs      []Song
	SongURL    *SongURL
	SongID     int64
	Lyrics     []LyricLine

	ErrKind apperr.Kind
}

// AudioCommandType tags a command to the audio engine.
type AudioCommandType int

const (
	AudioPlayTrack AudioCommandType = iota
	AudioPrefetch
	AudioTogglePause
	AudioStop
	AudioSeekToMs
	AudioSetVolume
	AudioSetCrossfadeMs
	AudioClearCache
	AudioSetCacheBr
)

// AudioCommand is consumed by the audio engine's own thread.
type AudioCommand struct {
	Type AudioCommandType

	SongID      int64
	Br          int64
	URL         string
	Title       string
	Ms          int64
	Volume      float64
	CrossfadeMs int64
}

// AudioEventType tags an event emitted by the audio engine.
type AudioEventType int

const (
	AudioEvtNowPlaying AudioEventType = iota
	AudioEvtPaused
	AudioEvtStopped
	AudioEvtEnded
	AudioEvtNeedsReload
	AudioEvtCacheCleared
	AudioEvtError
)

// AudioEvent reports playback transitions back to the reducer.
type AudioEvent struct {
	Type AudioEventType

	SongID     int64
	PlayID     uint64
	Title      string
	DurationMs int64
	Paused     bool
	Files      int
	Bytes      int64
	Message    string
	ErrKind    apperr.Kind
}

// Snapshot is a cheap immutable projection of App shipped to the UI
// on every state change.
type Snapshot struct {
	View View

	Login     LoginSnapshot
	Playlists PlaylistsSnapshot
	Search    SearchSnapshot
	Player    PlayerSnapshot
	Lyrics    LyricsSnapshot
}

// View selects the active screen.
type View int

const (
	ViewLogin View = iota
	ViewPlaylists
	ViewSearch
	ViewLyrics
)

type LoginSnapshot struct {
	LoggedIn           bool
	Nickname           string
	Status             string
	QrASCII            string
	CookieInputVisible bool
	CookieInput        string
}

type PlaylistsSnapshot struct {
	Playlists     []Playlist
	Selected      int
	Status        string
	OpenID        int64 // 0 when no playlist is open
	Tracks        []Song
	TracksSel     int
	LoadedTracks  int
	TotalTracks   int
	PreloadStatus string
}

type SearchSnapshot struct {
	Query    string
	Results  []Song
	Selected int
	Status   string
}

type PlayerSnapshot struct {
	SongID    int64
	Title     string
	Artists   string
	ElapsedMs int64
	TotalMs   int64
	Paused    bool
	Playing   bool
	Mode      PlayMode
	Volume    float64
	QueuePos  int
	QueueLen  int
}

type LyricsSnapshot struct {
	Lines    []LyricLine
	Current  int
	Scroll   int
	Follow   bool
	OffsetMs int64
}

// AppEventType tags a message to the UI.
type AppEventType int

const (
	AppEvtState AppEventType = iota
	AppEvtToast
	AppEvtError
	AppEvtQuit
)

// AppEvent is the event surface to the UI.
type AppEvent struct {
	Type    AppEventType
	State   *Snapshot
	Message string
	ErrKind apperr.Kind
}
