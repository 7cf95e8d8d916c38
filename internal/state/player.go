package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/xlfish233/netease-tui/api"
	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

const (
	playerStateFile    = "player_state.json"
	playerStateVersion = 1
)

// SongLite is the persisted form of a queued song.
type SongLite struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Artists    string `json:"artists"`
	DurationMs int64  `json:"duration_ms"`
}

// QueueState is the persisted play queue: index order, permutation,
// cursor into the permutation, and mode.
type QueueState struct {
	Songs  []SongLite `json:"songs"`
	Order  []int      `json:"order"`
	Cursor int        `json:"cursor"` // -1 when no cursor
	Mode   string     `json:"mode"`
}

// Progress replaces monotonic instants with wall-clock epoch ms.
type Progress struct {
	StartedAtEpochMs int64 `json:"started_at_epoch_ms"` // 0 when nothing played
	TotalMs          int64 `json:"total_ms"`
	Paused           bool  `json:"paused"`
	PausedAtEpochMs  int64 `json:"paused_at_epoch_ms"`
	PausedAccumMs    int64 `json:"paused_accum_ms"`
}

// PlaylistLite is the persisted playlist index entry.
type PlaylistLite struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TrackCount int64  `json:"track_count"`
}

// PlayerState is the schema of player_state.json, version 1.
type PlayerState struct {
	Version        int            `json:"version"`
	PlaySongID     int64          `json:"play_song_id"`
	Progress       Progress       `json:"progress"`
	Queue          QueueState     `json:"queue"`
	Volume         float64        `json:"volume"`
	PlayBr         int64          `json:"play_br"`
	CrossfadeMs    int64          `json:"crossfade_ms"`
	Playlists      []PlaylistLite `json:"playlists"`
	SavedAtEpochMs int64          `json:"saved_at_epoch_ms"`
}

// RestoredProgress is the monotonic reconstruction of a persisted
// Progress. Loading always restores paused.
type RestoredProgress struct {
	StartedAt time.Time // zero when nothing was playing
	TotalMs   int64
	ElapsedMs int64
}

// BuildProgress converts live progress to the persisted form.
// elapsedMs is the elapsed value at save time; it is frozen while paused.
func BuildProgress(elapsedMs, totalMs int64, paused bool, now time.Time) Progress {
	nowMs := now.UnixMilli()
	p := Progress{
		TotalMs: totalMs,
		Paused:  paused,
	}
	if elapsedMs > 0 || totalMs > 0 {
		p.StartedAtEpochMs = nowMs - elapsedMs
	}
	if paused {
		p.PausedAtEpochMs = nowMs
	}
	return p
}

// RestoreProgress reconstructs monotonic time so the persisted elapsed
// value is preserved: elapsed = previous + wall-clock delta when the
// player was running, or exactly previous when it was paused.
func RestoreProgress(st *PlayerState, now time.Time) RestoredProgress {
	p := st.Progress
	if p.StartedAtEpochMs == 0 {
		return RestoredProgress{TotalMs: p.TotalMs}
	}
	nowMs := now.UnixMilli()
	var elapsed int64
	if p.Paused {
		elapsed = st.SavedAtEpochMs - p.StartedAtEpochMs
	} else {
		elapsed = nowMs - p.StartedAtEpochMs
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return RestoredProgress{
		StartedAt: now.Add(-time.Duration(elapsed) * time.Millisecond),
		TotalMs:   p.TotalMs,
		ElapsedMs: elapsed,
	}
}

// SavePlayerState writes player_state.json atomically.
func SavePlayerState(dataDir string, st *PlayerState) error {
	st.Version = playerStateVersion
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return apperr.New(apperr.KindSerde, "marshal player state", err)
	}
	if err := WriteFileAtomic(filepath.Join(dataDir, playerStateFile), data); err != nil {
		return apperr.New(apperr.KindIO, "write player state", err)
	}
	return nil
}

// LoadPlayerState reads player_state.json. A missing file returns
// (nil, nil); a corrupt or version-mismatched file is treated as absent
// with a KindSerde error for the log.
func LoadPlayerState(dataDir string) (*PlayerState, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, playerStateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.New(apperr.KindIO, "read player state", err)
	}

	var st PlayerState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, apperr.New(apperr.KindSerde, "parse player state", err)
	}
	if st.Version != playerStateVersion {
		return nil, apperr.New(apperr.KindSerde, "player state version", apperr.ErrVersionMismatch)
	}
	return &st, nil
}

// SongsLite converts songs to their persisted form.
func SongsLite(songs []api.Song) []SongLite {
	out := make([]SongLite, len(songs))
	for i, s := range songs {
		out[i] = SongLite{ID: s.ID, Name: s.Name, Artists: s.Artists, DurationMs: s.DurationMs}
	}
	return out
}

// SongsFromLite converts persisted songs back to domain songs.
func SongsFromLite(lite []SongLite) []api.Song {
	out := make([]api.Song, len(lite))
	for i, s := range lite {
		out[i] = api.Song{ID: s.ID, Name: s.Name, Artists: s.Artists, DurationMs: s.DurationMs}
	}
	return out
}
