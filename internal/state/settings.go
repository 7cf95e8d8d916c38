package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

const settingsFile = "settings.json"

// Settings are the user-adjustable knobs. Mutations persist to disk
// immediately.
type Settings struct {
	Volume         float64 `json:"volume"`
	Br             int64   `json:"br"`
	PlayMode       string  `json:"play_mode"`
	LyricsOffsetMs int64   `json:"lyrics_offset_ms"`
	CrossfadeMs    int64   `json:"crossfade_ms"`
	PreloadCount   int     `json:"preload_count"`

	AudioCacheMaxMB     int64 `json:"audio_cache_max_mb"`
	DownloadConcurrency int   `json:"download_concurrency"` // 0 means auto
	HTTPTimeoutSecs     int   `json:"http_timeout_secs"`
	HTTPConnectSecs     int   `json:"http_connect_timeout_secs"`
	DownloadRetries     int   `json:"download_retries"`
	RetryBackoffMs      int64 `json:"retry_backoff_ms"`
	RetryBackoffMaxMs   int64 `json:"retry_backoff_max_ms"`
}

// DefaultSettings returns the defaults used on first run.
func DefaultSettings() Settings {
	return Settings{
		Volume:              1.0,
		Br:                  999000,
		PlayMode:            "ListLoop",
		LyricsOffsetMs:      0,
		CrossfadeMs:         300,
		PreloadCount:        3,
		AudioCacheMaxMB:     2048,
		DownloadConcurrency: 0,
		HTTPTimeoutSecs:     30,
		HTTPConnectSecs:     10,
		DownloadRetries:     3,
		RetryBackoffMs:      500,
		RetryBackoffMaxMs:   8000,
	}
}

// LoadSettings reads settings.json from dataDir, applying env overrides.
// A missing or corrupt file yields defaults.
func LoadSettings(dataDir string) Settings {
	s := DefaultSettings()
	data, err := os.ReadFile(filepath.Join(dataDir, settingsFile))
	if err == nil {
		if err := json.Unmarshal(data, &s); err != nil {
			s = DefaultSettings()
		}
	}
	s.applyEnv()
	if s.Volume < 0 || s.Volume > 1 {
		s.Volume = 1.0
	}
	return s
}

// SaveSettings writes settings atomically.
func SaveSettings(dataDir string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperr.New(apperr.KindSerde, "marshal settings", err)
	}
	if err := WriteFileAtomic(filepath.Join(dataDir, settingsFile), data); err != nil {
		return apperr.New(apperr.KindIO, "write settings", err)
	}
	return nil
}

func (s *Settings) applyEnv() {
	if v, ok := envInt64("CACHE_MAX_MB"); ok {
		s.AudioCacheMaxMB = v
	}
	if v, ok := envInt64("DOWNLOAD_CONCURRENCY"); ok {
		s.DownloadConcurrency = int(v)
	}
	if v, ok := envInt64("HTTP_TIMEOUT_SECS"); ok {
		s.HTTPTimeoutSecs = int(v)
	}
	if v, ok := envInt64("HTTP_CONNECT_TIMEOUT_SECS"); ok {
		s.HTTPConnectSecs = int(v)
	}
	if v, ok := envInt64("DOWNLOAD_RETRIES"); ok {
		s.DownloadRetries = int(v)
	}
}

func envInt64(name string) (int64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
