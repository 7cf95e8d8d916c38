package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := WriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected %q, got %q", "second", string(data))
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected 1 file in dir, got %d", len(entries))
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := DefaultSettings()
	s.Volume = 0.4
	s.Br = 320000
	s.CrossfadeMs = 500

	if err := SaveSettings(dir, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := LoadSettings(dir)
	if loaded.Volume != 0.4 || loaded.Br != 320000 || loaded.CrossfadeMs != 500 {
		t.Errorf("unexpected settings after reload: %+v", loaded)
	}
}

func TestLoadSettings_CorruptFileYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := LoadSettings(dir)
	if s.Br != DefaultSettings().Br {
		t.Errorf("expected defaults for corrupt file, got %+v", s)
	}
}

func TestPlayerState_MissingFile(t *testing.T) {
	st, err := LoadPlayerState(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != nil {
		t.Errorf("expected nil state for missing file, got %+v", st)
	}
}

func TestPlayerState_VersionMismatchTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	raw, _ := json.Marshal(map[string]interface{}{"version": 99})
	if err := os.WriteFile(filepath.Join(dir, "player_state.json"), raw, 0644); err != nil {
		t.Fatal(err)
	}

	st, err := LoadPlayerState(dir)
	if err == nil {
		t.Error("expected version mismatch error")
	}
	if st != nil {
		t.Errorf("expected nil state, got %+v", st)
	}
}

func TestPlayerStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	st := &PlayerState{
		PlaySongID: 42,
		Progress:   BuildProgress(45000, 180000, true, now),
		Queue: QueueState{
			Songs:  []SongLite{{ID: 1, Name: "X"}, {ID: 42, Name: "Y"}, {ID: 3, Name: "Z"}},
			Order:  []int{0, 1, 2},
			Cursor: 1,
			Mode:   "Sequential",
		},
		Volume:         0.8,
		PlayBr:         320000,
		SavedAtEpochMs: now.UnixMilli(),
	}
	if err := SavePlayerState(dir, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadPlayerState(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PlaySongID != 42 || loaded.Queue.Cursor != 1 || len(loaded.Queue.Songs) != 3 {
		t.Errorf("unexpected state after reload: %+v", loaded)
	}
	if loaded.Version != 1 {
		t.Errorf("expected version 1, got %d", loaded.Version)
	}
}

func TestRestoreProgress_PausedPreservesElapsed(t *testing.T) {
	saveTime := time.Now()
	st := &PlayerState{
		Progress:       BuildProgress(45000, 180000, true, saveTime),
		SavedAtEpochMs: saveTime.UnixMilli(),
	}

	// Simulate restarting 10 minutes later.
	later := saveTime.Add(10 * time.Minute)
	rp := RestoreProgress(st, later)

	if rp.ElapsedMs != 45000 {
		t.Errorf("paused elapsed should be preserved exactly, got %d", rp.ElapsedMs)
	}
}

func TestRestoreProgress_RunningAccruesDelta(t *testing.T) {
	saveTime := time.Now()
	st := &PlayerState{
		Progress:       BuildProgress(45000, 180000, false, saveTime),
		SavedAtEpochMs: saveTime.UnixMilli(),
	}

	delta := 30 * time.Second
	rp := RestoreProgress(st, saveTime.Add(delta))

	if rp.ElapsedMs != 45000+delta.Milliseconds() {
		t.Errorf("running elapsed should be previous + delta, got %d", rp.ElapsedMs)
	}
}

func TestRestoreProgress_NothingPlayed(t *testing.T) {
	st := &PlayerState{Progress: Progress{TotalMs: 0}}
	rp := RestoreProgress(st, time.Now())
	if !rp.StartedAt.IsZero() || rp.ElapsedMs != 0 {
		t.Errorf("expected empty restore, got %+v", rp)
	}
}
