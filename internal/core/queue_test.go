package core

import (
	"testing"

	"github.com/xlfish233/netease-tui/api"
)

func songs(n int) []api.Song {
	out := make([]api.Song, n)
	for i := range out {
		out[i] = api.Song{ID: int64(i + 1), Name: "song"}
	}
	return out
}

func checkIntegrity(t *testing.T, q *PlayQueue) {
	t.Helper()
	if len(q.Order()) != len(q.Songs()) {
		t.Fatalf("order len %d != songs len %d", len(q.Order()), len(q.Songs()))
	}
	if !validPermutation(q.Order(), len(q.Songs())) {
		t.Fatalf("order is not a permutation: %v", q.Order())
	}
	if len(q.Order()) > 0 && q.Cursor() != -1 {
		if q.Cursor() < 0 || q.Cursor() >= len(q.Order()) {
			t.Fatalf("cursor %d out of range", q.Cursor())
		}
	}
}

func TestQueue_Integrity(t *testing.T) {
	q := NewPlayQueue(api.ModeSequential)
	q.SetSongs(songs(5), 2)
	checkIntegrity(t, q)

	if q.CurrentIndex() != 2 {
		t.Errorf("expected current index 2, got %d", q.CurrentIndex())
	}
}

func TestQueue_SequentialEndsAtTail(t *testing.T) {
	q := NewPlayQueue(api.ModeSequential)
	q.SetSongs(songs(3), 1)

	if got := q.NextIndex(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := q.NextIndex(); got != -1 {
		t.Fatalf("expected end of queue, got %d", got)
	}
	if q.CurrentIndex() != -1 {
		t.Error("cursor should clear at end of sequential queue")
	}
}

func TestQueue_ListLoopWraps(t *testing.T) {
	q := NewPlayQueue(api.ModeListLoop)
	q.SetSongs(songs(3), 2)

	if got := q.NextIndex(); got != 0 {
		t.Errorf("list loop should wrap to 0, got %d", got)
	}
	if got := q.PrevIndex(); got != 2 {
		t.Errorf("prev should wrap back to 2, got %d", got)
	}
}

func TestQueue_SingleLoopStays(t *testing.T) {
	q := NewPlayQueue(api.ModeSingleLoop)
	q.SetSongs(songs(3), 1)

	for i := 0; i < 3; i++ {
		if got := q.NextIndex(); got != 1 {
			t.Fatalf("single loop should stay on 1, got %d", got)
		}
	}
}

func TestQueue_ShuffleKeepsCurrentSong(t *testing.T) {
	q := NewPlayQueue(api.ModeSequential)
	q.SetSongs(songs(20), 7)
	current := q.Current().ID

	q.SetMode(api.ModeShuffle)
	checkIntegrity(t, q)
	if q.Current().ID != current {
		t.Errorf("shuffle must keep current song, got %d want %d", q.Current().ID, current)
	}

	q.SetMode(api.ModeSequential)
	checkIntegrity(t, q)
	if q.Current().ID != current {
		t.Errorf("unshuffle must keep current song, got %d want %d", q.Current().ID, current)
	}
	for i, idx := range q.Order() {
		if i != idx {
			t.Fatalf("leaving shuffle should restore identity order, got %v", q.Order())
		}
	}

	q.SetMode(api.ModeShuffle)
	checkIntegrity(t, q)
	if q.Current().ID != current {
		t.Errorf("re-shuffle must keep current song, got %d", q.Current().ID)
	}
}

func TestQueue_ShuffleAdvancesThroughPermutation(t *testing.T) {
	q := NewPlayQueue(api.ModeShuffle)
	q.SetSongs(songs(5), 0)
	checkIntegrity(t, q)

	seen := map[int]bool{q.CurrentIndex(): true}
	for i := 0; i < 4; i++ {
		seen[q.NextIndex()] = true
	}
	if len(seen) != 5 {
		t.Errorf("advancing through shuffle should visit every song once, saw %v", seen)
	}
}

func TestQueue_SetCurrentIndex(t *testing.T) {
	q := NewPlayQueue(api.ModeShuffle)
	q.SetSongs(songs(6), 0)

	if !q.SetCurrentIndex(4) {
		t.Fatal("SetCurrentIndex(4) should succeed")
	}
	if q.CurrentIndex() != 4 {
		t.Errorf("expected current index 4, got %d", q.CurrentIndex())
	}
	if q.SetCurrentIndex(17) {
		t.Error("out-of-range index must fail")
	}
}

func TestQueue_PeekDoesNotMove(t *testing.T) {
	q := NewPlayQueue(api.ModeSequential)
	q.SetSongs(songs(3), 0)

	if got := q.PeekNextIndex(); got != 1 {
		t.Errorf("peek expected 1, got %d", got)
	}
	if q.CurrentIndex() != 0 {
		t.Error("peek must not move the cursor")
	}
}

func TestQueue_RestoreRejectsBadPermutation(t *testing.T) {
	q := NewPlayQueue(api.ModeSequential)
	q.Restore(songs(3), []int{0, 0, 2}, 1, api.ModeSequential)
	checkIntegrity(t, q)
}

func TestQueue_RestoreValidState(t *testing.T) {
	q := NewPlayQueue(api.ModeSequential)
	q.Restore(songs(3), []int{2, 0, 1}, 1, api.ModeShuffle)

	if q.CurrentIndex() != 0 {
		t.Errorf("expected songs index 0 under cursor, got %d", q.CurrentIndex())
	}
	if q.Mode() != api.ModeShuffle {
		t.Errorf("expected shuffle mode, got %v", q.Mode())
	}
}

func TestQueue_EmptyOperations(t *testing.T) {
	q := NewPlayQueue(api.ModeListLoop)
	if q.NextIndex() != -1 || q.PrevIndex() != -1 || q.PeekNextIndex() != -1 {
		t.Error("empty queue operations should return -1")
	}
	if q.Current() != nil {
		t.Error("empty queue has no current song")
	}
}
