package core

import (
	"math/rand"

	"github.com/xlfish233/netease-tui/api"
)

// PlayQueue holds the songs available for playback plus a permutation
// over them. songs is the stable index order; order is identity or a
// shuffle; cursor indexes into order. Owned exclusively by App.
type PlayQueue struct {
	songs  []api.Song
	order  []int
	cursor int // -1 when empty / no current
	mode   api.PlayMode
}

// NewPlayQueue creates an empty queue in mode.
func NewPlayQueue(mode api.PlayMode) *PlayQueue {
	return &PlayQueue{cursor: -1, mode: mode}
}

// SetSongs replaces the queue wholesale, positioning the cursor at
// startIndex (an index into songs). The caller hands over ownership of
// the slice.
func (q *PlayQueue) SetSongs(songs []api.Song, startIndex int) {
	q.songs = songs
	q.rebuildOrder(startIndex)
}

// Clear empties the queue.
func (q *PlayQueue) Clear() {
	q.songs = nil
	q.order = nil
	q.cursor = -1
}

func (q *PlayQueue) IsEmpty() bool {
	return len(q.songs) == 0
}

func (q *PlayQueue) Len() int {
	return len(q.songs)
}

// Songs returns the stable-order songs. Callers must not mutate.
func (q *PlayQueue) Songs() []api.Song {
	return q.songs
}

// Order returns the current permutation. Callers must not mutate.
func (q *PlayQueue) Order() []int {
	return q.order
}

// Cursor returns the position within the permutation, -1 if none.
func (q *PlayQueue) Cursor() int {
	return q.cursor
}

func (q *PlayQueue) Mode() api.PlayMode {
	return q.mode
}

// SetMode switches advancement mode. Entering or leaving Shuffle
// regenerates the permutation keeping the current song under the
// cursor.
func (q *PlayQueue) SetMode(mode api.PlayMode) {
	if q.mode == mode {
		return
	}
	current := q.CurrentIndex()
	q.mode = mode
	q.rebuildOrder(current)
}

// CurrentIndex returns the songs index under the cursor, -1 if none.
func (q *PlayQueue) CurrentIndex() int {
	if q.cursor < 0 || q.cursor >= len(q.order) {
		return -1
	}
	return q.order[q.cursor]
}

// Current returns the current song, or nil.
func (q *PlayQueue) Current() *api.Song {
	idx := q.CurrentIndex()
	if idx < 0 {
		return nil
	}
	return &q.songs[idx]
}

// SetCurrentIndex positions the cursor on the given songs index.
func (q *PlayQueue) SetCurrentIndex(index int) bool {
	if index < 0 || index >= len(q.songs) {
		return false
	}
	for pos, i := range q.order {
		if i == index {
			q.cursor = pos
			return true
		}
	}
	return false
}

// PeekNextIndex returns the songs index that Next would move to,
// without moving. Sequential at the end returns -1.
func (q *PlayQueue) PeekNextIndex() int {
	if q.cursor < 0 || len(q.order) == 0 {
		return -1
	}
	switch q.mode {
	case api.ModeSingleLoop:
		return q.order[q.cursor]
	case api.ModeSequential:
		if q.cursor+1 < len(q.order) {
			return q.order[q.cursor+1]
		}
		return -1
	default: // ListLoop, Shuffle
		return q.order[(q.cursor+1)%len(q.order)]
	}
}

// NextIndex advances the cursor and returns the new songs index, or -1
// when Sequential runs off the end (the cursor is cleared).
func (q *PlayQueue) NextIndex() int {
	if q.cursor < 0 || len(q.order) == 0 {
		return -1
	}
	switch q.mode {
	case api.ModeSingleLoop:
		return q.order[q.cursor]
	case api.ModeSequential:
		if q.cursor+1 < len(q.order) {
			q.cursor++
			return q.order[q.cursor]
		}
		q.cursor = -1
		return -1
	default:
		q.cursor = (q.cursor + 1) % len(q.order)
		return q.order[q.cursor]
	}
}

// PrevIndex moves the cursor backwards and returns the new songs index.
func (q *PlayQueue) PrevIndex() int {
	if q.cursor < 0 || len(q.order) == 0 {
		return -1
	}
	switch q.mode {
	case api.ModeSingleLoop:
		return q.order[q.cursor]
	case api.ModeSequential:
		if q.cursor > 0 {
			q.cursor--
		}
		return q.order[q.cursor]
	default:
		if q.cursor == 0 {
			q.cursor = len(q.order) - 1
		} else {
			q.cursor--
		}
		return q.order[q.cursor]
	}
}

// Restore rebuilds a persisted queue. An order that is not a valid
// permutation is regenerated.
func (q *PlayQueue) Restore(songs []api.Song, order []int, cursor int, mode api.PlayMode) {
	q.songs = songs
	q.mode = mode
	if !validPermutation(order, len(songs)) {
		start := -1
		if cursor >= 0 && cursor < len(order) {
			start = order[cursor]
		}
		q.rebuildOrder(start)
		return
	}
	q.order = order
	if cursor < 0 || cursor >= len(order) {
		cursor = -1
	}
	q.cursor = cursor
}

// rebuildOrder regenerates the permutation, Fisher-Yates shuffled in
// Shuffle mode, keeping startIndex (a songs index) under the cursor.
func (q *PlayQueue) rebuildOrder(startIndex int) {
	n := len(q.songs)
	q.order = q.order[:0]
	if n == 0 {
		q.cursor = -1
		return
	}
	for i := 0; i < n; i++ {
		q.order = append(q.order, i)
	}
	if q.mode == api.ModeShuffle {
		rand.Shuffle(n, func(i, j int) {
			q.order[i], q.order[j] = q.order[j], q.order[i]
		})
	}
	if startIndex < 0 || startIndex >= n {
		q.cursor = -1
		return
	}
	for pos, i := range q.order {
		if i == startIndex {
			q.cursor = pos
			return
		}
	}
	q.cursor = 0
}

func validPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}
