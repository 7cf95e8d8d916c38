package transfer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xlfish233/netease-tui/internal/state"
)

const indexVersion = 2

// Key identifies one cached audio file: a song at a bitrate.
type Key struct {
	SongID int64
	Br     int64
}

func (k Key) String() string {
	return fmt.Sprintf("%d_%d", k.SongID, k.Br)
}

func (k Key) fileName() string {
	return k.String() + ".bin"
}

type indexEntry struct {
	FileName   string `json:"file_name"`
	SizeBytes  int64  `json:"size_bytes"`
	LastUsedMs int64  `json:"last_used_epoch_ms"`

	// seq breaks LRU ties within the same millisecond; not persisted.
	seq uint64
}

type indexFile struct {
	Version int                   `json:"version"`
	Entries map[string]indexEntry `json:"entries"`
}

// Cache owns the on-disk audio cache directory and its index. It is not
// safe for concurrent use; the transfer pool confines it to one goroutine.
type Cache struct {
	dir      string
	maxBytes int64
	entries  map[Key]indexEntry
	dirty    bool
	nextSeq  uint64
	log      *logrus.Entry
}

// NewCache opens (or creates) the cache under dataDir/audio_cache. An
// index with a different version discards all cached files.
func NewCache(dataDir string, maxBytes int64, log *logrus.Entry) (*Cache, error) {
	dir := filepath.Join(dataDir, "audio_cache")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{
		dir:      dir,
		maxBytes: maxBytes,
		entries:  make(map[Key]indexEntry),
		log:      log,
	}
	c.load()
	return c, nil
}

// Dir returns the cache directory; download temp files are created there
// so the final promotion is a same-filesystem rename.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		return
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil || idx.Version != indexVersion {
		// Old index or old naming rules: drop everything.
		c.log.WithError(err).Warn("cache index unusable, clearing cache")
		// No entries are loaded yet, so clear the directory itself.
		if files, rerr := os.ReadDir(c.dir); rerr == nil {
			for _, f := range files {
				if !f.IsDir() && f.Name() != "index.json" {
					_ = os.Remove(filepath.Join(c.dir, f.Name()))
				}
			}
		}
		c.dirty = true
		return
	}

	for keyStr, ent := range idx.Entries {
		var k Key
		if _, err := fmt.Sscanf(keyStr, "%d_%d", &k.SongID, &k.Br); err != nil {
			continue
		}
		// Drop entries whose file vanished.
		info, err := os.Stat(filepath.Join(c.dir, ent.FileName))
		if err != nil {
			c.dirty = true
			continue
		}
		if ent.SizeBytes == 0 {
			ent.SizeBytes = info.Size()
		}
		c.entries[k] = ent
	}
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

// Lookup returns the cached path for key if its file exists, bumping
// last-used.
func (c *Cache) Lookup(key Key) (string, bool) {
	ent, ok := c.entries[key]
	if !ok {
		return "", false
	}
	path := filepath.Join(c.dir, ent.FileName)
	if _, err := os.Stat(path); err != nil {
		delete(c.entries, key)
		c.dirty = true
		return "", false
	}
	ent.LastUsedMs = time.Now().UnixMilli()
	c.nextSeq++
	ent.seq = c.nextSeq
	c.entries[key] = ent
	c.dirty = true
	return path, true
}

// Promote renames a downloaded temp file into the cache, records it in
// the index, and evicts LRU entries above the size cap. Returns the
// final path.
func (c *Cache) Promote(key Key, tmpPath string) (string, error) {
	path := filepath.Join(c.dir, key.fileName())
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("promote %s: %w", key, err)
	}

	size := int64(0)
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	c.nextSeq++
	c.entries[key] = indexEntry{
		FileName:   key.fileName(),
		SizeBytes:  size,
		LastUsedMs: time.Now().UnixMilli(),
		seq:        c.nextSeq,
	}
	c.dirty = true
	c.evict(path)
	return path, nil
}

// evict removes least-recently-used entries until the total size fits
// under maxBytes. keep (the just-inserted file) is never evicted.
func (c *Cache) evict(keep string) {
	if c.maxBytes <= 0 {
		return
	}

	total := int64(0)
	for _, ent := range c.entries {
		total += ent.SizeBytes
	}
	if total <= c.maxBytes {
		return
	}

	type aged struct {
		key Key
		ent indexEntry
	}
	victims := make([]aged, 0, len(c.entries))
	for k, ent := range c.entries {
		victims = append(victims, aged{k, ent})
	}
	sort.Slice(victims, func(i, j int) bool {
		if victims[i].ent.LastUsedMs != victims[j].ent.LastUsedMs {
			return victims[i].ent.LastUsedMs < victims[j].ent.LastUsedMs
		}
		return victims[i].ent.seq < victims[j].ent.seq
	})

	for _, v := range victims {
		if total <= c.maxBytes {
			break
		}
		path := filepath.Join(c.dir, v.ent.FileName)
		if path == keep {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.log.WithError(err).WithField("key", v.key).Warn("evict failed")
			continue
		}
		delete(c.entries, v.key)
		total -= v.ent.SizeBytes
		c.log.WithField("key", v.key).Debug("evicted from audio cache")
	}
}

// Invalidate removes one entry and its file.
func (c *Cache) Invalidate(key Key) {
	ent, ok := c.entries[key]
	if !ok {
		return
	}
	_ = os.Remove(filepath.Join(c.dir, ent.FileName))
	delete(c.entries, key)
	c.dirty = true
}

// ClearAll removes every cached file except keep. Returns files and
// bytes removed.
func (c *Cache) ClearAll(keep string) (int, int64) {
	files, bytes := c.removeAllFiles(func(path string) bool { return path == keep })
	c.dirty = true
	return files, bytes
}

// PurgeNotBr deletes cached entries whose bitrate differs from br,
// keeping the currently playing file.
func (c *Cache) PurgeNotBr(br int64, keep string) (int, int64) {
	files := 0
	bytes := int64(0)
	for k, ent := range c.entries {
		if k.Br == br {
			continue
		}
		path := filepath.Join(c.dir, ent.FileName)
		if path == keep {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			continue
		}
		delete(c.entries, k)
		files++
		bytes += ent.SizeBytes
	}
	if files > 0 {
		c.dirty = true
	}
	return files, bytes
}

func (c *Cache) removeAllFiles(skip func(string) bool) (int, int64) {
	files := 0
	bytes := int64(0)
	for k, ent := range c.entries {
		path := filepath.Join(c.dir, ent.FileName)
		if skip != nil && skip(path) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			continue
		}
		delete(c.entries, k)
		files++
		bytes += ent.SizeBytes
	}
	return files, bytes
}

// TotalBytes sums the sizes of all indexed entries.
func (c *Cache) TotalBytes() int64 {
	total := int64(0)
	for _, ent := range c.entries {
		total += ent.SizeBytes
	}
	return total
}

// Len returns the number of indexed entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Persist writes the index if dirty. Called on shutdown rather than on
// every lookup.
func (c *Cache) Persist() error {
	if !c.dirty {
		return nil
	}
	idx := indexFile{
		Version: indexVersion,
		Entries: make(map[string]indexEntry, len(c.entries)),
	}
	for k, ent := range c.entries {
		idx.Entries[k.String()] = ent
	}
	data, err := json.MarshalIndent(&idx, "", "  ")
	if err != nil {
		return err
	}
	if err := state.WriteFileAtomic(c.indexPath(), data); err != nil {
		return err
	}
	c.dirty = false
	return nil
}
