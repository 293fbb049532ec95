package checksum

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/dupefind/pkg/logger"
)

// Entry is a checksum together with the file metadata it was computed for.
type Entry struct {
	Crc32   uint32
	Size    int64
	ModTime time.Time
}

// Matches reports whether the entry is still valid for the given metadata.
func (e Entry) Matches(size int64, modTime time.Time) bool {
	return e.Size == size && e.ModTime.Equal(modTime)
}

type CacheStats struct {
	// Hits counts lookups answered from a valid entry.
	Hits uint64
	// Computed counts full content reads, including recomputations of stale entries.
	Computed uint64
	// Failures counts lookups that could not stat or read the file.
	Failures uint64
}

// Cache maps paths to checksums and recomputes them once the file's size or
// modification time changes. Content rewritten in place with the same size
// and modification time is not detected.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	stats   CacheStats
	log     *logrus.Entry
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		log:     logger.GetLogger("checksum"),
	}
}

// AcquireCrc32 returns the checksum of path, reading the file only when no
// valid entry exists.
func (c *Cache) AcquireCrc32(path string) (uint32, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.mu.Lock()
		c.stats.Failures++
		c.mu.Unlock()
		return 0, errors.Wrap(err, "stat file")
	}

	size, modTime := info.Size(), info.ModTime()

	c.mu.Lock()
	entry, ok := c.entries[path]
	if ok && entry.Matches(size, modTime) {
		c.stats.Hits++
		c.mu.Unlock()
		return entry.Crc32, nil
	}
	c.mu.Unlock()

	if ok {
		c.log.Tracef("Checksum entry is stale, recomputing: %q", path)
	}

	crc, err := File(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.stats.Failures++
		delete(c.entries, path)
		return 0, err
	}

	c.stats.Computed++
	c.entries[path] = Entry{
		Crc32:   crc,
		Size:    size,
		ModTime: modTime,
	}

	return crc, nil
}

// Lookup returns the stored entry for path without validating it.
func (c *Cache) Lookup(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	return e, ok
}

func (c *Cache) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	c.stats = CacheStats{}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
