package pagecache

import (
	"sort"
	"sync"

	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
)

/*
Cache maps normalized URLs to page records.

Policy
- One record per key; a second Begin for a known key returns the existing
  record
- Eviction-by-wipe: when a new fetch begins and the number of records
  exceeds the capacity, every record is dropped before the new pending
  record is inserted
- Seeding never wipes

Keys are expected to be normalized by the caller (urlutil.CacheKey).
*/
type Cache struct {
	mu           sync.Mutex
	store        Store
	capacity     int
	metadataSink metadata.MetadataSink
}

func NewCache(capacity int, metadataSink metadata.MetadataSink) *Cache {
	return NewCacheWithStore(NewMemoryStore(), capacity, metadataSink)
}

func NewCacheWithStore(store Store, capacity int, metadataSink metadata.MetadataSink) *Cache {
	if capacity < 0 {
		capacity = 0
	}
	return &Cache{
		store:        store,
		capacity:     capacity,
		metadataSink: metadataSink,
	}
}

func (c *Cache) Capacity() int {
	return c.capacity
}

// Begin returns the record for key, creating a pending one when absent.
// created is true when the caller owns the new record and must resolve it.
func (c *Cache) Begin(key string) (record *PageRecord, created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.store.Get(key); ok {
		return existing, false
	}

	if size := c.store.Size(); size > c.capacity {
		c.store.Clear()
		c.metadataSink.RecordCacheWipe(size, c.capacity)
	}

	record = newPendingRecord(key)
	c.store.Put(key, record)
	return record, true
}

// Seed stores an already loaded document under key unless a record exists.
func (c *Cache) Seed(key string, doc *extractor.Document, fingerprint string) *PageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.store.Get(key); ok {
		return existing
	}
	record := newLoadedRecord(key, doc, fingerprint)
	c.store.Put(key, record)
	return record
}

func (c *Cache) Get(key string) (*PageRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(key)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Size()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear()
}

// Entry is a point-in-time view of one record.
type Entry struct {
	Key         string
	Status      Status
	Title       string
	Fingerprint string
}

// Snapshot returns every record sorted by key.
func (c *Cache) Snapshot() []Entry {
	c.mu.Lock()
	keys := c.store.Keys()
	records := make([]*PageRecord, 0, len(keys))
	for _, k := range keys {
		if r, ok := c.store.Get(k); ok {
			records = append(records, r)
		}
	}
	c.mu.Unlock()

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, Entry{
			Key:         r.Key(),
			Status:      r.Status(),
			Title:       r.Title(),
			Fingerprint: r.Fingerprint(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}
