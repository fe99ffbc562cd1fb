package cache

import (
	"container/list"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/fieldpack/internal/resource"
)

// Key identifies one block of a blob.
type Key struct {
	Path  string
	Block int64
}

// LRU is a byte-bounded least-recently-used block cache.
// Returned slices must be treated as read-only.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value []byte
}

// NewLRU creates a cache holding at most capacity bytes.
// If rc is non-nil, cached bytes are charged to its memory budget.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached block.
func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a block. Blocks larger than the capacity, or blocks the memory
// budget cannot admit, are silently dropped.
func (c *LRU) Set(key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(b))
	if n > c.capacity {
		return
	}

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}

	// Evict locally first so the released bytes go back to the controller.
	for c.size+n > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			break
		}
		c.removeElement(el)
	}

	if err := c.rc.AcquireMemory(n); err != nil {
		return
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, value: b})
	c.size += n
}

// InvalidatePath drops every block of the named blob.
func (c *LRU) InvalidatePath(path string) {
	c.Invalidate(func(k Key) bool { return k.Path == path })
}

// InvalidatePrefix drops every block whose path starts with prefix.
func (c *LRU) InvalidatePrefix(prefix string) {
	c.Invalidate(func(k Key) bool { return strings.HasPrefix(k.Path, prefix) })
}

// Invalidate removes entries matching the predicate.
func (c *LRU) Invalidate(predicate func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var drop []*list.Element
	for key, el := range c.items {
		if predicate(key) {
			drop = append(drop, el)
		}
	}
	for _, el := range drop {
		c.removeElement(el)
	}
}

// Purge empties the cache and returns its memory to the controller.
func (c *LRU) Purge() {
	c.Invalidate(func(Key) bool { return true })
}

// Stats returns hit and miss counters.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the current size of the cache in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached blocks.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *LRU) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	e := el.Value.(*entry)
	delete(c.items, e.key)
	n := int64(len(e.value))
	c.size -= n
	c.rc.ReleaseMemory(n)
}
