package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fieldpack/internal/resource"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU(100, nil)
	k := Key{Path: "a.vol", Block: 0}

	_, ok := c.Get(k)
	assert.False(t, ok)

	c.Set(k, []byte("hello"))
	v, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), v)
	assert.Equal(t, int64(5), c.Size())
	assert.Equal(t, 1, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_EvictsLeastRecent(t *testing.T) {
	c := NewLRU(30, nil)
	for i := range int64(3) {
		c.Set(Key{Path: "v", Block: i}, make([]byte, 10))
	}

	// Touch block 0 so block 1 becomes the eviction victim.
	_, ok := c.Get(Key{Path: "v", Block: 0})
	require.True(t, ok)

	c.Set(Key{Path: "v", Block: 3}, make([]byte, 10))

	_, ok = c.Get(Key{Path: "v", Block: 1})
	assert.False(t, ok)
	_, ok = c.Get(Key{Path: "v", Block: 0})
	assert.True(t, ok)
	assert.Equal(t, int64(30), c.Size())
}

func TestLRU_OversizedNotCached(t *testing.T) {
	c := NewLRU(50, nil)
	k := Key{Path: "big"}
	c.Set(k, make([]byte, 60))

	_, ok := c.Get(k)
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRU_Replace(t *testing.T) {
	c := NewLRU(50, nil)
	k := Key{Path: "v", Block: 7}

	c.Set(k, make([]byte, 10))
	c.Set(k, make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())

	c.Set(k, make([]byte, 5))
	assert.Equal(t, int64(5), c.Size())
	assert.Equal(t, 1, c.Len())
}

func TestLRU_ChargesController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 10})
	c := NewLRU(50, rc)

	c.Set(Key{Path: "v", Block: 0}, make([]byte, 8))
	assert.Equal(t, int64(8), rc.MemoryUsage())

	// Over the shared budget: dropped, usage unchanged.
	c.Set(Key{Path: "v", Block: 1}, make([]byte, 4))
	_, ok := c.Get(Key{Path: "v", Block: 1})
	assert.False(t, ok)
	assert.Equal(t, int64(8), rc.MemoryUsage())

	c.Purge()
	assert.Zero(t, rc.MemoryUsage())
	assert.Zero(t, c.Len())
}

func TestLRU_Invalidate(t *testing.T) {
	c := NewLRU(100, nil)
	c.Set(Key{Path: "runs/a.vol", Block: 0}, []byte("a"))
	c.Set(Key{Path: "runs/a.vol", Block: 1}, []byte("b"))
	c.Set(Key{Path: "runs/b.vol", Block: 0}, []byte("c"))
	c.Set(Key{Path: "other.vol", Block: 0}, []byte("d"))

	c.InvalidatePath("runs/a.vol")
	assert.Equal(t, 2, c.Len())

	c.InvalidatePrefix("runs/")
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(Key{Path: "other.vol"})
	assert.True(t, ok)
}
