package condition

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetPut(t *testing.T) {
	c := newLRU[int](4)

	_, ok := c.get("missing")
	assert.False(t, ok)

	c.put("a", 1)
	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, c.len())
}

func TestLRU_ReplaceDoesNotGrow(t *testing.T) {
	c := newLRU[string](4)

	c.put("k", "first")
	c.put("k", "second")

	v, ok := c.get("k")
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, c.len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRU[int](3)

	c.put("a", 1)
	c.put("b", 2)
	c.put("c", 3)

	// Touch "a" so "b" becomes the oldest.
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("d", 4)

	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.get("a")
	assert.True(t, ok, "recently accessed entry should survive")
	assert.Equal(t, 3, c.len())
}

func TestLRU_NeverExceedsCapacity(t *testing.T) {
	const capacity = 16
	c := newLRU[int](capacity)

	for i := 0; i < capacity+500; i++ {
		c.put(fmt.Sprintf("key-%d", i), i)
		assert.LessOrEqual(t, c.len(), capacity)
	}
	assert.Equal(t, capacity, c.len())
}

func TestLRU_Purge(t *testing.T) {
	c := newLRU[int](8)
	for i := 0; i < 5; i++ {
		c.put(fmt.Sprintf("key-%d", i), i)
	}

	c.purge()

	assert.Equal(t, 0, c.len())
	_, ok := c.get("key-0")
	assert.False(t, ok)
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := newLRU[int](64)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", i%100)
				c.put(key, g*1000+i)
				c.get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.len(), 64)
}
