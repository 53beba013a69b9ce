package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUGetSetBasic(t *testing.T) {
	c := New(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUEvictsOldestOnMissThenInsert(t *testing.T) {
	// §8 boundary behavior: a cache at capacity drops the oldest-by-
	// insertion-time entry on a miss-then-insert.
	c := New(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok)

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestLRUHitThenInsertEvictsSecondOldest(t *testing.T) {
	// §8: "a hit-then-insert of the same oldest key" keeps the oldest
	// alive and instead evicts what is now the second-oldest.
	c := New(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a") // touch "a", making "b" the new LRU victim
	assert.True(t, ok)

	c.Set("d", 4) // evicts "b", not "a"

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRUExpiredEntryCountsAsMiss(t *testing.T) {
	c := New(10, time.Millisecond)
	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)

	_, _, _, misses := c.Stats()
	assert.GreaterOrEqual(t, misses, int64(1))
}

func TestHashKeyTruncatesTo500Chars(t *testing.T) {
	short := "hello"
	long := ""
	for i := 0; i < 600; i++ {
		long += "x"
	}
	longTruncated := long[:500]

	assert.Equal(t, HashKey("fn", long), HashKey("fn", longTruncated))
	assert.NotEqual(t, HashKey("fn", short), HashKey("fn", long))
}

func TestLRUCapacityNeverExceeded(t *testing.T) {
	c := New(5, time.Hour)
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
		size, capacity, _, _ := c.Stats()
		assert.LessOrEqual(t, size, capacity)
	}
}
