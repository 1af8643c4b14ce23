// ABOUTME: Tests for the idempotency key cache
// ABOUTME: Covers duplicate detection, TTL expiry, size-bounded eviction, and concurrent access

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeenMarksNewKeys(t *testing.T) {
	c := New(time.Minute, 100)
	defer c.Close()

	assert.False(t, c.Seen("key-1"), "first sighting must not be a duplicate")
	assert.True(t, c.Seen("key-1"), "second sighting must be a duplicate")
	assert.False(t, c.Seen("key-2"))
}

func TestSeenExpiresAfterTTL(t *testing.T) {
	c := New(20*time.Millisecond, 100)
	defer c.Close()

	assert.False(t, c.Seen("key-1"))
	time.Sleep(40 * time.Millisecond)
	assert.False(t, c.Seen("key-1"), "expired key must count as new")
}

func TestEvictsOldestAtCapacity(t *testing.T) {
	c := New(time.Minute, 3)
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.Seen(fmt.Sprintf("key-%d", i))
	}
	c.Seen("key-3") // evicts key-0

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Seen("key-0"), "evicted key must count as new")
	assert.True(t, c.Seen("key-3"))
}

func TestDuplicateRefreshesPosition(t *testing.T) {
	c := New(time.Minute, 2)
	defer c.Close()

	c.Seen("a")
	c.Seen("b")
	c.Seen("a") // refresh; b is now oldest
	c.Seen("c") // evicts b

	assert.True(t, c.Seen("a"))
	assert.False(t, c.Seen("b"))
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute, 1000)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Seen(fmt.Sprintf("worker-%d-key-%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, c.Len())
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}
