package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCache(ttl time.Duration) (*TTLCache[string, int], *time.Time) {
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New[string, int](ttl, time.Hour)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestGetSetExpiry(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Close()

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	*clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestSetIfAbsent(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Close()

	assert.True(t, c.SetIfAbsent("pair", 1))
	assert.False(t, c.SetIfAbsent("pair", 2))

	v, _ := c.Get("pair")
	assert.Equal(t, 1, v)

	*clock = clock.Add(61 * time.Second)
	assert.True(t, c.SetIfAbsent("pair", 3))

	c.Delete("pair")
	assert.True(t, c.SetIfAbsent("pair", 4))
}

func TestCloseTwice(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	c.Close()
	assert.NotPanics(t, c.Close)
}
