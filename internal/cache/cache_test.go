package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("kid_1", 42, time.Minute)
	got, ok := c.Get("kid_1")
	assert.True(t, ok)
	assert.Equal(t, 42, got)

	now = now.Add(time.Minute)
	_, ok = c.Get("kid_1")
	assert.False(t, ok, "entry must expire exactly at its ttl")
}

func TestTTLCacheWithoutTTLKeepsEntry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, string](func() time.Time { return now })

	c.Set("k", "v", 0)
	now = now.Add(24 * time.Hour)

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestNewTTLCacheMissingKey(t *testing.T) {
	c := NewTTLCache[string, *int]()
	got, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, got)
}
