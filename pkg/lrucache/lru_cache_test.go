package lrucache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockValue struct {
	data string
}

// TestLRUCache_HitAndMiss tests basic cache hit and miss behavior
func TestLRUCache_HitAndMiss(t *testing.T) {
	t.Parallel()

	cache := New[mockValue](10)

	// Cache miss
	value, ok := cache.Get("bogus")
	assert.False(t, ok)
	assert.Equal(t, mockValue{}, value)

	// Add to cache
	foo := mockValue{"foo"}
	cache.Put("foo key", foo)

	// Cache hit
	value, ok = cache.Get("foo key")
	assert.True(t, ok)
	assert.Equal(t, foo, value)

	// Different query is a cache miss
	value, ok = cache.Get("bar key")
	assert.False(t, ok)
	assert.Equal(t, mockValue{}, value)
}

// TestLRUCache_LRUEviction tests that items are evicted when cache is full
func TestLRUCache_LRUEviction(t *testing.T) {
	t.Parallel()

	cache := New[mockValue](3) // Small cache for testing

	// Add 3 items
	cache.Put("foo key", mockValue{"foo"})
	cache.Put("bar key", mockValue{"bar"})
	cache.Put("baz key", mockValue{"baz"})

	// All 3 should be in cache
	_, ok := cache.Get("foo key")
	assert.True(t, ok)
	_, ok = cache.Get("bar key")
	assert.True(t, ok)
	_, ok = cache.Get("baz key")
	assert.True(t, ok)

	// Add a 4th item, should evict the least recently used one
	cache.Put("qux key", mockValue{"qux"})

	// Check cache size stays at 3 and doesn't grow beyond max size
	assert.Len(t, cache.entries, 3, "Cache should have max size of 3")

	// qux should be in cache (just added)
	_, ok = cache.Get("qux key")
	assert.True(t, ok)

	// foo was the least recently touched of the original three, since
	// the lookups above promoted bar and baz ahead of it
	_, ok = cache.Get("foo key")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = cache.Get("bar key")
	assert.True(t, ok)
	_, ok = cache.Get("baz key")
	assert.True(t, ok)
}

// TestLRUCache_LRUOrdering tests that reading an item updates its LRU order
func TestLRUCache_LRUOrdering(t *testing.T) {
	t.Parallel()

	cache := New[mockValue](3)

	// Add 3 items (LRU order: foo -> bar -> baz)
	cache.Put("foo key", mockValue{"foo"})
	cache.Put("bar key", mockValue{"bar"})
	cache.Put("baz key", mockValue{"baz"})

	// Get promotes foo to most recently used (LRU order: bar -> baz -> foo)
	_, ok := cache.Get("foo key")
	assert.True(t, ok)

	// Add qux key, should evict bar key (now the LRU)
	cache.Put("qux key", mockValue{"qux"})

	// bar key should be evicted
	_, ok = cache.Get("bar key")
	assert.False(t, ok, "bar key should have been evicted as LRU")

	// foo key should still be in cache (was accessed recently)
	_, ok = cache.Get("foo key")
	assert.True(t, ok, "foo key should still be cached")

	// Others should be in cache
	_, ok = cache.Get("baz key")
	assert.True(t, ok)
	_, ok = cache.Get("qux key")
	assert.True(t, ok)
}

// TestLRUCache_Delete tests that a deleted entry is no longer retrievable
func TestLRUCache_Delete(t *testing.T) {
	t.Parallel()

	cache := New[mockValue](10)
	cache.Put("foo key", mockValue{"foo"})

	cache.Delete("foo key")
	_, ok := cache.Get("foo key")
	assert.False(t, ok)

	// Deleting a missing key is a no-op
	cache.Delete("bogus")
}

// TestLRUCache_Each tests that Each visits every entry most-recently-used first
func TestLRUCache_Each(t *testing.T) {
	t.Parallel()

	cache := New[mockValue](10)
	cache.Put("foo key", mockValue{"foo"})
	cache.Put("bar key", mockValue{"bar"})

	var keys []string
	cache.Each(func(key string, value mockValue) {
		keys = append(keys, key)
	})
	assert.Equal(t, []string{"bar key", "foo key"}, keys)
}

// TestLRUCache_Concurrent tests thread safety of the cache
func TestLRUCache_Concurrent(t *testing.T) {
	t.Parallel()

	var (
		cache = New[mockValue](100)
		wg    sync.WaitGroup
	)

	// Concurrent writes
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("foo%d", n)
			cache.Put(key, mockValue{fmt.Sprintf("value%d", n)})
		}(i)
	}

	// Concurrent reads
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("foo%d", n)
			cache.Get(key)
		}(i)
	}

	wg.Wait()

	// Verify all items are accessible
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("foo%d", i)
		_, ok := cache.Get(key)
		assert.True(t, ok, "key %s should be in cache", key)
	}
}
