package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyDeterministic(t *testing.T) {
	params := DefaultParams()
	params.SystemPrompt = "You are a summarizer."

	k1 := cacheKey("summarize this", params)
	k2 := cacheKey("summarize this", params)
	assert.Equal(t, k1, k2)

	other := params
	other.Temperature = 0.9
	assert.NotEqual(t, k1, cacheKey("summarize this", other))
	assert.NotEqual(t, k1, cacheKey("summarize that", params))
}

func TestResponseCacheFIFOEviction(t *testing.T) {
	cache := newResponseCache(3)

	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("key-%d", i)
		cache.put(key, &Result{Text: key})
	}

	// Oldest entry evicted, rest retained.
	_, ok := cache.get("key-0")
	assert.False(t, ok)
	for i := 1; i < 4; i++ {
		_, ok := cache.get(fmt.Sprintf("key-%d", i))
		assert.True(t, ok)
	}
	assert.Equal(t, 3, cache.len())
}

func TestResponseCacheGetMarksCached(t *testing.T) {
	cache := newResponseCache(10)
	cache.put("k", &Result{Text: "hello", Provider: "p1"})

	res, ok := cache.get("k")
	require.True(t, ok)
	assert.True(t, res.Cached)
	assert.Equal(t, "hello", res.Text)

	// The stored entry itself stays unmarked.
	again, ok := cache.get("k")
	require.True(t, ok)
	assert.True(t, again.Cached)
}

func TestResponseCacheUpdateDoesNotDuplicateOrder(t *testing.T) {
	cache := newResponseCache(2)
	cache.put("a", &Result{Text: "1"})
	cache.put("a", &Result{Text: "2"})
	cache.put("b", &Result{Text: "3"})
	cache.put("c", &Result{Text: "4"})

	// "a" was the oldest insertion and must be the one evicted.
	_, ok := cache.get("a")
	assert.False(t, ok)
	res, ok := cache.get("b")
	require.True(t, ok)
	assert.Equal(t, "3", res.Text)
}

func TestResponseCacheInflight(t *testing.T) {
	cache := newResponseCache(10)

	ch, owner := cache.begin("k")
	require.True(t, owner)
	require.NotNil(t, ch)

	waitCh, second := cache.begin("k")
	assert.False(t, second)

	done := make(chan struct{})
	go func() {
		<-waitCh
		close(done)
	}()

	cache.finish("k")
	<-done

	// Slot released; a new claim succeeds.
	_, owner = cache.begin("k")
	assert.True(t, owner)
	cache.finish("k")
}
