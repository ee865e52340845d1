package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// cacheKey derives a deterministic key from the prompt and parameters.
func cacheKey(prompt string, params Params) string {
	payload, _ := json.Marshal(struct {
		Prompt string `json:"prompt"`
		Params Params `json:"params"`
	}{prompt, params})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// responseCache is a size-bounded FIFO cache of completion results shared by
// all concurrent callers. Insertion order drives eviction: once capacity is
// reached the oldest entry goes first.
//
// The cache also tracks in-flight calls per key so that two goroutines racing
// on an identical (prompt, params) pair produce a single outbound request:
// the loser waits for the winner's result instead of dialing the provider.
type responseCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*Result
	order    []string
	inflight map[string]chan struct{}
}

func newResponseCache(capacity int) *responseCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &responseCache{
		capacity: capacity,
		entries:  make(map[string]*Result),
		inflight: make(map[string]chan struct{}),
	}
}

// get returns a copy of the cached result for key, if present.
func (c *responseCache) get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	cp := *res
	cp.Cached = true
	return &cp, true
}

// put stores a successful result, evicting the oldest entry when full.
func (c *responseCache) put(key string, res *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	cp := *res
	c.entries[key] = &cp
}

// begin claims the in-flight slot for key. The second return value is false
// when another caller already holds the slot; in that case the returned
// channel closes once that caller finishes.
func (c *responseCache) begin(key string) (<-chan struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.inflight[key]; ok {
		return ch, false
	}
	ch := make(chan struct{})
	c.inflight[key] = ch
	return ch, true
}

// finish releases the in-flight slot for key and wakes any waiters.
func (c *responseCache) finish(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.inflight[key]; ok {
		close(ch)
		delete(c.inflight, key)
	}
}

// len returns the number of cached entries.
func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
