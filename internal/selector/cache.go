package selector

import (
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/swap-router/internal/model"
)

// quoteCache is a read-through optimization between a quote step and a
// subsequent prepare step. It is not required for correctness: expired or
// evicted entries simply behave as a miss.
type quoteCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result   model.ProviderSelectionResult
	storedAt time.Time
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{
		ttl:     ttl,
		entries: map[string]cacheEntry{},
	}
}

func cacheKey(req *model.SwapRequest) string {
	return fmt.Sprintf("%d:%d:%s:%s:%s:%s",
		req.FromChainID, req.ToChainID, req.FromToken, req.ToToken, req.Amount, req.Sender)
}

func (c *quoteCache) get(req *model.SwapRequest, now time.Time) (*model.ProviderSelectionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(req)
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.Sub(entry.storedAt) > c.ttl || entry.result.Quote.Expired(now) {
		delete(c.entries, key)
		return nil, false
	}
	result := entry.result
	return &result, true
}

func (c *quoteCache) put(req *model.SwapRequest, result *model.ProviderSelectionResult, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(req)] = cacheEntry{result: *result, storedAt: now}
}
