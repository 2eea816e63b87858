package marketdata

import "sync"

// symbolCache is the single-writer/multi-reader cache the poller owns (spec
// §5 Shared state: "MarketData.cache: single-writer (poller) / multi-reader;
// reads return snapshots"). It is a field on Service, not a package global,
// so multiple Services (e.g. under test) never share state.
type symbolCache struct {
	mu   sync.RWMutex
	data map[string]Quote
}

func newSymbolCache() *symbolCache {
	return &symbolCache{data: make(map[string]Quote)}
}

func (c *symbolCache) set(symbol string, q Quote) {
	c.mu.Lock()
	c.data[symbol] = q
	c.mu.Unlock()
}

func (c *symbolCache) get(symbol string) (Quote, bool) {
	c.mu.RLock()
	q, ok := c.data[symbol]
	c.mu.RUnlock()
	return q, ok
}

func (c *symbolCache) symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.data))
	for s := range c.data {
		out = append(out, s)
	}
	return out
}
