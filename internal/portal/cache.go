package portal

import "time"

// fetchCache memoizes fetch operations for a short window so the renderers
// and exporters of one run do not replay the same HTTP sequence. Keys are
// method name plus arguments; only successful runs are recorded. The clock
// is injected for tests.
type fetchCache struct {
	ttl     time.Duration
	now     func() time.Time
	fetched map[string]time.Time
}

func newFetchCache(ttl time.Duration, now func() time.Time) *fetchCache {
	if now == nil {
		now = time.Now
	}
	return &fetchCache{ttl: ttl, now: now, fetched: make(map[string]time.Time)}
}

// do runs fn unless key completed successfully within the TTL. Errors are
// never cached; the next call retries.
func (c *fetchCache) do(key string, fn func() error) error {
	if at, ok := c.fetched[key]; ok && c.now().Sub(at) < c.ttl {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	c.fetched[key] = c.now()
	return nil
}
