package chart

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache memoizes rendered PNGs. Keys embed the ledger's last update time, so
// any mutation makes older entries unreachable and they simply expire.
type Cache struct {
	c *cache.Cache
}

// NewCache creates a cache whose entries live for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{c: cache.New(ttl, 2*ttl)}
}

// Key builds the cache key for a ledger window.
func Key(ledgerUID string, start, end time.Time, updatedAt time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%d", ledgerUID, start.Format("2006-01-02"), end.Format("2006-01-02"), updatedAt.UnixNano())
}

// Get returns a cached PNG.
func (c *Cache) Get(key string) ([]byte, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false
	}
	png, ok := v.([]byte)
	return png, ok
}

// Set stores a PNG with the default expiration.
func (c *Cache) Set(key string, png []byte) {
	c.c.Set(key, png, cache.DefaultExpiration)
}

// Len reports the number of cached entries, expired ones included until
// the janitor runs.
func (c *Cache) Len() int {
	return c.c.ItemCount()
}
