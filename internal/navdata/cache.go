package navdata

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"infinite-experiment/fmsuplink/internal/metrics"
)

// CachedDatabase keeps recent fix and airway lookups in memory. Procedure
// lookups pass straight through.
type CachedDatabase struct {
	Database

	fixes   *expirable.LRU[string, []Fix]
	airways *expirable.LRU[string, []Airway]
	metrics *metrics.MetricsRegistry
}

// NewCachedDatabase wraps db with LRU caches of size entries each.
// metricsReg may be nil.
func NewCachedDatabase(db Database, size int, ttl time.Duration, metricsReg *metrics.MetricsRegistry) *CachedDatabase {
	return &CachedDatabase{
		Database: db,
		fixes:    expirable.NewLRU[string, []Fix](size, nil, ttl),
		airways:  expirable.NewLRU[string, []Airway](size, nil, ttl),
		metrics:  metricsReg,
	}
}

func (c *CachedDatabase) hit(cache string, ok bool) {
	if c.metrics == nil {
		return
	}
	if ok {
		c.metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		c.metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func (c *CachedDatabase) SearchFixes(ctx context.Context, ident string) ([]Fix, error) {
	if fixes, ok := c.fixes.Get(ident); ok {
		c.hit("navdb_fixes", true)
		return fixes, nil
	}
	c.hit("navdb_fixes", false)

	fixes, err := c.Database.SearchFixes(ctx, ident)
	if err != nil {
		return nil, err
	}
	c.fixes.Add(ident, fixes)
	return fixes, nil
}

func (c *CachedDatabase) SearchAirways(ctx context.Context, ident string, through Fix) ([]Airway, error) {
	key := ident + "|" + through.Ident + "|" + through.Region
	if airways, ok := c.airways.Get(key); ok {
		c.hit("navdb_airways", true)
		return airways, nil
	}
	c.hit("navdb_airways", false)

	airways, err := c.Database.SearchAirways(ctx, ident, through)
	if err != nil {
		return nil, err
	}
	c.airways.Add(key, airways)
	return airways, nil
}

// Purge drops every cached lookup, e.g. after a re-import.
func (c *CachedDatabase) Purge() {
	c.fixes.Purge()
	c.airways.Purge()
}
