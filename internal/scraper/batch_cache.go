package scraper

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/velikanov/hnjobs/internal/entities"
)

const batchKey = "last_batch"

type cachedBatch struct {
	records    []entities.ExtractedRecord
	capturedAt time.Time
}

// BatchCache holds the most recent successfully extracted batch in a single
// slot. Put overwrites the slot wholesale; Get reports absent once the
// freshness window has elapsed. Nothing survives a restart.
type BatchCache struct {
	cache *gocache.Cache
}

func NewBatchCache(freshnessWindow time.Duration) *BatchCache {
	return &BatchCache{cache: gocache.New(freshnessWindow, 2*freshnessWindow)}
}

func (c *BatchCache) Put(batch []entities.ExtractedRecord) {
	c.cache.Set(batchKey, cachedBatch{records: batch, capturedAt: time.Now()}, gocache.DefaultExpiration)
}

func (c *BatchCache) Get() ([]entities.ExtractedRecord, bool) {
	value, found := c.cache.Get(batchKey)
	if !found {
		return nil, false
	}
	return value.(cachedBatch).records, true
}

// Age reports how long ago the cached batch was captured. The second return
// is false when the slot is empty or stale.
func (c *BatchCache) Age() (time.Duration, bool) {
	value, found := c.cache.Get(batchKey)
	if !found {
		return 0, false
	}
	return time.Since(value.(cachedBatch).capturedAt), true
}
