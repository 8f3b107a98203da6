package s3

import (
	"sync"
	"time"
)

// FetchStats tracks S3 provider request statistics
type FetchStats struct {
	Requests        int64         `json:"requests"`
	Errors          int64         `json:"errors"`
	ObjectsFetched  int64         `json:"objects_fetched"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	AverageLatency  time.Duration `json:"average_latency"`
	LastError       string        `json:"last_error"`
	LastErrorTime   time.Time     `json:"last_error_time"`
	ListCacheHits   uint64        `json:"list_cache_hits"`
	ListCacheMisses uint64        `json:"list_cache_misses"`
}

// statsCollector aggregates FetchStats
type statsCollector struct {
	mu    sync.RWMutex
	stats FetchStats
}

// recordRequest records one request with its duration and error status
func (c *statsCollector) recordRequest(duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Requests++
	if err != nil {
		c.stats.Errors++
		c.stats.LastError = err.Error()
		c.stats.LastErrorTime = time.Now()
	}

	// Calculate rolling average latency
	if c.stats.Requests == 1 {
		c.stats.AverageLatency = duration
	} else {
		c.stats.AverageLatency = time.Duration(
			(int64(c.stats.AverageLatency)*9 + int64(duration)) / 10,
		)
	}
}

// recordFetch records a downloaded object
func (c *statsCollector) recordFetch(bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.ObjectsFetched++
	c.stats.BytesDownloaded += bytes
}

// snapshot returns a copy of the current statistics
func (c *statsCollector) snapshot() FetchStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
