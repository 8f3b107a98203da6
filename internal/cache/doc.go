/*
Package cache provides an in-memory LRU cache with time-based expiry.

The S3 aux data provider keeps the names found below each listed prefix in
an LRU so that validators asking for the same folder repeatedly do not list
the bucket again:

	listings := cache.NewLRU[[]string](&cache.Config{
		MaxEntries: 1024,
		TTL:        5 * time.Minute,
	})

	if names, ok := listings.Get(prefix); ok {
		return names, nil
	}

Entries older than TTL are dropped when accessed. When MaxEntries is
exceeded the least recently used entry is evicted. Stats reports hits,
misses and evictions.
*/
package cache
