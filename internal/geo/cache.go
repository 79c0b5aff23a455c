package geo

import (
	"github.com/maypok86/otter/v2"

	"tourplan/internal/model"
)

// DefaultCacheSize bounds the geocode cache. Venue catalogs are far smaller,
// so in practice nothing is evicted during a process lifetime.
const DefaultCacheSize = 100_000

type cacheEntry struct {
	Coord model.Coordinate
	Found bool
}

// GeocodeCache remembers every geocoding outcome, success or failure, keyed
// by normalized location string. It is safe for concurrent use; the first
// writer for a key wins.
type GeocodeCache struct {
	cache *otter.Cache[string, cacheEntry]
}

// NewGeocodeCache creates an empty cache holding up to size entries
// (DefaultCacheSize when size <= 0).
func NewGeocodeCache(size int) *GeocodeCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &GeocodeCache{
		cache: otter.Must(&otter.Options[string, cacheEntry]{
			MaximumSize:     size,
			InitialCapacity: min(size, 1024),
		}),
	}
}

// Lookup returns the cached outcome for key. cached is false when the key
// has never been resolved.
func (c *GeocodeCache) Lookup(key string) (coord model.Coordinate, found, cached bool) {
	e, ok := c.cache.GetIfPresent(key)
	if !ok {
		return model.Coordinate{}, false, false
	}
	return e.Coord, e.Found, true
}

// Store records an outcome unless one already exists, and returns the
// outcome that is now authoritative for key.
func (c *GeocodeCache) Store(key string, coord model.Coordinate, found bool) (model.Coordinate, bool) {
	e := cacheEntry{Coord: coord, Found: found}
	if cur, inserted := c.cache.SetIfAbsent(key, e); !inserted {
		return cur.Coord, cur.Found
	}
	return coord, found
}

func (c *GeocodeCache) Len() int { return c.cache.EstimatedSize() }

// Reset drops every entry.
func (c *GeocodeCache) Reset() { c.cache.InvalidateAll() }
