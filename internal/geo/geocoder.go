// Package geo turns free-form venue locations into coordinates and
// distance estimates, degrading to region heuristics when geocoding fails.
package geo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tourplan/internal/metrics"
	"tourplan/internal/model"
)

// ErrNotFound is returned by resolvers when a query has no usable result.
var ErrNotFound = errors.New("geo: location not found")

// Resolver resolves one query string to a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, query string) (model.Coordinate, error)
}

// DefaultTimeout bounds a single resolver attempt.
const DefaultTimeout = 5 * time.Second

// Geocoder resolves location strings through progressively less specific
// queries and caches the outcome per normalized location.
type Geocoder struct {
	resolver Resolver
	cache    *GeocodeCache
	timeout  time.Duration
	logger   zerolog.Logger
}

type GeocoderOption func(*Geocoder)

func WithTimeout(d time.Duration) GeocoderOption {
	return func(g *Geocoder) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) GeocoderOption {
	return func(g *Geocoder) { g.logger = l }
}

// NewGeocoder builds a Geocoder. A nil resolver makes every lookup fail,
// which leaves distance estimation to the heuristic tiers. A nil cache
// gets a private one.
func NewGeocoder(resolver Resolver, cache *GeocodeCache, opts ...GeocoderOption) *Geocoder {
	if cache == nil {
		cache = NewGeocodeCache(0)
	}
	g := &Geocoder{
		resolver: resolver,
		cache:    cache,
		timeout:  DefaultTimeout,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode returns the coordinate for location and whether it was found.
// Resolver errors never escape: a failed attempt moves on to the next query.
// Only a lookup that tried every query is cached as not found.
func (g *Geocoder) Geocode(ctx context.Context, location string) (model.Coordinate, bool) {
	key := Normalize(location)
	if key == "" {
		return model.Coordinate{}, false
	}
	if coord, found, cached := g.cache.Lookup(key); cached {
		metrics.GeocodeLookups.WithLabelValues("cache_hit").Inc()
		return coord, found
	}
	if g.resolver == nil {
		metrics.GeocodeLookups.WithLabelValues("not_found").Inc()
		return g.cache.Store(key, model.Coordinate{}, false)
	}

	for _, q := range ParseAddress(location).Queries() {
		if ctx.Err() != nil {
			break
		}
		coord, err := g.attempt(ctx, q)
		if err == nil {
			g.logger.Debug().Str("location", location).Str("query", q).
				Float64("lat", coord.Lat).Float64("lng", coord.Lng).Msg("geocoded")
			metrics.GeocodeLookups.WithLabelValues("resolved").Inc()
			return g.cache.Store(key, coord, true)
		}
		g.logger.Debug().Err(err).Str("location", location).Str("query", q).Msg("geocode attempt failed")
	}
	if err := ctx.Err(); err != nil {
		// Not every query was tried; a later caller may still resolve it.
		g.logger.Debug().Err(err).Str("location", location).Msg("geocode abandoned")
		return model.Coordinate{}, false
	}
	g.logger.Info().Str("location", location).Msg("location could not be geocoded, using heuristics")
	metrics.GeocodeLookups.WithLabelValues("not_found").Inc()
	return g.cache.Store(key, model.Coordinate{}, false)
}

func (g *Geocoder) attempt(ctx context.Context, q string) (model.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.resolver.Resolve(ctx, q)
}

// StaticResolver resolves queries from a fixed table keyed by normalized
// query. It backs offline runs and tests.
type StaticResolver struct {
	mu     sync.RWMutex
	coords map[string]model.Coordinate
	calls  map[string]int
}

func NewStaticResolver(coords map[string]model.Coordinate) *StaticResolver {
	r := &StaticResolver{coords: map[string]model.Coordinate{}, calls: map[string]int{}}
	for k, v := range coords {
		r.coords[Normalize(k)] = v
	}
	return r
}

// Add registers a coordinate for a query.
func (r *StaticResolver) Add(query string, c model.Coordinate) {
	r.mu.Lock()
	r.coords[Normalize(query)] = c
	r.mu.Unlock()
}

func (r *StaticResolver) Resolve(ctx context.Context, query string) (model.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return model.Coordinate{}, err
	}
	k := Normalize(query)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[k]++
	c, ok := r.coords[k]
	if !ok {
		return model.Coordinate{}, ErrNotFound
	}
	return c, nil
}

// Calls reports how many times query was resolved.
func (r *StaticResolver) Calls(query string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls[Normalize(query)]
}
