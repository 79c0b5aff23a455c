package geo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tourplan/internal/model"
)

var austin = model.Coordinate{Lat: 30.2672, Lng: -97.7431}

func TestGeocodeFallsBackToLessSpecificQuery(t *testing.T) {
	r := NewStaticResolver(map[string]model.Coordinate{"Austin, TX": austin})
	g := NewGeocoder(r, NewGeocodeCache(0))

	got, ok := g.Geocode(context.Background(), "999 Nowhere Ave, Austin, TX 78701")
	require.True(t, ok)
	require.Equal(t, austin, got)
	require.Equal(t, 1, r.Calls("999 Nowhere Ave, Austin, TX 78701"))
}

func TestGeocodeCachesFailures(t *testing.T) {
	r := NewStaticResolver(nil)
	cache := NewGeocodeCache(0)
	g := NewGeocoder(r, cache)

	_, ok := g.Geocode(context.Background(), "Atlantis")
	require.False(t, ok)
	_, ok = g.Geocode(context.Background(), "  atlantis ")
	require.False(t, ok)
	require.Equal(t, 1, r.Calls("Atlantis"), "failed lookups must not be retried")

	_, found, cached := cache.Lookup("atlantis")
	require.True(t, cached)
	require.False(t, found)
}

func TestGeocodeCacheResetAllowsRetry(t *testing.T) {
	r := NewStaticResolver(nil)
	cache := NewGeocodeCache(0)
	g := NewGeocoder(r, cache)

	_, ok := g.Geocode(context.Background(), "Austin, TX")
	require.False(t, ok)

	cache.Reset()
	r.Add("Austin, TX", austin)
	got, ok := g.Geocode(context.Background(), "Austin, TX")
	require.True(t, ok)
	require.Equal(t, austin, got)
}

type failingResolver struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *failingResolver) Resolve(_ context.Context, q string) (model.Coordinate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	return model.Coordinate{}, f.err
}

func TestGeocodeResolverErrorsTryNextQuery(t *testing.T) {
	f := &failingResolver{err: errors.New("boom")}
	g := NewGeocoder(f, nil)
	_, ok := g.Geocode(context.Background(), "123 Main St, Austin, TX 78701")
	require.False(t, ok)
	require.Equal(t, ParseAddress("123 Main St, Austin, TX 78701").Queries(), f.calls)
}

type slowResolver struct{}

func (slowResolver) Resolve(ctx context.Context, _ string) (model.Coordinate, error) {
	<-ctx.Done()
	return model.Coordinate{}, ctx.Err()
}

func TestGeocodeTimeoutIsAFailedAttempt(t *testing.T) {
	g := NewGeocoder(slowResolver{}, nil, WithTimeout(5*time.Millisecond))
	_, ok := g.Geocode(context.Background(), "Austin")
	require.False(t, ok)
}

func TestGeocodeNilResolver(t *testing.T) {
	g := NewGeocoder(nil, nil)
	_, ok := g.Geocode(context.Background(), "Austin, TX")
	require.False(t, ok)
}

func TestGeocodeCacheFirstWriterWins(t *testing.T) {
	cache := NewGeocodeCache(0)
	first := model.Coordinate{Lat: 1, Lng: 1}
	coord, found := cache.Store("k", first, true)
	require.True(t, found)
	require.Equal(t, first, coord)

	coord, found = cache.Store("k", model.Coordinate{Lat: 2, Lng: 2}, true)
	require.True(t, found)
	require.Equal(t, first, coord)
}

func TestGeocodeCacheConcurrentStores(t *testing.T) {
	cache := NewGeocodeCache(0)
	var wg sync.WaitGroup
	results := make([]model.Coordinate, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.Store("shared", model.Coordinate{Lat: float64(i)}, true)
		}(i)
	}
	wg.Wait()
	for _, r := range results[1:] {
		require.Equal(t, results[0], r)
	}
}

func TestGeocodeCancelledLookupIsNotCached(t *testing.T) {
	r := NewStaticResolver(map[string]model.Coordinate{"Austin, TX": austin})
	g := NewGeocoder(r, NewGeocodeCache(16))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := g.Geocode(ctx, "Austin, TX")
	require.False(t, ok)
	require.Zero(t, r.Calls("Austin, TX"))

	coord, ok := g.Geocode(context.Background(), "Austin, TX")
	require.True(t, ok)
	require.Equal(t, austin, coord)
	require.Equal(t, 1, r.Calls("Austin, TX"))
}
