package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tourplan/internal/model"
)

func TestDistanceHeuristicTiers(t *testing.T) {
	e := NewEstimator(nil, Tiers{})
	ctx := context.Background()

	tests := []struct {
		name   string
		a, b   string
		km     float64
		method Method
	}{
		{"identical strings", "Austin, TX", " austin,  tx ", 0, MethodIdentical},
		{"same city", "100 Congress Ave, Austin, TX", "Austin, TX 78701", 16, MethodSameCity},
		{"same region", "Austin, TX", "Dallas, TX", 240, MethodRegion},
		{"neighboring region", "Dallas, TX", "Tulsa, OK", 360, MethodNeighbor},
		{"cross-border neighbor", "Detroit, MI", "Toronto, ON", 360, MethodNeighbor},
		{"far apart", "Austin, TX", "Portland, ME", 800, MethodDefault},
		{"same city name different state", "Portland, OR", "Portland, ME", 800, MethodDefault},
		{"unparseable", "somewhere", "elsewhere", 800, MethodDefault},
		{"same code different country", "Perth, WA, Australia", "Seattle, WA", 800, MethodDefault},
		{"foreign code beside a US neighbor", "Perth, WA, Australia", "Portland, OR", 800, MethodDefault},
		{"same city name different country", "Perth, WA, Australia", "Perth, WA", 800, MethodDefault},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Distance(ctx, tc.a, tc.b)
			require.Equal(t, tc.method, got.Method)
			require.InDelta(t, tc.km, got.Km, 1e-9)
		})
	}
}

func TestDistanceCustomTiers(t *testing.T) {
	e := NewEstimator(nil, Tiers{SameCityKm: 5, SameRegionKm: 100, NeighborFactor: 2, DefaultKm: 1000})
	ctx := context.Background()
	require.Equal(t, 5.0, e.Distance(ctx, "Austin, TX", "Austin TX 78702").Km)
	require.Equal(t, 200.0, e.Distance(ctx, "Dallas, TX", "Tulsa, OK").Km)
	require.Equal(t, 1000.0, e.Distance(ctx, "Miami, FL", "Seattle, WA").Km)
}

func TestDistanceGeocoded(t *testing.T) {
	r := NewStaticResolver(map[string]model.Coordinate{
		"Austin, TX": {Lat: 30.2672, Lng: -97.7431},
		"Dallas, TX": {Lat: 32.7767, Lng: -96.7970},
	})
	e := NewEstimator(NewGeocoder(r, NewGeocodeCache(0)), DefaultTiers())
	got := e.Distance(context.Background(), "Austin, TX", "Dallas, TX")
	require.Equal(t, MethodGeocoded, got.Method)
	require.InDelta(t, 292, got.Km, 5)
}

func TestDistanceOneEndpointUnresolvedUsesHeuristic(t *testing.T) {
	r := NewStaticResolver(map[string]model.Coordinate{"Austin, TX": {Lat: 30.2672, Lng: -97.7431}})
	e := NewEstimator(NewGeocoder(r, nil), DefaultTiers())
	got := e.Distance(context.Background(), "Austin, TX", "Waco, TX")
	require.Equal(t, MethodRegion, got.Method)
	require.Equal(t, 240.0, got.Km)
	require.True(t, got.Method.Heuristic())
}

func TestGreatCircleKm(t *testing.T) {
	// London to Paris
	require.InDelta(t, 344, GreatCircleKm(51.5074, -0.1278, 48.8566, 2.3522), 3)
	require.Zero(t, GreatCircleKm(10, 10, 10, 10))
}
