//go:build postgres_integration

package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"tourplan/internal/tour"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Ping(t.Context()))
	require.NoError(t, p.Migrate(t.Context()))

	require.NoError(t, p.Import(t.Context(), testDataset()))

	venues, err := p.ListVenues(t.Context(), tour.VenueFilter{MaxCapacity: 1000, ExcludeIDs: []string{"v3"}})
	require.NoError(t, err)
	var ids []string
	for _, v := range venues {
		ids = append(ids, v.ID)
	}
	require.Contains(t, ids, "v1")
	require.NotContains(t, ids, "v2")
	require.NotContains(t, ids, "v3")

	events, err := p.ListEvents(t.Context(), day("2025-03-01"), day("2025-03-31"))
	require.NoError(t, err)
	require.NotEmpty(t, events)

	a, err := p.IsGroupAvailable(t.Context(), "g1", day("2025-03-08"))
	require.NoError(t, err)
	require.False(t, a.Available)
	require.Equal(t, "b1", a.BlockingBookingID)

	g, err := p.GetGroup(t.Context(), "g1")
	require.NoError(t, err)
	require.Equal(t, []string{"v1"}, g.Favorites)

	_, err = p.GetGroup(t.Context(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
