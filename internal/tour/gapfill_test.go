package tour

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"tourplan/internal/model"
)

func gapTable() tableDistances {
	return newTable(map[[2]string]float64{
		{"Home", "A"}: 10, {"Home", "B"}: 10, {"Home", "X"}: 10, {"Home", "Y"}: 10, {"Home", "Z"}: 10,
		{"A", "B"}: 100,
		{"A", "X"}: 50, {"X", "B"}: 50,
		{"A", "Y"}: 150, {"Y", "B"}: 150,
		{"A", "Z"}: 500, {"Z", "B"}: 500,
	})
}

func newTestGapFiller(table tableDistances, t Tuning) *GapFiller {
	return NewGapFiller(table, NewOptimizer(table, t, zerolog.Nop()), t, zerolog.Nop())
}

func venueIDs(cs []model.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Venue.ID+"@"+c.Date.Format(model.DateLayout))
	}
	return out
}

func TestGapFillTwoStopsInWideGap(t *testing.T) {
	p := baseParams()
	route := []model.Candidate{
		candidate("a", "A", "2025-03-01", 60, true),
		candidate("b", "B", "2025-03-20", 60, true),
	}
	venues := []model.Candidate{
		candidate("a", "A", "2025-03-08", 99, false), // already on the tour
		candidate("x", "X", "2025-03-05", 0, false),
		candidate("x", "X", "2025-03-10", 0, false),
		candidate("y", "Y", "2025-03-11", 0, false),
		candidate("z", "Z", "2025-03-12", 0, false),
	}

	merged, n := newTestGapFiller(gapTable(), DefaultTuning()).Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Equal(t, 2, n)
	require.Equal(t, []string{"a@2025-03-01", "x@2025-03-05", "y@2025-03-11", "b@2025-03-20"}, venueIDs(merged))

	x := merged[1]
	require.True(t, x.IsGapFill)
	require.True(t, hasReason(x, GapFillReason))
	e, ok := entry(x, ScoreRouting)
	require.True(t, ok)
	require.InDelta(t, 10*(1-100.0/640), e.Value, 1e-9)
	require.InDelta(t, e.Value, x.Score, 1e-9, "filler score is computed fresh")

	// legs are recomputed over the merged route
	require.Equal(t, model.RouteHomeStart, merged[0].Routing)
	require.Equal(t, model.RouteFromHome, merged[1].Routing)
	require.Equal(t, 10.0, merged[3].DistanceFromPrevious)
}

func TestGapFillSkipsShortAndTravelBoundGaps(t *testing.T) {
	table := newTable(map[[2]string]float64{{"A", "B"}: 700, {"Home", "A"}: 10, {"Home", "B"}: 10})
	f := newTestGapFiller(table, DefaultTuning())
	venues := []model.Candidate{candidate("x", "X", "2025-03-02", 0, false), candidate("x", "X", "2025-03-04", 0, false)}

	p := baseParams()
	route := []model.Candidate{candidate("a", "A", "2025-03-01", 60, true), candidate("b", "B", "2025-03-06", 60, true)}
	_, n := f.Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Zero(t, n, "gap within max")

	p.MaxDaysBetweenShows = 1
	route = []model.Candidate{candidate("a", "A", "2025-03-01", 60, true), candidate("b", "B", "2025-03-03", 60, true)}
	_, n = f.Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Zero(t, n, "one travel day leaves no room")
}

func TestGapFillRespectsSpacing(t *testing.T) {
	p := baseParams()
	p.MinDaysBetweenShows = 3
	route := []model.Candidate{
		candidate("a", "A", "2025-03-01", 60, true),
		candidate("m", "A", "2025-03-09", 20, false),
		candidate("b", "B", "2025-03-20", 60, true),
	}
	venues := []model.Candidate{
		candidate("x", "X", "2025-03-03", 0, false), // too close to a
		candidate("x", "X", "2025-03-10", 0, false), // too close to m
		candidate("y", "Y", "2025-03-14", 0, false),
	}
	merged, n := newTestGapFiller(gapTable(), DefaultTuning()).Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Equal(t, 1, n)
	require.Contains(t, venueIDs(merged), "y@2025-03-14")
}

func TestGapFillWeekendPriority(t *testing.T) {
	p := baseParams()
	route := []model.Candidate{
		candidate("a", "A", "2025-03-01", 60, true),
		candidate("b", "B", "2025-03-12", 60, true),
	}
	venues := []model.Candidate{
		candidate("x", "X", "2025-03-05", 0, false), // Wednesday, short detour
		candidate("y", "Y", "2025-03-07", 0, false), // Friday
	}
	f := newTestGapFiller(gapTable(), DefaultTuning())

	merged, n := f.Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Equal(t, 1, n)
	require.Equal(t, "x", merged[1].Venue.ID)

	p.WeekendPriority = true
	merged, n = f.Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Equal(t, 1, n)
	require.Equal(t, "y", merged[1].Venue.ID)
	wk, ok := entry(merged[1], ScoreWeekend)
	require.True(t, ok)
	require.Equal(t, 20.0, wk.Value)
}

func TestGapFillFavoriteBonus(t *testing.T) {
	p := baseParams()
	route := []model.Candidate{
		candidate("a", "A", "2025-03-01", 60, true),
		candidate("b", "B", "2025-03-12", 60, true),
	}
	venues := []model.Candidate{
		candidate("x", "X", "2025-03-05", 0, false),
		candidate("y", "Y", "2025-03-05", 0, false),
	}
	merged, _ := newTestGapFiller(gapTable(), DefaultTuning()).Fill(context.Background(), p, route, venues, map[string]bool{"y": true}, DefaultWeights())
	require.Equal(t, "y", merged[1].Venue.ID)
	require.True(t, hasReason(merged[1], "Favorite venue"))
}

func TestGapFillDropsWeakestOverCap(t *testing.T) {
	tu := DefaultTuning()
	tu.MaxStops = 3
	p := baseParams()
	route := []model.Candidate{
		candidate("a", "A", "2025-03-01", 60, true),
		candidate("b", "B", "2025-03-20", 60, true),
	}
	venues := []model.Candidate{
		candidate("x", "X", "2025-03-05", 0, false),
		candidate("y", "Y", "2025-03-11", 0, false),
	}
	merged, n := newTestGapFiller(gapTable(), tu).Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Equal(t, 1, n)
	require.Equal(t, []string{"a@2025-03-01", "x@2025-03-05", "b@2025-03-20"}, venueIDs(merged))
}

func farFillTable() tableDistances {
	return newTable(map[[2]string]float64{
		{"Home", "L1"}: 10, {"Home", "L2"}: 10, {"Home", "F"}: 1500,
		{"L1", "L2"}: 100, {"L1", "F"}: 1500, {"F", "L2"}: 1500,
	})
}

func TestGapFillRejectsUnreachableFiller(t *testing.T) {
	p := baseParams()
	route := []model.Candidate{
		candidate("v1", "L1", "2025-03-08", 60, true),
		candidate("v2", "L2", "2025-03-20", 60, true),
	}
	venues := []model.Candidate{candidate("vf", "F", "2025-03-19", 0, false)}

	merged, n := newTestGapFiller(farFillTable(), DefaultTuning()).Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Zero(t, n)
	require.Equal(t, []string{"v1@2025-03-08", "v2@2025-03-20"}, venueIDs(merged))
	for i := 1; i < len(merged); i++ {
		require.Less(t, merged[i].TravelDaysNeeded, model.DaysBetween(merged[i-1].Date, merged[i].Date))
	}
}

func TestGapFillRespectsRadius(t *testing.T) {
	p := baseParams()
	route := []model.Candidate{
		candidate("v1", "L1", "2025-03-08", 60, true),
		candidate("v2", "L2", "2025-03-20", 60, true),
	}
	// reachable in time from both sides, but 1500 km out on a 500 km tour
	venues := []model.Candidate{candidate("vf", "F", "2025-03-14", 0, false)}
	f := newTestGapFiller(farFillTable(), DefaultTuning())

	merged, n := f.Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Zero(t, n)
	require.Len(t, merged, 2)

	p.MaxRadiusKm = 5000
	merged, n = f.Fill(context.Background(), p, route, venues, nil, DefaultWeights())
	require.Equal(t, 1, n)
	require.Equal(t, []string{"v1@2025-03-08", "vf@2025-03-14", "v2@2025-03-20"}, venueIDs(merged))
	require.Equal(t, 1500.0, merged[1].DistanceFromPrevious)
	require.Equal(t, 2, merged[1].TravelDaysNeeded)
}

func TestUnreachableFiller(t *testing.T) {
	a := candidate("a", "A", "2025-03-01", 60, true)
	f := candidate("f", "F", "2025-03-05", 0, false)
	f.IsGapFill = true
	b := candidate("b", "B", "2025-03-06", 60, true)

	require.Equal(t, -1, unreachableFiller([]model.Candidate{a, f, b}))
	b.TravelDaysNeeded = 1
	require.Equal(t, 1, unreachableFiller([]model.Candidate{a, f, b}), "the filler before a late stop goes")
	b.TravelDaysNeeded = 0
	f.TravelDaysNeeded = 4
	require.Equal(t, 1, unreachableFiller([]model.Candidate{a, f, b}))
}
