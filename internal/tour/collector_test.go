package tour

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"tourplan/internal/model"
)

func newTestCollector(fx *fixture) *Collector {
	if fx.availability == nil {
		fx.availability = &fakeAvailability{}
	}
	if fx.distances == nil {
		fx.distances = newTable(nil)
	}
	return NewCollector(fx.availability, fx.venues, fx.events, fx.groups, fx.distances, DefaultTuning(), zerolog.Nop())
}

func TestExpandOccurrences(t *testing.T) {
	until := day("2025-04-15")
	tests := []struct {
		name  string
		ev    model.Event
		want  []string
		recur bool
	}{
		{"single in window", model.Event{ID: "s", Date: day("2025-03-05")}, []string{"s"}, false},
		{"single outside window", model.Event{ID: "s", Date: day("2025-02-05")}, nil, false},
		{"weekly from before window", model.Event{ID: "w", Date: day("2025-02-20"), Recurrence: model.RecurWeekly},
			[]string{"w@2025-03-06", "w@2025-03-13", "w@2025-03-20", "w@2025-03-27"}, true},
		{"biweekly", model.Event{ID: "b", Date: day("2025-03-01"), Recurrence: model.RecurBiweekly},
			[]string{"b@2025-03-01", "b@2025-03-15", "b@2025-03-29"}, true},
		{"monthly with until", model.Event{ID: "m", Date: day("2025-01-10"), Recurrence: model.RecurMonthly, RecurUntil: &until},
			[]string{"m@2025-03-10"}, true},
		{"series ended", model.Event{ID: "x", Date: day("2025-01-01"), Recurrence: model.RecurWeekly, RecurUntil: ptr(day("2025-02-01"))}, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			occ := ExpandOccurrences(tc.ev, day("2025-03-01"), day("2025-03-31"))
			var got []string
			for _, o := range occ {
				got = append(got, o.ID())
				require.Equal(t, tc.recur, o.Recurring)
				require.Equal(t, tc.ev.ID, o.SourceEventID)
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestCollectFiltersEvents(t *testing.T) {
	closed := openEvent("closed", "v1", "2025-03-06")
	closed.Status = model.EventClosed
	notAccepting := openEvent("full", "v1", "2025-03-07")
	notAccepting.AcceptingApplications = false

	fx := &fixture{
		availability: &fakeAvailability{blocked: dates("2025-03-09")},
		venues: fakeVenues{
			{ID: "v1", Location: "L1", Capacity: 200},
			{ID: "big", Location: "L2", Capacity: 5000},
			{ID: "excluded", Location: "L3", Capacity: 200},
		},
		events: fakeEvents{
			openEvent("ok", "v1", "2025-03-05"),
			closed,
			notAccepting,
			openEvent("blocked-date", "v1", "2025-03-09"),
			openEvent("applied", "v1", "2025-03-10"),
			openEvent("too-big", "big", "2025-03-11"),
			openEvent("excluded-venue", "excluded", "2025-03-12"),
			openEvent("unknown-venue", "ghost", "2025-03-13"),
		},
		groups: fakeGroups{applied: []string{"applied"}},
	}
	p := baseParams()
	p.MaxCapacity = 1000
	p.ExcludeVenueIDs = []string{"excluded"}

	pool, err := newTestCollector(fx).Collect(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, pool.Events, 1)
	require.Equal(t, "ok", pool.Events[0].Event.ID())
	require.True(t, pool.Events[0].IsExistingEvent)

	for _, v := range pool.Venues {
		require.Equal(t, "v1", v.Venue.ID)
	}
	// v1 hosts an event, open or closed, on each of these dates
	for _, c := range pool.Venues {
		for _, busy := range []string{"2025-03-05", "2025-03-06", "2025-03-07", "2025-03-10"} {
			require.NotEqual(t, day(busy), c.Date)
		}
	}
	require.Len(t, pool.Dates, 30)
}

func TestCollectVenueBaseScores(t *testing.T) {
	fx := &fixture{
		availability: &fakeAvailability{only: dates("2025-03-05")},
		venues: fakeVenues{
			{ID: "active", Location: "L1", EventCount: 4},
			{ID: "new", Location: "L2"},
		},
	}
	p := baseParams()

	pool, err := newTestCollector(fx).Collect(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, pool.Venues, 2)
	require.Equal(t, 15.0, pool.Venues[0].Score)
	require.Equal(t, 10.0, pool.Venues[1].Score)

	p.Genres = []string{"rock"}
	pool, err = newTestCollector(fx).Collect(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, 15.0, pool.Venues[0].Score)
	require.Equal(t, 18.0, pool.Venues[1].Score, "unproven venues outrank active ones under a genre preference")
}

func TestCollectDistanceFromHome(t *testing.T) {
	fx := &fixture{
		availability: &fakeAvailability{only: dates("2025-03-05", "2025-03-06")},
		venues:       fakeVenues{{ID: "v1", Location: "L1"}},
		events:       fakeEvents{openEvent("e1", "v1", "2025-03-06")},
		distances:    newTable(map[[2]string]float64{{"Home", "L1"}: 123}),
	}
	pool, err := newTestCollector(fx).Collect(context.Background(), baseParams())
	require.NoError(t, err)
	for _, c := range pool.Candidates() {
		require.Equal(t, 123.0, c.DistanceFromHome)
	}
	require.Len(t, pool.Candidates(), 2)
}

func TestCollectStopsWhenNoDates(t *testing.T) {
	fx := &fixture{availability: &fakeAvailability{only: map[string]bool{}}, venues: fakeVenues{{ID: "v1"}}}
	pool, err := newTestCollector(fx).Collect(context.Background(), baseParams())
	require.NoError(t, err)
	require.Empty(t, pool.Dates)
	require.Empty(t, pool.Venues)
	require.Len(t, pool.Availability, 31)
}
