package tour

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tourplan/internal/geo"
	"tourplan/internal/model"
)

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

var fixedNow = func() time.Time { return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC) }

// fakeAvailability answers from date sets. A nil only set means every date
// not in blocked is available.
type fakeAvailability struct {
	mu        sync.Mutex
	only      map[string]bool
	blocked   map[string]bool
	tentative map[string]bool
	err       error
	calls     int
}

func (f *fakeAvailability) IsGroupAvailable(_ context.Context, _ string, d time.Time) (model.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return model.Availability{}, f.err
	}
	k := d.Format(model.DateLayout)
	if f.blocked[k] || (f.only != nil && !f.only[k]) {
		return model.Availability{Available: false, UnavailableCount: 1, BlockingBookingID: "bk-" + k}, nil
	}
	a := model.Availability{Available: true}
	if f.tentative[k] {
		a.TentativeCount = 1
	}
	return a, nil
}

func dates(ds ...string) map[string]bool {
	m := map[string]bool{}
	for _, d := range ds {
		m[d] = true
	}
	return m
}

type fakeVenues []model.Venue

func (f fakeVenues) ListVenues(context.Context, VenueFilter) ([]model.Venue, error) {
	return append([]model.Venue(nil), f...), nil
}

type fakeEvents []model.Event

func (f fakeEvents) ListEvents(context.Context, time.Time, time.Time) ([]model.Event, error) {
	return append([]model.Event(nil), f...), nil
}

type fakeGroups struct {
	favorites []string
	applied   []string
}

func (f fakeGroups) FavoriteVenueIDs(context.Context, string) ([]string, error) { return f.favorites, nil }
func (f fakeGroups) AppliedEventIDs(context.Context, string) ([]string, error)  { return f.applied, nil }

type fakeRecommendations map[string]float64

func (f fakeRecommendations) ScoreEventForGroup(_ context.Context, ev model.EventOccurrence, _ string) (float64, []string, error) {
	s, ok := f[ev.SourceEventID]
	if !ok {
		return 0, nil, nil
	}
	return s, []string{"genre_affinity"}, nil
}

type failingRecommendations struct{}

func (failingRecommendations) ScoreEventForGroup(context.Context, model.EventOccurrence, string) (float64, []string, error) {
	return 0, nil, errors.New("recommender down")
}

// tableDistances answers from a symmetric table and falls back to the
// heuristic tiers.
type tableDistances struct {
	km       map[[2]string]float64
	fallback *geo.Estimator
}

func newTable(entries map[[2]string]float64) tableDistances {
	return tableDistances{km: entries, fallback: geo.NewEstimator(nil, geo.DefaultTiers())}
}

func (t tableDistances) Distance(ctx context.Context, a, b string) geo.Estimate {
	if a == b {
		return geo.Estimate{Km: 0, Method: geo.MethodIdentical}
	}
	if v, ok := t.km[[2]string{a, b}]; ok {
		return geo.Estimate{Km: v, Method: geo.MethodGeocoded}
	}
	if v, ok := t.km[[2]string{b, a}]; ok {
		return geo.Estimate{Km: v, Method: geo.MethodGeocoded}
	}
	return t.fallback.Distance(ctx, a, b)
}

func (t tableDistances) get(a, b string) float64 {
	return t.Distance(context.Background(), a, b).Km
}

type fixture struct {
	availability *fakeAvailability
	venues       fakeVenues
	events       fakeEvents
	groups       fakeGroups
	recommend    RecommendationOracle
	distances    DistanceEstimator
}

func (fx *fixture) engine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	if fx.availability == nil {
		fx.availability = &fakeAvailability{}
	}
	opts = append([]Option{WithClock(fixedNow)}, opts...)
	e, err := NewEngine(Deps{
		Availability:    fx.availability,
		Recommendations: fx.recommend,
		Venues:          fx.venues,
		Events:          fx.events,
		Groups:          fx.groups,
		Distances:       fx.distances,
	}, opts...)
	require.NoError(t, err)
	return e
}

func baseParams() model.TourParams {
	return model.TourParams{
		GroupID:             "g1",
		StartDate:           day("2025-03-01"),
		EndDate:             day("2025-03-31"),
		MaxRadiusKm:         500,
		StartLocation:       "Home",
		MinDaysBetweenShows: 1,
		MaxDaysBetweenShows: 7,
		MaxDriveHoursPerDay: 8,
	}
}

func openEvent(id, venueID, date string) model.Event {
	return model.Event{
		ID:                    id,
		VenueID:               venueID,
		Title:                 "Show " + id,
		Date:                  day(date),
		Status:                model.EventOpen,
		AcceptingApplications: true,
	}
}

func hasReason(c model.Candidate, reason string) bool {
	for _, r := range c.Reasoning {
		if r == reason {
			return true
		}
	}
	return false
}

// candidate builds a pre-scored candidate for optimizer tests.
func candidate(venueID, location, date string, score float64, event bool) model.Candidate {
	c := model.Candidate{
		Date:         day(date),
		Venue:        model.Venue{ID: venueID, Name: venueID, Location: location},
		Score:        score,
		Availability: model.Available,
	}
	if event {
		c.IsExistingEvent = true
		c.Event = &model.EventOccurrence{SourceEventID: "e-" + venueID + "-" + date, OccurrenceDate: day(date), VenueID: venueID}
	}
	return c
}
