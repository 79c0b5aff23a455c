package tour

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tourplan/internal/model"
)

// Pool holds everything gathered for one generation run.
type Pool struct {
	Dates        []time.Time
	Availability map[string]model.Availability
	Events       []model.Candidate
	Venues       []model.Candidate
	Favorites    map[string]bool
}

// AvailabilityOn returns the cached oracle answer for a date.
func (p *Pool) AvailabilityOn(d time.Time) (model.Availability, bool) {
	a, ok := p.Availability[d.Format(model.DateLayout)]
	return a, ok
}

// Candidates returns event candidates followed by venue candidates.
func (p *Pool) Candidates() []model.Candidate {
	out := make([]model.Candidate, 0, len(p.Events)+len(p.Venues))
	out = append(out, p.Events...)
	return append(out, p.Venues...)
}

// Collector gathers event and direct-booking candidates on the dates the
// group can play.
type Collector struct {
	availability AvailabilityOracle
	venues       VenueRepository
	events       EventRepository
	groups       GroupRepository
	distances    DistanceEstimator
	tuning       Tuning
	logger       zerolog.Logger
}

func NewCollector(av AvailabilityOracle, venues VenueRepository, events EventRepository, groups GroupRepository, distances DistanceEstimator, t Tuning, logger zerolog.Logger) *Collector {
	return &Collector{
		availability: av,
		venues:       venues,
		events:       events,
		groups:       groups,
		distances:    distances,
		tuning:       t.withDefaults(),
		logger:       logger,
	}
}

// Collect builds the candidate pool. An empty Dates slice means the group
// has no available date in the window; candidates are then not gathered.
func (c *Collector) Collect(ctx context.Context, p model.TourParams) (*Pool, error) {
	pool := &Pool{Availability: map[string]model.Availability{}, Favorites: map[string]bool{}}

	var oracleErr error
	model.EachDay(p.StartDate, p.EndDate, func(d time.Time) {
		if oracleErr != nil {
			return
		}
		a, err := c.availability.IsGroupAvailable(ctx, p.GroupID, d)
		if err != nil {
			oracleErr = fmt.Errorf("availability for %s: %w", d.Format(model.DateLayout), err)
			return
		}
		pool.Availability[d.Format(model.DateLayout)] = a
		if a.Available {
			pool.Dates = append(pool.Dates, d)
		}
	})
	if oracleErr != nil {
		return nil, oracleErr
	}
	if len(pool.Dates) == 0 {
		return pool, nil
	}

	if c.groups != nil {
		favs, err := c.groups.FavoriteVenueIDs(ctx, p.GroupID)
		if err != nil {
			return nil, fmt.Errorf("favorite venues: %w", err)
		}
		for _, id := range favs {
			pool.Favorites[id] = true
		}
	}

	venues, err := c.venues.ListVenues(ctx, VenueFilter{
		MinCapacity: p.MinCapacity,
		MaxCapacity: p.MaxCapacity,
		ExcludeIDs:  p.ExcludeVenueIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	byID := make(map[string]model.Venue, len(venues))
	for _, v := range venues {
		if p.Excluded(v.ID) || !p.CapacityOK(v.Capacity) {
			continue
		}
		byID[v.ID] = v
	}

	events, err := c.events.ListEvents(ctx, p.StartDate, p.EndDate)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	applied := map[string]bool{}
	if c.groups != nil {
		ids, err := c.groups.AppliedEventIDs(ctx, p.GroupID)
		if err != nil {
			return nil, fmt.Errorf("applied events: %w", err)
		}
		for _, id := range ids {
			applied[id] = true
		}
	}

	home := map[string]float64{}
	distanceFromHome := func(v model.Venue) float64 {
		if p.HomeLocation() == "" {
			return 0
		}
		if km, ok := home[v.ID]; ok {
			return km
		}
		km := c.distances.Distance(ctx, p.HomeLocation(), v.Location).Km
		home[v.ID] = km
		return km
	}

	// Any event on a date, open or not, takes its venue off the
	// direct-booking market for that date.
	busy := map[string]bool{}
	for _, ev := range events {
		for _, occ := range ExpandOccurrences(ev, p.StartDate, p.EndDate) {
			if ev.Status != model.EventCancelled {
				busy[occ.VenueID+"@"+occ.OccurrenceDate.Format(model.DateLayout)] = true
			}
			if !ev.OpenForApplications() || applied[occ.ID()] || (!occ.Recurring && applied[occ.SourceEventID]) {
				continue
			}
			a, ok := pool.AvailabilityOn(occ.OccurrenceDate)
			if !ok || !a.Available {
				continue
			}
			v, ok := byID[occ.VenueID]
			if !ok {
				c.logger.Debug().Str("event", occ.ID()).Str("venue", occ.VenueID).Msg("event venue unknown or filtered")
				continue
			}
			o := occ
			cand := model.Candidate{
				Date:             occ.OccurrenceDate,
				Venue:            v,
				Event:            &o,
				IsExistingEvent:  true,
				Availability:     a.Status(),
				DistanceFromHome: distanceFromHome(v),
			}
			pool.Events = append(pool.Events, cand)
		}
	}

	w := c.tuning.Weights
	ordered := sortedVenues(byID)
	for _, d := range pool.Dates {
		a, _ := pool.AvailabilityOn(d)
		for _, v := range ordered {
			if busy[v.ID+"@"+d.Format(model.DateLayout)] {
				continue
			}
			cand := model.Candidate{
				Date:             d,
				Venue:            v,
				Availability:     a.Status(),
				DistanceFromHome: distanceFromHome(v),
			}
			cand.AddScore("venue", "Direct booking opportunity", w.VenueBaseScore)
			switch {
			case v.EventCount >= 1:
				cand.AddScore("venue", fmt.Sprintf("Active venue (%d events hosted)", v.EventCount), w.ActiveVenueBonus)
			case len(p.Genres) > 0:
				cand.AddScore("venue", "New venue without genre history", w.UnprovenVenueBonus)
			}
			pool.Venues = append(pool.Venues, cand)
		}
	}

	slices.SortStableFunc(pool.Events, func(a, b model.Candidate) int {
		if n := a.Date.Compare(b.Date); n != 0 {
			return n
		}
		return strings.Compare(a.Event.ID(), b.Event.ID())
	})

	c.logger.Debug().Str("group", p.GroupID).Int("dates", len(pool.Dates)).
		Int("events", len(pool.Events)).Int("venues", len(pool.Venues)).Msg("collected candidates")
	return pool, nil
}

func sortedVenues(byID map[string]model.Venue) []model.Venue {
	out := make([]model.Venue, 0, len(byID))
	for _, v := range byID {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b model.Venue) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// ExpandOccurrences returns the occurrences of ev that fall in [from, to].
// A non-recurring event yields at most one occurrence carrying its own id.
func ExpandOccurrences(ev model.Event, from, to time.Time) []model.EventOccurrence {
	from, to = model.Day(from), model.Day(to)
	start := model.Day(ev.Date)
	mk := func(d time.Time, recurring bool) model.EventOccurrence {
		return model.EventOccurrence{
			SourceEventID:  ev.ID,
			OccurrenceDate: d,
			VenueID:        ev.VenueID,
			Title:          ev.Title,
			Genres:         ev.Genres,
			Recurring:      recurring,
		}
	}
	if ev.Recurrence == model.RecurNone {
		if start.Before(from) || start.After(to) {
			return nil
		}
		return []model.EventOccurrence{mk(start, false)}
	}

	until := to
	if ev.RecurUntil != nil && model.Day(*ev.RecurUntil).Before(until) {
		until = model.Day(*ev.RecurUntil)
	}
	var out []model.EventOccurrence
	for i := 0; ; i++ {
		var d time.Time
		switch ev.Recurrence {
		case model.RecurWeekly:
			d = start.AddDate(0, 0, 7*i)
		case model.RecurBiweekly:
			d = start.AddDate(0, 0, 14*i)
		case model.RecurMonthly:
			d = start.AddDate(0, i, 0)
		default:
			return out
		}
		if d.After(until) {
			return out
		}
		if !d.Before(from) {
			out = append(out, mk(d, true))
		}
	}
}
