package tour

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"tourplan/internal/geo"
	"tourplan/internal/model"
)

// Leg is the distance into a stop and how it was routed.
type Leg struct {
	Km     float64
	Choice model.RoutingChoice
	Method geo.Method
	Note   string
}

// Optimizer builds the greedy route.
type Optimizer struct {
	distances DistanceEstimator
	tuning    Tuning
	logger    zerolog.Logger
}

func NewOptimizer(distances DistanceEstimator, t Tuning, logger zerolog.Logger) *Optimizer {
	return &Optimizer{distances: distances, tuning: t.withDefaults(), logger: logger}
}

// RouteLeg computes the distance into c from prev (nil for the first stop).
// Within a short gap the group drives direct or via home, whichever is
// shorter; after a longer gap it always leaves from home.
func (o *Optimizer) RouteLeg(ctx context.Context, p model.TourParams, prev, c *model.Candidate) Leg {
	home := p.HomeLocation()
	switch {
	case prev == nil && home == "":
		return Leg{Km: 0, Choice: model.RouteUnknownHome, Method: geo.MethodIdentical, Note: "First stop, no home location"}
	case prev == nil:
		e := o.distances.Distance(ctx, home, c.Venue.Location)
		return Leg{Km: e.Km, Choice: model.RouteHomeStart, Method: e.Method, Note: fmt.Sprintf("From home: %.0f km", e.Km)}
	case home == "":
		e := o.distances.Distance(ctx, prev.Venue.Location, c.Venue.Location)
		return Leg{Km: e.Km, Choice: model.RouteUnknownHome, Method: e.Method, Note: fmt.Sprintf("Direct (no home location): %.0f km", e.Km)}
	}

	gap := model.DaysBetween(prev.Date, c.Date)
	if gap > o.tuning.ViaHomeMaxGapDays {
		e := o.distances.Distance(ctx, home, c.Venue.Location)
		return Leg{Km: e.Km, Choice: model.RouteFromHome, Method: e.Method,
			Note: fmt.Sprintf("Returns home during %d-day gap: %.0f km", gap, e.Km)}
	}

	direct := o.distances.Distance(ctx, prev.Venue.Location, c.Venue.Location)
	toHome := o.distances.Distance(ctx, prev.Venue.Location, home)
	fromHome := o.distances.Distance(ctx, home, c.Venue.Location)
	viaHome := toHome.Km + fromHome.Km
	if direct.Km <= viaHome {
		return Leg{Km: direct.Km, Choice: model.RouteDirect, Method: direct.Method,
			Note: fmt.Sprintf("Direct from previous stop: %.0f km", direct.Km)}
	}
	method := toHome.Method
	if !method.Heuristic() {
		method = fromHome.Method
	}
	return Leg{Km: viaHome, Choice: model.RouteViaHome, Method: method,
		Note: fmt.Sprintf("Via home: %.0f km (direct %.0f km)", viaHome, direct.Km)}
}

// apply writes the leg onto c.
func (o *Optimizer) apply(p model.TourParams, c *model.Candidate, leg Leg) {
	c.DistanceFromPrevious = leg.Km
	c.Routing = leg.Choice
	c.RoutingNote = leg.Note
	c.TravelDaysNeeded = o.travelDays(leg.Km, p.MaxDriveHoursPerDay)
}

// travelDays is the number of non-show days needed to cover km, given a
// daily driving budget. A leg coverable in one day needs none.
func (o *Optimizer) travelDays(km, driveHours float64) int {
	if driveHours <= 0 {
		driveHours = o.tuning.DefaultDriveHours
	}
	perDay := driveHours * o.tuning.AverageSpeedKph
	if km <= 0 || perDay <= 0 {
		return 0
	}
	return max(int(math.Ceil(km/perDay))-1, 0)
}

// SortCandidates orders events before venues, then by date ascending,
// score descending, venue id and event id.
func SortCandidates(cs []model.Candidate) {
	slices.SortStableFunc(cs, func(a, b model.Candidate) int {
		if a.IsExistingEvent != b.IsExistingEvent {
			if a.IsExistingEvent {
				return -1
			}
			return 1
		}
		if n := a.Date.Compare(b.Date); n != 0 {
			return n
		}
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if n := strings.Compare(a.Venue.ID, b.Venue.ID); n != 0 {
			return n
		}
		return strings.Compare(eventID(a), eventID(b))
	})
}

func eventID(c model.Candidate) string {
	if c.Event == nil {
		return ""
	}
	return c.Event.ID()
}

// Optimize selects a chronologically ordered subset of candidates.
// The input is not modified.
func (o *Optimizer) Optimize(ctx context.Context, p model.TourParams, candidates []model.Candidate, w Weights) []model.Candidate {
	pool := make([]model.Candidate, len(candidates))
	for i := range candidates {
		pool[i] = candidates[i].Clone()
	}
	SortCandidates(pool)

	minGap := max(p.MinDaysBetweenShows, 1)
	var (
		route      []model.Candidate
		usedVenues = map[string]bool{}
		total      float64
	)
	for i := range pool {
		if len(route) >= o.tuning.MaxStops {
			break
		}
		c := pool[i]
		skip := func(reason string) {
			o.logger.Debug().Str("candidate", c.Key()).Float64("score", c.Score).Msg("skip: " + reason)
		}
		if !c.IsExistingEvent && usedVenues[c.Venue.ID] {
			skip("venue already on tour")
			continue
		}
		threshold := o.tuning.admission(&c)

		var prev *model.Candidate
		gap := 0
		if len(route) > 0 {
			prev = &route[len(route)-1]
			gap = model.DaysBetween(prev.Date, c.Date)
			if gap < minGap {
				skip(fmt.Sprintf("%d days after previous stop", gap))
				continue
			}
			if gap > p.MaxDaysBetweenShows && c.Score < threshold {
				skip(fmt.Sprintf("%d-day gap needs score %.0f", gap, threshold))
				continue
			}
		}

		leg := o.RouteLeg(ctx, p, prev, &c)
		if total+leg.Km > p.MaxRadiusKm && c.Score < threshold {
			skip(fmt.Sprintf("%.0f km exceeds tour radius", total+leg.Km))
			continue
		}

		switch {
		case leg.Km < o.tuning.ShortLegKm:
			c.AddScore(ScoreRouting, fmt.Sprintf("Efficient routing (%.0f km)", leg.Km), w.RoutingBonus)
		case leg.Km > o.tuning.LongLegKm:
			c.AddScore(ScoreRouting, fmt.Sprintf("Long drive (%.0f km)", leg.Km), -w.RoutingPenalty)
		}

		o.apply(p, &c, leg)
		if prev != nil && c.TravelDaysNeeded >= gap {
			skip(fmt.Sprintf("%d travel days do not fit a %d-day gap", c.TravelDaysNeeded, gap))
			continue
		}
		noteEstimate(&c, leg)

		route = append(route, c)
		usedVenues[c.Venue.ID] = true
		total += leg.Km
	}
	return route
}

// Relink recomputes every leg of an ordered route in place.
func (o *Optimizer) Relink(ctx context.Context, p model.TourParams, route []model.Candidate) {
	for i := range route {
		var prev *model.Candidate
		if i > 0 {
			prev = &route[i-1]
		}
		leg := o.RouteLeg(ctx, p, prev, &route[i])
		o.apply(p, &route[i], leg)
		noteEstimate(&route[i], leg)
	}
}

// noteEstimate records a heuristic distance in the reasoning trail once.
func noteEstimate(c *model.Candidate, leg Leg) {
	if !leg.Method.Heuristic() {
		return
	}
	c.Note("Distance estimated (%s)", leg.Method.Label())
}
