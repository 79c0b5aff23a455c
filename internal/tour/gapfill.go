package tour

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tourplan/internal/metrics"
	"tourplan/internal/model"
)

// GapFillReason is the reasoning line carried by every inserted stop.
const GapFillReason = "Fills gap between events"

// GapFiller inserts direct bookings into oversized gaps between events.
type GapFiller struct {
	distances DistanceEstimator
	optimizer *Optimizer
	tuning    Tuning
	logger    zerolog.Logger
}

func NewGapFiller(distances DistanceEstimator, optimizer *Optimizer, t Tuning, logger zerolog.Logger) *GapFiller {
	return &GapFiller{distances: distances, optimizer: optimizer, tuning: t.withDefaults(), logger: logger}
}

// Fill returns the merged route with every leg recomputed, and the number
// of stops inserted. venues is the scored direct-booking pool.
func (g *GapFiller) Fill(ctx context.Context, p model.TourParams, route, venues []model.Candidate, favorites map[string]bool, w Weights) ([]model.Candidate, int) {
	minGap := max(p.MinDaysBetweenShows, 1)
	selected := map[string]bool{}
	for _, s := range route {
		selected[s.Venue.ID] = true
	}
	dates := make([]time.Time, 0, len(route))
	for _, s := range route {
		dates = append(dates, s.Date)
	}
	spaced := func(d time.Time) bool {
		for _, x := range dates {
			if gap := model.DaysBetween(x, d); gap > -minGap && gap < minGap {
				return false
			}
		}
		return true
	}

	var events []model.Candidate
	for _, s := range route {
		if s.IsExistingEvent {
			events = append(events, s)
		}
	}
	placed := append([]model.Candidate(nil), route...)
	slices.SortStableFunc(placed, byDate)
	total := g.routeKm(ctx, p, placed)

	var fillers []model.Candidate
	for i := 0; i+1 < len(events); i++ {
		a, b := events[i], events[i+1]
		gap := model.DaysBetween(a.Date, b.Date)
		if gap <= p.MaxDaysBetweenShows {
			continue
		}
		between := g.distances.Distance(ctx, a.Venue.Location, b.Venue.Location).Km
		minTravel := g.optimizer.travelDays(between, p.MaxDriveHoursPerDay)
		if gap-minTravel <= 1 {
			continue
		}
		want := 1
		if gap > 2*p.MaxDaysBetweenShows {
			want = 2
		}
		want = min(want, g.tuning.MaxGapFillsPerGap)

		best := map[string]model.Candidate{}
		for _, v := range venues {
			if selected[v.Venue.ID] || !v.Date.After(a.Date) || !v.Date.Before(b.Date) {
				continue
			}
			if model.DaysBetween(a.Date, v.Date) < minGap || model.DaysBetween(v.Date, b.Date) < minGap || !spaced(v.Date) {
				continue
			}
			c := g.score(ctx, p, a, b, v, favorites, w)
			if _, reason := g.fits(ctx, p, placed, total, &c); reason != "" {
				g.logger.Debug().Str("candidate", c.Key()).Msg("skip filler: " + reason)
				continue
			}
			key := c.Date.Format(model.DateLayout)
			if cur, ok := best[key]; !ok || c.Score > cur.Score || (c.Score == cur.Score && c.Venue.ID < cur.Venue.ID) {
				best[key] = c
			}
		}
		options := make([]model.Candidate, 0, len(best))
		for _, c := range best {
			options = append(options, c)
		}
		within := func(c model.Candidate) bool {
			return model.DaysBetween(a.Date, c.Date) <= p.MaxDaysBetweenShows &&
				model.DaysBetween(c.Date, b.Date) <= p.MaxDaysBetweenShows
		}
		slices.SortFunc(options, func(x, y model.Candidate) int {
			if wx, wy := within(x), within(y); wx != wy {
				if wx {
					return -1
				}
				return 1
			}
			if p.WeekendPriority {
				if wx, wy := model.IsWeekend(x.Date), model.IsWeekend(y.Date); wx != wy {
					if wx {
						return -1
					}
					return 1
				}
			}
			if x.Score != y.Score {
				if x.Score > y.Score {
					return -1
				}
				return 1
			}
			return x.Date.Compare(y.Date)
		})

		picked := 0
		for _, c := range options {
			if picked == want {
				break
			}
			if selected[c.Venue.ID] || !spaced(c.Date) {
				continue
			}
			added, reason := g.fits(ctx, p, placed, total, &c)
			if reason != "" {
				continue
			}
			total += added
			placed = append(placed, c)
			slices.SortStableFunc(placed, byDate)
			selected[c.Venue.ID] = true
			dates = append(dates, c.Date)
			fillers = append(fillers, c)
			picked++
			g.logger.Debug().Str("venue", c.Venue.ID).Str("date", c.Date.Format(model.DateLayout)).
				Str("after", a.Key()).Str("before", b.Key()).Msg("gap filled")
		}
	}

	merged := append(append([]model.Candidate(nil), route...), fillers...)
	if over := len(merged) - g.tuning.MaxStops; over > 0 {
		merged = dropWeakestFillers(merged, over)
	}
	slices.SortStableFunc(merged, byDate)
	for {
		g.optimizer.Relink(ctx, p, merged)
		i := unreachableFiller(merged)
		if i < 0 {
			break
		}
		g.logger.Debug().Str("candidate", merged[i].Key()).Msg("drop filler: travel does not fit")
		merged = slices.Delete(merged, i, i+1)
	}

	inserted := 0
	for _, s := range merged {
		if s.IsGapFill {
			inserted++
		}
	}
	metrics.GapFills.Add(float64(inserted))
	return merged, inserted
}

func byDate(x, y model.Candidate) int { return x.Date.Compare(y.Date) }

// fits checks c against its neighbours in the date-ordered route placed.
// Both adjoining legs must leave a show day, and the detour may push the
// tour past the radius only when c clears the admission score. It returns
// the distance c adds to total, or the reason it was rejected.
func (g *GapFiller) fits(ctx context.Context, p model.TourParams, placed []model.Candidate, total float64, c *model.Candidate) (float64, string) {
	i, _ := slices.BinarySearchFunc(placed, c.Date, func(s model.Candidate, d time.Time) int { return s.Date.Compare(d) })
	var prev, next *model.Candidate
	if i > 0 {
		prev = &placed[i-1]
	}
	if i < len(placed) {
		next = &placed[i]
	}

	in := g.optimizer.RouteLeg(ctx, p, prev, c)
	if prev != nil {
		days, gap := g.optimizer.travelDays(in.Km, p.MaxDriveHoursPerDay), model.DaysBetween(prev.Date, c.Date)
		if days >= gap {
			return 0, fmt.Sprintf("%d travel days do not fit the %d days after %s", days, gap, prev.Key())
		}
	}
	added := in.Km
	if next != nil {
		out := g.optimizer.RouteLeg(ctx, p, c, next)
		days, gap := g.optimizer.travelDays(out.Km, p.MaxDriveHoursPerDay), model.DaysBetween(c.Date, next.Date)
		if days >= gap {
			return 0, fmt.Sprintf("%d travel days do not fit the %d days before %s", days, gap, next.Key())
		}
		added += out.Km - g.optimizer.RouteLeg(ctx, p, prev, next).Km
	}
	if total+added > p.MaxRadiusKm && c.Score < g.tuning.admission(c) {
		return 0, fmt.Sprintf("%.0f km exceeds tour radius", total+added)
	}
	return added, ""
}

// routeKm sums the legs of a date-ordered route.
func (g *GapFiller) routeKm(ctx context.Context, p model.TourParams, route []model.Candidate) float64 {
	var km float64
	for i := range route {
		var prev *model.Candidate
		if i > 0 {
			prev = &route[i-1]
		}
		km += g.optimizer.RouteLeg(ctx, p, prev, &route[i]).Km
	}
	return km
}

// unreachableFiller returns the index of a filler whose own leg, or the leg
// after it, needs as many travel days as its gap, or -1.
func unreachableFiller(route []model.Candidate) int {
	for i := 1; i < len(route); i++ {
		if route[i].TravelDaysNeeded < model.DaysBetween(route[i-1].Date, route[i].Date) {
			continue
		}
		if route[i].IsGapFill {
			return i
		}
		if route[i-1].IsGapFill {
			return i - 1
		}
	}
	return -1
}

// score rates a filler from scratch: routing between the surrounding events
// dominates, plus activity, favorite and weekend adjustments.
func (g *GapFiller) score(ctx context.Context, p model.TourParams, a, b, v model.Candidate, favorites map[string]bool, w Weights) model.Candidate {
	c := v.Clone()
	c.Score = 0
	c.Breakdown = nil
	c.Reasoning = nil
	c.IsGapFill = true

	detour := g.distances.Distance(ctx, a.Venue.Location, c.Venue.Location).Km +
		g.distances.Distance(ctx, c.Venue.Location, b.Venue.Location).Km
	factor := 1 - detour/(2*g.tuning.ShortLegKm)
	factor = math.Max(-1, math.Min(1, factor))
	c.AddScore(ScoreRouting, fmt.Sprintf("Routing between events (%.0f km detour)", detour), w.RoutingBonus*factor)
	if c.Venue.EventCount >= 1 {
		c.AddScore("venue", fmt.Sprintf("Active venue (%d events hosted)", c.Venue.EventCount), w.ActiveVenueBonus)
	}
	if favorites[c.Venue.ID] {
		c.AddScore(ScoreFavorite, "Favorite venue", w.FavoriteVenueBonus)
	}
	if p.WeekendPriority {
		addWeekendScore(&c, w)
	}
	c.Note(GapFillReason)
	return c
}

// dropWeakestFillers removes n gap fillers, lowest score first.
func dropWeakestFillers(route []model.Candidate, n int) []model.Candidate {
	idx := make([]int, 0)
	for i, s := range route {
		if s.IsGapFill {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(x, y int) int {
		if route[x].Score != route[y].Score {
			if route[x].Score < route[y].Score {
				return -1
			}
			return 1
		}
		return strings.Compare(route[x].Key(), route[y].Key())
	})
	drop := map[int]bool{}
	for _, i := range idx[:min(n, len(idx))] {
		drop[i] = true
	}
	out := route[:0:0]
	for i, s := range route {
		if !drop[i] {
			out = append(out, s)
		}
	}
	return out
}
