package tour

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"tourplan/internal/geo"
	"tourplan/internal/model"
)

// NoDatesWarning is returned when the group has no available date.
const NoDatesWarning = "No available dates in the requested window"

// Formatter turns an ordered route into a TourResult.
type Formatter struct {
	availability AvailabilityOracle
	distances    DistanceEstimator
	tuning       Tuning
	logger       zerolog.Logger
}

func NewFormatter(av AvailabilityOracle, distances DistanceEstimator, t Tuning, logger zerolog.Logger) *Formatter {
	return &Formatter{availability: av, distances: distances, tuning: t.withDefaults(), logger: logger}
}

// Empty is the result for a run that found nothing to schedule.
func Empty(groupID string, warnings ...string) *model.TourResult {
	return &model.TourResult{
		GroupID:               groupID,
		Stops:                 []model.Candidate{},
		RecommendedEvents:     []model.Candidate{},
		RecommendedVenues:     []model.Candidate{},
		AvailabilityConflicts: []model.AvailabilityConflict{},
		Warnings:              append([]string{}, warnings...),
	}
}

// Format computes totals, efficiency, conflicts and warnings. pool may be
// nil; its availability answers are reused when present.
func (f *Formatter) Format(ctx context.Context, p model.TourParams, stops []model.Candidate, pool *Pool) (*model.TourResult, error) {
	res := Empty(p.GroupID)
	res.Stops = stops
	if len(stops) == 0 {
		res.Warnings = append(res.Warnings, "No stops satisfied the tour constraints")
		return res, nil
	}

	venues := map[string]bool{}
	for _, s := range stops {
		res.TotalDistanceKm += s.DistanceFromPrevious
		res.TotalTravelDays += s.TravelDaysNeeded
		venues[s.Venue.ID] = true
		if s.IsExistingEvent {
			res.RecommendedEvents = append(res.RecommendedEvents, s)
		} else {
			res.RecommendedVenues = append(res.RecommendedVenues, s)
		}
	}
	res.TotalShowDays = len(stops)
	if ret := p.ReturnLocation(); ret != "" {
		res.ReturnLegKm = f.distances.Distance(ctx, stops[len(stops)-1].Venue.Location, ret).Km
	}

	res.EfficiencyScore = f.efficiency(stops, len(venues), res.TotalDistanceKm, res.TotalTravelDays)

	conflicts, err := f.conflicts(ctx, p, stops, pool)
	if err != nil {
		return nil, err
	}
	res.AvailabilityConflicts = conflicts
	res.Warnings = append(res.Warnings, f.warnings(stops, len(venues), res.TotalDistanceKm)...)
	return res, nil
}

func (f *Formatter) efficiency(stops []model.Candidate, unique int, totalKm float64, travelDays int) float64 {
	n := float64(len(stops))
	var sum float64
	for _, s := range stops {
		sum += s.Score
	}
	score := clamp(sum/n, 0, 100)
	score += float64(unique) / n * f.tuning.DiversityBonusScale
	score += n / (n + float64(travelDays)) * f.tuning.ShowRatioBonusScale
	switch perShow := totalKm / n; {
	case perShow < f.tuning.ShortLegKm:
		score += f.tuning.PerShowDistanceAdj
	case perShow > f.tuning.LongLegKm:
		score -= f.tuning.PerShowDistanceAdj
	}
	return math.Round(clamp(score, 0, 100)*10) / 10
}

// conflicts flags stop dates and the travel days leading up to them on which
// the group is unavailable.
func (f *Formatter) conflicts(ctx context.Context, p model.TourParams, stops []model.Candidate, pool *Pool) ([]model.AvailabilityConflict, error) {
	out := []model.AvailabilityConflict{}
	lookup := func(d time.Time) (model.Availability, error) {
		if pool != nil {
			if a, ok := pool.AvailabilityOn(d); ok {
				return a, nil
			}
		}
		a, err := f.availability.IsGroupAvailable(ctx, p.GroupID, d)
		if err != nil {
			return model.Availability{}, fmt.Errorf("availability for %s: %w", d.Format(model.DateLayout), err)
		}
		return a, nil
	}
	for _, s := range stops {
		for back := 0; back <= s.TravelDaysNeeded; back++ {
			d := s.Date.AddDate(0, 0, -back)
			a, err := lookup(d)
			if err != nil {
				return nil, err
			}
			if a.Available {
				continue
			}
			reason := "Group unavailable on show date"
			if back > 0 {
				reason = fmt.Sprintf("Group unavailable on travel day %d before show", back)
			}
			out = append(out, model.AvailabilityConflict{
				Date:              d,
				StopDate:          s.Date,
				VenueID:           s.Venue.ID,
				Reason:            reason,
				BlockingBookingID: a.BlockingBookingID,
			})
		}
	}
	return out, nil
}

func (f *Formatter) warnings(stops []model.Candidate, unique int, totalKm float64) []string {
	var out []string
	if totalKm > f.tuning.MaxTotalKm {
		out = append(out, fmt.Sprintf("Total distance %.0f km exceeds %.0f km", totalKm, f.tuning.MaxTotalKm))
	}
	for _, s := range stops {
		if s.DistanceFromPrevious > f.tuning.LongLegKm {
			out = append(out, fmt.Sprintf("Long drive of %.0f km to %s on %s",
				s.DistanceFromPrevious, s.Venue.Name, s.Date.Format(model.DateLayout)))
		}
	}
	for i := 1; i < len(stops); i++ {
		if gap := model.DaysBetween(stops[i-1].Date, stops[i].Date); gap > f.tuning.LongGapWarningDays {
			out = append(out, fmt.Sprintf("%d-day gap between %s and %s", gap,
				stops[i-1].Date.Format(model.DateLayout), stops[i].Date.Format(model.DateLayout)))
		}
	}
	for i := 0; i+2 < len(stops); i++ {
		a := geo.ParseAddress(stops[i].Venue.Location).CityKey()
		mid := geo.ParseAddress(stops[i+1].Venue.Location).CityKey()
		b := geo.ParseAddress(stops[i+2].Venue.Location).CityKey()
		if a != "" && a == b && a != mid {
			out = append(out, fmt.Sprintf("Possible backtracking: returns to %s on %s",
				geo.ParseAddress(stops[i+2].Venue.Location).City, stops[i+2].Date.Format(model.DateLayout)))
		}
	}
	if ratio := float64(unique) / float64(len(stops)); ratio < f.tuning.MinDiversityRatio {
		out = append(out, fmt.Sprintf("Low venue diversity: %d unique venues across %d stops", unique, len(stops)))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
