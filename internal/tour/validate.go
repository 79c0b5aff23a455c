package tour

import (
	"fmt"
	"slices"
	"strings"

	"tourplan/internal/model"
)

// ValidationError lists every problem found in a TourParams. Generation
// does no work when it is returned.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid tour parameters: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks params against the engine's input contract.
func Validate(p model.TourParams, t Tuning) error {
	t = t.withDefaults()
	v := &ValidationError{}
	if strings.TrimSpace(p.GroupID) == "" {
		v.add("groupId is required")
	}
	switch {
	case p.StartDate.IsZero() || p.EndDate.IsZero():
		v.add("startDate and endDate are required")
	case model.Day(p.EndDate).Before(model.Day(p.StartDate)):
		v.add("endDate must not be before startDate")
	case model.DaysBetween(p.StartDate, p.EndDate)+1 > t.MaxWindowDays:
		v.add("date window must not exceed %d days", t.MaxWindowDays)
	}
	if !(p.MaxRadiusKm > 0) {
		v.add("maxRadiusKm must be > 0")
	}
	if p.MinDaysBetweenShows < 0 {
		v.add("minDaysBetweenShows must be >= 0")
	}
	if p.MaxDaysBetweenShows <= p.MinDaysBetweenShows {
		v.add("maxDaysBetweenShows must be greater than minDaysBetweenShows")
	}
	if !(p.MaxDriveHoursPerDay >= 0 && p.MaxDriveHoursPerDay <= 24) {
		v.add("maxDriveHoursPerDay must be in [0,24]")
	}
	if p.MinCapacity < 0 || p.MaxCapacity < 0 {
		v.add("capacity bounds must be >= 0")
	} else if p.MinCapacity > 0 && p.MaxCapacity > 0 && p.MaxCapacity < p.MinCapacity {
		v.add("maxCapacity must be >= minCapacity")
	}
	if w := p.Weights; w != nil {
		for name, val := range map[string]float64{
			"genreMatch":             w.GenreMatch,
			"capacityMatch":          w.CapacityMatch,
			"distance":               w.Distance,
			"weekendPreference":      w.WeekendPreference,
			"recommendationAffinity": w.RecommendationAffinity,
		} {
			if !(val >= 0 && val <= 1) {
				v.add("weights.%s must be in [0,1]", name)
			}
		}
	}
	if len(v.Problems) == 0 {
		return nil
	}
	// map iteration above is unordered
	slices.Sort(v.Problems)
	return v
}
