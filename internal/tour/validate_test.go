package tour

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"tourplan/internal/model"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.TourParams)
		want   []string
	}{
		{"valid", func(*model.TourParams) {}, nil},
		{"missing group", func(p *model.TourParams) { p.GroupID = " " }, []string{"groupId is required"}},
		{"reversed window", func(p *model.TourParams) { p.EndDate = day("2025-02-01") }, []string{"endDate must not be before startDate"}},
		{"single day window", func(p *model.TourParams) { p.EndDate = p.StartDate }, nil},
		{"window too long", func(p *model.TourParams) { p.EndDate = day("2026-03-02") }, []string{"date window must not exceed 366 days"}},
		{"zero drive hours", func(p *model.TourParams) { p.MaxDriveHoursPerDay = 0 }, nil},
		{"drive hours", func(p *model.TourParams) { p.MaxDriveHoursPerDay = 25 }, []string{"maxDriveHoursPerDay must be in [0,24]"}},
		{"capacity order", func(p *model.TourParams) { p.MinCapacity, p.MaxCapacity = 500, 100 }, []string{"maxCapacity must be >= minCapacity"}},
		{"gap bounds", func(p *model.TourParams) { p.MinDaysBetweenShows, p.MaxDaysBetweenShows = 3, 3 },
			[]string{"maxDaysBetweenShows must be greater than minDaysBetweenShows"}},
		{"weights", func(p *model.TourParams) {
			w := model.DefaultWeightProfile()
			w.Distance, w.GenreMatch = 1.5, -0.1
			p.Weights = &w
		}, []string{"weights.distance must be in [0,1]", "weights.genreMatch must be in [0,1]"}},
		{"NaN radius", func(p *model.TourParams) { p.MaxRadiusKm = math.NaN() }, []string{"maxRadiusKm must be > 0"}},
		{"NaN drive hours", func(p *model.TourParams) { p.MaxDriveHoursPerDay = math.NaN() }, []string{"maxDriveHoursPerDay must be in [0,24]"}},
		{"NaN weight", func(p *model.TourParams) {
			w := model.DefaultWeightProfile()
			w.WeekendPreference = math.NaN()
			p.Weights = &w
		}, []string{"weights.weekendPreference must be in [0,1]"}},
		{"several", func(p *model.TourParams) { p.GroupID, p.MaxRadiusKm, p.MinDaysBetweenShows = "", 0, -1 },
			[]string{"groupId is required", "maxRadiusKm must be > 0", "minDaysBetweenShows must be >= 0"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := baseParams()
			tc.mutate(&p)
			err := Validate(p, DefaultTuning())
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			require.Equal(t, tc.want, ve.Problems)
		})
	}
}

func TestTuningDefaultsFillZeroes(t *testing.T) {
	tu := Tuning{MaxStops: 5}.withDefaults()
	require.Equal(t, 5, tu.MaxStops)
	require.Equal(t, DefaultWeights(), tu.Weights)
	require.Equal(t, 80.0, tu.AverageSpeedKph)
	require.Equal(t, 366, tu.MaxWindowDays)
}

func TestAdmissionThresholds(t *testing.T) {
	tu := DefaultTuning()
	ev := candidate("a", "A", "2025-03-01", 0, true)
	v := candidate("b", "B", "2025-03-01", 0, false)
	require.Equal(t, 20.0, tu.admission(&ev))
	require.Equal(t, 15.0, tu.admission(&v))
}
