package tour

import (
	"tourplan/internal/geo"
	"tourplan/internal/model"
)

// Weights are the internal scoring slots. Penalties are stored as positive
// magnitudes and subtracted where applied.
type Weights struct {
	RecommendationMax      float64 `yaml:"recommendation_max" json:"recommendationMax"`
	ExistingEventBonus     float64 `yaml:"existing_event_bonus" json:"existingEventBonus"`
	FavoriteVenueBonus     float64 `yaml:"favorite_venue_bonus" json:"favoriteVenueBonus"`
	WeekendBonus           float64 `yaml:"weekend_bonus" json:"weekendBonus"`
	WeekdayPenalty         float64 `yaml:"weekday_penalty" json:"weekdayPenalty"`
	CapacityFitBonus       float64 `yaml:"capacity_fit_bonus" json:"capacityFitBonus"`
	GenreMatchBonus        float64 `yaml:"genre_match_bonus" json:"genreMatchBonus"`
	GenreMismatchPenalty   float64 `yaml:"genre_mismatch_penalty" json:"genreMismatchPenalty"`
	AvailabilityFull       float64 `yaml:"availability_full" json:"availabilityFull"`
	AvailabilityTentative  float64 `yaml:"availability_tentative" json:"availabilityTentative"`
	UnavailablePenalty     float64 `yaml:"unavailable_penalty" json:"unavailablePenalty"`
	DiversityNewVenue      float64 `yaml:"diversity_new_venue" json:"diversityNewVenue"`
	DiversityRepeatPenalty float64 `yaml:"diversity_repeat_penalty" json:"diversityRepeatPenalty"`
	DiversityHeavyPenalty  float64 `yaml:"diversity_heavy_penalty" json:"diversityHeavyPenalty"`
	RoutingBonus           float64 `yaml:"routing_bonus" json:"routingBonus"`
	RoutingPenalty         float64 `yaml:"routing_penalty" json:"routingPenalty"`
	VenueBaseScore         float64 `yaml:"venue_base_score" json:"venueBaseScore"`
	ActiveVenueBonus       float64 `yaml:"active_venue_bonus" json:"activeVenueBonus"`
	UnprovenVenueBonus     float64 `yaml:"unproven_venue_bonus" json:"unprovenVenueBonus"`
}

// Tuning collects every constant the engine uses. The values have no
// derivation beyond having worked in practice; treat them as defaults.
type Tuning struct {
	Weights Weights `yaml:"weights" json:"weights"`

	EventAdmissionScore float64 `yaml:"event_admission_score" json:"eventAdmissionScore"`
	VenueAdmissionScore float64 `yaml:"venue_admission_score" json:"venueAdmissionScore"`

	ShortLegKm          float64 `yaml:"short_leg_km" json:"shortLegKm"`
	LongLegKm           float64 `yaml:"long_leg_km" json:"longLegKm"`
	ViaHomeMaxGapDays   int     `yaml:"via_home_max_gap_days" json:"viaHomeMaxGapDays"`
	AverageSpeedKph     float64 `yaml:"average_speed_kph" json:"averageSpeedKph"`
	DefaultDriveHours   float64 `yaml:"default_drive_hours" json:"defaultDriveHours"`
	MaxStops            int     `yaml:"max_stops" json:"maxStops"`
	MaxGapFillsPerGap   int     `yaml:"max_gap_fills_per_gap" json:"maxGapFillsPerGap"`
	MaxWindowDays       int     `yaml:"max_window_days" json:"maxWindowDays"`
	MaxTotalKm          float64 `yaml:"max_total_km" json:"maxTotalKm"`
	LongGapWarningDays  int     `yaml:"long_gap_warning_days" json:"longGapWarningDays"`
	MinDiversityRatio   float64 `yaml:"min_diversity_ratio" json:"minDiversityRatio"`
	DiversityBonusScale float64 `yaml:"diversity_bonus_scale" json:"diversityBonusScale"`
	ShowRatioBonusScale float64 `yaml:"show_ratio_bonus_scale" json:"showRatioBonusScale"`
	PerShowDistanceAdj  float64 `yaml:"per_show_distance_adj" json:"perShowDistanceAdj"`

	Distance geo.Tiers `yaml:"distance" json:"distance"`
}

func DefaultWeights() Weights {
	w := Weights{
		RecommendationMax:      30,
		ExistingEventBonus:     25,
		FavoriteVenueBonus:     15,
		WeekendBonus:           20,
		CapacityFitBonus:       15,
		GenreMatchBonus:        20,
		GenreMismatchPenalty:   5,
		AvailabilityFull:       20,
		UnavailablePenalty:     50,
		DiversityNewVenue:      10,
		DiversityRepeatPenalty: 10,
		DiversityHeavyPenalty:  20,
		RoutingBonus:           10,
		RoutingPenalty:         10,
		VenueBaseScore:         10,
		ActiveVenueBonus:       5,
		UnprovenVenueBonus:     8,
	}
	w.WeekdayPenalty = 0.6 * w.WeekendBonus
	w.AvailabilityTentative = w.AvailabilityFull / 2
	return w
}

func DefaultTuning() Tuning {
	return Tuning{
		Weights:             DefaultWeights(),
		EventAdmissionScore: 20,
		VenueAdmissionScore: 15,
		ShortLegKm:          320,
		LongLegKm:           800,
		ViaHomeMaxGapDays:   2,
		AverageSpeedKph:     80,
		DefaultDriveHours:   8,
		MaxStops:            20,
		MaxGapFillsPerGap:   2,
		MaxWindowDays:       366,
		MaxTotalKm:          8000,
		LongGapWarningDays:  7,
		MinDiversityRatio:   0.7,
		DiversityBonusScale: 15,
		ShowRatioBonusScale: 20,
		PerShowDistanceAdj:  10,
		Distance:            geo.DefaultTiers(),
	}
}

// withDefaults fills zero-valued fields from DefaultTuning so partial YAML
// overrides stay usable.
func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.Weights == (Weights{}) {
		t.Weights = d.Weights
	}
	setF := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	setI := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setF(&t.EventAdmissionScore, d.EventAdmissionScore)
	setF(&t.VenueAdmissionScore, d.VenueAdmissionScore)
	setF(&t.ShortLegKm, d.ShortLegKm)
	setF(&t.LongLegKm, d.LongLegKm)
	setI(&t.ViaHomeMaxGapDays, d.ViaHomeMaxGapDays)
	setF(&t.AverageSpeedKph, d.AverageSpeedKph)
	setF(&t.DefaultDriveHours, d.DefaultDriveHours)
	setI(&t.MaxStops, d.MaxStops)
	setI(&t.MaxGapFillsPerGap, d.MaxGapFillsPerGap)
	setI(&t.MaxWindowDays, d.MaxWindowDays)
	setF(&t.MaxTotalKm, d.MaxTotalKm)
	setI(&t.LongGapWarningDays, d.LongGapWarningDays)
	setF(&t.MinDiversityRatio, d.MinDiversityRatio)
	setF(&t.DiversityBonusScale, d.DiversityBonusScale)
	setF(&t.ShowRatioBonusScale, d.ShowRatioBonusScale)
	setF(&t.PerShowDistanceAdj, d.PerShowDistanceAdj)
	return t
}

// Scaled rescales the base weights by a user profile. Each user weight w
// multiplies its slots by 2w, so 0.5 leaves them unchanged and 0 disables
// them.
func (w Weights) Scaled(p model.WeightProfile) Weights {
	out := w
	out.RecommendationMax *= 2 * p.RecommendationAffinity
	out.WeekendBonus *= 2 * p.WeekendPreference
	out.WeekdayPenalty *= 2 * p.WeekendPreference
	out.CapacityFitBonus *= 2 * p.CapacityMatch
	out.GenreMatchBonus *= 2 * p.GenreMatch
	out.GenreMismatchPenalty *= 2 * p.GenreMatch
	out.RoutingBonus *= 2 * p.Distance
	out.RoutingPenalty *= 2 * p.Distance
	return out
}

// admission returns the score that lets c bypass the gap and radius limits.
func (t Tuning) admission(c *model.Candidate) float64 {
	if c.IsExistingEvent {
		return t.EventAdmissionScore
	}
	return t.VenueAdmissionScore
}
