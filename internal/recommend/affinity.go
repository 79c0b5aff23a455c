// Package recommend scores how well an event suits a touring group.
package recommend

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"tourplan/internal/model"
	"tourplan/internal/store"
)

// Reason codes returned alongside a score.
const (
	ReasonGenreAffinity  = "genre_affinity"
	ReasonVenueHistory   = "venue_genre_history"
	ReasonEstablished    = "established_venue"
	ReasonWeekendSlot    = "weekend_slot"
	ReasonNoGroupHistory = "no_group_history"
)

// Config weights the four dimensions. Each dimension scores 0-100 and the
// weights should sum to 1.
type Config struct {
	GenreWeight    float64 `yaml:"genre_weight" json:"genreWeight"`
	VenueWeight    float64 `yaml:"venue_weight" json:"venueWeight"`
	ActivityWeight float64 `yaml:"activity_weight" json:"activityWeight"`
	WeekendWeight  float64 `yaml:"weekend_weight" json:"weekendWeight"`
	// EstablishedEvents is the hosted-event count at which a venue's
	// activity score saturates.
	EstablishedEvents int `yaml:"established_events" json:"establishedEvents"`
	// ReasonThreshold is the dimension score above which its reason code
	// is reported.
	ReasonThreshold float64 `yaml:"reason_threshold" json:"reasonThreshold"`
}

func DefaultConfig() Config {
	return Config{
		GenreWeight:       0.5,
		VenueWeight:       0.2,
		ActivityWeight:    0.2,
		WeekendWeight:     0.1,
		EstablishedEvents: 10,
		ReasonThreshold:   50,
	}
}

// Lookup is the part of the store the recommender reads.
type Lookup interface {
	GetGroup(ctx context.Context, id string) (store.Group, error)
	GetVenue(ctx context.Context, id string) (model.Venue, error)
}

// Affinity is a tour.RecommendationOracle built on group and venue genre
// history.
type Affinity struct {
	lookup Lookup
	cfg    Config
	logger zerolog.Logger
}

func NewAffinity(lookup Lookup, cfg Config, logger zerolog.Logger) *Affinity {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if cfg.EstablishedEvents <= 0 {
		cfg.EstablishedEvents = DefaultConfig().EstablishedEvents
	}
	return &Affinity{lookup: lookup, cfg: cfg, logger: logger}
}

func (a *Affinity) Name() string    { return "GenreAffinity" }
func (a *Affinity) Version() string { return "1.0.0" }

// ScoreEventForGroup returns a 0-100 affinity score. A group or venue the
// store does not know scores on the remaining dimensions only.
func (a *Affinity) ScoreEventForGroup(ctx context.Context, ev model.EventOccurrence, groupID string) (float64, []string, error) {
	group, err := a.lookup.GetGroup(ctx, groupID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, nil, err
	}
	venue, err := a.lookup.GetVenue(ctx, ev.VenueID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, nil, err
	}

	var reasons []string
	genreScore := overlapScore(group.Genres, ev.Genres)
	venueScore := overlapScore(group.Genres, venue.Genres)
	activityScore := math.Min(100, float64(venue.EventCount)/float64(a.cfg.EstablishedEvents)*100)
	weekendScore := 0.0
	if model.IsWeekend(ev.OccurrenceDate) {
		weekendScore = 100
	}

	if len(group.Genres) == 0 {
		reasons = append(reasons, ReasonNoGroupHistory)
	}
	if genreScore > a.cfg.ReasonThreshold {
		reasons = append(reasons, ReasonGenreAffinity)
	}
	if venueScore > a.cfg.ReasonThreshold {
		reasons = append(reasons, ReasonVenueHistory)
	}
	if activityScore > a.cfg.ReasonThreshold {
		reasons = append(reasons, ReasonEstablished)
	}
	if weekendScore > a.cfg.ReasonThreshold {
		reasons = append(reasons, ReasonWeekendSlot)
	}

	total := genreScore*a.cfg.GenreWeight +
		venueScore*a.cfg.VenueWeight +
		activityScore*a.cfg.ActivityWeight +
		weekendScore*a.cfg.WeekendWeight
	total = math.Round(math.Max(0, math.Min(100, total))*10) / 10

	a.logger.Debug().Str("group", groupID).Str("event", ev.ID()).Float64("score", total).
		Strs("reasons", reasons).Msg("event affinity")
	return total, reasons, nil
}

// overlapScore is the share of wanted genres found in have, 0-100.
func overlapScore(wanted, have []string) float64 {
	if len(wanted) == 0 || len(have) == 0 {
		return 0
	}
	set := make(map[string]bool, len(have))
	for _, g := range have {
		set[strings.ToLower(strings.TrimSpace(g))] = true
	}
	hits := 0
	for _, g := range wanted {
		if set[strings.ToLower(strings.TrimSpace(g))] {
			hits++
		}
	}
	return float64(hits) / float64(len(wanted)) * 100
}
