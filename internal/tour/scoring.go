package tour

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tourplan/internal/model"
)

// Score types recorded in a candidate's breakdown.
const (
	ScoreRecommendation = "recommendation"
	ScoreExistingEvent  = "existing_event"
	ScoreFavorite       = "favorite"
	ScoreWeekend        = "weekend"
	ScoreCapacity       = "capacity"
	ScoreGenre          = "genre"
	ScoreAvailability   = "availability"
	ScoreDiversity      = "diversity"
	ScoreRouting        = "routing"
)

// Scorer assigns composite scores to candidates.
type Scorer struct {
	recommend RecommendationOracle
	logger    zerolog.Logger
}

func NewScorer(recommend RecommendationOracle, logger zerolog.Logger) *Scorer {
	return &Scorer{recommend: recommend, logger: logger}
}

// Score scores every candidate in the pool in place: events first, then
// venues. Venue diversity is counted in that order.
func (s *Scorer) Score(ctx context.Context, p model.TourParams, pool *Pool, w Weights) error {
	seen := map[string]int{}
	for i := range pool.Events {
		if err := s.scoreOne(ctx, p, pool, &pool.Events[i], w, seen); err != nil {
			return err
		}
	}
	for i := range pool.Venues {
		if err := s.scoreOne(ctx, p, pool, &pool.Venues[i], w, seen); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scorer) scoreOne(ctx context.Context, p model.TourParams, pool *Pool, c *model.Candidate, w Weights, seen map[string]int) error {
	if c.Event != nil && s.recommend != nil {
		score, reasons, err := s.recommend.ScoreEventForGroup(ctx, *c.Event, p.GroupID)
		if err != nil {
			return fmt.Errorf("recommendation for %s: %w", c.Event.ID(), err)
		}
		c.RecommendationScore = score
		c.RecommendationReasons = append([]string(nil), reasons...)
		if score != 0 {
			c.AddScore(ScoreRecommendation, fmt.Sprintf("Recommended for group (affinity %.0f)", score), score/100*w.RecommendationMax)
		}
	}

	if c.IsExistingEvent {
		c.AddScore(ScoreExistingEvent, "Open event accepting applications", w.ExistingEventBonus)
	}

	if pool.Favorites[c.Venue.ID] {
		c.AddScore(ScoreFavorite, "Favorite venue", w.FavoriteVenueBonus)
	}

	if p.WeekendPriority {
		addWeekendScore(c, w)
	}

	if p.CapacityFits(c.Venue.Capacity) {
		c.AddScore(ScoreCapacity, fmt.Sprintf("Capacity %d fits requested range", c.Venue.Capacity), w.CapacityFitBonus)
	}

	if len(p.Genres) > 0 {
		scoreGenre(c, p.Genres, w)
	}

	switch c.Availability {
	case model.Available:
		c.AddScore(ScoreAvailability, "Group fully available", w.AvailabilityFull)
	case model.Tentative:
		c.AddScore(ScoreAvailability, "Group tentatively available", w.AvailabilityTentative)
	default:
		c.AddScore(ScoreAvailability, "Group unavailable", -w.UnavailablePenalty)
	}

	seen[c.Venue.ID]++
	switch n := seen[c.Venue.ID]; {
	case n == 1:
		c.AddScore(ScoreDiversity, "New venue for this tour", w.DiversityNewVenue)
	case n == 2:
		c.AddScore(ScoreDiversity, "Repeat venue", -w.DiversityRepeatPenalty/2)
	default:
		c.AddScore(ScoreDiversity, fmt.Sprintf("Venue repeated %d times", n), -w.DiversityHeavyPenalty)
	}
	return nil
}

func addWeekendScore(c *model.Candidate, w Weights) {
	if model.IsWeekend(c.Date) {
		c.AddScore(ScoreWeekend, "Weekend show", w.WeekendBonus)
		return
	}
	c.AddScore(ScoreWeekend, "Weekday show", -w.WeekdayPenalty)
}

// scoreGenre never filters: missing genre data scores zero.
func scoreGenre(c *model.Candidate, wanted []string, w Weights) {
	var have []string
	if c.Event != nil {
		have = append(have, c.Event.Genres...)
	}
	have = append(have, c.Venue.Genres...)
	if len(have) == 0 {
		c.AddScore(ScoreGenre, "No genre history", 0)
		return
	}
	want := make(map[string]bool, len(wanted))
	for _, g := range wanted {
		want[strings.ToLower(strings.TrimSpace(g))] = true
	}
	for _, g := range have {
		if want[strings.ToLower(strings.TrimSpace(g))] {
			c.AddScore(ScoreGenre, "Genre match: "+g, w.GenreMatchBonus)
			return
		}
	}
	c.AddScore(ScoreGenre, "Genre mismatch", -w.GenreMismatchPenalty)
}
