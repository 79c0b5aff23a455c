// Package tour generates multi-stop tour itineraries for a touring group.
//
// A run collects candidate dates, events and venues, scores them, builds a
// greedy route honoring gap, radius and travel-time limits, fills long gaps
// between events with direct bookings and summarizes the result. The same
// inputs always yield the same tour.
package tour

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tourplan/internal/geo"
	"tourplan/internal/metrics"
	"tourplan/internal/model"
)

// Deps are the engine's collaborators. Recommendations and Groups are
// optional.
type Deps struct {
	Availability    AvailabilityOracle
	Recommendations RecommendationOracle
	Venues          VenueRepository
	Events          EventRepository
	Groups          GroupRepository
	Distances       DistanceEstimator
}

type Engine struct {
	deps      Deps
	tuning    Tuning
	logger    zerolog.Logger
	now       func() time.Time
	collector *Collector
	scorer    *Scorer
	optimizer *Optimizer
	filler    *GapFiller
	formatter *Formatter
}

type Option func(*Engine)

// WithTuning overrides the default constants; zero fields keep defaults.
func WithTuning(t Tuning) Option {
	return func(e *Engine) { e.tuning = t }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine wires the pipeline. A nil Distances falls back to a purely
// heuristic estimator.
func NewEngine(deps Deps, opts ...Option) (*Engine, error) {
	if deps.Availability == nil {
		return nil, errors.New("tour: availability oracle is required")
	}
	if deps.Venues == nil || deps.Events == nil {
		return nil, errors.New("tour: venue and event repositories are required")
	}
	e := &Engine{deps: deps, tuning: DefaultTuning(), logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.tuning = e.tuning.withDefaults()
	if e.deps.Distances == nil {
		e.deps.Distances = geo.NewEstimator(nil, e.tuning.Distance)
	}
	d := e.deps
	e.collector = NewCollector(d.Availability, d.Venues, d.Events, d.Groups, d.Distances, e.tuning, e.logger)
	e.scorer = NewScorer(d.Recommendations, e.logger)
	e.optimizer = NewOptimizer(d.Distances, e.tuning, e.logger)
	e.filler = NewGapFiller(d.Distances, e.optimizer, e.tuning, e.logger)
	e.formatter = NewFormatter(d.Availability, d.Distances, e.tuning, e.logger)
	return e, nil
}

// Tuning returns the effective constants.
func (e *Engine) Tuning() Tuning { return e.tuning }

// GenerateTour builds a tour for params. Invalid params return a
// *ValidationError before any collaborator is called. Degraded data never
// fails a run; only collaborator errors do.
func (e *Engine) GenerateTour(ctx context.Context, params model.TourParams) (*model.TourResult, error) {
	start := time.Now()
	res, err := e.generate(ctx, params)
	metrics.TourDuration.Observe(time.Since(start).Seconds())
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		metrics.TourGenerations.WithLabelValues("invalid").Inc()
	case err != nil:
		metrics.TourGenerations.WithLabelValues("error").Inc()
		e.logger.Error().Err(err).Str("group", params.GroupID).Msg("tour generation failed")
	case len(res.Stops) == 0:
		metrics.TourGenerations.WithLabelValues("empty").Inc()
	default:
		metrics.TourGenerations.WithLabelValues("ok").Inc()
	}
	if err == nil {
		metrics.TourStops.Observe(float64(len(res.Stops)))
	}
	return res, err
}

func (e *Engine) generate(ctx context.Context, params model.TourParams) (*model.TourResult, error) {
	if err := Validate(params, e.tuning); err != nil {
		return nil, err
	}
	p := e.normalize(params)
	w := e.tuning.Weights.Scaled(*p.Weights)

	pool, err := e.collector.Collect(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(pool.Dates) == 0 {
		return e.finish(p, Empty(p.GroupID, NoDatesWarning)), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.scorer.Score(ctx, p, pool, w); err != nil {
		return nil, err
	}
	route := e.optimizer.Optimize(ctx, p, pool.Candidates(), w)
	route, filled := e.filler.Fill(ctx, p, route, pool.Venues, pool.Favorites, w)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := e.formatter.Format(ctx, p, route, pool)
	if err != nil {
		return nil, err
	}
	e.logger.Info().Str("group", p.GroupID).Int("stops", len(res.Stops)).Int("gap_fills", filled).
		Float64("distance_km", res.TotalDistanceKm).Float64("efficiency", res.EfficiencyScore).
		Msg("tour generated")
	return e.finish(p, res), nil
}

// RecomputeStop recomputes the distance into stop after a manual
// substitution, using the same routing rule as generation. prev is nil when
// stop is the first stop.
func (e *Engine) RecomputeStop(ctx context.Context, params model.TourParams, prev *model.Candidate, stop model.Candidate) (model.Candidate, error) {
	if prev != nil && !model.Day(stop.Date).After(model.Day(prev.Date)) {
		return model.Candidate{}, &ValidationError{Problems: []string{"stop must be dated after the previous stop"}}
	}
	p := e.normalize(params)
	out := stop.Clone()
	out.Date = model.Day(out.Date)
	leg := e.optimizer.RouteLeg(ctx, p, prev, &out)
	e.optimizer.apply(p, &out, leg)
	noteEstimate(&out, leg)
	if home := p.HomeLocation(); home != "" {
		out.DistanceFromHome = e.deps.Distances.Distance(ctx, home, out.Venue.Location).Km
	}
	return out, nil
}

// normalize truncates dates and fills optional fields.
func (e *Engine) normalize(p model.TourParams) model.TourParams {
	p.StartDate = model.Day(p.StartDate)
	p.EndDate = model.Day(p.EndDate)
	if p.MaxDriveHoursPerDay <= 0 {
		p.MaxDriveHoursPerDay = e.tuning.DefaultDriveHours
	}
	wp := model.DefaultWeightProfile()
	if p.Weights != nil {
		wp = *p.Weights
	}
	p.Weights = &wp
	return p
}

// finish stamps identity. The id is derived from the request and the chosen
// stops so repeated runs over unchanged data agree.
func (e *Engine) finish(p model.TourParams, res *model.TourResult) *model.TourResult {
	res.GeneratedAt = e.now().UTC()
	key, _ := json.Marshal(p)
	for _, s := range res.Stops {
		key = append(key, s.Key()...)
	}
	res.ID = uuid.NewSHA1(uuid.NameSpaceOID, key).String()
	return res
}

// Describe is a one-line summary used by the CLI and logs.
func Describe(res *model.TourResult) string {
	return fmt.Sprintf("%d stops, %.0f km, %d travel days, efficiency %.1f",
		len(res.Stops), res.TotalDistanceKm, res.TotalTravelDays, res.EfficiencyScore)
}
