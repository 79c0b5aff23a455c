package tour

import (
	"context"
	"time"

	"tourplan/internal/geo"
	"tourplan/internal/model"
)

// AvailabilityOracle reports whether a group can play on a date.
type AvailabilityOracle interface {
	IsGroupAvailable(ctx context.Context, groupID string, date time.Time) (model.Availability, error)
}

// RecommendationOracle scores how well an event suits a group on a 0-100
// scale, with reason codes.
type RecommendationOracle interface {
	ScoreEventForGroup(ctx context.Context, ev model.EventOccurrence, groupID string) (float64, []string, error)
}

// VenueFilter narrows ListVenues. Zero values mean no constraint.
type VenueFilter struct {
	MinCapacity int
	MaxCapacity int
	ExcludeIDs  []string
}

type VenueRepository interface {
	ListVenues(ctx context.Context, f VenueFilter) ([]model.Venue, error)
}

// EventRepository returns every event that may have an occurrence in
// [from, to], including recurring series that started earlier.
type EventRepository interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error)
}

type GroupRepository interface {
	FavoriteVenueIDs(ctx context.Context, groupID string) ([]string, error)
	// AppliedEventIDs returns ids of events the group already applied to or
	// is booked for. Occurrence ids ("<source>@<date>") are accepted.
	AppliedEventIDs(ctx context.Context, groupID string) ([]string, error)
}

// DistanceEstimator is satisfied by *geo.Estimator.
type DistanceEstimator interface {
	Distance(ctx context.Context, a, b string) geo.Estimate
}
