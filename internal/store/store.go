package store

import (
	"context"
	"errors"
	"time"

	"tourplan/internal/model"
	"tourplan/internal/tour"
)

// Store is the persistence interface used by the API server and the tour
// engine. It satisfies tour.VenueRepository, tour.EventRepository,
// tour.GroupRepository and tour.AvailabilityOracle.
type Store interface {
	// Venues
	ListVenues(ctx context.Context, f tour.VenueFilter) ([]model.Venue, error)
	GetVenue(ctx context.Context, id string) (model.Venue, error)

	// Events
	ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error)

	// Groups
	GetGroup(ctx context.Context, id string) (Group, error)
	FavoriteVenueIDs(ctx context.Context, groupID string) ([]string, error)
	AppliedEventIDs(ctx context.Context, groupID string) ([]string, error)

	// Availability calendar
	IsGroupAvailable(ctx context.Context, groupID string, date time.Time) (model.Availability, error)

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)
