package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Core domain types shared by the engine, the store and the API.

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WeightProfile holds the user-facing scoring weights, each in [0,1].
// 0.5 is neutral.
type WeightProfile struct {
	GenreMatch             float64 `json:"genreMatch"`
	CapacityMatch          float64 `json:"capacityMatch"`
	Distance               float64 `json:"distance"`
	WeekendPreference      float64 `json:"weekendPreference"`
	RecommendationAffinity float64 `json:"recommendationAffinity"`
}

func DefaultWeightProfile() WeightProfile {
	return WeightProfile{
		GenreMatch:             0.5,
		CapacityMatch:          0.5,
		Distance:               0.5,
		WeekendPreference:      0.5,
		RecommendationAffinity: 0.5,
	}
}

// TourParams is an immutable tour generation request.
type TourParams struct {
	GroupID             string         `json:"groupId"`
	StartDate           time.Time      `json:"startDate"`
	EndDate             time.Time      `json:"endDate"`
	MaxRadiusKm         float64        `json:"maxRadiusKm"`
	StartLocation       string         `json:"startLocation,omitempty"`
	EndLocation         string         `json:"endLocation,omitempty"`
	MinDaysBetweenShows int            `json:"minDaysBetweenShows"`
	MaxDaysBetweenShows int            `json:"maxDaysBetweenShows"`
	MaxDriveHoursPerDay float64        `json:"maxDriveHoursPerDay"`
	Genres              []string       `json:"genres,omitempty"`
	MinCapacity         int            `json:"minCapacity,omitempty"`
	MaxCapacity         int            `json:"maxCapacity,omitempty"`
	WeekendPriority     bool           `json:"weekendPriority"`
	ExcludeVenueIDs     []string       `json:"excludeVenueIds,omitempty"`
	Weights             *WeightProfile `json:"weights,omitempty"`
}

// HomeLocation is where the group starts and returns to between distant shows.
func (p TourParams) HomeLocation() string { return strings.TrimSpace(p.StartLocation) }

// ReturnLocation is where the tour ends; falls back to the start location.
func (p TourParams) ReturnLocation() string {
	if s := strings.TrimSpace(p.EndLocation); s != "" {
		return s
	}
	return p.HomeLocation()
}

// Excluded reports whether venueID is in the exclusion set.
func (p TourParams) Excluded(venueID string) bool {
	for _, id := range p.ExcludeVenueIDs {
		if id == venueID {
			return true
		}
	}
	return false
}

// CapacityOK reports whether a venue of the given capacity passes the
// requested range. Unknown capacity (0) always passes.
func (p TourParams) CapacityOK(capacity int) bool {
	if capacity <= 0 {
		return true
	}
	if p.MinCapacity > 0 && capacity < p.MinCapacity {
		return false
	}
	if p.MaxCapacity > 0 && capacity > p.MaxCapacity {
		return false
	}
	return true
}

// CapacityFits reports whether a known capacity lies within an explicitly
// requested range.
func (p TourParams) CapacityFits(capacity int) bool {
	if capacity <= 0 || (p.MinCapacity <= 0 && p.MaxCapacity <= 0) {
		return false
	}
	return p.CapacityOK(capacity)
}

type Venue struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	Capacity   int      `json:"capacity,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	EventCount int      `json:"eventCount"`
}

type EventStatus string

const (
	EventOpen      EventStatus = "open"
	EventClosed    EventStatus = "closed"
	EventBooked    EventStatus = "booked"
	EventCancelled EventStatus = "cancelled"
)

type Recurrence string

const (
	RecurNone     Recurrence = ""
	RecurWeekly   Recurrence = "weekly"
	RecurBiweekly Recurrence = "biweekly"
	RecurMonthly  Recurrence = "monthly"
)

// Event is a persisted event record. Recurring events describe a series
// starting at Date.
type Event struct {
	ID                    string      `json:"id"`
	VenueID               string      `json:"venueId"`
	Title                 string      `json:"title"`
	Date                  time.Time   `json:"date"`
	Genres                []string    `json:"genres,omitempty"`
	Status                EventStatus `json:"status"`
	AcceptingApplications bool        `json:"acceptingApplications"`
	Recurrence            Recurrence  `json:"recurrence,omitempty"`
	RecurUntil            *time.Time  `json:"recurUntil,omitempty"`
}

// OpenForApplications reports whether groups may apply to this event.
func (e Event) OpenForApplications() bool {
	return e.AcceptingApplications && e.Status == EventOpen
}

// EventOccurrence is one dated instance of an event. Single events produce
// exactly one occurrence; recurring events produce one per matching date.
type EventOccurrence struct {
	SourceEventID  string    `json:"sourceEventId"`
	OccurrenceDate time.Time `json:"occurrenceDate"`
	VenueID        string    `json:"venueId"`
	Title          string    `json:"title"`
	Genres         []string  `json:"genres,omitempty"`
	Recurring      bool      `json:"recurring"`
}

// ID is the source event id for single events and a derived
// "<source>@<date>" id for occurrences of a series.
func (o EventOccurrence) ID() string {
	if !o.Recurring {
		return o.SourceEventID
	}
	return fmt.Sprintf("%s@%s", o.SourceEventID, o.OccurrenceDate.Format(DateLayout))
}

type AvailabilityStatus string

const (
	Available   AvailabilityStatus = "available"
	Tentative   AvailabilityStatus = "tentative"
	Unavailable AvailabilityStatus = "unavailable"
)

// Availability is the group availability oracle's answer for one date.
type Availability struct {
	Available         bool   `json:"available"`
	TentativeCount    int    `json:"tentativeCount"`
	UnavailableCount  int    `json:"unavailableCount"`
	BlockingBookingID string `json:"blockingBookingId,omitempty"`
}

func (a Availability) Status() AvailabilityStatus {
	switch {
	case !a.Available:
		return Unavailable
	case a.TentativeCount > 0:
		return Tentative
	default:
		return Available
	}
}

// ScoreEntry is one labeled sub-score.
type ScoreEntry struct {
	Type  string  `json:"type"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// RoutingChoice records how DistanceFromPrevious was derived.
type RoutingChoice string

const (
	RouteHomeStart   RoutingChoice = "home_start"
	RouteDirect      RoutingChoice = "direct"
	RouteViaHome     RoutingChoice = "via_home"
	RouteFromHome    RoutingChoice = "from_home"
	RouteUnknownHome RoutingChoice = "unknown_home"
)

// Candidate is one potential (and, once accepted, actual) tour stop.
type Candidate struct {
	Date                  time.Time          `json:"date"`
	Venue                 Venue              `json:"venue"`
	Event                 *EventOccurrence   `json:"event,omitempty"`
	DistanceFromPrevious  float64            `json:"distanceFromPrevious"`
	DistanceFromHome      float64            `json:"distanceFromHome"`
	TravelDaysNeeded      int                `json:"travelDaysNeeded"`
	Routing               RoutingChoice      `json:"routing,omitempty"`
	RoutingNote           string             `json:"routingNote,omitempty"`
	Score                 float64            `json:"score"`
	Breakdown             []ScoreEntry       `json:"breakdown"`
	IsExistingEvent       bool               `json:"isExistingEvent"`
	IsGapFill             bool               `json:"isGapFill,omitempty"`
	Availability          AvailabilityStatus `json:"availabilityStatus"`
	Reasoning             []string           `json:"reasoning"`
	RecommendationScore   float64            `json:"recommendationScore,omitempty"`
	RecommendationReasons []string           `json:"recommendationReasons,omitempty"`
}

// AddScore appends a labeled sub-score and mirrors the label into the
// reasoning trail.
func (c *Candidate) AddScore(typ, label string, value float64) {
	c.Breakdown = append(c.Breakdown, ScoreEntry{Type: typ, Label: label, Value: value})
	c.Score += value
	c.Reasoning = append(c.Reasoning, label)
}

// Note appends a reasoning line without affecting the score. A line already
// in the trail is not repeated.
func (c *Candidate) Note(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !slices.Contains(c.Reasoning, line) {
		c.Reasoning = append(c.Reasoning, line)
	}
}

// Key identifies a candidate uniquely within one generation run.
func (c Candidate) Key() string {
	if c.Event != nil {
		return "event:" + c.Event.ID()
	}
	return "venue:" + c.Venue.ID + "@" + c.Date.Format(DateLayout)
}

// Clone returns a deep copy so pipeline stages never share slices.
func (c Candidate) Clone() Candidate {
	out := c
	out.Breakdown = append([]ScoreEntry(nil), c.Breakdown...)
	out.Reasoning = append([]string(nil), c.Reasoning...)
	out.RecommendationReasons = append([]string(nil), c.RecommendationReasons...)
	if c.Event != nil {
		ev := *c.Event
		out.Event = &ev
	}
	return out
}

type AvailabilityConflict struct {
	Date              time.Time `json:"date"`
	StopDate          time.Time `json:"stopDate"`
	VenueID           string    `json:"venueId"`
	Reason            string    `json:"reason"`
	BlockingBookingID string    `json:"blockingBookingId,omitempty"`
}

type TourResult struct {
	ID                    string                 `json:"id"`
	GroupID               string                 `json:"groupId"`
	GeneratedAt           time.Time              `json:"generatedAt"`
	Stops                 []Candidate            `json:"stops"`
	RecommendedEvents     []Candidate            `json:"recommendedEvents"`
	RecommendedVenues     []Candidate            `json:"recommendedVenues"`
	TotalDistanceKm       float64                `json:"totalDistanceKm"`
	ReturnLegKm           float64                `json:"returnLegKm,omitempty"`
	TotalTravelDays       int                    `json:"totalTravelDays"`
	TotalShowDays         int                    `json:"totalShowDays"`
	EfficiencyScore       float64                `json:"efficiencyScore"`
	AvailabilityConflicts []AvailabilityConflict `json:"availabilityConflicts"`
	Warnings              []string               `json:"warnings"`
}
