package store

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"tourplan/internal/model"
)

// Group is a touring act and its genre history.
type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Home      string   `json:"home,omitempty"`
	Genres    []string `json:"genres,omitempty"`
	Members   []string `json:"members,omitempty"`
	Favorites []string `json:"favoriteVenueIds,omitempty"`
}

type BlockKind string

const (
	// BlockBooking is a confirmed commitment that rules the date out.
	BlockBooking BlockKind = "booking"
	// BlockUnavailable is a member marking themselves unavailable.
	BlockUnavailable BlockKind = "unavailable"
	// BlockTentative is a soft hold; the date stays available.
	BlockTentative BlockKind = "tentative"
)

// Block is one calendar entry for a group or one of its members.
type Block struct {
	ID       string    `json:"id"`
	GroupID  string    `json:"groupId"`
	MemberID string    `json:"memberId,omitempty"`
	Date     time.Time `json:"date"`
	Kind     BlockKind `json:"kind"`
}

// Application records a group applying to (or being booked for) an event
// or a single occurrence of a series.
type Application struct {
	GroupID string `json:"groupId"`
	EventID string `json:"eventId"`
	Status  string `json:"status,omitempty"`
}

// Dataset is the JSON seed format accepted by Memory.Seed and tourctl.
type Dataset struct {
	Groups       []Group       `json:"groups"`
	Venues       []model.Venue `json:"venues"`
	Events       []model.Event `json:"events"`
	Blocks       []Block       `json:"blocks,omitempty"`
	Applications []Application `json:"applications,omitempty"`
}

// ReadDataset decodes a Dataset and normalizes its dates to UTC midnight.
func ReadDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ds); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset: %w", err)
	}
	for i := range ds.Events {
		ds.Events[i].Date = model.Day(ds.Events[i].Date)
		if u := ds.Events[i].RecurUntil; u != nil {
			d := model.Day(*u)
			ds.Events[i].RecurUntil = &d
		}
	}
	for i := range ds.Blocks {
		ds.Blocks[i].Date = model.Day(ds.Blocks[i].Date)
	}
	return ds, nil
}

// availabilityFrom folds the blocks for one date into an oracle answer.
// Any booking or unavailable block makes the date unavailable; the lowest
// booking id is reported as the blocker.
func availabilityFrom(blocks []Block) model.Availability {
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].ID < blocks[j].ID })
	a := model.Availability{}
	for _, b := range blocks {
		switch b.Kind {
		case BlockTentative:
			a.TentativeCount++
		case BlockBooking:
			a.UnavailableCount++
			if a.BlockingBookingID == "" {
				a.BlockingBookingID = b.ID
			}
		default:
			a.UnavailableCount++
		}
	}
	a.Available = a.UnavailableCount == 0
	return a
}
