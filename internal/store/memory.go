package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourplan/internal/model"
	"tourplan/internal/tour"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu      sync.RWMutex
	groups  map[string]Group              // id -> group
	venues  map[string]model.Venue        // id -> venue
	events  map[string]model.Event        // id -> event
	blocks  map[string]map[string][]Block // group -> date -> blocks
	members map[string]string             // member -> group
	applied map[string][]string           // group -> event ids
}

func NewMemory() *Memory {
	return &Memory{
		groups:  map[string]Group{},
		venues:  map[string]model.Venue{},
		events:  map[string]model.Event{},
		blocks:  map[string]map[string][]Block{},
		members: map[string]string{},
		applied: map[string][]string{},
	}
}

// Seed loads a dataset. Records without ids get fresh ones.
func (m *Memory) Seed(ds Dataset) {
	for _, g := range ds.Groups {
		m.PutGroup(g)
	}
	for _, v := range ds.Venues {
		m.PutVenue(v)
	}
	for _, e := range ds.Events {
		m.PutEvent(e)
	}
	for _, b := range ds.Blocks {
		m.AddBlock(b)
	}
	for _, a := range ds.Applications {
		m.AddApplication(a)
	}
}

func (m *Memory) PutGroup(g Group) Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	m.groups[g.ID] = g
	for _, id := range g.Members {
		m.members[id] = g.ID
	}
	return g
}

func (m *Memory) PutVenue(v model.Venue) model.Venue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	m.venues[v.ID] = v
	return v
}

func (m *Memory) PutEvent(e model.Event) model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.Date = model.Day(e.Date)
	m.events[e.ID] = e
	return e
}

// AddBlock records a calendar entry. Member blocks count against the
// member's group.
func (m *Memory) AddBlock(b Block) Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.GroupID == "" {
		b.GroupID = m.members[b.MemberID]
	}
	b.Date = model.Day(b.Date)
	byDate := m.blocks[b.GroupID]
	if byDate == nil {
		byDate = map[string][]Block{}
		m.blocks[b.GroupID] = byDate
	}
	key := b.Date.Format(model.DateLayout)
	byDate[key] = append(byDate[key], b)
	return b
}

func (m *Memory) AddApplication(a Application) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied[a.GroupID] = append(m.applied[a.GroupID], a.EventID)
}

func (m *Memory) ListVenues(ctx context.Context, f tour.VenueFilter) ([]model.Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	excluded := map[string]bool{}
	for _, id := range f.ExcludeIDs {
		excluded[id] = true
	}
	out := []model.Venue{}
	for _, v := range m.venues {
		if excluded[v.ID] || !capacityOK(v.Capacity, f) {
			continue
		}
		v.Genres = append([]string(nil), v.Genres...)
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetVenue(ctx context.Context, id string) (model.Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.venues[id]
	if !ok {
		return model.Venue{}, ErrNotFound
	}
	return v, nil
}

func (m *Memory) ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	from, to = model.Day(from), model.Day(to)
	out := []model.Event{}
	for _, e := range m.events {
		if e.Date.After(to) {
			continue
		}
		if e.Recurrence == model.RecurNone && e.Date.Before(from) {
			continue
		}
		if e.RecurUntil != nil && model.Day(*e.RecurUntil).Before(from) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetGroup(ctx context.Context, id string) (Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (m *Memory) FavoriteVenueIDs(ctx context.Context, groupID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.groups[groupID].Favorites...), nil
}

func (m *Memory) AppliedEventIDs(ctx context.Context, groupID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.applied[groupID]...), nil
}

func (m *Memory) IsGroupAvailable(ctx context.Context, groupID string, date time.Time) (model.Availability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blocks := append([]Block(nil), m.blocks[groupID][model.Day(date).Format(model.DateLayout)]...)
	return availabilityFrom(blocks), nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func capacityOK(capacity int, f tour.VenueFilter) bool {
	if capacity <= 0 {
		return true
	}
	if f.MinCapacity > 0 && capacity < f.MinCapacity {
		return false
	}
	return f.MaxCapacity <= 0 || capacity <= f.MaxCapacity
}
