package api

import (
	"sync"

	"tourplan/internal/model"
)

// LatestTours holds the most recent generated tour per group.
type LatestTours struct {
	mu sync.RWMutex
	m  map[string]*model.TourResult
}

func NewLatestTours() *LatestTours { return &LatestTours{m: map[string]*model.TourResult{}} }

// Put replaces the group's latest tour unless res is older.
func (c *LatestTours) Put(res *model.TourResult) {
	if res == nil || res.GroupID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.m[res.GroupID]; ok && cur.GeneratedAt.After(res.GeneratedAt) {
		return
	}
	c.m[res.GroupID] = res
}

func (c *LatestTours) Get(groupID string) (*model.TourResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.m[groupID]
	return res, ok
}
