// Package cache holds the live vessel snapshots of the space center.
package cache

import (
	"errors"
	"sort"
	"sync"

	"github.com/krpc/spacecenter/internal/vessel"
)

// ErrUnknownVessel is returned when an operation names a vessel that is not
// in the cache.
var ErrUnknownVessel = errors.New("unknown vessel")

// Rate is the simulation's reported frame rate and time warp.
type Rate struct {
	FPS  float64 `json:"fps"`
	Warp float64 `json:"warp"`
}

// VesselCache maps vessel ids to their latest snapshot. Snapshots are
// swapped whole; a *vessel.Vessel handed out is never modified afterwards.
type VesselCache struct {
	mu        sync.RWMutex
	vessels   map[uint64]*vessel.Vessel
	active    uint64
	hasActive bool
	ut        float64
	rate      Rate
}

func NewVesselCache() *VesselCache {
	return &VesselCache{
		vessels: make(map[uint64]*vessel.Vessel),
	}
}

// Put stores v as the current snapshot of its vessel and advances the
// universal time to the snapshot's. It reports whether the vessel was new.
func (c *VesselCache) Put(v *vessel.Vessel) (created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, existed := c.vessels[v.ID()]
	c.vessels[v.ID()] = v
	if v.UT() > c.ut {
		c.ut = v.UT()
	}
	if !c.hasActive {
		c.active, c.hasActive = v.ID(), true
	}
	return !existed
}

func (c *VesselCache) Get(id uint64) (*vessel.Vessel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vessels[id]
	return v, ok
}

// Remove drops a vessel. The active vessel is cleared if it was the one removed.
func (c *VesselCache) Remove(id uint64) (*vessel.Vessel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vessels[id]
	if !ok {
		return nil, false
	}
	delete(c.vessels, id)
	if c.hasActive && c.active == id {
		c.active, c.hasActive = 0, false
	}
	return v, true
}

// List returns all vessels ordered by id.
func (c *VesselCache) List() []*vessel.Vessel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*vessel.Vessel, 0, len(c.vessels))
	for _, v := range c.vessels {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (c *VesselCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vessels)
}

// SetActive marks the vessel the player controls.
func (c *VesselCache) SetActive(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.vessels[id]; !ok {
		return ErrUnknownVessel
	}
	c.active, c.hasActive = id, true
	return nil
}

// Active returns the vessel the player controls, if any.
func (c *VesselCache) Active() (*vessel.Vessel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasActive {
		return nil, false
	}
	v, ok := c.vessels[c.active]
	return v, ok
}

// SetUT records the universal time reported by the simulation. Time never
// moves backwards.
func (c *VesselCache) SetUT(ut float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ut > c.ut {
		c.ut = ut
	}
}

// UT is the latest universal time seen, in seconds.
func (c *VesselCache) UT() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ut
}

func (c *VesselCache) SetRate(r Rate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = r
}

func (c *VesselCache) Rate() Rate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rate
}

func (c *VesselCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vessels = make(map[uint64]*vessel.Vessel)
	c.active, c.hasActive = 0, false
	c.ut = 0
	c.rate = Rate{}
}
