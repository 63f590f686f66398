package cache

import "sync"

// FlightIndex maps vessel ids to the id of the flight being recorded for them.
type FlightIndex struct {
	mu      sync.RWMutex
	flights map[uint64]string
}

func NewFlightIndex() *FlightIndex {
	return &FlightIndex{
		flights: make(map[uint64]string),
	}
}

// Get retrieves the open flight of a vessel
func (c *FlightIndex) Get(vesselID uint64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.flights[vesselID]
	return id, ok
}

// Set records the open flight of a vessel
func (c *FlightIndex) Set(vesselID uint64, flightID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flights[vesselID] = flightID
}

// Take removes and returns the open flight of a vessel.
func (c *FlightIndex) Take(vesselID uint64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.flights[vesselID]
	delete(c.flights, vesselID)
	return id, ok
}

// Snapshot returns a copy of all open flights.
func (c *FlightIndex) Snapshot() map[uint64]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint64]string, len(c.flights))
	for k, v := range c.flights {
		out[k] = v
	}
	return out
}

func (c *FlightIndex) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flights = make(map[uint64]string)
}
