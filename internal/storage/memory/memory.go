// Package memory keeps flights in memory and exports each one to a JSON
// file when it ends.
package memory

import (
	"fmt"
	"sync"

	"github.com/krpc/spacecenter/internal/config"
	"github.com/krpc/spacecenter/pkg/core"
)

// FlightRecord groups a flight with its samples.
type FlightRecord struct {
	Flight  core.Flight
	Samples []core.VesselSample
	End     *core.FlightEnd
}

// Backend stores flight data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	flights map[string]*FlightRecord
	order   []string
	exports []core.Upload
	mu      sync.RWMutex
}

func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		flights: make(map[string]*FlightRecord),
	}
}

func (b *Backend) Init() error {
	return nil
}

// Close exports flights that never ended.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range b.order {
		rec := b.flights[id]
		if rec.End != nil {
			continue
		}
		rec.End = &core.FlightEnd{FlightID: id, VesselID: rec.Flight.VesselID, Reason: "shutdown"}
		if n := len(rec.Samples); n > 0 {
			rec.End.UT = rec.Samples[n-1].UT
			rec.End.Time = rec.Samples[n-1].Time
		}
		if err := b.export(rec); err != nil {
			return err
		}
	}
	return nil
}

// StartFlight begins recording a new flight.
func (b *Backend) StartFlight(f *core.Flight) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.flights[f.ID]; ok {
		return fmt.Errorf("flight %s already started", f.ID)
	}
	b.flights[f.ID] = &FlightRecord{Flight: *f}
	b.order = append(b.order, f.ID)
	return nil
}

func (b *Backend) RecordSample(s *core.VesselSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.flights[s.FlightID]
	if !ok {
		return fmt.Errorf("unknown flight %s", s.FlightID)
	}
	if rec.End != nil {
		return fmt.Errorf("flight %s already ended", s.FlightID)
	}
	rec.Samples = append(rec.Samples, *s)
	return nil
}

// EndFlight closes the flight and writes its export file.
func (b *Backend) EndFlight(e *core.FlightEnd) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.flights[e.FlightID]
	if !ok {
		return fmt.Errorf("unknown flight %s", e.FlightID)
	}
	if rec.End != nil {
		return nil
	}
	end := *e
	rec.End = &end
	return b.export(rec)
}

// Flight returns a copy of a recorded flight.
func (b *Backend) Flight(id string) (FlightRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.flights[id]
	if !ok {
		return FlightRecord{}, false
	}
	out := *rec
	out.Samples = append([]core.VesselSample(nil), rec.Samples...)
	return out, true
}

// Flights returns flight ids in start order.
func (b *Backend) Flights() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// ExportedFiles returns the paths written so far.
func (b *Backend) ExportedFiles() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	files := make([]string, len(b.exports))
	for i, u := range b.exports {
		files[i] = u.Path
	}
	return files
}

// Uploads returns the exported files with the metadata the flight archive
// needs.
func (b *Backend) Uploads() []core.Upload {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Upload(nil), b.exports...)
}
