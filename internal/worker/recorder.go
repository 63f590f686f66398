package worker

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/internal/vessel"
	"github.com/krpc/spacecenter/pkg/core"
)

// VesselUpdated opens a flight the first time a vessel is seen and queues a
// sample when at least SampleInterval of simulation time has passed since
// the previous one. A vessel whose UT went backwards (a reverted save) is
// sampled immediately.
//
// The closed check and the flight open happen under m.mu, so Close either
// sees the new flight and ends it or the update is ignored.
func (m *Manager) VesselUpdated(v *vessel.Vessel, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return
	}
	now := m.deps.Now()

	flightID, open := m.deps.Flights.Get(v.ID())
	if !open {
		flightID = m.deps.NewID()
		m.deps.Flights.Set(v.ID(), flightID)
		m.records.Push(record{kind: recordStart, flight: &core.Flight{
			ID:         flightID,
			VesselID:   v.ID(),
			VesselName: v.Name(),
			VesselType: v.Type(),
			LaunchUT:   v.LaunchTime(),
			StartTime:  now,
		}})
		m.started.Add(context.Background(), 1)
	}

	last, seen := m.lastUT[v.ID()]
	if seen && v.UT() >= last && v.UT()-last < m.deps.SampleInterval.Seconds() {
		return
	}
	m.lastUT[v.ID()] = v.UT()

	if m.records.Len() >= m.deps.QueueSize {
		m.dropped.Add(1)
		m.drops.Add(context.Background(), 1)
		return
	}
	s := v.Sample(flightID, now)
	m.records.Push(record{kind: recordSample, sample: &s})
}

// VesselRemoved ends the vessel's open flight.
func (m *Manager) VesselRemoved(id uint64, ut float64) {
	m.endFlight(id, ut, "removed")
}

func (m *Manager) endFlight(id uint64, ut float64, reason string) {
	m.mu.Lock()
	delete(m.lastUT, id)
	m.mu.Unlock()

	flightID, ok := m.deps.Flights.Take(id)
	if !ok {
		return
	}
	m.records.Push(record{kind: recordEnd, end: &core.FlightEnd{
		FlightID: flightID,
		VesselID: id,
		UT:       ut,
		Time:     m.deps.Now(),
		Reason:   reason,
	}})
}

// Flush writes every queued record to the backend in order. Errors are
// logged and counted; the record is not retried.
func (m *Manager) Flush() {
	items := m.records.GetAndEmpty()
	if len(items) == 0 {
		return
	}

	start := time.Now()
	ctx := context.Background()
	for _, r := range items {
		var err error
		switch r.kind {
		case recordStart:
			err = m.backend.StartFlight(r.flight)
		case recordSample:
			err = m.backend.RecordSample(r.sample)
			if err == nil {
				m.recorded.Add(ctx, 1)
			}
		case recordEnd:
			err = m.backend.EndFlight(r.end)
		}
		if err != nil {
			m.failures.Add(ctx, 1)
			m.deps.LogManager.WriteLog(":RECORDER:WRITER:", fmt.Sprintf("Error writing record: %v", err), "ERROR")
		}
	}
	m.lastWrite.Store(int64(time.Since(start)))
}

// Run drains the queue into the backend until ctx is done, then flushes
// what is left.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Flush()
			return nil
		case <-ticker.C:
			m.Flush()
		}
	}
}

// Close ends every open flight with reason "shutdown", flushes, and stops
// accepting snapshots. It does not close the backend.
func (m *Manager) Close(ut float64) {
	m.mu.Lock()
	already := m.closed.Swap(true)
	m.mu.Unlock()
	if already {
		return
	}
	for id := range m.deps.Flights.Snapshot() {
		m.endFlight(id, ut, "shutdown")
	}
	m.Flush()
}

// RegisterHandlers exposes the recorder state to clients.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(":RECORDER:FLIGHTS:", m.handleFlights, dispatcher.ReadOnly())
	d.Register(":RECORDER:STATUS:", m.handleStatus, dispatcher.ReadOnly())
}

// FlightRef pairs a vessel with its open flight.
type FlightRef struct {
	VesselID uint64 `json:"vessel_id"`
	FlightID string `json:"flight_id"`
}

func (m *Manager) handleFlights(dispatcher.Event) (any, error) {
	open := m.OpenFlights()
	out := make([]FlightRef, 0, len(open))
	for vid, fid := range open {
		out = append(out, FlightRef{VesselID: vid, FlightID: fid})
	}
	slices.SortFunc(out, func(a, b FlightRef) int { return cmp.Compare(a.VesselID, b.VesselID) })
	return out, nil
}

// Status is the recorder's health report.
type Status struct {
	OpenFlights     int     `json:"open_flights"`
	QueueLength     int     `json:"queue_length"`
	DroppedSamples  uint64  `json:"dropped_samples"`
	LastWriteMillis float64 `json:"last_write_ms"`
}

// Status reports queue and write statistics.
func (m *Manager) Status() Status {
	return Status{
		OpenFlights:     len(m.OpenFlights()),
		QueueLength:     m.QueueLen(),
		DroppedSamples:  m.Dropped(),
		LastWriteMillis: float64(m.GetLastDBWriteDuration().Microseconds()) / 1000,
	}
}

func (m *Manager) handleStatus(dispatcher.Event) (any, error) {
	return m.Status(), nil
}
