// Package storage defines where recorded flights go.
package storage

import (
	"go.uber.org/multierr"

	"github.com/krpc/spacecenter/pkg/core"
)

// Backend is the interface all flight recorders must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// StartFlight opens a flight. f.ID is assigned by the caller.
	StartFlight(f *core.Flight) error
	RecordSample(s *core.VesselSample) error
	EndFlight(e *core.FlightEnd) error
}

// Exporter is an optional interface for backends that write one file per
// finished flight.
type Exporter interface {
	ExportedFiles() []string
}

// Uploadable is an optional interface for backends whose exported files can
// be sent to the flight archive.
type Uploadable interface {
	Uploads() []core.Upload
}

// Multi fans every call out to several backends. All backends are called
// even when one fails; the errors are combined.
type Multi struct {
	backends []Backend
}

func NewMulti(backends ...Backend) *Multi {
	return &Multi{backends: backends}
}

func (m *Multi) Backends() []Backend {
	return m.backends
}

func (m *Multi) each(fn func(Backend) error) error {
	var err error
	for _, b := range m.backends {
		err = multierr.Append(err, fn(b))
	}
	return err
}

func (m *Multi) Init() error {
	return m.each(Backend.Init)
}

func (m *Multi) Close() error {
	return m.each(Backend.Close)
}

func (m *Multi) StartFlight(f *core.Flight) error {
	return m.each(func(b Backend) error { return b.StartFlight(f) })
}

func (m *Multi) RecordSample(s *core.VesselSample) error {
	return m.each(func(b Backend) error { return b.RecordSample(s) })
}

func (m *Multi) EndFlight(e *core.FlightEnd) error {
	return m.each(func(b Backend) error { return b.EndFlight(e) })
}

// ExportedFiles collects the files of every member that exports them.
func (m *Multi) ExportedFiles() []string {
	var files []string
	for _, b := range m.backends {
		if e, ok := b.(Exporter); ok {
			files = append(files, e.ExportedFiles()...)
		}
	}
	return files
}

// Uploads collects the uploads of every member that has them.
func (m *Multi) Uploads() []core.Upload {
	var uploads []core.Upload
	for _, b := range m.backends {
		if u, ok := b.(Uploadable); ok {
			uploads = append(uploads, u.Uploads()...)
		}
	}
	return uploads
}
