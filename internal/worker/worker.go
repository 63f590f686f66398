// Package worker records flights: it turns ingested vessel snapshots into
// flight lifecycle events and samples and writes them to a storage backend
// from a single goroutine.
package worker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/krpc/spacecenter/internal/cache"
	"github.com/krpc/spacecenter/internal/logging"
	"github.com/krpc/spacecenter/internal/queue"
	"github.com/krpc/spacecenter/internal/storage"
	"github.com/krpc/spacecenter/pkg/core"
)

const (
	instrumentationName  = "github.com/krpc/spacecenter/internal/worker"
	defaultFlushInterval = 100 * time.Millisecond
	defaultQueueSize     = 10000
)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Flights    *cache.FlightIndex
	LogManager *logging.SlogManager
	// SampleInterval is the simulation time between two samples of a vessel.
	SampleInterval time.Duration
	// QueueSize bounds queued samples. Flight starts and ends are never dropped.
	QueueSize     int
	FlushInterval time.Duration
	Now           func() time.Time
	NewID         func() string
}

type recordKind int

const (
	recordStart recordKind = iota
	recordSample
	recordEnd
)

type record struct {
	kind   recordKind
	flight *core.Flight
	sample *core.VesselSample
	end    *core.FlightEnd
}

// Manager records vessel flights into a storage backend.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	records *queue.Queue[record]

	mu     sync.Mutex
	lastUT map[uint64]float64

	lastWrite atomic.Int64
	dropped   atomic.Uint64
	closed    atomic.Bool

	started  metric.Int64Counter
	recorded metric.Int64Counter
	drops    metric.Int64Counter
	failures metric.Int64Counter
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) (*Manager, error) {
	if deps.Flights == nil {
		deps.Flights = cache.NewFlightIndex()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = defaultQueueSize
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	m := &Manager{
		deps:    deps,
		backend: backend,
		records: queue.New[record](),
		lastUT:  make(map[uint64]float64),
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if m.started, err = meter.Int64Counter("recorder.flights.started",
		metric.WithDescription("Flights opened by the recorder")); err != nil {
		return nil, fmt.Errorf("creating flights counter: %w", err)
	}
	if m.recorded, err = meter.Int64Counter("recorder.samples.recorded",
		metric.WithDescription("Samples written to the backend")); err != nil {
		return nil, fmt.Errorf("creating samples counter: %w", err)
	}
	if m.drops, err = meter.Int64Counter("recorder.samples.dropped",
		metric.WithDescription("Samples dropped because the queue was full")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if m.failures, err = meter.Int64Counter("recorder.write.errors",
		metric.WithDescription("Backend calls that returned an error")); err != nil {
		return nil, fmt.Errorf("creating errors counter: %w", err)
	}
	return m, nil
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last write cycle. A
// backend that measures its own writes takes precedence.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return time.Duration(m.lastWrite.Load())
}

// QueueLen returns the number of records waiting for the writer.
func (m *Manager) QueueLen() int {
	return m.records.Len()
}

// Dropped returns how many samples were dropped.
func (m *Manager) Dropped() uint64 {
	return m.dropped.Load()
}

// OpenFlights returns the open flight of every recorded vessel.
func (m *Manager) OpenFlights() map[uint64]string {
	return m.deps.Flights.Snapshot()
}
