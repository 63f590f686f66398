package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/internal/vessel"
	"github.com/krpc/spacecenter/pkg/core"
)

// fakeBackend records calls in order.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []string
	flights []*core.Flight
	samples []*core.VesselSample
	ends    []*core.FlightEnd
	err     error
}

func (f *fakeBackend) Init() error  { return nil }
func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) StartFlight(fl *core.Flight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start")
	f.flights = append(f.flights, fl)
	return f.err
}

func (f *fakeBackend) RecordSample(s *core.VesselSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "sample")
	f.samples = append(f.samples, s)
	return f.err
}

func (f *fakeBackend) EndFlight(e *core.FlightEnd) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "end")
	f.ends = append(f.ends, e)
	return f.err
}

func (f *fakeBackend) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type timedBackend struct {
	fakeBackend
}

func (*timedBackend) GetLastDBWriteDuration() time.Duration { return 42 * time.Millisecond }

func craft(t *testing.T, id uint64, ut float64) *vessel.Vessel {
	t.Helper()
	v, err := vessel.New(&core.VesselReading{
		ID:         id,
		Name:       fmt.Sprintf("Probe %d", id),
		Type:       core.VesselTypeProbe,
		Situation:  core.SituationOrbiting,
		UT:         ut,
		LaunchTime: 100,
		Parts:      []core.PartReading{{ID: 1, Name: "probeCoreOcto", DryMass: 100, Stage: -1}},
	}, nil)
	require.NoError(t, err)
	return v
}

func newManager(t *testing.T, b *fakeBackend) *Manager {
	t.Helper()
	n := 0
	m, err := NewManager(Dependencies{
		SampleInterval: 10 * time.Second,
		Now:            func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("flight-%d", n)
		},
	}, b)
	require.NoError(t, err)
	return m
}

func TestVesselUpdated_StartsFlightAndThrottlesSamples(t *testing.T) {
	b := &fakeBackend{}
	m := newManager(t, b)

	m.VesselUpdated(craft(t, 1, 1000), true)
	m.VesselUpdated(craft(t, 1, 1005), false) // too soon
	m.VesselUpdated(craft(t, 1, 1010), false)
	m.VesselUpdated(craft(t, 1, 900), false) // reverted
	assert.Equal(t, 4, m.QueueLen())

	m.Flush()
	assert.Equal(t, []string{"start", "sample", "sample", "sample"}, b.callList())
	assert.Zero(t, m.QueueLen())

	require.Len(t, b.flights, 1)
	assert.Equal(t, "flight-1", b.flights[0].ID)
	assert.Equal(t, "Probe 1", b.flights[0].VesselName)
	assert.Equal(t, core.VesselTypeProbe, b.flights[0].VesselType)
	assert.Equal(t, 100.0, b.flights[0].LaunchUT)

	assert.Equal(t, []float64{1000, 1010, 900}, []float64{b.samples[0].UT, b.samples[1].UT, b.samples[2].UT})
	assert.Equal(t, "flight-1", b.samples[0].FlightID)
	assert.Equal(t, 100.0, b.samples[0].Mass)
	assert.Equal(t, 900.0, b.samples[0].MET)
}

func TestVesselRemoved_EndsFlight(t *testing.T) {
	b := &fakeBackend{}
	m := newManager(t, b)

	m.VesselUpdated(craft(t, 1, 1000), true)
	m.VesselUpdated(craft(t, 2, 1000), true)
	m.VesselRemoved(1, 1001)
	m.VesselRemoved(99, 1001) // never seen
	m.Flush()

	assert.Equal(t, []string{"start", "sample", "start", "sample", "end"}, b.callList())
	require.Len(t, b.ends, 1)
	assert.Equal(t, "flight-1", b.ends[0].FlightID)
	assert.Equal(t, 1001.0, b.ends[0].UT)
	assert.Equal(t, "removed", b.ends[0].Reason)
	assert.Equal(t, map[uint64]string{2: "flight-2"}, m.OpenFlights())

	// A vessel that comes back gets a new flight.
	m.VesselUpdated(craft(t, 1, 1002), true)
	assert.Equal(t, "flight-3", m.OpenFlights()[1])
}

func TestVesselUpdated_DropsSamplesWhenFull(t *testing.T) {
	b := &fakeBackend{}
	m := newManager(t, b)
	m.deps.QueueSize = 2

	m.VesselUpdated(craft(t, 1, 1000), true) // start + sample
	m.VesselUpdated(craft(t, 2, 1000), true) // start kept, sample dropped
	assert.Equal(t, 3, m.QueueLen())
	assert.Equal(t, uint64(1), m.Dropped())
}

func TestFlush_ContinuesAfterErrors(t *testing.T) {
	b := &fakeBackend{err: errors.New("disk full")}
	m := newManager(t, b)

	m.VesselUpdated(craft(t, 1, 1000), true)
	m.VesselRemoved(1, 1001)
	m.Flush()
	assert.Equal(t, []string{"start", "sample", "end"}, b.callList())
	assert.Zero(t, m.QueueLen())
}

func TestClose_EndsOpenFlights(t *testing.T) {
	b := &fakeBackend{}
	m := newManager(t, b)

	m.VesselUpdated(craft(t, 1, 1000), true)
	m.Close(1500)
	m.Close(1600)

	assert.Equal(t, []string{"start", "sample", "end"}, b.callList())
	assert.Equal(t, "shutdown", b.ends[0].Reason)
	assert.Equal(t, 1500.0, b.ends[0].UT)

	// Snapshots after close are ignored.
	m.VesselUpdated(craft(t, 3, 1000), true)
	assert.Zero(t, m.QueueLen())
}

func TestClose_RacingUpdate(t *testing.T) {
	tests := []struct {
		name      string
		closeWhen string
		wantCalls []string
		wantOpen  map[uint64]string
	}{
		{
			name:      "close while flight opens",
			closeWhen: "during",
			wantCalls: []string{"start", "sample", "end"},
			wantOpen:  map[uint64]string{},
		},
		{
			name:      "update after close",
			closeWhen: "before",
			wantCalls: nil,
			wantOpen:  map[uint64]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{}
			m := newManager(t, b)
			entered := make(chan struct{})
			release := make(chan struct{})
			m.deps.NewID = func() string {
				close(entered)
				<-release
				return "flight-1"
			}

			if tt.closeWhen == "before" {
				m.Close(1500)
				m.VesselUpdated(craft(t, 1, 1000), true)
			} else {
				updated := make(chan struct{})
				go func() {
					m.VesselUpdated(craft(t, 1, 1000), true)
					close(updated)
				}()
				<-entered
				closed := make(chan struct{})
				go func() {
					m.Close(1500)
					close(closed)
				}()
				close(release)
				<-updated
				<-closed
			}
			m.Flush()

			assert.Equal(t, tt.wantCalls, b.callList())
			assert.Equal(t, tt.wantOpen, m.OpenFlights())
		})
	}
}

func TestRun_FlushesUntilCancelled(t *testing.T) {
	b := &fakeBackend{}
	m := newManager(t, b)
	m.deps.FlushInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	m.VesselUpdated(craft(t, 1, 1000), true)
	assert.Eventually(t, func() bool { return len(b.callList()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestGetLastDBWriteDuration(t *testing.T) {
	m := newManager(t, &fakeBackend{})
	assert.Zero(t, m.GetLastDBWriteDuration())

	timed, err := NewManager(Dependencies{}, &timedBackend{})
	require.NoError(t, err)
	assert.Equal(t, 42*time.Millisecond, timed.GetLastDBWriteDuration())
}

func TestRegisterHandlers(t *testing.T) {
	b := &fakeBackend{}
	m := newManager(t, b)
	d, err := dispatcher.New(nil)
	require.NoError(t, err)
	m.RegisterHandlers(d)

	assert.True(t, d.IsReadOnly(":RECORDER:FLIGHTS:"))
	assert.True(t, d.IsReadOnly(":RECORDER:STATUS:"))

	m.VesselUpdated(craft(t, 2, 1000), true)
	m.VesselUpdated(craft(t, 1, 1000), true)

	got, err := d.Dispatch(dispatcher.Event{Command: ":RECORDER:FLIGHTS:"})
	require.NoError(t, err)
	assert.Equal(t, []FlightRef{{VesselID: 1, FlightID: "flight-2"}, {VesselID: 2, FlightID: "flight-1"}}, got)

	got, err = d.Dispatch(dispatcher.Event{Command: ":RECORDER:STATUS:"})
	require.NoError(t, err)
	status := got.(Status)
	assert.Equal(t, 2, status.OpenFlights)
	assert.Equal(t, 4, status.QueueLength)
}
