package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/internal/cache"
	"github.com/krpc/spacecenter/internal/commands"
	"github.com/krpc/spacecenter/internal/database"
	"github.com/krpc/spacecenter/internal/influx"
	"github.com/krpc/spacecenter/internal/model"
	"github.com/krpc/spacecenter/internal/vessel"
	"github.com/krpc/spacecenter/pkg/core"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeRecorder struct{}

func (fakeRecorder) QueueLen() int                         { return 3 }
func (fakeRecorder) Dropped() uint64                       { return 2 }
func (fakeRecorder) OpenFlights() map[uint64]string        { return map[uint64]string{1: "a"} }
func (fakeRecorder) GetLastDBWriteDuration() time.Duration { return 1500 * time.Microsecond }

type fakeWriter struct {
	bucket string
	points []*influxdb2_write.Point
}

func (w *fakeWriter) WritePoint(bucket string, p *influxdb2_write.Point) error {
	w.bucket = bucket
	w.points = append(w.points, p)
	return nil
}

func newDeps(t *testing.T) Dependencies {
	t.Helper()
	c := cache.NewVesselCache()
	v, err := vessel.New(&core.VesselReading{
		ID:    7,
		Name:  "Kerbal X",
		UT:    1000,
		Parts: []core.PartReading{{ID: 1, DryMass: 100, Stage: -1}},
	}, nil)
	require.NoError(t, err)
	c.Put(v)
	c.SetUT(1000)
	c.SetRate(cache.Rate{FPS: 50, Warp: 4})
	require.NoError(t, c.SetActive(7))

	w := commands.NewBuffer(10)
	require.NoError(t, w.Submit(core.WriteRequest{Kind: core.WriteThrottle, VesselID: 7, Number: 0.5}))
	require.NoError(t, w.Submit(core.WriteRequest{Kind: core.WriteThrottle, VesselID: 7, Number: 1}))

	return Dependencies{
		Cache:    c,
		Writes:   w,
		Recorder: fakeRecorder{},
		Clients:  func() int { return 2 },
		Streams:  func() int { return 5 },
		Now:      func() time.Time { return now },
	}
}

func TestStatus(t *testing.T) {
	s := NewService(newDeps(t))
	st := s.Status()

	assert.Equal(t, now, st.Time)
	assert.Equal(t, 1000.0, st.UT)
	assert.Equal(t, 1, st.Vessels)
	require.NotNil(t, st.ActiveVessel)
	assert.Equal(t, uint64(7), *st.ActiveVessel)
	assert.Equal(t, cache.Rate{FPS: 50, Warp: 4}, st.Rate)
	assert.Equal(t, WriteStatus{Pending: 1, Submitted: 2, Superseded: 1}, st.Writes)
	assert.Equal(t, 2, st.Clients)
	assert.Equal(t, 5, st.Streams)
	assert.Equal(t, &RecorderStatus{OpenFlights: 1, QueueLength: 3, DroppedSamples: 2, LastWriteMillis: 1.5}, st.Recorder)
}

func TestStatus_Minimal(t *testing.T) {
	s := NewService(Dependencies{Now: func() time.Time { return now }})
	st := s.Status()
	assert.Nil(t, st.ActiveVessel)
	assert.Nil(t, st.Recorder)

	data, err := json.Marshal(s.StatusAny())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"active_vessel":null`)
	assert.NotContains(t, string(data), "recorder")
}

func TestGetProgramStatus(t *testing.T) {
	s := NewService(newDeps(t))
	lines, perf := s.GetProgramStatus()

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"vessels": 1`)
	assert.Equal(t, model.RecorderPerformance{
		Time:                now,
		Vessels:             1,
		OpenFlights:         1,
		PendingWrites:       1,
		SampleQueue:         3,
		DroppedSamples:      2,
		LastWriteDurationMs: 1.5,
		SimFPS:              50,
	}, perf)
}

func TestReport_WritesSinks(t *testing.T) {
	db, err := database.OpenSqlite(filepath.Join(t.TempDir(), "perf.sqlite"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zerolog.Nop()))

	w := &fakeWriter{}
	deps := newDeps(t)
	deps.DB = db
	deps.Influx = w
	s := NewService(deps)

	f, err := os.Create(filepath.Join(t.TempDir(), "status.txt"))
	require.NoError(t, err)
	defer f.Close()

	s.Report(f)
	s.Report(f)

	var rows []model.RecorderPerformance
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 2)

	assert.Equal(t, influx.PerformanceBucket, w.bucket)
	require.Len(t, w.points, 2)
	line := influxdb2_write.PointToLineProtocol(w.points[0], time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "recorder "))
	assert.Contains(t, line, "sample_queue=3i")

	// The file is rewritten, not appended.
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), `"vessels"`))
}

func TestStartStop(t *testing.T) {
	deps := newDeps(t)
	deps.StatusDir = filepath.Join(t.TempDir(), "status")
	deps.Interval = 5 * time.Millisecond
	s := NewService(deps)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	path := filepath.Join(deps.StatusDir, "status.txt")
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(data), `"ut": 1000`)
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestValidateHypertables_NoDB(t *testing.T) {
	s := NewService(Dependencies{})
	assert.Error(t, s.ValidateHypertables(Hypertables))
}
