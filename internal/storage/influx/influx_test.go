package influxstorage

import (
	"errors"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/internal/storage"
	"github.com/krpc/spacecenter/pkg/core"
)

var _ storage.Backend = (*Backend)(nil)

type recordingWriter struct {
	buckets []string
	points  []*influxdb2_write.Point
	err     error
}

func (w *recordingWriter) WritePoint(bucket string, p *influxdb2_write.Point) error {
	w.buckets = append(w.buckets, bucket)
	w.points = append(w.points, p)
	return w.err
}

func fields(p *influxdb2_write.Point) map[string]any {
	out := map[string]any{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tags(p *influxdb2_write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func TestBackend_WritesPoints(t *testing.T) {
	w := &recordingWriter{}
	b := NewWithWriter(w, "vessel_telemetry")
	now := time.Unix(1700000000, 0)

	require.NoError(t, b.Init())
	require.NoError(t, b.StartFlight(&core.Flight{ID: "f", VesselID: 7, VesselName: "Kerbal X", VesselType: core.VesselTypeShip, StartTime: now}))
	require.NoError(t, b.RecordSample(&core.VesselSample{FlightID: "f", VesselID: 7, Time: now, UT: 1000, Mass: 2940}))
	require.NoError(t, b.EndFlight(&core.FlightEnd{FlightID: "f", VesselID: 7, UT: 1100, Reason: "recovered", Time: now}))
	require.NoError(t, b.Close())

	require.Len(t, w.points, 3)
	assert.Equal(t, []string{"vessel_telemetry", "vessel_telemetry", "vessel_telemetry"}, w.buckets)
	assert.Equal(t, "flight", w.points[0].Name())
	assert.Equal(t, "start", tags(w.points[0])["event"])
	assert.Equal(t, "Kerbal X", fields(w.points[0])["vessel_name"])
	assert.Equal(t, "vessel", w.points[1].Name())
	assert.Equal(t, "end", tags(w.points[2])["event"])
	assert.Equal(t, "recovered", fields(w.points[2])["reason"])
}

func TestBackend_PropagatesWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("backup closed")}
	b := NewWithWriter(w, "vessel_telemetry")
	assert.Error(t, b.RecordSample(&core.VesselSample{}))
}

func TestSamplePoint(t *testing.T) {
	p := SamplePoint(&core.VesselSample{
		FlightID:     "f",
		VesselID:     7,
		Situation:    core.SituationOrbiting,
		UT:           1000,
		Thrust:       215000,
		RCS:          true,
		PartCount:    4,
		EngineTorque: core.Vector3{1, 2, 3},
		StageMass:    map[int]float64{-1: 2840, 1: 100},
	})

	tg := tags(p)
	assert.Equal(t, "7", tg["vessel_id"])
	assert.Equal(t, "orbiting", tg["situation"])

	f := fields(p)
	assert.Equal(t, 215000.0, f["thrust"])
	assert.Equal(t, true, f["rcs"])
	assert.Equal(t, int64(4), f["parts"])
	assert.Equal(t, 2.0, f["engine_torque_roll"])
	assert.Equal(t, 0.0, f["wheel_torque_yaw"])
	assert.Equal(t, 100.0, f["stage_1_mass"])
	assert.Equal(t, 2840.0, f["stage_none_mass"])
}
