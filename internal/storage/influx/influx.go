// Package influxstorage writes flight samples as InfluxDB points.
package influxstorage

import (
	"context"
	"strconv"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/krpc/spacecenter/internal/influx"
	"github.com/krpc/spacecenter/pkg/core"
)

// Writer is the part of influx.Manager the backend needs.
type Writer interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Backend implements storage.Backend on top of an influx.Manager. Flight
// starts and ends become "flight" points, samples become "vessel" points.
type Backend struct {
	manager *influx.Manager
	writer  Writer
	bucket  string
}

// New creates a backend that connects m on Init and closes it on Close.
func New(m *influx.Manager, bucket string) *Backend {
	return &Backend{manager: m, writer: m, bucket: bucket}
}

// NewWithWriter creates a backend around an already connected writer.
func NewWithWriter(w Writer, bucket string) *Backend {
	return &Backend{writer: w, bucket: bucket}
}

func (b *Backend) Init() error {
	if b.manager == nil {
		return nil
	}
	return b.manager.Connect(context.Background())
}

func (b *Backend) Close() error {
	if b.manager == nil {
		return nil
	}
	return b.manager.Close()
}

func (b *Backend) StartFlight(f *core.Flight) error {
	return b.writer.WritePoint(b.bucket, FlightStartPoint(f))
}

func (b *Backend) RecordSample(s *core.VesselSample) error {
	return b.writer.WritePoint(b.bucket, SamplePoint(s))
}

func (b *Backend) EndFlight(e *core.FlightEnd) error {
	return b.writer.WritePoint(b.bucket, FlightEndPoint(e))
}

func vesselTag(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// FlightStartPoint describes a flight start.
func FlightStartPoint(f *core.Flight) *influxdb2_write.Point {
	return influxdb2_write.NewPoint("flight",
		map[string]string{
			"flight_id":   f.ID,
			"vessel_id":   vesselTag(f.VesselID),
			"vessel_type": string(f.VesselType),
			"event":       "start",
		},
		map[string]interface{}{
			"vessel_name": f.VesselName,
			"launch_ut":   f.LaunchUT,
		},
		f.StartTime)
}

// FlightEndPoint describes a flight end.
func FlightEndPoint(e *core.FlightEnd) *influxdb2_write.Point {
	return influxdb2_write.NewPoint("flight",
		map[string]string{
			"flight_id": e.FlightID,
			"vessel_id": vesselTag(e.VesselID),
			"event":     "end",
		},
		map[string]interface{}{
			"ut":     e.UT,
			"reason": e.Reason,
		},
		e.Time)
}

// SamplePoint converts a sample to a "vessel" point. Torque components are
// split into _pitch, _roll and _yaw fields and stage masses into
// stage_<n>_mass fields.
func SamplePoint(s *core.VesselSample) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("vessel").
		AddTag("flight_id", s.FlightID).
		AddTag("vessel_id", vesselTag(s.VesselID)).
		AddTag("situation", string(s.Situation)).
		AddField("ut", s.UT).
		AddField("met", s.MET).
		AddField("mass", s.Mass).
		AddField("dry_mass", s.DryMass).
		AddField("thrust", s.Thrust).
		AddField("available_thrust", s.AvailableThrust).
		AddField("max_thrust", s.MaxThrust).
		AddField("isp", s.ISP).
		AddField("vacuum_isp", s.VacuumISP).
		AddField("sea_level_isp", s.SeaLevelISP).
		AddField("throttle", s.Throttle).
		AddField("rcs", s.RCS).
		AddField("parts", s.PartCount).
		AddField("stages", s.StageCount).
		SetTime(s.Time)

	addTorque(p, "wheel_torque", s.ReactionWheelTorque)
	addTorque(p, "rcs_torque", s.RCSTorque)
	addTorque(p, "engine_torque", s.EngineTorque)
	addTorque(p, "surface_torque", s.ControlSurfaceTorque)

	for stage, mass := range s.StageMass {
		name := "stage_" + strconv.Itoa(stage) + "_mass"
		if stage < 0 {
			name = "stage_none_mass"
		}
		p.AddField(name, mass)
	}
	return p
}

func addTorque(p *influxdb2_write.Point, prefix string, v core.Vector3) {
	p.AddField(prefix+"_pitch", v[0])
	p.AddField(prefix+"_roll", v[1])
	p.AddField(prefix+"_yaw", v[2])
}
