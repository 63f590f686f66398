package convert

import (
	"encoding/json"

	"github.com/krpc/spacecenter/internal/model"
	"github.com/krpc/spacecenter/pkg/core"
)

func torqueToVector(t model.Torque) core.Vector3 {
	return core.Vector3{t.Pitch, t.Roll, t.Yaw}
}

// FlightToCore converts a GORM Flight to a core.Flight. The end columns are
// returned separately; end is nil for an open flight.
func FlightToCore(f model.Flight) (flight core.Flight, end *core.FlightEnd) {
	flight = core.Flight{
		ID:         f.ID,
		VesselID:   f.VesselID,
		VesselName: f.VesselName,
		VesselType: core.VesselType(f.VesselType),
		LaunchUT:   f.LaunchUT,
		StartTime:  f.StartTime,
	}
	if f.EndUT.Valid {
		end = &core.FlightEnd{
			FlightID: f.ID,
			VesselID: f.VesselID,
			UT:       f.EndUT.Float64,
			Reason:   f.EndReason,
		}
		if f.EndTime.Valid {
			end.Time = f.EndTime.Time
		}
	}
	return flight, end
}

// SampleToCore converts a GORM FlightSample to a core.VesselSample.
func SampleToCore(s model.FlightSample) core.VesselSample {
	var stageMass map[int]float64
	if len(s.StageMass) > 0 {
		_ = json.Unmarshal(s.StageMass, &stageMass)
	}
	if len(stageMass) == 0 {
		stageMass = nil
	}

	return core.VesselSample{
		FlightID:             s.FlightID,
		VesselID:             s.VesselID,
		Time:                 s.Time,
		UT:                   s.UT,
		MET:                  s.MET,
		Situation:            core.VesselSituation(s.Situation),
		Mass:                 s.Mass,
		DryMass:              s.DryMass,
		Thrust:               s.Thrust,
		AvailableThrust:      s.AvailableThrust,
		MaxThrust:            s.MaxThrust,
		ISP:                  s.ISP,
		VacuumISP:            s.VacuumISP,
		SeaLevelISP:          s.SeaLevelISP,
		ReactionWheelTorque:  torqueToVector(s.ReactionWheelTorque),
		RCSTorque:            torqueToVector(s.RCSTorque),
		EngineTorque:         torqueToVector(s.EngineTorque),
		ControlSurfaceTorque: torqueToVector(s.ControlSurfaceTorque),
		Throttle:             s.Throttle,
		RCS:                  s.RCS,
		PartCount:            int(s.PartCount),
		StageCount:           int(s.StageCount),
		StageMass:            stageMass,
	}
}
