// Package convert maps recorder core types to GORM models and back.
package convert

import (
	"database/sql"
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/krpc/spacecenter/internal/model"
	"github.com/krpc/spacecenter/pkg/core"
)

func vectorToTorque(v core.Vector3) model.Torque {
	return model.Torque{Pitch: v[0], Roll: v[1], Yaw: v[2]}
}

// stageMassToJSON converts the per-stage mass map to datatypes.JSON for DB storage.
func stageMassToJSON(m map[int]float64) datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(m)
	return datatypes.JSON(data)
}

// CoreToFlight converts a core.Flight to a GORM model.Flight.
func CoreToFlight(f core.Flight) model.Flight {
	return model.Flight{
		ID:         f.ID,
		VesselID:   f.VesselID,
		VesselName: f.VesselName,
		VesselType: string(f.VesselType),
		LaunchUT:   f.LaunchUT,
		StartTime:  f.StartTime,
	}
}

// ApplyEnd fills the end columns of a flight.
func ApplyEnd(f *model.Flight, e core.FlightEnd) {
	f.EndUT = sql.NullFloat64{Float64: e.UT, Valid: true}
	f.EndTime = sql.NullTime{Time: e.Time, Valid: !e.Time.IsZero()}
	f.EndReason = e.Reason
}

// CoreToSample converts a core.VesselSample to a GORM model.FlightSample.
func CoreToSample(s core.VesselSample) model.FlightSample {
	return model.FlightSample{
		Time:                 s.Time,
		FlightID:             s.FlightID,
		VesselID:             s.VesselID,
		UT:                   s.UT,
		MET:                  s.MET,
		Situation:            string(s.Situation),
		Mass:                 s.Mass,
		DryMass:              s.DryMass,
		Thrust:               s.Thrust,
		AvailableThrust:      s.AvailableThrust,
		MaxThrust:            s.MaxThrust,
		ISP:                  s.ISP,
		VacuumISP:            s.VacuumISP,
		SeaLevelISP:          s.SeaLevelISP,
		ReactionWheelTorque:  vectorToTorque(s.ReactionWheelTorque),
		RCSTorque:            vectorToTorque(s.RCSTorque),
		EngineTorque:         vectorToTorque(s.EngineTorque),
		ControlSurfaceTorque: vectorToTorque(s.ControlSurfaceTorque),
		Throttle:             s.Throttle,
		RCS:                  s.RCS,
		PartCount:            uint16(s.PartCount),
		StageCount:           uint16(s.StageCount),
		StageMass:            stageMassToJSON(s.StageMass),
	}
}
