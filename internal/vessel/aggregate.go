package vessel

import (
	"time"

	"github.com/krpc/spacecenter/internal/part"
	"github.com/krpc/spacecenter/internal/staging"
	"github.com/krpc/spacecenter/pkg/core"
)

// Mass is the total mass of all parts including resources.
func (v *Vessel) Mass() float64 {
	var m float64
	for _, p := range v.parts.All() {
		m += p.Mass()
	}
	return m
}

// DryMass is the total mass of all parts without resources.
func (v *Vessel) DryMass() float64 {
	var m float64
	for _, p := range v.parts.All() {
		m += p.DryMass()
	}
	return m
}

// AvailableTorque is the sum of every torque source.
func (v *Vessel) AvailableTorque() core.Vector3 {
	return v.AvailableReactionWheelTorque().
		Add(v.AvailableRCSTorque()).
		Add(v.AvailableEngineTorque()).
		Add(v.AvailableControlSurfaceTorque())
}

func (v *Vessel) AvailableReactionWheelTorque() core.Vector3 {
	return sumTorque(v.parts.ReactionWheels(), (*part.ReactionWheel).AvailableTorque)
}

func (v *Vessel) AvailableRCSTorque() core.Vector3 {
	return sumTorque(v.parts.RCS(), (*part.RCS).AvailableTorque)
}

func (v *Vessel) AvailableEngineTorque() core.Vector3 {
	return sumTorque(v.parts.Engines(), (*part.Engine).AvailableTorque)
}

func (v *Vessel) AvailableControlSurfaceTorque() core.Vector3 {
	return sumTorque(v.parts.ControlSurfaces(), (*part.ControlSurface).AvailableTorque)
}

func sumTorque[F any](facets []F, torque func(F) core.Vector3) core.Vector3 {
	var total core.Vector3
	for _, f := range facets {
		total = total.Add(torque(f))
	}
	return total
}

// Thrust is the thrust currently produced by all engines.
func (v *Vessel) Thrust() float64 {
	var t float64
	for _, e := range v.parts.Engines() {
		t += e.Thrust()
	}
	return t
}

// AvailableThrust is the thrust active engines would produce at full throttle.
func (v *Vessel) AvailableThrust() float64 {
	var t float64
	for _, e := range v.parts.Engines() {
		if e.Active() {
			t += e.AvailableThrust()
		}
	}
	return t
}

// MaxThrust is the maximum thrust of active engines, ignoring fuel and
// thrust limiters.
func (v *Vessel) MaxThrust() float64 {
	var t float64
	for _, e := range v.parts.Engines() {
		if e.Active() {
			t += e.MaxThrust()
		}
	}
	return t
}

// SpecificImpulse is the combined Isp of active engines in the current
// atmospheric context.
func (v *Vessel) SpecificImpulse() float64 {
	return CombinedISP(v.parts.Engines(), (*part.Engine).ISP)
}

func (v *Vessel) VacuumSpecificImpulse() float64 {
	return CombinedISP(v.parts.Engines(), (*part.Engine).VacuumISP)
}

func (v *Vessel) KerbinSeaLevelSpecificImpulse() float64 {
	return CombinedISP(v.parts.Engines(), (*part.Engine).SeaLevelISP)
}

// CombinedISP is the thrust-weighted harmonic mean of engine Isp:
//
//	Σ F / Σ (F / isp)
//
// over active engines with positive max thrust F and positive isp. It is
// zero when no engine qualifies.
func CombinedISP(engines []*part.Engine, isp func(*part.Engine) float64) float64 {
	var thrust, flow float64
	for _, e := range engines {
		i := isp(e)
		if !e.Active() || e.MaxThrust() <= 0 || i <= 0 {
			continue
		}
		thrust += e.MaxThrust()
		flow += e.MaxThrust() / i
	}
	if flow == 0 {
		return 0
	}
	return thrust / flow
}

// Sample captures the aggregates of the vessel for the flight recorder.
func (v *Vessel) Sample(flightID string, now time.Time) core.VesselSample {
	return core.VesselSample{
		FlightID:  flightID,
		VesselID:  v.id,
		Time:      now,
		UT:        v.ut,
		MET:       v.MET(),
		Situation: v.situation,

		Mass:            v.Mass(),
		DryMass:         v.DryMass(),
		Thrust:          v.Thrust(),
		AvailableThrust: v.AvailableThrust(),
		MaxThrust:       v.MaxThrust(),
		ISP:             v.SpecificImpulse(),
		VacuumISP:       v.VacuumSpecificImpulse(),
		SeaLevelISP:     v.KerbinSeaLevelSpecificImpulse(),

		ReactionWheelTorque:  v.AvailableReactionWheelTorque(),
		RCSTorque:            v.AvailableRCSTorque(),
		EngineTorque:         v.AvailableEngineTorque(),
		ControlSurfaceTorque: v.AvailableControlSurfaceTorque(),

		Throttle:   v.control.Throttle(),
		RCS:        v.control.RCS(),
		PartCount:  v.parts.Len(),
		StageCount: staging.Count(v.parts),
		StageMass:  staging.MassByDecoupleStage(v.parts),
	}
}
