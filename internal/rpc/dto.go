package rpc

import (
	"github.com/krpc/spacecenter/internal/part"
	"github.com/krpc/spacecenter/internal/staging"
	"github.com/krpc/spacecenter/internal/util"
	"github.com/krpc/spacecenter/internal/vessel"
	"github.com/krpc/spacecenter/pkg/core"
)

type VesselRef struct {
	ID   uint64          `json:"id"`
	Name string          `json:"name"`
	Type core.VesselType `json:"type"`
}

func vesselRefOf(v *vessel.Vessel) VesselRef {
	return VesselRef{ID: v.ID(), Name: v.Name(), Type: v.Type()}
}

// PartRef identifies a part by its simulation id.
type PartRef struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

func refOf(p *part.Part) PartRef {
	return PartRef{ID: p.SimID(), Name: p.Name(), Title: p.Title()}
}

func refsOf(parts []*part.Part) []PartRef {
	out := make([]PartRef, 0, len(parts))
	for _, p := range parts {
		out = append(out, refOf(p))
	}
	return out
}

// VesselSummary is every aggregate of a vessel in one reply.
type VesselSummary struct {
	VesselRef
	Situation       core.VesselSituation `json:"situation"`
	MET             float64              `json:"met"`
	METText         string               `json:"met_text"`
	Recoverable     bool                 `json:"recoverable"`
	Parts           int                  `json:"parts"`
	Stages          int                  `json:"stages"`
	Mass            float64              `json:"mass"`
	DryMass         float64              `json:"dry_mass"`
	Thrust          float64              `json:"thrust"`
	AvailableThrust float64              `json:"available_thrust"`
	MaxThrust       float64              `json:"max_thrust"`
	ISP             float64              `json:"isp"`
	VacuumISP       float64              `json:"vacuum_isp"`
	SeaLevelISP     float64              `json:"sea_level_isp"`
	Torque          core.Vector3         `json:"torque"`
	Throttle        float64              `json:"throttle"`
	RCS             bool                 `json:"rcs"`
}

func summarize(v *vessel.Vessel) VesselSummary {
	return VesselSummary{
		VesselRef:       vesselRefOf(v),
		Situation:       v.Situation(),
		MET:             util.Finite(v.MET()),
		METText:         util.FormatMET(v.MET()),
		Recoverable:     v.Recoverable(),
		Parts:           v.Parts().Len(),
		Stages:          staging.Count(v.Parts()),
		Mass:            util.Finite(v.Mass()),
		DryMass:         util.Finite(v.DryMass()),
		Thrust:          util.Finite(v.Thrust()),
		AvailableThrust: util.Finite(v.AvailableThrust()),
		MaxThrust:       util.Finite(v.MaxThrust()),
		ISP:             util.Finite(v.SpecificImpulse()),
		VacuumISP:       util.Finite(v.VacuumSpecificImpulse()),
		SeaLevelISP:     util.Finite(v.KerbinSeaLevelSpecificImpulse()),
		Torque:          finiteVector(v.AvailableTorque()),
		Throttle:        v.Control().Throttle(),
		RCS:             v.Control().RCS(),
	}
}

func finiteVector(v core.Vector3) core.Vector3 {
	for i, c := range v {
		v[i] = util.Finite(c)
	}
	return v
}

func finiteTensor(t core.Tensor3) core.Tensor3 {
	for i, c := range t {
		t[i] = util.Finite(c)
	}
	return t
}

type EngineInfo struct {
	Active          bool         `json:"active"`
	CanShutdown     bool         `json:"can_shutdown"`
	ThrottleLocked  bool         `json:"throttle_locked"`
	HasFuel         bool         `json:"has_fuel"`
	Throttle        float64      `json:"throttle"`
	Thrust          float64      `json:"thrust"`
	AvailableThrust float64      `json:"available_thrust"`
	MaxThrust       float64      `json:"max_thrust"`
	ISP             float64      `json:"isp"`
	VacuumISP       float64      `json:"vacuum_isp"`
	SeaLevelISP     float64      `json:"sea_level_isp"`
	Propellants     []string     `json:"propellants"`
	AvailableTorque core.Vector3 `json:"available_torque"`
}

func engineInfo(e *part.Engine) *EngineInfo {
	if e == nil {
		return nil
	}
	return &EngineInfo{
		Active:          e.Active(),
		CanShutdown:     e.CanShutdown(),
		ThrottleLocked:  e.ThrottleLocked(),
		HasFuel:         e.HasFuel(),
		Throttle:        e.Throttle(),
		Thrust:          util.Finite(e.Thrust()),
		AvailableThrust: e.AvailableThrust(),
		MaxThrust:       e.MaxThrust(),
		ISP:             e.ISP(),
		VacuumISP:       e.VacuumISP(),
		SeaLevelISP:     e.SeaLevelISP(),
		Propellants:     e.Propellants(),
		AvailableTorque: finiteVector(e.AvailableTorque()),
	}
}

type ReactionWheelInfo struct {
	Active          bool         `json:"active"`
	Broken          bool         `json:"broken"`
	MaxTorque       core.Vector3 `json:"max_torque"`
	AvailableTorque core.Vector3 `json:"available_torque"`
}

func reactionWheelInfo(w *part.ReactionWheel) *ReactionWheelInfo {
	if w == nil {
		return nil
	}
	return &ReactionWheelInfo{
		Active:          w.Active(),
		Broken:          w.Broken(),
		MaxTorque:       w.MaxTorque(),
		AvailableTorque: w.AvailableTorque(),
	}
}

type RCSInfo struct {
	Active          bool         `json:"active"`
	Enabled         bool         `json:"enabled"`
	MaxThrust       float64      `json:"max_thrust"`
	VacuumISP       float64      `json:"vacuum_isp"`
	MaxTorque       core.Vector3 `json:"max_torque"`
	AvailableTorque core.Vector3 `json:"available_torque"`
}

type ControlSurfaceInfo struct {
	core.ControlSurfaceState
	AvailableTorque core.Vector3 `json:"available_torque"`
}

type DockingPortInfo struct {
	State            string   `json:"state"`
	DockedPart       *PartRef `json:"docked_part"`
	ReengageDistance float64  `json:"reengage_distance"`
	HasShield        bool     `json:"has_shield"`
	Shielded         bool     `json:"shielded"`
}

// PartInfo is a part with every facet. Facets the part lacks are null.
type PartInfo struct {
	PartRef
	VesselID          uint64                       `json:"vessel_id"`
	Parent            *PartRef                     `json:"parent"`
	Children          []PartRef                    `json:"children"`
	AxiallyAttached   bool                         `json:"axially_attached"`
	RadiallyAttached  bool                         `json:"radially_attached"`
	Stage             int                          `json:"stage"`
	DecoupleStage     int                          `json:"decouple_stage"`
	Cost              float64                      `json:"cost"`
	Mass              float64                      `json:"mass"`
	DryMass           float64                      `json:"dry_mass"`
	Massless          bool                         `json:"massless"`
	ImpactTolerance   float64                      `json:"impact_tolerance"`
	Crossfeed         bool                         `json:"crossfeed"`
	Shielded          bool                         `json:"shielded"`
	DynamicPressure   float64                      `json:"dynamic_pressure"`
	Thermal           core.Thermal                 `json:"thermal"`
	Resources         []core.ResourceReading       `json:"resources"`
	FuelLinesFrom     []PartRef                    `json:"fuel_lines_from"`
	FuelLinesTo       []PartRef                    `json:"fuel_lines_to"`
	Categories        []string                     `json:"categories"`
	Engine            *EngineInfo                  `json:"engine"`
	ReactionWheel     *ReactionWheelInfo           `json:"reaction_wheel"`
	RCS               *RCSInfo                     `json:"rcs"`
	ControlSurface    *ControlSurfaceInfo          `json:"control_surface"`
	Decoupler         *core.DecouplerState         `json:"decoupler"`
	DockingPort       *DockingPortInfo             `json:"docking_port"`
	Parachute         *core.ParachuteState         `json:"parachute"`
	Light             *core.LightState             `json:"light"`
	CargoBay          *core.CargoBayState          `json:"cargo_bay"`
	Intake            *core.IntakeState            `json:"intake"`
	SolarPanel        *core.SolarPanelState        `json:"solar_panel"`
	Radiator          *core.RadiatorState          `json:"radiator"`
	LandingGear       *core.LandingGearState       `json:"landing_gear"`
	LandingLeg        *core.LandingLegState        `json:"landing_leg"`
	ResourceHarvester *core.ResourceHarvesterState `json:"resource_harvester"`
	ResourceConverter []core.ConverterState        `json:"resource_converter"`
	Sensor            *core.SensorState            `json:"sensor"`
	Fairing           *core.FairingState           `json:"fairing"`
	LaunchClamp       *core.LaunchClampState       `json:"launch_clamp"`
}

func partInfo(p *part.Part) PartInfo {
	info := PartInfo{
		PartRef:          refOf(p),
		VesselID:         p.VesselID(),
		Children:         refsOf(p.Children()),
		AxiallyAttached:  p.AxiallyAttached(),
		RadiallyAttached: p.RadiallyAttached(),
		Stage:            p.Stage(),
		DecoupleStage:    p.DecoupleStage(),
		Cost:             p.Cost(),
		Mass:             p.Mass(),
		DryMass:          p.DryMass(),
		Massless:         p.Massless(),
		ImpactTolerance:  p.ImpactTolerance(),
		Crossfeed:        p.Crossfeed(),
		Shielded:         p.Shielded(),
		DynamicPressure:  p.DynamicPressure(),
		Thermal:          p.Thermal(),
		Resources:        p.Resources(),
		FuelLinesFrom:    refsOf(p.FuelLinesFrom()),
		FuelLinesTo:      refsOf(p.FuelLinesTo()),
		Engine:           engineInfo(p.Engine()),
		ReactionWheel:    reactionWheelInfo(p.ReactionWheel()),
	}
	if parent := p.Parent(); parent != nil {
		ref := refOf(parent)
		info.Parent = &ref
	}
	for _, c := range p.Categories().Slice() {
		info.Categories = append(info.Categories, c.String())
	}
	if r := p.RCS(); r != nil {
		info.RCS = &RCSInfo{
			Active:          r.Active(),
			Enabled:         r.Enabled(),
			MaxThrust:       r.MaxThrust(),
			VacuumISP:       r.VacuumISP(),
			MaxTorque:       r.MaxTorque(),
			AvailableTorque: r.AvailableTorque(),
		}
	}
	if c := p.ControlSurface(); c != nil {
		info.ControlSurface = &ControlSurfaceInfo{
			ControlSurfaceState: core.ControlSurfaceState{
				PitchEnabled: c.PitchEnabled(),
				YawEnabled:   c.YawEnabled(),
				RollEnabled:  c.RollEnabled(),
				Inverted:     c.Inverted(),
				Deployed:     c.Deployed(),
				SurfaceArea:  c.SurfaceArea(),
				MaxTorque:    c.MaxTorque(),
			},
			AvailableTorque: c.AvailableTorque(),
		}
	}
	if d := p.Decoupler(); d != nil {
		info.Decoupler = &core.DecouplerState{Decoupled: d.Decoupled(), Staged: d.Staged(), Impulse: d.Impulse()}
	}
	if d := p.DockingPort(); d != nil {
		info.DockingPort = &DockingPortInfo{
			State:            d.State(),
			ReengageDistance: d.ReengageDistance(),
			HasShield:        d.HasShield(),
			Shielded:         d.Shielded(),
		}
		if docked := d.DockedPart(); docked != nil {
			ref := refOf(docked)
			info.DockingPort.DockedPart = &ref
		}
	}
	if c := p.Parachute(); c != nil {
		info.Parachute = &core.ParachuteState{
			Deployed:          c.Deployed(),
			Armed:             c.Armed(),
			State:             c.State(),
			DeployAltitude:    c.DeployAltitude(),
			DeployMinPressure: c.DeployMinPressure(),
		}
	}
	if l := p.Light(); l != nil {
		info.Light = &core.LightState{Active: l.Active(), Color: l.Color(), PowerUsage: l.PowerUsage()}
	}
	if c := p.CargoBay(); c != nil {
		info.CargoBay = &core.CargoBayState{Open: c.Open(), State: c.State()}
	}
	if i := p.Intake(); i != nil {
		info.Intake = &core.IntakeState{Open: i.Open(), Speed: i.Speed(), Flow: i.Flow(), Area: i.Area()}
	}
	if sp := p.SolarPanel(); sp != nil {
		info.SolarPanel = &core.SolarPanelState{
			Deployable:  sp.Deployable(),
			Deployed:    sp.Deployed(),
			State:       sp.State(),
			EnergyFlow:  sp.EnergyFlow(),
			SunExposure: sp.SunExposure(),
		}
	}
	if r := p.Radiator(); r != nil {
		info.Radiator = &core.RadiatorState{Deployable: r.Deployable(), Deployed: r.Deployed(), State: r.State()}
	}
	if g := p.LandingGear(); g != nil {
		info.LandingGear = &core.LandingGearState{
			Deployable: g.Deployable(),
			Deployed:   g.Deployed(),
			State:      g.State(),
			IsGrounded: g.IsGrounded(),
		}
	}
	if l := p.LandingLeg(); l != nil {
		info.LandingLeg = &core.LandingLegState{Deployed: l.Deployed(), State: l.State(), IsGrounded: l.IsGrounded()}
	}
	if h := p.ResourceHarvester(); h != nil {
		info.ResourceHarvester = &core.ResourceHarvesterState{
			Deployed:               h.Deployed(),
			Active:                 h.Active(),
			State:                  h.State(),
			ExtractionRate:         h.ExtractionRate(),
			ThermalEfficiency:      h.ThermalEfficiency(),
			CoreTemperature:        h.CoreTemperature(),
			OptimumCoreTemperature: h.OptimumCoreTemperature(),
		}
	}
	if c := p.ResourceConverter(); c != nil {
		info.ResourceConverter = make([]core.ConverterState, 0, c.Count())
		for i := 0; i < c.Count(); i++ {
			cs, _ := c.Converter(i)
			info.ResourceConverter = append(info.ResourceConverter, cs)
		}
	}
	if sn := p.Sensor(); sn != nil {
		info.Sensor = &core.SensorState{Active: sn.Active(), Value: sn.Value(), PowerUsage: sn.PowerUsage()}
	}
	if f := p.Fairing(); f != nil {
		info.Fairing = &core.FairingState{Jettisoned: f.Jettisoned()}
	}
	if l := p.LaunchClamp(); l != nil {
		info.LaunchClamp = &core.LaunchClampState{Released: l.Released()}
	}
	return info
}

func moduleNames(p *part.Part) []string {
	mods := p.Modules()
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.Name)
	}
	return out
}
