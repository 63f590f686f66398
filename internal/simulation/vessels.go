package simulation

import "github.com/krpc/spacecenter/pkg/core"

func modules(names ...string) []core.ModuleReading {
	out := make([]core.ModuleReading, len(names))
	for i, n := range names {
		out[i] = core.ModuleReading{Name: n}
	}
	return out
}

func parent(id uint64) *uint64 { return &id }

func bipropellant(lf, ox float64) []core.ResourceReading {
	return []core.ResourceReading{
		{Name: "LiquidFuel", Amount: lf, Max: lf, Density: 5},
		{Name: "Oxidizer", Amount: ox, Max: ox, Density: 5},
	}
}

// TwoStageRocket is a small two-stage rocket on the launch pad: a command
// pod with a parachute on an upper stage, a decoupler and a lower stage.
// Both engines start shut down.
func TwoStageRocket(name string, ut float64) core.VesselReading {
	propellants := []string{"LiquidFuel", "Oxidizer"}
	return core.VesselReading{
		Name:            name,
		Type:            core.VesselTypeShip,
		Situation:       core.SituationPreLaunch,
		UT:              ut,
		LaunchTime:      ut,
		MomentOfInertia: core.Vector3{12000, 1500, 12000},
		Parts: []core.PartReading{
			{
				ID: 1, Name: "mk1pod.v2", Title: "Mk1 Command Pod", DryMass: 800, Cost: 600,
				ImpactTolerance: 14, Crossfeed: true, Stage: -1,
				Modules:       modules("ModuleCommand", "ModuleReactionWheel", "ModuleScienceExperiment"),
				ReactionWheel: &core.ReactionWheelState{Active: true, MaxTorque: core.Vector3{5000, 5000, 5000}},
				Thermal:       core.Thermal{Temperature: 290, MaxTemperature: 2400},
			},
			{
				ID: 2, Name: "parachuteSingle", Title: "Mk16 Parachute", DryMass: 100, Cost: 422,
				ParentID: parent(1), AttachMode: core.AttachAxial, Stage: 0,
				Modules:   modules("ModuleParachute", "ModuleDragModifier"),
				Parachute: &core.ParachuteState{Armed: true, State: "stowed", DeployAltitude: 1000, DeployMinPressure: 0.04},
			},
			{
				ID: 3, Name: "fuelTankSmallFlat", Title: "FL-T100 Fuel Tank", DryMass: 62.5, Cost: 150,
				ParentID: parent(1), AttachMode: core.AttachAxial, Crossfeed: true, Stage: -1,
				Resources: bipropellant(45, 55),
			},
			{
				ID: 4, Name: "liquidEngine3.v2", Title: "LV-909 \"Terrier\" Liquid Fuel Engine", DryMass: 500, Cost: 390,
				ParentID: parent(3), AttachMode: core.AttachAxial, Crossfeed: true, Stage: 1,
				Modules: modules("ModuleEnginesFX", "ModuleGimbal", "ModuleAlternator"),
				Engine: &core.EngineState{
					CanShutdown: true, HasFuel: true, MaxThrust: 60000, AvailableThrust: 60000,
					ISP: 85, VacuumISP: 345, SeaLevelISP: 85, Propellants: propellants,
					GimbalTorque: core.Vector3{1000, 0, 1000},
				},
			},
			{
				ID: 5, Name: "Decoupler.1", Title: "TD-12 Decoupler", DryMass: 40, Cost: 200,
				ParentID: parent(4), AttachMode: core.AttachAxial, Stage: 2,
				Modules:   modules("ModuleDecouple", "ModuleToggleCrossfeed"),
				Decoupler: &core.DecouplerState{Impulse: 100},
			},
			{
				ID: 6, Name: "fuelTank", Title: "FL-T400 Fuel Tank", DryMass: 250, Cost: 500,
				ParentID: parent(5), AttachMode: core.AttachAxial, Crossfeed: true, Stage: -1,
				Resources: bipropellant(180, 220),
			},
			{
				ID: 7, Name: "liquidEngine2", Title: "LV-T45 \"Swivel\" Liquid Fuel Engine", DryMass: 1500, Cost: 1200,
				ParentID: parent(6), AttachMode: core.AttachAxial, Crossfeed: true, Stage: 3,
				Modules: modules("ModuleEnginesFX", "ModuleGimbal", "ModuleAlternator"),
				Engine: &core.EngineState{
					CanShutdown: true, HasFuel: true, MaxThrust: 215000, AvailableThrust: 215000,
					ISP: 250, VacuumISP: 320, SeaLevelISP: 250, Propellants: propellants,
					GimbalTorque: core.Vector3{3000, 0, 3000},
				},
			},
		},
	}
}
