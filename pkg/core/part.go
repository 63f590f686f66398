// pkg/core/part.go
package core

import "encoding/json"

// NoStage is the stage of a part without a stage action, and the decouple
// stage of a part that never separates.
const NoStage = -1

// AttachMode is how a part is attached to its parent.
type AttachMode string

const (
	AttachAxial  AttachMode = "axial"
	AttachRadial AttachMode = "radial"
)

// ResourceReading is a resource container held by a part.
// Amount and Max are in units; Density is mass per unit.
type ResourceReading struct {
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Max     float64 `json:"max"`
	Density float64 `json:"density"`
}

// Mass returns the mass of the resource currently held.
func (r ResourceReading) Mass() float64 {
	return r.Amount * r.Density
}

// ModuleReading is a simulation module attached to a part.
// Name is the module tag used for facet classification.
type ModuleReading struct {
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Thermal holds the temperature and heat flux readings of a part.
type Thermal struct {
	Temperature               float64 `json:"temperature"`
	SkinTemperature           float64 `json:"skin_temperature"`
	MaxTemperature            float64 `json:"max_temperature"`
	MaxSkinTemperature        float64 `json:"max_skin_temperature"`
	ThermalMass               float64 `json:"thermal_mass"`
	ThermalSkinMass           float64 `json:"thermal_skin_mass"`
	ThermalResourceMass       float64 `json:"thermal_resource_mass"`
	ThermalConductionFlux     float64 `json:"thermal_conduction_flux"`
	ThermalConvectionFlux     float64 `json:"thermal_convection_flux"`
	ThermalRadiationFlux      float64 `json:"thermal_radiation_flux"`
	ThermalInternalFlux       float64 `json:"thermal_internal_flux"`
	ThermalSkinToInternalFlux float64 `json:"thermal_skin_to_internal_flux"`
}

// PartReading is the raw per-part state reported by the simulation.
// ParentID is nil for the root part. DecoupleStage, when set, overrides
// the value derived from the attachment tree. A stage missing from the JSON
// decodes as NoStage, not 0.
type PartReading struct {
	ID              uint64            `json:"id"`
	Name            string            `json:"name"`
	Title           string            `json:"title"`
	Cost            float64           `json:"cost"`
	DryMass         float64           `json:"dry_mass"`
	ImpactTolerance float64           `json:"impact_tolerance"`
	Crossfeed       bool              `json:"crossfeed"`
	Shielded        bool              `json:"shielded"`
	DynamicPressure float64           `json:"dynamic_pressure"`
	ParentID        *uint64           `json:"parent_id,omitempty"`
	AttachMode      AttachMode        `json:"attach_mode,omitempty"`
	Stage           int               `json:"stage"`
	DecoupleStage   *int              `json:"decouple_stage,omitempty"`
	Thermal         Thermal           `json:"thermal"`
	Resources       []ResourceReading `json:"resources,omitempty"`
	Modules         []ModuleReading   `json:"modules,omitempty"`

	Engine            *EngineState            `json:"engine,omitempty"`
	ReactionWheel     *ReactionWheelState     `json:"reaction_wheel,omitempty"`
	RCS               *RCSState               `json:"rcs,omitempty"`
	ControlSurface    *ControlSurfaceState    `json:"control_surface,omitempty"`
	Decoupler         *DecouplerState         `json:"decoupler,omitempty"`
	DockingPort       *DockingPortState       `json:"docking_port,omitempty"`
	Parachute         *ParachuteState         `json:"parachute,omitempty"`
	Light             *LightState             `json:"light,omitempty"`
	CargoBay          *CargoBayState          `json:"cargo_bay,omitempty"`
	Intake            *IntakeState            `json:"intake,omitempty"`
	SolarPanel        *SolarPanelState        `json:"solar_panel,omitempty"`
	Radiator          *RadiatorState          `json:"radiator,omitempty"`
	LandingGear       *LandingGearState       `json:"landing_gear,omitempty"`
	LandingLeg        *LandingLegState        `json:"landing_leg,omitempty"`
	ResourceHarvester *ResourceHarvesterState `json:"resource_harvester,omitempty"`
	ResourceConverter *ResourceConverterState `json:"resource_converter,omitempty"`
	Sensor            *SensorState            `json:"sensor,omitempty"`
	Fairing           *FairingState           `json:"fairing,omitempty"`
	LaunchClamp       *LaunchClampState       `json:"launch_clamp,omitempty"`
}

func (r *PartReading) UnmarshalJSON(data []byte) error {
	type plain PartReading
	p := plain{Stage: NoStage}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = PartReading(p)
	return nil
}

// EngineState is the live state of an engine module.
// ISP is the specific impulse in the current atmospheric context.
type EngineState struct {
	Active          bool     `json:"active"`
	CanShutdown     bool     `json:"can_shutdown"`
	ThrottleLocked  bool     `json:"throttle_locked"`
	HasFuel         bool     `json:"has_fuel"`
	MaxThrust       float64  `json:"max_thrust"`
	AvailableThrust float64  `json:"available_thrust"`
	ISP             float64  `json:"isp"`
	VacuumISP       float64  `json:"vacuum_isp"`
	SeaLevelISP     float64  `json:"sea_level_isp"`
	Propellants     []string `json:"propellants,omitempty"`
	// GimbalTorque is the torque available at full available thrust.
	GimbalTorque Vector3 `json:"gimbal_torque"`
}

type ReactionWheelState struct {
	Active    bool    `json:"active"`
	Broken    bool    `json:"broken"`
	MaxTorque Vector3 `json:"max_torque"`
}

type RCSState struct {
	Enabled   bool    `json:"enabled"`
	MaxThrust float64 `json:"max_thrust"`
	VacuumISP float64 `json:"vacuum_isp"`
	MaxTorque Vector3 `json:"max_torque"`
}

type ControlSurfaceState struct {
	PitchEnabled bool    `json:"pitch_enabled"`
	YawEnabled   bool    `json:"yaw_enabled"`
	RollEnabled  bool    `json:"roll_enabled"`
	Inverted     bool    `json:"inverted"`
	Deployed     bool    `json:"deployed"`
	SurfaceArea  float64 `json:"surface_area"`
	MaxTorque    Vector3 `json:"max_torque"`
}

type DecouplerState struct {
	Decoupled bool    `json:"decoupled"`
	Staged    bool    `json:"staged"`
	Impulse   float64 `json:"impulse"`
}

type DockingPortState struct {
	State            string  `json:"state"`
	DockedPartID     *uint64 `json:"docked_part_id,omitempty"`
	ReengageDistance float64 `json:"reengage_distance"`
	HasShield        bool    `json:"has_shield"`
	Shielded         bool    `json:"shielded"`
}

type ParachuteState struct {
	Deployed          bool    `json:"deployed"`
	Armed             bool    `json:"armed"`
	State             string  `json:"state"`
	DeployAltitude    float64 `json:"deploy_altitude"`
	DeployMinPressure float64 `json:"deploy_min_pressure"`
}

type LightState struct {
	Active     bool    `json:"active"`
	Color      Vector3 `json:"color"`
	PowerUsage float64 `json:"power_usage"`
}

type CargoBayState struct {
	Open  bool   `json:"open"`
	State string `json:"state"`
}

type IntakeState struct {
	Open  bool    `json:"open"`
	Speed float64 `json:"speed"`
	Flow  float64 `json:"flow"`
	Area  float64 `json:"area"`
}

type SolarPanelState struct {
	Deployable  bool    `json:"deployable"`
	Deployed    bool    `json:"deployed"`
	State       string  `json:"state"`
	EnergyFlow  float64 `json:"energy_flow"`
	SunExposure float64 `json:"sun_exposure"`
}

type RadiatorState struct {
	Deployable bool   `json:"deployable"`
	Deployed   bool   `json:"deployed"`
	State      string `json:"state"`
}

type LandingGearState struct {
	Deployable bool   `json:"deployable"`
	Deployed   bool   `json:"deployed"`
	State      string `json:"state"`
	IsGrounded bool   `json:"is_grounded"`
}

type LandingLegState struct {
	Deployed   bool   `json:"deployed"`
	State      string `json:"state"`
	IsGrounded bool   `json:"is_grounded"`
}

type ResourceHarvesterState struct {
	Deployed               bool    `json:"deployed"`
	Active                 bool    `json:"active"`
	State                  string  `json:"state"`
	ExtractionRate         float64 `json:"extraction_rate"`
	ThermalEfficiency      float64 `json:"thermal_efficiency"`
	CoreTemperature        float64 `json:"core_temperature"`
	OptimumCoreTemperature float64 `json:"optimum_core_temperature"`
}

// ConverterState is one recipe of a resource converter part.
type ConverterState struct {
	Name       string   `json:"name"`
	Active     bool     `json:"active"`
	State      string   `json:"state"`
	StatusInfo string   `json:"status_info"`
	Inputs     []string `json:"inputs,omitempty"`
	Outputs    []string `json:"outputs,omitempty"`
}

type ResourceConverterState struct {
	Converters []ConverterState `json:"converters,omitempty"`
}

type SensorState struct {
	Active     bool    `json:"active"`
	Value      string  `json:"value"`
	PowerUsage float64 `json:"power_usage"`
}

type FairingState struct {
	Jettisoned bool `json:"jettisoned"`
}

type LaunchClampState struct {
	Released bool `json:"released"`
}
