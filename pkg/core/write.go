// pkg/core/write.go
package core

// WriteKind names the single field a WriteRequest changes.
type WriteKind string

const (
	WriteVesselName          WriteKind = "set_vessel_name"
	WriteVesselType          WriteKind = "set_vessel_type"
	WriteRecover             WriteKind = "recover"
	WriteRCS                 WriteKind = "set_rcs"
	WriteThrottle            WriteKind = "set_throttle"
	WriteEngineActive        WriteKind = "set_engine_active"
	WriteReactionWheelActive WriteKind = "set_reaction_wheel_active"
	WriteRCSEnabled          WriteKind = "set_rcs_enabled"
	WriteDecouple            WriteKind = "decouple"
	WriteUndock              WriteKind = "undock"
	WriteDeployParachute     WriteKind = "deploy_parachute"
	WriteLightActive         WriteKind = "set_light_active"
	WriteCargoBayOpen        WriteKind = "set_cargo_bay_open"
	WriteIntakeOpen          WriteKind = "set_intake_open"
	WriteSolarPanelDeployed  WriteKind = "set_solar_panel_deployed"
	WriteRadiatorDeployed    WriteKind = "set_radiator_deployed"
	WriteLandingGearDeployed WriteKind = "set_landing_gear_deployed"
	WriteLandingLegDeployed  WriteKind = "set_landing_leg_deployed"
	WriteHarvesterDeployed   WriteKind = "set_harvester_deployed"
	WriteHarvesterActive     WriteKind = "set_harvester_active"
	WriteConverterActive     WriteKind = "set_converter_active"
	WriteJettisonFairing     WriteKind = "jettison_fairing"
	WriteReleaseClamp        WriteKind = "release_clamp"
	WriteSensorActive        WriteKind = "set_sensor_active"
)

// WriteRequest is a discrete state change handed to the simulation.
// Only the value fields relevant to Kind are set.
type WriteRequest struct {
	Kind     WriteKind `json:"kind"`
	VesselID uint64    `json:"vessel_id"`
	PartID   uint64    `json:"part_id,omitempty"`
	Index    int       `json:"index,omitempty"`
	Bool     bool      `json:"bool,omitempty"`
	Number   float64   `json:"number,omitempty"`
	Text     string    `json:"text,omitempty"`
}

// WriteKey identifies the field a request targets. Requests with equal
// keys overwrite one another.
type WriteKey struct {
	Kind     WriteKind
	VesselID uint64
	PartID   uint64
	Index    int
}

// Key returns the request's target field.
func (w WriteRequest) Key() WriteKey {
	return WriteKey{Kind: w.Kind, VesselID: w.VesselID, PartID: w.PartID, Index: w.Index}
}
