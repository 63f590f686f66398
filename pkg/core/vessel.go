// pkg/core/vessel.go
package core

import "fmt"

// VesselSituation is where a vessel is relative to the body it orbits.
type VesselSituation string

const (
	SituationPreLaunch  VesselSituation = "pre_launch"
	SituationOrbiting   VesselSituation = "orbiting"
	SituationSubOrbital VesselSituation = "sub_orbital"
	SituationEscaping   VesselSituation = "escaping"
	SituationFlying     VesselSituation = "flying"
	SituationLanded     VesselSituation = "landed"
	SituationSplashed   VesselSituation = "splashed"
	SituationDocked     VesselSituation = "docked"
)

var situations = map[VesselSituation]struct{}{
	SituationPreLaunch:  {},
	SituationOrbiting:   {},
	SituationSubOrbital: {},
	SituationEscaping:   {},
	SituationFlying:     {},
	SituationLanded:     {},
	SituationSplashed:   {},
	SituationDocked:     {},
}

// Valid reports whether s is a known situation.
func (s VesselSituation) Valid() bool {
	_, ok := situations[s]
	return ok
}

// VesselType is the player-assigned vessel classification.
type VesselType string

const (
	VesselTypeShip        VesselType = "ship"
	VesselTypeStation     VesselType = "station"
	VesselTypeLander      VesselType = "lander"
	VesselTypeProbe       VesselType = "probe"
	VesselTypeRover       VesselType = "rover"
	VesselTypeBase        VesselType = "base"
	VesselTypeDebris      VesselType = "debris"
	VesselTypePlane       VesselType = "plane"
	VesselTypeRelay       VesselType = "relay"
	VesselTypeEVA         VesselType = "eva"
	VesselTypeFlag        VesselType = "flag"
	VesselTypeSpaceObject VesselType = "space_object"
	VesselTypeUnknown     VesselType = "unknown"
)

var vesselTypes = map[VesselType]struct{}{
	VesselTypeShip:        {},
	VesselTypeStation:     {},
	VesselTypeLander:      {},
	VesselTypeProbe:       {},
	VesselTypeRover:       {},
	VesselTypeBase:        {},
	VesselTypeDebris:      {},
	VesselTypePlane:       {},
	VesselTypeRelay:       {},
	VesselTypeEVA:         {},
	VesselTypeFlag:        {},
	VesselTypeSpaceObject: {},
	VesselTypeUnknown:     {},
}

// ParseVesselType converts a snake_case name into a VesselType.
func ParseVesselType(s string) (VesselType, error) {
	t := VesselType(s)
	if _, ok := vesselTypes[t]; !ok {
		return "", fmt.Errorf("unknown vessel type: %q", s)
	}
	return t, nil
}

// ControlState is the pilot input the simulation reports for a vessel.
type ControlState struct {
	RCS      bool    `json:"rcs"`
	Throttle float64 `json:"throttle"`
}

// FuelLine is a directed crossfeed edge between two parts.
type FuelLine struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// VesselReading is one tick's worth of raw vessel state as sent by the simulation.
type VesselReading struct {
	ID              uint64          `json:"id"`
	Name            string          `json:"name"`
	Type            VesselType      `json:"type"`
	Situation       VesselSituation `json:"situation"`
	UT              float64         `json:"ut"`
	LaunchTime      float64         `json:"launch_time"`
	MomentOfInertia Vector3         `json:"moment_of_inertia"`
	InertiaTensor   Tensor3         `json:"inertia_tensor"`
	Control         ControlState    `json:"control"`
	Parts           []PartReading   `json:"parts"`
	FuelLines       []FuelLine      `json:"fuel_lines,omitempty"`
}
