// pkg/core/flight.go
package core

import "time"

// Flight is the recorded lifetime of one vessel, from its first snapshot
// until it is removed from the simulation.
type Flight struct {
	ID         string     `json:"id"` // assigned by the recorder
	VesselID   uint64     `json:"vesselId"`
	VesselName string     `json:"vesselName"`
	VesselType VesselType `json:"vesselType"`
	LaunchUT   float64    `json:"launchUT"`
	StartTime  time.Time  `json:"startTime"`
}

// VesselSample is an aggregated vessel state at a point in simulation time.
type VesselSample struct {
	FlightID  string          `json:"flightId"`
	VesselID  uint64          `json:"vesselId"`
	Time      time.Time       `json:"time"`
	UT        float64         `json:"ut"`
	MET       float64         `json:"met"`
	Situation VesselSituation `json:"situation"`

	Mass            float64 `json:"mass"`
	DryMass         float64 `json:"dryMass"`
	Thrust          float64 `json:"thrust"`
	AvailableThrust float64 `json:"availableThrust"`
	MaxThrust       float64 `json:"maxThrust"`
	ISP             float64 `json:"isp"`
	VacuumISP       float64 `json:"vacuumIsp"`
	SeaLevelISP     float64 `json:"seaLevelIsp"`

	ReactionWheelTorque  Vector3 `json:"reactionWheelTorque"`
	RCSTorque            Vector3 `json:"rcsTorque"`
	EngineTorque         Vector3 `json:"engineTorque"`
	ControlSurfaceTorque Vector3 `json:"controlSurfaceTorque"`

	Throttle   float64 `json:"throttle"`
	RCS        bool    `json:"rcs"`
	PartCount  int     `json:"partCount"`
	StageCount int     `json:"stageCount"`
	// StageMass is the mass that separates at each decouple stage, keyed by
	// stage number. Parts that never separate are keyed -1.
	StageMass map[int]float64 `json:"stageMass,omitempty"`
}

// UploadMetadata describes an exported flight to the flight archive.
type UploadMetadata struct {
	FlightID   string     `json:"flightId"`
	VesselName string     `json:"vesselName"`
	VesselType VesselType `json:"vesselType"`
	// Duration is the simulation time from launch to the end of the flight.
	Duration  float64 `json:"duration"`
	EndReason string  `json:"endReason"`
}

// Upload is one exported flight file.
type Upload struct {
	Path string
	Meta UploadMetadata
}

// FlightEnd marks the end of a flight.
type FlightEnd struct {
	FlightID string    `json:"flightId"`
	VesselID uint64    `json:"vesselId"`
	UT       float64   `json:"ut"`
	Time     time.Time `json:"time"`
	Reason   string    `json:"reason"`
}
