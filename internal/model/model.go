package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ServerInfo{},
	&Flight{},
	&FlightSample{},
	&RecorderPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ServerInfo describes the space center instance that owns the database
type ServerInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Version     string `json:"version" gorm:"size:64"`
}

func (*ServerInfo) TableName() string {
	return "server_infos"
}

// RecorderPerformance is a periodic snapshot of the recorder's queues
type RecorderPerformance struct {
	Time                time.Time `json:"time" gorm:"type:timestamptz;index:idx_recorder_performance_time"`
	Vessels             uint32    `json:"vessels"`
	OpenFlights         uint32    `json:"openFlights"`
	PendingWrites       uint32    `json:"pendingWrites"`
	SampleQueue         uint32    `json:"sampleQueue"`
	DroppedSamples      uint64    `json:"droppedSamples"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
	SimFPS              float32   `json:"simFps"`
}

func (*RecorderPerformance) TableName() string {
	return "recorder_performances"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Flight is one vessel's recorded lifetime
type Flight struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt  time.Time       `json:"createdAt"`
	VesselID   uint64          `json:"vesselId" gorm:"index:idx_flight_vessel_id"`
	VesselName string          `json:"vesselName" gorm:"size:255"`
	VesselType string          `json:"vesselType" gorm:"size:32"`
	LaunchUT   float64         `json:"launchUT"`
	StartTime  time.Time       `json:"startTime" gorm:"type:timestamptz"`
	EndUT      sql.NullFloat64 `json:"endUT"`
	EndTime    sql.NullTime    `json:"endTime" gorm:"type:timestamptz"`
	EndReason  string          `json:"endReason" gorm:"size:64"`
	Samples    []FlightSample  `json:"samples,omitempty" gorm:"foreignKey:FlightID"`
}

func (*Flight) TableName() string {
	return "flights"
}

// Torque is a (pitch, roll, yaw) triple embedded with a column prefix
type Torque struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// FlightSample is the aggregated vessel state at one simulation time
type FlightSample struct {
	ID                   uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time                 time.Time      `json:"time" gorm:"type:timestamptz;index:idx_flight_sample_time"`
	FlightID             string         `json:"flightId" gorm:"size:36;index:idx_flight_sample_flight_id"`
	Flight               Flight         `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:FlightID;"`
	VesselID             uint64         `json:"vesselId"`
	UT                   float64        `json:"ut" gorm:"index:idx_flight_sample_ut"`
	MET                  float64        `json:"met"`
	Situation            string         `json:"situation" gorm:"size:16"`
	Mass                 float64        `json:"mass"`
	DryMass              float64        `json:"dryMass"`
	Thrust               float64        `json:"thrust"`
	AvailableThrust      float64        `json:"availableThrust"`
	MaxThrust            float64        `json:"maxThrust"`
	ISP                  float64        `json:"isp"`
	VacuumISP            float64        `json:"vacuumIsp"`
	SeaLevelISP          float64        `json:"seaLevelIsp"`
	ReactionWheelTorque  Torque         `json:"reactionWheelTorque" gorm:"embedded;embeddedPrefix:wheel_"`
	RCSTorque            Torque         `json:"rcsTorque" gorm:"embedded;embeddedPrefix:rcs_"`
	EngineTorque         Torque         `json:"engineTorque" gorm:"embedded;embeddedPrefix:engine_"`
	ControlSurfaceTorque Torque         `json:"controlSurfaceTorque" gorm:"embedded;embeddedPrefix:surface_"`
	Throttle             float64        `json:"throttle"`
	RCS                  bool           `json:"rcs"`
	PartCount            uint16         `json:"partCount"`
	StageCount           uint16         `json:"stageCount"`
	StageMass            datatypes.JSON `json:"stageMass"`
}

func (*FlightSample) TableName() string {
	return "flight_samples"
}
