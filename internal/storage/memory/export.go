package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/krpc/spacecenter/pkg/core"
)

// FlightExport is the root JSON structure of an exported flight
type FlightExport struct {
	FlightID   string         `json:"flightId"`
	VesselID   uint64         `json:"vesselId"`
	VesselName string         `json:"vesselName"`
	VesselType string         `json:"vesselType"`
	LaunchUT   float64        `json:"launchUT"`
	StartTime  time.Time      `json:"startTime"`
	EndUT      float64        `json:"endUT"`
	EndTime    time.Time      `json:"endTime"`
	EndReason  string         `json:"endReason"`
	Samples    []SampleExport `json:"samples"`
}

// SampleExport is one sample row. Torques are [pitch, roll, yaw].
type SampleExport struct {
	UT                   float64         `json:"ut"`
	MET                  float64         `json:"met"`
	Situation            string          `json:"situation"`
	Mass                 float64         `json:"mass"`
	DryMass              float64         `json:"dryMass"`
	Thrust               float64         `json:"thrust"`
	AvailableThrust      float64         `json:"availableThrust"`
	MaxThrust            float64         `json:"maxThrust"`
	ISP                  float64         `json:"isp"`
	VacuumISP            float64         `json:"vacuumIsp"`
	SeaLevelISP          float64         `json:"seaLevelIsp"`
	ReactionWheelTorque  [3]float64      `json:"reactionWheelTorque"`
	RCSTorque            [3]float64      `json:"rcsTorque"`
	EngineTorque         [3]float64      `json:"engineTorque"`
	ControlSurfaceTorque [3]float64      `json:"controlSurfaceTorque"`
	Throttle             float64         `json:"throttle"`
	RCS                  bool            `json:"rcs"`
	Parts                int             `json:"parts"`
	Stages               int             `json:"stages"`
	StageMass            map[int]float64 `json:"stageMass,omitempty"`
}

func buildExport(rec *FlightRecord) FlightExport {
	f := rec.Flight
	out := FlightExport{
		FlightID:   f.ID,
		VesselID:   f.VesselID,
		VesselName: f.VesselName,
		VesselType: string(f.VesselType),
		LaunchUT:   f.LaunchUT,
		StartTime:  f.StartTime,
		Samples:    make([]SampleExport, 0, len(rec.Samples)),
	}
	if rec.End != nil {
		out.EndUT = rec.End.UT
		out.EndTime = rec.End.Time
		out.EndReason = rec.End.Reason
	}
	for _, s := range rec.Samples {
		out.Samples = append(out.Samples, SampleExport{
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
			ReactionWheelTorque:  s.ReactionWheelTorque,
			RCSTorque:            s.RCSTorque,
			EngineTorque:         s.EngineTorque,
			ControlSurfaceTorque: s.ControlSurfaceTorque,
			Throttle:             s.Throttle,
			RCS:                  s.RCS,
			Parts:                s.PartCount,
			Stages:               s.StageCount,
			StageMass:            s.StageMass,
		})
	}
	return out
}

func uploadMetadata(rec *FlightRecord) core.UploadMetadata {
	meta := core.UploadMetadata{
		FlightID:   rec.Flight.ID,
		VesselName: rec.Flight.VesselName,
		VesselType: rec.Flight.VesselType,
	}
	if rec.End != nil {
		meta.Duration = max(rec.End.UT-rec.Flight.LaunchUT, 0)
		meta.EndReason = rec.End.Reason
	}
	return meta
}

// fileName builds "<vessel>_<start>_<flight prefix>.json[.gz]".
func fileName(f core.Flight, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(f.VesselName)
	if name == "" {
		name = "vessel"
	}
	id := f.ID
	if len(id) > 8 {
		id = id[:8]
	}
	ext := ".json"
	if compress {
		ext = ".json.gz"
	}
	return fmt.Sprintf("%s_%s_%s%s", name, f.StartTime.UTC().Format("20060102_150405"), id, ext)
}

// export writes the flight to the output directory. Caller holds b.mu.
func (b *Backend) export(rec *FlightRecord) error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(b.cfg.OutputDir, fileName(rec.Flight, b.cfg.CompressOutput))

	data := buildExport(rec)
	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(path, data)
	} else {
		err = writeJSON(path, data)
	}
	if err != nil {
		return err
	}
	b.exports = append(b.exports, core.Upload{Path: path, Meta: uploadMetadata(rec)})
	return nil
}

func writeJSON(path string, data FlightExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data FlightExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
