package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/internal/config"
	"github.com/krpc/spacecenter/internal/storage"
	"github.com/krpc/spacecenter/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

var _ storage.Exporter = (*Backend)(nil)
var _ storage.Uploadable = (*Backend)(nil)

var start = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func testFlight() *core.Flight {
	return &core.Flight{
		ID:         "6f1c2d3e-aaaa-bbbb-cccc-000000000001",
		VesselID:   7,
		VesselName: "Kerbal X",
		VesselType: core.VesselTypeShip,
		LaunchUT:   400,
		StartTime:  start,
	}
}

func sample(ut float64) *core.VesselSample {
	return &core.VesselSample{
		FlightID:     "6f1c2d3e-aaaa-bbbb-cccc-000000000001",
		VesselID:     7,
		Time:         start.Add(time.Duration(ut) * time.Second),
		UT:           ut,
		MET:          ut - 400,
		Situation:    core.SituationFlying,
		Mass:         2940,
		Thrust:       215000,
		ISP:          300,
		EngineTorque: core.Vector3{1, 2, 3},
		PartCount:    4,
		StageCount:   2,
		StageMass:    map[int]float64{-1: 2840, 1: 100},
	}
}

func TestRecordAndExport(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.Init())

	require.NoError(t, b.StartFlight(testFlight()))
	require.NoError(t, b.RecordSample(sample(1000)))
	require.NoError(t, b.RecordSample(sample(1001)))
	require.NoError(t, b.EndFlight(&core.FlightEnd{
		FlightID: testFlight().ID, VesselID: 7, UT: 1002, Time: start, Reason: "recovered",
	}))

	files := b.ExportedFiles()
	require.Len(t, files, 1)
	assert.Equal(t, "Kerbal_X_20260301_123000_6f1c2d3e.json", filepath.Base(files[0]))

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var got FlightExport
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "Kerbal X", got.VesselName)
	assert.Equal(t, "ship", got.VesselType)
	assert.Equal(t, "recovered", got.EndReason)
	assert.Equal(t, 1002.0, got.EndUT)
	require.Len(t, got.Samples, 2)
	assert.Equal(t, 600.0, got.Samples[0].MET)
	assert.Equal(t, "flying", got.Samples[0].Situation)
	assert.Equal(t, [3]float64{1, 2, 3}, got.Samples[1].EngineTorque)
	assert.Equal(t, 100.0, got.Samples[1].StageMass[1])
	assert.Equal(t, 2840.0, got.Samples[1].StageMass[-1])

	uploads := b.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, files[0], uploads[0].Path)
	assert.Equal(t, core.UploadMetadata{
		FlightID:   testFlight().ID,
		VesselName: "Kerbal X",
		VesselType: core.VesselTypeShip,
		Duration:   602,
		EndReason:  "recovered",
	}, uploads[0].Meta)
}

func TestExportCompressed(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})

	require.NoError(t, b.StartFlight(testFlight()))
	require.NoError(t, b.RecordSample(sample(1000)))
	require.NoError(t, b.EndFlight(&core.FlightEnd{FlightID: testFlight().ID, Reason: "removed"}))

	files := b.ExportedFiles()
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], ".json.gz"))

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	var got FlightExport
	require.NoError(t, json.NewDecoder(gz).Decode(&got))
	assert.Len(t, got.Samples, 1)
}

func TestUnknownAndEndedFlights(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	assert.Error(t, b.RecordSample(sample(1)))
	assert.Error(t, b.EndFlight(&core.FlightEnd{FlightID: "nope"}))

	require.NoError(t, b.StartFlight(testFlight()))
	assert.Error(t, b.StartFlight(testFlight()), "duplicate flight id")

	require.NoError(t, b.EndFlight(&core.FlightEnd{FlightID: testFlight().ID}))
	assert.Error(t, b.RecordSample(sample(2)))
	// Ending twice does not export twice.
	require.NoError(t, b.EndFlight(&core.FlightEnd{FlightID: testFlight().ID}))
	assert.Len(t, b.ExportedFiles(), 1)
}

func TestCloseExportsOpenFlights(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartFlight(testFlight()))
	require.NoError(t, b.RecordSample(sample(1500)))

	require.NoError(t, b.Close())

	rec, ok := b.Flight(testFlight().ID)
	require.True(t, ok)
	require.NotNil(t, rec.End)
	assert.Equal(t, "shutdown", rec.End.Reason)
	assert.Equal(t, 1500.0, rec.End.UT)
	assert.Len(t, b.ExportedFiles(), 1)
	assert.Equal(t, []string{testFlight().ID}, b.Flights())
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name     string
		flight   core.Flight
		compress bool
		want     string
	}{
		{"plain", core.Flight{ID: "abc", VesselName: "Probe", StartTime: start}, false, "Probe_20260301_123000_abc.json"},
		{"separators", core.Flight{ID: "abc", VesselName: "A/B: C", StartTime: start}, true, "A_B__C_20260301_123000_abc.json.gz"},
		{"unnamed", core.Flight{ID: "0123456789", StartTime: start}, false, "vessel_20260301_123000_01234567.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fileName(tt.flight, tt.compress))
		})
	}
}
