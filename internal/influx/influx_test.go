package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/internal/config"
)

func unreachable() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "spacecenter",
		Bucket:   "vessel_telemetry",
	}
}

func TestNewManager_Buckets(t *testing.T) {
	m := NewManager(zerolog.Nop(), unreachable(), "")
	assert.Equal(t, []string{"vessel_telemetry", PerformanceBucket}, m.BucketNames)
	assert.False(t, m.IsValid)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{}, "")
	assert.Error(t, m.Connect(context.Background()))
}

func TestConnect_FallsBackToBackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(zerolog.Nop(), unreachable(), path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	p := influxdb2_write.NewPoint("vessel",
		map[string]string{"vessel_id": "7"},
		map[string]interface{}{"mass": 2940.0},
		time.Unix(1700000000, 0))
	require.NoError(t, m.WritePoint("vessel_telemetry", p))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "vessel,vessel_id=7 mass=2940 1700000000000000000")
}

func TestConnect_NoBackupPath(t *testing.T) {
	m := NewManager(zerolog.Nop(), unreachable(), "")
	assert.Error(t, m.Connect(context.Background()))
	assert.Error(t, m.WritePoint("vessel_telemetry", influxdb2_write.NewPointWithMeasurement("x")))
}

func TestWritePoint_UnknownBucket(t *testing.T) {
	m := NewManager(zerolog.Nop(), unreachable(), "")
	m.IsValid = true
	assert.Error(t, m.WritePoint("nope", influxdb2_write.NewPointWithMeasurement("x")))
}
