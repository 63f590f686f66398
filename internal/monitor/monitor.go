// Package monitor reports service health: vessel and write-buffer counts,
// connected clients and the state of the flight recorder. The report is
// served by :STATUS:, written to status.txt and stored as a
// RecorderPerformance row or point.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"gorm.io/gorm"

	"github.com/krpc/spacecenter/internal/cache"
	"github.com/krpc/spacecenter/internal/commands"
	"github.com/krpc/spacecenter/internal/influx"
	"github.com/krpc/spacecenter/internal/logging"
	"github.com/krpc/spacecenter/internal/model"
)

const defaultInterval = time.Second

// Hypertables lists the TimescaleDB hypertables and their compression
// segment columns.
var Hypertables = map[string][]string{
	"recorder_performances": {},
}

// Recorder is the part of the flight recorder the monitor reads.
type Recorder interface {
	QueueLen() int
	Dropped() uint64
	OpenFlights() map[uint64]string
	GetLastDBWriteDuration() time.Duration
}

// PointWriter stores performance points in InfluxDB.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Cache      *cache.VesselCache
	Writes     *commands.Buffer
	LogManager *logging.SlogManager
	Recorder   Recorder
	// Optional sinks for the periodic RecorderPerformance report.
	DB     *gorm.DB
	Influx PointWriter
	// Clients returns the number of connected RPC clients.
	Clients   func() int
	Streams   func() int
	StatusDir string
	Interval  time.Duration
	Now       func() time.Time
}

// RecorderStatus is the recorder part of a Status.
type RecorderStatus struct {
	OpenFlights     int     `json:"open_flights"`
	QueueLength     int     `json:"queue_length"`
	DroppedSamples  uint64  `json:"dropped_samples"`
	LastWriteMillis float64 `json:"last_write_ms"`
}

// WriteStatus describes the write-request buffer.
type WriteStatus struct {
	Pending    int    `json:"pending"`
	Submitted  uint64 `json:"submitted"`
	Superseded uint64 `json:"superseded"`
}

// Status is the service health report.
type Status struct {
	Time         time.Time       `json:"time"`
	UT           float64         `json:"ut"`
	Vessels      int             `json:"vessels"`
	ActiveVessel *uint64         `json:"active_vessel"`
	Rate         cache.Rate      `json:"rate"`
	Writes       WriteStatus     `json:"writes"`
	Clients      int             `json:"clients"`
	Streams      int             `json:"streams"`
	Recorder     *RecorderStatus `json:"recorder,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Cache == nil {
		deps.Cache = cache.NewVesselCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status builds the current report.
func (s *Service) Status() Status {
	st := Status{
		Time:    s.deps.Now(),
		UT:      s.deps.Cache.UT(),
		Vessels: s.deps.Cache.Len(),
		Rate:    s.deps.Cache.Rate(),
	}
	if v, ok := s.deps.Cache.Active(); ok {
		id := v.ID()
		st.ActiveVessel = &id
	}
	if s.deps.Writes != nil {
		st.Writes.Pending = s.deps.Writes.Len()
		st.Writes.Submitted, st.Writes.Superseded = s.deps.Writes.Stats()
	}
	if s.deps.Clients != nil {
		st.Clients = s.deps.Clients()
	}
	if s.deps.Streams != nil {
		st.Streams = s.deps.Streams()
	}
	if r := s.deps.Recorder; r != nil {
		st.Recorder = &RecorderStatus{
			OpenFlights:     len(r.OpenFlights()),
			QueueLength:     r.QueueLen(),
			DroppedSamples:  r.Dropped(),
			LastWriteMillis: float64(r.GetLastDBWriteDuration().Microseconds()) / 1000,
		}
	}
	return st
}

// StatusAny adapts Status to rpc.StatusFunc.
func (s *Service) StatusAny() any {
	return s.Status()
}

// GetProgramStatus returns the report as status file lines and as a
// performance row.
func (s *Service) GetProgramStatus() (output []string, perfModel model.RecorderPerformance) {
	st := s.Status()

	perfModel = model.RecorderPerformance{
		Time:          st.Time,
		Vessels:       uint32(st.Vessels),
		PendingWrites: uint32(st.Writes.Pending),
		SimFPS:        float32(st.Rate.FPS),
	}
	if st.Recorder != nil {
		perfModel.OpenFlights = uint32(st.Recorder.OpenFlights)
		perfModel.SampleQueue = uint32(st.Recorder.QueueLength)
		perfModel.DroppedSamples = st.Recorder.DroppedSamples
		perfModel.LastWriteDurationMs = float32(st.Recorder.LastWriteMillis)
	}

	statusStr, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(statusStr))
	return output, perfModel
}

// PerformancePoint converts a performance row to an InfluxDB point.
func PerformancePoint(p model.RecorderPerformance) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		"recorder",
		map[string]string{},
		map[string]any{
			"vessels":         int64(p.Vessels),
			"open_flights":    int64(p.OpenFlights),
			"pending_writes":  int64(p.PendingWrites),
			"sample_queue":    int64(p.SampleQueue),
			"dropped_samples": int64(p.DroppedSamples),
			"last_write_ms":   float64(p.LastWriteDurationMs),
			"sim_fps":         float64(p.SimFPS),
		},
		p.Time,
	)
}

// ValidateHypertables validates and creates TimescaleDB hypertables
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	functionName := "validateHypertables"
	if s.deps.DB == nil {
		return fmt.Errorf("no database configured")
	}

	all := []any{}
	s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables`).Scan(&all)
	for _, row := range all {
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`hypertable row: %v`, row), "DEBUG")
	}

	for table := range tables {
		hypertable := any(nil)
		s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).Scan(&hypertable)
		if hypertable != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Table %s is already configured`, table), "INFO")
			continue
		}

		queryCreateHypertable := fmt.Sprintf(`
				SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true);
			`, table)
		if err := s.deps.DB.Exec(queryCreateHypertable).Error; err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to create hypertable for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Created hypertable for %s`, table), "INFO")

		queryCompressHypertable := fmt.Sprintf(`
				ALTER TABLE %s SET (
					timescaledb.compress,
					timescaledb.compress_segmentby = ?);
			`, table)
		if err := s.deps.DB.Exec(queryCompressHypertable, strings.Join(tables[table], ",")).Error; err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to enable compression for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Enabled hypertable compression for %s`, table), "INFO")

		queryCompressAfterHypertable := fmt.Sprintf(`
				SELECT add_compression_policy(
					'%s',
					compress_after => interval '14 day');
			`, table)
		if err := s.deps.DB.Exec(queryCompressAfterHypertable).Error; err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to set compress_after for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Set compress_after for %s`, table), "INFO")
	}
	return nil
}

// Report writes one report to the status file and the configured sinks.
func (s *Service) Report(statusFile *os.File) {
	logger := s.deps.LogManager.Logger()
	statusStr, perfModel := s.GetProgramStatus()

	if statusFile != nil {
		_ = statusFile.Truncate(0)
		_, _ = statusFile.Seek(0, 0)
		for _, line := range statusStr {
			_, _ = statusFile.WriteString(line + "\n")
		}
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Create(&perfModel).Error; err != nil {
			logger.Error("Error writing perf model to database", "error", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.PerformanceBucket, PerformancePoint(perfModel)); err != nil {
			logger.Error("Error writing perf point to InfluxDB", "error", err)
		}
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.IsRunning() {
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusDir != "" {
		if err := os.MkdirAll(s.deps.StatusDir, 0755); err != nil {
			return fmt.Errorf("creating status dir: %w", err)
		}
		f, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			return fmt.Errorf("creating status file: %w", err)
		}
		statusFile = f
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		if statusFile != nil {
			statusFile.Close()
		}
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	stop, done := s.stopChan, s.doneChan
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Report(statusFile)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()
	<-done
}
