// Package gormstorage implements storage.Backend on GORM. Writes are queued
// and a background goroutine inserts them in batches.
package gormstorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/krpc/spacecenter/internal/config"
	"github.com/krpc/spacecenter/internal/database"
	"github.com/krpc/spacecenter/internal/logging"
	"github.com/krpc/spacecenter/internal/model"
	"github.com/krpc/spacecenter/internal/model/convert"
	"github.com/krpc/spacecenter/internal/queue"
	"github.com/krpc/spacecenter/pkg/core"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB is used as is when set. Otherwise Init connects to Postgres with DBConfig.
	DB            *gorm.DB
	DBConfig      config.DBConfig
	LogManager    *logging.SlogManager
	DBLogger      zerolog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Flights *queue.Queue[model.Flight]
	Samples *queue.Queue[model.FlightSample]
	Ends    *queue.Queue[core.FlightEnd]
}

func newQueues() *queues {
	return &queues{
		Flights: queue.New[model.Flight](),
		Samples: queue.New[model.FlightSample](),
		Ends:    queue.New[core.FlightEnd](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the connection in use.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init connects if needed, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.DBConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	if err := database.Migrate(b.deps.DB, b.deps.DBLogger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and flushes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

func (b *Backend) StartFlight(f *core.Flight) error {
	b.queues.Flights.Push(convert.CoreToFlight(*f))
	return nil
}

func (b *Backend) RecordSample(s *core.VesselSample) error {
	b.queues.Samples.Push(convert.CoreToSample(*s))
	return nil
}

func (b *Backend) EndFlight(e *core.FlightEnd) error {
	b.queues.Ends.Push(*e)
	return nil
}

// QueueLengths reports queued flights, samples and flight ends.
func (b *Backend) QueueLengths() (flights, samples, ends int) {
	return b.queues.Flights.Len(), b.queues.Samples.Len(), b.queues.Ends.Len()
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches are pushed back for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string)) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return tx.Commit().Error
}

// Flush writes all queued data. Flights go first so samples and ends can
// reference them.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	db := b.deps.DB
	log := b.deps.LogManager.WriteLog

	if err := writeQueue(db, b.queues.Flights, "flights", log); err != nil {
		return err
	}
	if err := writeQueue(db, b.queues.Samples, "flight samples", log); err != nil {
		return err
	}

	for _, e := range b.queues.Ends.GetAndEmpty() {
		var f model.Flight
		convert.ApplyEnd(&f, e)
		err := db.Model(&model.Flight{ID: e.FlightID}).
			Select("EndUT", "EndTime", "EndReason").
			Updates(&f).Error
		if err != nil {
			log(":DB:WRITER:", fmt.Sprintf("Error ending flight %s: %v", e.FlightID, err), "ERROR")
			b.queues.Ends.Push(e)
			return fmt.Errorf("failed to end flight %s: %w", e.FlightID, err)
		}
	}
	return nil
}

// writeLoop periodically drains queues into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}

// Flights lists recorded flights, newest first.
func (b *Backend) Flights() ([]model.Flight, error) {
	var flights []model.Flight
	err := b.deps.DB.Order("start_time desc").Find(&flights).Error
	return flights, err
}

// Samples loads a flight's samples in simulation time order.
func (b *Backend) Samples(flightID string) ([]core.VesselSample, error) {
	var rows []model.FlightSample
	if err := b.deps.DB.Where("flight_id = ?", flightID).Order("ut asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]core.VesselSample, len(rows))
	for i, r := range rows {
		out[i] = convert.SampleToCore(r)
	}
	return out, nil
}
