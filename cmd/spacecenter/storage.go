package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/krpc/spacecenter/internal/api"
	"github.com/krpc/spacecenter/internal/config"
	"github.com/krpc/spacecenter/internal/database"
	"github.com/krpc/spacecenter/internal/influx"
	"github.com/krpc/spacecenter/internal/logging"
	"github.com/krpc/spacecenter/internal/monitor"
	"github.com/krpc/spacecenter/internal/storage"
	gormstorage "github.com/krpc/spacecenter/internal/storage/gorm"
	influxstorage "github.com/krpc/spacecenter/internal/storage/influx"
	"github.com/krpc/spacecenter/internal/storage/memory"
	sqlitestorage "github.com/krpc/spacecenter/internal/storage/sqlite"
	wsstorage "github.com/krpc/spacecenter/internal/storage/websocket"
)

// stores is what the recorder writes to plus the sinks the monitor reports
// into. db and points are nil when the backend has none.
type stores struct {
	backend storage.Backend
	db      *gorm.DB
	points  monitor.PointWriter
	local   bool
}

func createStorage(cfg config.StorageConfig, influxCfg config.InfluxConfig, logManager *logging.SlogManager, dbLog zerolog.Logger) (*stores, error) {
	s := &stores{}
	logger := logManager.Logger()

	switch cfg.Type {
	case "postgres":
		mgr := database.NewManager(dbLog)
		mgr.SqliteFilePath = cfg.SQLite.Path
		if err := mgr.Connect(config.GetDBConfig()); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := mgr.Setup(); err != nil {
			return nil, fmt.Errorf("failed to set up database: %w", err)
		}
		s.db = mgr.DB
		s.local = mgr.ShouldSaveLocal
		s.backend = gormstorage.New(gormstorage.Dependencies{
			DB:         mgr.DB,
			LogManager: logManager,
			DBLogger:   dbLog,
		})
		logger.Info("Postgres storage backend initialized", "local", mgr.ShouldSaveLocal)

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.Path,
		}, logManager, dbLog)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		s.db = backend.DB()
		s.local = true
		s.backend = backend
		logger.Info("SQLite storage backend initialized", "dumpPath", cfg.SQLite.Path)

	case "influx":
		influxCfg.Enabled = true
		m := influx.NewManager(dbLog, influxCfg, influxBackupPath(cfg))
		s.points = m
		s.backend = influxstorage.New(m, influxCfg.Bucket)
		logger.Info("InfluxDB storage backend initialized", "url", influxCfg.URL())
		return s, nil

	case "websocket":
		wsURL := httpToWS(cfg.WebSocket.URL)
		s.backend = wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: cfg.WebSocket.Secret,
		}, logger)
		logger.Info("WebSocket storage backend initialized", "url", wsURL)

	case "", "memory":
		s.backend = memory.New(cfg.Memory)
		logger.Info("Memory storage backend initialized", "outputDir", cfg.Memory.OutputDir)

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}

	// Telemetry points go to influx alongside whichever backend is primary.
	if influxCfg.Enabled {
		m := influx.NewManager(dbLog, influxCfg, influxBackupPath(cfg))
		s.points = m
		s.backend = storage.NewMulti(s.backend, influxstorage.New(m, influxCfg.Bucket))
		logger.Info("InfluxDB telemetry enabled", "url", influxCfg.URL())
	}
	return s, nil
}

// closeStorage closes the backend, then sends whatever it exported to the
// flight archive when uploads are enabled.
func closeStorage(b storage.Backend, apiCfg config.APIConfig, logger *slog.Logger) error {
	err := b.Close()

	u, ok := b.(storage.Uploadable)
	if !ok || !apiCfg.Upload || apiCfg.ServerURL == "" {
		return err
	}
	uploads := u.Uploads()
	if len(uploads) == 0 {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sent, uploadErr := api.New(apiCfg.ServerURL, apiCfg.APIKey).UploadAll(ctx, uploads)
	logger.Info("Uploaded flights to archive", "sent", len(sent), "total", len(uploads))
	return multierr.Append(err, uploadErr)
}

func influxBackupPath(cfg config.StorageConfig) string {
	return filepath.Join(cfg.Memory.OutputDir, "influx_backup.log.gz")
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
