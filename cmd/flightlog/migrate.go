package main

import (
	"fmt"
	"log/slog"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/krpc/spacecenter/internal/database"
	"github.com/krpc/spacecenter/internal/model"
)

const migrateBatchSize = 1000

// migrateBackups copies SQLite flight dumps into dst, one transaction per
// file. A migrated file is renamed with a .migrated suffix so it is not
// picked up again.
func migrateBackups(dst *gorm.DB, paths []string, logger *slog.Logger) (migrated []string, err error) {
	migrated = make([]string, 0, len(paths))

	for _, path := range paths {
		src, err := database.OpenSqlite(path)
		if err != nil {
			return migrated, fmt.Errorf("error opening %s: %w", path, err)
		}

		// transaction so a failed file leaves dst untouched
		tx := dst.Begin()
		if err := migrateFile(src, tx, logger); err != nil {
			tx.Rollback()
			closeDB(src, logger)
			return migrated, fmt.Errorf("error migrating %s: %w", path, err)
		}
		if err := tx.Commit().Error; err != nil {
			closeDB(src, logger)
			return migrated, fmt.Errorf("error committing %s: %w", path, err)
		}

		closeDB(src, logger)
		if err := os.Rename(path, path+".migrated"); err != nil {
			logger.Error("Error renaming sqlite file", "error", err, "path", path)
		}
		migrated = append(migrated, path)
	}
	return migrated, nil
}

func migrateFile(src, tx *gorm.DB, logger *slog.Logger) error {
	if err := migrateTable[model.Flight](src, tx, "flights", logger); err != nil {
		return err
	}
	// sample ids are reassigned by the destination
	if err := migrateTable[model.FlightSample](src, tx, "flight_samples", logger, "ID"); err != nil {
		return err
	}
	return migrateTable[model.RecorderPerformance](src, tx, "recorder_performances", logger)
}

// migrateTable copies every row of one table. Rows that already exist in
// dst are skipped.
func migrateTable[M any](src, dst *gorm.DB, table string, logger *slog.Logger, omit ...string) error {
	if !src.Migrator().HasTable(table) {
		return nil
	}

	var rows []M
	if err := src.Table(table).Find(&rows).Error; err != nil {
		return fmt.Errorf("reading %s: %w", table, err)
	}
	logger.Info("Found records", "count", len(rows), "table", table)
	if len(rows) == 0 {
		return nil
	}

	q := dst.Clauses(clause.OnConflict{DoNothing: true}).Omit(append(omit, clause.Associations)...)
	if err := q.CreateInBatches(&rows, migrateBatchSize).Error; err != nil {
		return fmt.Errorf("inserting %s: %w", table, err)
	}
	return nil
}

func closeDB(db *gorm.DB, logger *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Error getting sqlite connection", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing sqlite connection", "error", err)
	}
}
