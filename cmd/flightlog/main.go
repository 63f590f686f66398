// Command flightlog inspects and exports flights recorded by spacecenter.
//
//	flightlog list
//	flightlog samples <flight id>
//	flightlog export [--upload] <flight id>...
//	flightlog migrate [backup dir]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"github.com/krpc/spacecenter/internal/api"
	"github.com/krpc/spacecenter/internal/config"
	"github.com/krpc/spacecenter/internal/database"
	"github.com/krpc/spacecenter/internal/logging"
	gormstorage "github.com/krpc/spacecenter/internal/storage/gorm"
)

var (
	configDir  = pflag.String("config", ".", "directory holding "+config.FileName)
	sqlitePath = pflag.String("sqlite", "", "read a SQLite flight database instead of Postgres")
	outDir     = pflag.String("out", "", "export directory, defaults to storage.memory.outputDir")
	compress   = pflag.Bool("gzip", true, "gzip exported files")
	upload     = pflag.Bool("upload", false, "send exported files to the flight archive")
)

func main() {
	pflag.Parse()

	logManager := logging.NewSlogManager()
	logManager.Setup(nil, "info", nil)
	logger := logManager.Logger()

	if err := config.Load(*configDir); err != nil {
		config.LoadDefaults()
		logger.Debug("Using default config", "error", err)
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Println("No arguments provided.")
		pflag.Usage()
		os.Exit(2)
	}

	if err := run(strings.ToLower(args[0]), args[1:], logger); err != nil {
		logger.Error("Command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string, logger *slog.Logger) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	if err := database.Migrate(db, zerolog.Nop()); err != nil {
		return err
	}
	src := gormstorage.New(gormstorage.Dependencies{DB: db})

	switch cmd {
	case "list":
		return listFlights(src)

	case "samples":
		if len(args) != 1 {
			return fmt.Errorf("samples takes exactly one flight id")
		}
		samples, err := src.Samples(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(samples)

	case "export":
		if len(args) == 0 {
			return fmt.Errorf("no flight ids provided")
		}
		memCfg := config.GetStorageConfig().Memory
		memCfg.CompressOutput = *compress
		if *outDir != "" {
			memCfg.OutputDir = *outDir
		}
		uploads, err := exportFlights(src, args, memCfg)
		for _, u := range uploads {
			fmt.Println(u.Path)
		}
		if err != nil || !*upload {
			return err
		}
		apiCfg := config.GetAPIConfig()
		if apiCfg.ServerURL == "" {
			return fmt.Errorf("api.serverUrl is not set")
		}
		sent, err := api.New(apiCfg.ServerURL, apiCfg.APIKey).UploadAll(context.Background(), uploads)
		logger.Info("Uploaded flights to archive", "sent", len(sent), "total", len(uploads))
		return err

	case "migrate":
		dir := filepath.Dir(config.GetStorageConfig().SQLite.Path)
		if len(args) > 0 {
			dir = args[0]
		}
		found, err := database.GetBackupDBPaths(dir)
		if err != nil {
			return fmt.Errorf("error getting backup database paths: %w", err)
		}
		paths := found[:0]
		for _, p := range found {
			if !sameFile(p, *sqlitePath) {
				paths = append(paths, p)
			}
		}
		migrated, err := migrateBackups(db, paths, logger)
		logger.Info("Successfully migrated backups, it's recommended to delete these to avoid future data duplication",
			"count", len(migrated),
			"paths", migrated)
		return err

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func openDB() (*gorm.DB, error) {
	if *sqlitePath != "" {
		db, err := database.OpenSqlite(*sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", *sqlitePath, err)
		}
		return db, nil
	}
	db, err := database.OpenPostgres(config.GetDBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	return db, nil
}

func listFlights(src *gormstorage.Backend) error {
	flights, err := src.Flights()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVESSEL\tTYPE\tSTART\tEND UT\tREASON")
	for _, f := range flights {
		end := "-"
		if f.EndUT.Valid {
			end = fmt.Sprintf("%.1f", f.EndUT.Float64)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.VesselName, f.VesselType, f.StartTime.Format("2006-01-02 15:04:05"), end, f.EndReason)
	}
	return w.Flush()
}

func sameFile(a, b string) bool {
	if b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
