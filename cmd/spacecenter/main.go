// Command spacecenter serves the SpaceCenter RPC service over WebSocket and
// records every vessel's flight to the configured storage backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/krpc/spacecenter/internal/api"
	"github.com/krpc/spacecenter/internal/cache"
	"github.com/krpc/spacecenter/internal/commands"
	"github.com/krpc/spacecenter/internal/config"
	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/internal/logging"
	"github.com/krpc/spacecenter/internal/monitor"
	intOtel "github.com/krpc/spacecenter/internal/otel"
	"github.com/krpc/spacecenter/internal/parser"
	"github.com/krpc/spacecenter/internal/rpc"
	"github.com/krpc/spacecenter/internal/simulation"
	"github.com/krpc/spacecenter/internal/stream"
	transport "github.com/krpc/spacecenter/internal/transport/websocket"
	"github.com/krpc/spacecenter/internal/worker"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

type options struct {
	configDir string
	demo      bool
	demoTick  time.Duration
	warp      float64
}

func main() {
	var o options
	pflag.StringVar(&o.configDir, "config", ".", "directory holding "+config.FileName)
	pflag.BoolVar(&o.demo, "demo", false, "drive the service with the built-in vessel simulation")
	pflag.DurationVar(&o.demoTick, "demo-tick", 100*time.Millisecond, "real time between simulation steps")
	pflag.Float64Var(&o.warp, "warp", 1, "simulated seconds per real second in demo mode")
	pflag.String("address", "", "listen address, overrides server.address")
	pflag.String("storage", "", "storage backend, overrides storage.type")
	pflag.Parse()

	// Bound flags override the config file only when set.
	_ = viper.BindPFlag("server.address", pflag.Lookup("address"))
	_ = viper.BindPFlag("storage.type", pflag.Lookup("storage"))

	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(o options) (err error) {
	sessionStart := time.Now()

	logManager := logging.NewSlogManager()
	logManager.Setup(nil, "info", nil)
	logger := logManager.Logger()

	if err := config.Load(o.configDir); err != nil {
		config.LoadDefaults()
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config")
	}
	logsDir := config.GetString("logsDir")
	logLevel := config.GetString("logLevel")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	var logFile io.Writer
	logFilePath := logging.LogFilePath(logsDir, logging.ServiceName, sessionStart)
	if _, err := os.Stat(logFilePath); err == nil {
		_ = os.Rename(logFilePath, logFilePath+".old")
	}
	f, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	} else {
		defer f.Close()
		logFile = f
	}

	// Initialize OTel provider if enabled (after log file is created)
	var provider *intOtel.Provider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		provider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
			Version:      Version,
		})
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
			provider = nil
		} else {
			logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}
	var otelLogProvider *sdklog.LoggerProvider
	if provider != nil {
		otelLogProvider = provider.LoggerProvider()
	}

	var gelfSender logging.GELFSender
	if graylogCfg := config.GetGraylogConfig(); graylogCfg.Enabled {
		w, err := logging.NewGELFWriter(graylogCfg.Address, logging.ServiceName)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err, "address", graylogCfg.Address)
		} else {
			defer w.Close()
			gelfSender = w
		}
	}

	vessels := cache.NewVesselCache()
	logManager.SetupWith(logging.Options{
		File:     logFile,
		Level:    logLevel,
		Provider: otelLogProvider,
		GELF:     gelfSender,
		Context: func() []slog.Attr {
			attrs := []slog.Attr{slog.Int("vessels", vessels.Len())}
			if v, ok := vessels.Active(); ok {
				attrs = append(attrs, slog.Uint64("activeVessel", v.ID()))
			}
			return attrs
		},
	})
	logger = logManager.Logger()
	logger.Info("Starting up...", "version", Version, "buildDate", BuildDate, "logFile", logFilePath)

	zlog := newZerolog(logFile, logLevel)
	d, err := dispatcher.New(logging.NewDispatcherLogger(zlog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}
	defer d.Close()

	storageCfg := config.GetStorageConfig()
	st, err := createStorage(storageCfg, config.GetInfluxConfig(), logManager, zlog.With().Str("component", "db").Logger())
	if err != nil {
		return err
	}
	if err := st.backend.Init(); err != nil {
		return fmt.Errorf("init %s storage: %w", storageCfg.Type, err)
	}
	apiCfg := config.GetAPIConfig()
	defer func() {
		err = multierr.Append(err, closeStorage(st.backend, apiCfg, logger))
	}()
	if apiCfg.ServerURL != "" {
		go checkServerStatus(api.New(apiCfg.ServerURL, apiCfg.APIKey), logger)
	}

	recorder, err := worker.NewManager(worker.Dependencies{
		LogManager:     logManager,
		SampleInterval: storageCfg.SampleInterval,
		QueueSize:      storageCfg.QueueSize,
	}, st.backend)
	if err != nil {
		return fmt.Errorf("create recorder: %w", err)
	}
	recorder.RegisterHandlers(d)

	streams := stream.NewManager(d, nil, logger)
	streams.RegisterHandlers(d)

	serverCfg := config.GetServerConfig()
	server, err := transport.NewServer(transport.Config{
		Address:    serverCfg.Address,
		QueueSize:  serverCfg.QueueSize,
		PingPeriod: serverCfg.PingPeriod,
	}, d, streams, logger)
	if err != nil {
		return fmt.Errorf("create rpc server: %w", err)
	}
	streams.SetPublisher(server)

	writes := commands.NewBuffer(serverCfg.WriteBuffer)
	mon := monitor.NewService(monitor.Dependencies{
		Cache:      vessels,
		Writes:     writes,
		LogManager: logManager,
		Recorder:   recorder,
		DB:         st.db,
		Influx:     st.points,
		Clients:    server.Clients,
		Streams:    streams.Len,
		StatusDir:  logsDir,
	})
	if st.db != nil && !st.local {
		if err := mon.ValidateHypertables(monitor.Hypertables); err != nil {
			logger.Warn("Failed to set up hypertables", "error", err)
		}
	}

	svc := rpc.NewService(rpc.Dependencies{
		Cache:  vessels,
		Writes: writes,
		Parser: parser.NewParser(logger),
		Logger: logger,
		Status: mon.StatusAny,
	})
	svc.Observe(recorder)
	svc.Observe(streams)
	svc.RegisterHandlers(d)
	logger.Info("Registered commands", "count", len(d.Commands()))

	if err := mon.Start(); err != nil {
		logger.Warn("Failed to start status monitor", "error", err)
	}
	defer mon.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.ListenAndServe(gctx) })
	g.Go(func() error { return recorder.Run(gctx) })
	if o.demo {
		sim := simulation.New(0, logger)
		sim.Add(simulation.TwoStageRocket("Kerbal X", 0))
		logger.Info("Demo simulation running", "tick", o.demoTick, "warp", o.warp)
		g.Go(func() error { return sim.Run(gctx, d, o.demoTick, o.warp) })
	}

	runErr := g.Wait()
	logger.Info("Shutting down...", "error", runErr)

	recorder.Close(vessels.UT())

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := logManager.Flush(flushCtx); err != nil {
		fmt.Fprintln(os.Stderr, "flush logs:", err)
	}
	if provider != nil {
		runErr = multierr.Append(runErr, provider.Shutdown(flushCtx))
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func newZerolog(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", logging.ServiceName).Logger()
}

func checkServerStatus(c *api.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Healthcheck(ctx); err != nil {
		logger.Info("Flight archive is offline", "error", err)
		return
	}
	logger.Info("Flight archive is online")
}
