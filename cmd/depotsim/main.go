package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/zrfleet/depotsim/internal/boarding"
	"github.com/zrfleet/depotsim/internal/cache"
	"github.com/zrfleet/depotsim/internal/config"
	"github.com/zrfleet/depotsim/internal/depot"
	"github.com/zrfleet/depotsim/internal/dispatch"
	"github.com/zrfleet/depotsim/internal/dispatcher"
	"github.com/zrfleet/depotsim/internal/influx"
	"github.com/zrfleet/depotsim/internal/kinematic"
	"github.com/zrfleet/depotsim/internal/logging"
	"github.com/zrfleet/depotsim/internal/model"
	"github.com/zrfleet/depotsim/internal/monitor"
	"github.com/zrfleet/depotsim/internal/nav"
	"github.com/zrfleet/depotsim/internal/orchestrator"
	intOtel "github.com/zrfleet/depotsim/internal/otel"
	"github.com/zrfleet/depotsim/internal/session"
	"github.com/zrfleet/depotsim/internal/storage"
	"github.com/zrfleet/depotsim/internal/worker"
	"github.com/zrfleet/depotsim/pkg/core"
	"github.com/zrfleet/depotsim/pkg/streaming"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const appName = "depotsim"

func main() {
	flags := parseFlags()
	if flags.version {
		fmt.Printf("%s %s (built %s)\n", appName, Version, BuildDate)
		return
	}
	if err := run(flags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(flags cliFlags) error {
	sessionStart := time.Now()

	// Console-only logging until the config names the log file.
	slogManager := logging.NewSlogManager()
	slogManager.Setup(nil, flags.logLevel, nil)
	logger := slogManager.Logger()

	if err := config.Load(flags.configDir); err != nil {
		logger.Warn("Failed to load config, using defaults", "error", err)
	} else {
		logger.Info("Loaded config", "dir", flags.configDir)
	}
	applyFlagOverrides(flags)

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logFilePath := logging.LogFilePath(logsDir, appName, sessionStart)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	var otelProvider *intOtel.Provider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	// Re-setup logging with file output and optional OTel export.
	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		otelLogProvider = otelProvider.LoggerProvider()
	}
	slogManager.Setup(logFile, viper.GetString("logLevel"), otelLogProvider)
	logger = slogManager.Logger()
	logger.Info("Logging to file", "path", logFilePath)

	// The zerolog side feeds the database, influx, and bus adapters.
	zlog, err := logging.NewRuntimeLogger(logging.RuntimeConfig{
		Level:          viper.GetString("logLevel"),
		File:           logFile,
		GraylogEnabled: viper.GetBool("graylog.enabled"),
		GraylogAddress: viper.GetString("graylog.address"),
	})
	if err != nil {
		return fmt.Errorf("failed to build runtime logger: %w", err)
	}

	if flags.migrateBackups {
		return migrateBackups(flags.configDir, logger)
	}
	if flags.export != "" {
		ids, err := parseServiceDayIDs(flags.export)
		if err != nil {
			return err
		}
		return exportServiceDays(ids, logger)
	}

	seed := flags.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	depotCfg := config.GetDepotConfig()
	fleetCfg := config.GetFleetConfig()
	storageCfg := config.GetStorageConfig()

	sessionCtx := session.NewContext()

	backend, err := newBackend(storageCfg, flags.configDir, sessionStart, zlog)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	logger.Info("Storage backend initialized", "type", storageCfg.Type)

	var influxMgr *influx.Manager
	if viper.GetBool("influx.enabled") {
		backupPath := filepath.Join(logsDir,
			fmt.Sprintf("influx_backup_%s.gz", sessionStart.Format("20060102_150405")))
		influxMgr = influx.NewManager(zlog, backupPath)
		if err := influxMgr.Connect(); err != nil {
			logger.Warn("InfluxDB unavailable, metrics disabled", "error", err)
			influxMgr = nil
		}
	}

	bus, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	dispatchCfg := config.GetDispatchConfig()
	authority, err := dispatch.NewAuthority(dispatchCfg)
	if err != nil {
		return fmt.Errorf("failed to build dispatch authority: %w", err)
	}
	dispatchService := dispatch.NewService(authority, dispatch.PolicyFromConfig(dispatchCfg.Retry), logger)
	logger.Info("Dispatch authority ready", "mode", dispatchCfg.Mode)

	var stream *dispatch.Stream
	if dispatchCfg.Stream.Enabled {
		stream = dispatch.NewStream(dispatchService, depotCfg.Name, logger)
		if err := stream.Connect(dispatchCfg.Stream.URL, dispatchCfg.Stream.Secret); err != nil {
			logger.Warn("Dispatch stream unavailable", "error", err)
			stream = nil
		} else {
			logger.Info("Subscribed to dispatch stream", "url", dispatchCfg.Stream.URL)
		}
	}

	navCfg := config.GetNavigationConfig()
	kinCfg := config.GetKinematicConfig()
	kinSeed := seed
	kinFactory := func(registration string) orchestrator.KinematicSource {
		kinSeed++
		return kinematic.NewSimSource(kinematic.Config{
			TargetSpeedKph: kinCfg.TargetSpeedKph,
			JitterKph:      kinCfg.JitterKph,
			AccelKphPerSec: kinCfg.AccelKphPerSec,
			SampleInterval: kinCfg.SampleInterval,
		}, rand.New(rand.NewSource(kinSeed)))
	}

	boardingCfg := config.GetBoardingConfig()
	boardingSrc, err := boarding.NewSource(boardingCfg, rng)
	if err != nil {
		return fmt.Errorf("failed to build boarding source: %w", err)
	}

	workerMgr := worker.NewManager(worker.Dependencies{
		SessionContext: sessionCtx,
		LogManager:     slogManager,
		Influx:         influxMgr,
		DepotName:      depotCfg.Name,
	}, backend, storageCfg.WriteInterval)
	workerMgr.RegisterHandlers(bus)

	orch := orchestrator.New(orchestrator.Dependencies{
		Depot:      depot.NewManager(depotCfg.Name, logger),
		Dispatch:   dispatchService,
		Boarding:   boardingSrc,
		Kinematics: kinFactory,
		Vehicles:   cache.NewVehicleCache(),
		Routes:     cache.NewRouteCache(),
		Bus:        bus,
		LogManager: slogManager,
		NavConfig: nav.Config{
			TickInterval:   navCfg.TickInterval,
			LoiterDuration: navCfg.LoiterDuration,
			SettleDelay:    navCfg.SettleDelay,
			StopTimeout:    navCfg.StopTimeout,
			StopRadiusM:    navCfg.StopRadiusM,
			StopDwell:      navCfg.StopDwell,
		},
		BoardingMinInterval: boardingCfg.MinInterval,
		BoardingMaxInterval: boardingCfg.MaxInterval,
		DispatchTimeout:     dispatchCfg.Timeout,
		Rand:                rng,
	})

	monitorCfg := config.GetMonitorConfig()
	monitorSvc := monitor.NewService(monitor.Dependencies{
		LogManager:     slogManager,
		SessionContext: sessionCtx,
		WorkerManager:  workerMgr,
		Bus:            bus,
		Influx:         influxMgr,
		Status:         orch.DepotStatus,
		StatusDir:      monitorCfg.StatusDir,
		Interval:       monitorCfg.Interval,
	})

	// Open the service day.
	day := &model.ServiceDay{
		StartTime: sessionStart.UTC(),
		FleetSize: fleetCfg.Count,
		Capacity:  fleetCfg.Capacity,
		Seed:      seed,
		EngineTag: Version,
		Tag:       sessionStart.UTC().Format("20060102"),
	}
	depotRow := &model.Depot{Name: depotCfg.Name, Terminal: depotCfg.Terminal}
	if err := backend.StartServiceDay(day, depotRow); err != nil {
		return fmt.Errorf("failed to start service day: %w", err)
	}
	sessionCtx.SetServiceDay(day, depotRow)
	logger.Info("Service day started",
		"depot", depotCfg.Name,
		"serviceDayId", day.ID,
		"seed", seed)

	// Register the fleet: ZR-101, ZR-102, ...
	for i := 1; i <= fleetCfg.Count; i++ {
		reg := fmt.Sprintf("%s%d", fleetCfg.Prefix, 100+i)
		callsign := fmt.Sprintf("Unit %d", i)
		if !orch.AddVehicle(core.Vehicle{
			Registration: reg,
			Callsign:     callsign,
			Capacity:     fleetCfg.Capacity,
		}) {
			logger.Error("Failed to register vehicle", "registration", reg)
			continue
		}
		if err := backend.AddVehicle(model.Vehicle{
			ServiceDayID: day.ID,
			Registration: reg,
			JoinTime:     time.Now().UTC(),
			Callsign:     callsign,
			Capacity:     fleetCfg.Capacity,
		}); err != nil {
			logger.Warn("Failed to record vehicle", "registration", reg, "error", err)
		}
	}

	workerMgr.Start()
	if err := monitorSvc.Start(); err != nil {
		logger.Warn("Failed to start status monitor", "error", err)
	}
	orch.Start()
	logger.Info("Depot running", "vehicles", fleetCfg.Count, "capacity", fleetCfg.Capacity)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if stream != nil {
		go publishStatusLoop(ctx, stream, orch, monitorCfg.Interval)
	}

	if flags.duration > 0 {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received")
		case <-time.After(flags.duration):
			logger.Info("Run duration elapsed", "duration", flags.duration)
		}
	} else {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}

	// Ordered shutdown: stop producing, drain the sinks, close the day.
	orch.Stop()
	monitorSvc.Stop()
	workerMgr.Stop()

	if err := backend.EndServiceDay(); err != nil {
		logger.Error("Failed to end service day", "error", err)
	} else if exp, ok := backend.(storage.Exportable); ok {
		logger.Info("Service day closed", "export", exp.GetExportedFilePath())
	} else {
		logger.Info("Service day closed")
	}
	if err := backend.Close(); err != nil {
		logger.Warn("Failed to close storage backend", "error", err)
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			logger.Warn("Failed to close dispatch stream", "error", err)
		}
	}
	if influxMgr != nil {
		influxMgr.Close()
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := slogManager.Flush(flushCtx); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}
	if otelProvider != nil {
		if err := otelProvider.Shutdown(flushCtx); err != nil {
			logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}

	return nil
}

// publishStatusLoop pushes best-effort depot snapshots to the authority
// over the stream while the depot runs.
func publishStatusLoop(ctx context.Context, stream *dispatch.Stream, orch *orchestrator.Orchestrator, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stream.PublishDepotStatus(streaming.DepotStatusPayload{Status: orch.DepotStatus()})
		}
	}
}
