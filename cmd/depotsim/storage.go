package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zrfleet/depotsim/internal/config"
	"github.com/zrfleet/depotsim/internal/database"
	"github.com/zrfleet/depotsim/internal/model"
	"github.com/zrfleet/depotsim/internal/storage"
)

// newBackend builds the configured storage backend. Database-backed
// backends get a session-stamped SQLite path so a local fallback can
// dump to disk without clobbering earlier runs.
func newBackend(cfg config.StorageConfig, configDir string, sessionStart time.Time, logger zerolog.Logger) (storage.Backend, error) {
	sqlitePath := filepath.Join(configDir,
		fmt.Sprintf("depotsim_%s.db", sessionStart.Format("20060102_150405")))
	backend, err := storage.NewBackend(cfg, sqlitePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	return backend, nil
}

func parseServiceDayIDs(arg string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid service day ID %q: %w", part, err)
		}
		ids = append(ids, uint(id))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no service day IDs provided")
	}
	return ids, nil
}

// exportServiceDays writes each service day as a gzipped JSON document
// in the current directory.
func exportServiceDays(ids []uint, logger *slog.Logger) error {
	db, err := database.GetPostgresDBStandalone()
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
	defer func() { _ = sqlDB.Close() }()

	for _, id := range ids {
		if err := exportServiceDay(db, id, logger); err != nil {
			return err
		}
	}
	return nil
}

func exportServiceDay(db *gorm.DB, id uint, logger *slog.Logger) error {
	txStart := time.Now()

	var day model.ServiceDay
	err := db.Model(&model.ServiceDay{}).Preload("Depot").Where("id = ?", id).First(&day).Error
	if err != nil {
		return fmt.Errorf("error getting service day %d: %w", id, err)
	}

	doc := make(map[string]any)
	doc["serviceDayId"] = day.ID
	doc["depot"] = day.Depot.Name
	doc["terminal"] = day.Depot.Terminal
	doc["startTime"] = day.StartTime
	if day.EndTime.Valid {
		doc["endTime"] = day.EndTime.Time
	}
	doc["fleetSize"] = day.FleetSize
	doc["capacity"] = day.Capacity
	doc["seed"] = day.Seed
	doc["engineTag"] = day.EngineTag
	doc["tag"] = day.Tag

	vehicles := []model.Vehicle{}
	err = db.Model(&model.Vehicle{}).Where("service_day_id = ?", id).Find(&vehicles).Error
	if err != nil {
		return fmt.Errorf("error getting vehicles: %w", err)
	}

	allStates := []model.VehicleStateRow{}
	err = db.Model(&model.VehicleStateRow{}).
		Where("service_day_id = ?", id).
		Order("time ASC").
		Find(&allStates).Error
	if err != nil {
		return fmt.Errorf("error getting vehicle states: %w", err)
	}
	statesByReg := map[string][]model.VehicleStateRow{}
	for _, s := range allStates {
		statesByReg[s.Registration] = append(statesByReg[s.Registration], s)
	}

	allPositions := []model.PositionRecord{}
	err = db.Model(&model.PositionRecord{}).
		Where("service_day_id = ?", id).
		Order("tick ASC").
		Find(&allPositions).Error
	if err != nil {
		return fmt.Errorf("error getting position records: %w", err)
	}
	positionsByReg := map[string][]model.PositionRecord{}
	for _, p := range allPositions {
		positionsByReg[p.Registration] = append(positionsByReg[p.Registration], p)
	}

	entities := []map[string]any{}
	for _, vehicle := range vehicles {
		entity := map[string]any{}
		entity["registration"] = vehicle.Registration
		entity["callsign"] = vehicle.Callsign
		entity["capacity"] = vehicle.Capacity
		entity["joinTime"] = vehicle.JoinTime

		states := []any{}
		for _, state := range statesByReg[vehicle.Registration] {
			states = append(states, []any{
				state.Time,
				state.State,
				state.NavState,
				state.Passengers,
				state.EngineOn,
				state.QueuePosition,
				state.RouteID,
			})
		}
		entity["states"] = states

		positions := []any{}
		for _, rec := range positionsByReg[vehicle.Registration] {
			coord, _ := rec.Position.Coordinates()
			positions = append(positions, []any{
				rec.Tick,
				[]float64{coord.X, coord.Y},
				rec.BearingDeg,
				rec.SpeedKph,
				rec.Progress,
				rec.Leg,
				rec.NavState,
			})
		}
		entity["positions"] = positions

		entities = append(entities, entity)
	}
	doc["vehicles"] = entities

	journeys := []model.Journey{}
	err = db.Model(&model.Journey{}).
		Where("service_day_id = ?", id).
		Order("completed_at ASC").
		Find(&journeys).Error
	if err != nil {
		return fmt.Errorf("error getting journeys: %w", err)
	}
	doc["journeys"] = journeys

	boardings := []model.BoardingEvent{}
	err = db.Model(&model.BoardingEvent{}).
		Where("service_day_id = ?", id).
		Order("time ASC").
		Find(&boardings).Error
	if err != nil {
		return fmt.Errorf("error getting boarding events: %w", err)
	}
	doc["boardings"] = boardings

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshalling service day data: %w", err)
	}

	fileName := fmt.Sprintf("%s_%s.json.gz", day.Depot.Name, day.StartTime.Format("20060102_150405"))
	fileName = strings.ReplaceAll(fileName, " ", "_")
	fileName = strings.ReplaceAll(fileName, ":", "_")
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer func() { _ = f.Close() }()

	gzWriter := gzip.NewWriter(f)
	defer func() { _ = gzWriter.Close() }()
	if _, err = gzWriter.Write(docJSON); err != nil {
		return fmt.Errorf("error writing to gzip: %w", err)
	}

	logger.Info("Exported service day",
		"serviceDayId", id,
		"file", fileName,
		"duration", time.Since(txStart))
	return nil
}

// migrateBackups loads every local SQLite backup in configDir into
// Postgres, then marks the file .migrated so it is not picked up again.
func migrateBackups(configDir string, logger *slog.Logger) error {
	sqlitePaths, err := database.GetBackupDBPaths(configDir)
	if err != nil {
		return fmt.Errorf("error getting backup database paths: %w", err)
	}
	if len(sqlitePaths) == 0 {
		logger.Info("No backup databases found", "dir", configDir)
		return nil
	}

	postgresDB, err := database.GetPostgresDBStandalone()
	if err != nil {
		return fmt.Errorf("error getting postgres database: %w", err)
	}

	successfulMigrations := make([]string, 0)

	for _, sqlitePath := range sqlitePaths {
		sqliteDB, err := database.GetSqliteDBStandalone(sqlitePath)
		if err != nil {
			return fmt.Errorf("error getting sqlite database: %w", err)
		}

		if err := migrateBackup(sqliteDB, postgresDB, logger); err != nil {
			return fmt.Errorf("error migrating %s: %w", sqlitePath, err)
		}

		sqlConnection, err := sqliteDB.DB()
		if err != nil {
			logger.Error("Error getting sqlite connection", "error", err)
			continue
		}
		if err := sqlConnection.Close(); err != nil {
			logger.Error("Error closing sqlite connection", "error", err)
		}
		if err := os.Rename(sqlitePath, sqlitePath+".migrated"); err != nil {
			logger.Error("Error renaming sqlite file", "error", err)
		}
		successfulMigrations = append(successfulMigrations, sqlitePath)
	}

	logger.Info("Successfully migrated backups, it's recommended to delete these to avoid future data duplication",
		"count", len(successfulMigrations),
		"paths", successfulMigrations)
	return nil
}

// migrateBackup copies one backup into Postgres inside a transaction,
// tables in foreign key order.
func migrateBackup(sqliteDB, postgresDB *gorm.DB, logger *slog.Logger) error {
	tx := postgresDB.Begin()

	tables := []struct {
		name    string
		migrate func(src, dst *gorm.DB, logger *slog.Logger) error
	}{
		{"depot_infos", migrateTable[model.DepotInfo]},
		{"depots", migrateTable[model.Depot]},
		{"service_days", migrateTable[model.ServiceDay]},
		{"routes", migrateTable[model.Route]},
		{"vehicles", migrateTable[model.Vehicle]},
		{"vehicle_states", migrateTable[model.VehicleStateRow]},
		{"position_records", migrateTable[model.PositionRecord]},
		{"journeys", migrateTable[model.Journey]},
		{"boarding_events", migrateTable[model.BoardingEvent]},
		{"depot_performances", migrateTable[model.DepotPerformance]},
	}
	for _, t := range tables {
		if err := t.migrate(sqliteDB, tx, logger); err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating %s: %w", t.name, err)
		}
	}

	return tx.Commit().Error
}

// migrateTable copies all rows of one model between databases,
// skipping rows that already exist.
func migrateTable[M any](src, dst *gorm.DB, logger *slog.Logger) error {
	var m M
	var rows []M
	if err := src.Model(&m).Find(&rows).Error; err != nil {
		return err
	}
	logger.Info("Found records", "count", len(rows), "model", fmt.Sprintf("%T", m))
	if len(rows) == 0 {
		return nil
	}

	err := dst.Model(&m).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 1000).Error
	if err != nil {
		return err
	}
	return nil
}
