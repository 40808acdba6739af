// internal/storage/gormdb/gormdb.go
package gormdb

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/zrfleet/depotsim/internal/database"
	"github.com/zrfleet/depotsim/internal/model"
)

// Backend records service day data through GORM. It connects to Postgres
// and falls back to an in-memory SQLite database when Postgres is
// unreachable.
type Backend struct {
	manager      *database.Manager
	db           *gorm.DB
	logger       zerolog.Logger
	serviceDayID atomic.Uint64
}

// New creates a backend that will connect via the given manager on Init.
func New(manager *database.Manager, logger zerolog.Logger) *Backend {
	return &Backend{
		manager: manager,
		logger:  logger,
	}
}

// NewWithDB creates a backend over an already-open connection. Used in tests.
func NewWithDB(db *gorm.DB, logger zerolog.Logger) *Backend {
	return &Backend{
		db:     db,
		logger: logger,
	}
}

// Init connects and migrates the schema.
func (b *Backend) Init() error {
	if b.db != nil {
		return b.db.AutoMigrate(model.DatabaseModelsSQLite...)
	}

	if b.manager == nil {
		return fmt.Errorf("no database manager configured")
	}
	if err := b.manager.Connect(); err != nil {
		return err
	}
	if err := b.manager.Setup(); err != nil {
		return err
	}
	b.db = b.manager.DB
	return nil
}

// Close shuts down the underlying connection.
func (b *Backend) Close() error {
	if b.manager != nil && b.manager.SqlDB != nil {
		return b.manager.SqlDB.Close()
	}
	if b.db != nil {
		sqlDB, err := b.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// StartServiceDay inserts the depot (if new) and the service day row,
// assigning database IDs to the passed pointers.
func (b *Backend) StartServiceDay(day *model.ServiceDay, depot *model.Depot) error {
	created, err := depot.GetOrInsert(b.db)
	if err != nil {
		return fmt.Errorf("failed to get or insert depot: %w", err)
	}
	if created {
		b.logger.Info().Str("depot", depot.Name).Msg("Inserted new depot")
	}

	day.DepotID = depot.ID
	if err := b.db.Create(day).Error; err != nil {
		return fmt.Errorf("failed to create service day: %w", err)
	}
	b.serviceDayID.Store(uint64(day.ID))

	b.logger.Info().
		Uint("serviceDayId", day.ID).
		Str("depot", depot.Name).
		Msg("Service day started")
	return nil
}

// EndServiceDay stamps the end time on the current service day.
func (b *Backend) EndServiceDay() error {
	id := uint(b.serviceDayID.Load())
	if id == 0 {
		return nil
	}

	err := b.db.Model(&model.ServiceDay{}).
		Where("id = ?", id).
		Update("end_time", sql.NullTime{Time: time.Now().UTC(), Valid: true}).Error
	if err != nil {
		return fmt.Errorf("failed to close service day: %w", err)
	}

	if b.manager != nil && b.manager.ShouldSaveLocal {
		if err := b.manager.DumpMemoryToDisk(); err != nil {
			b.logger.Error().Err(err).Msg("Failed to dump local DB to disk")
		}
	}
	return nil
}

// AddVehicle inserts a vehicle row for the current service day.
func (b *Backend) AddVehicle(v model.Vehicle) error {
	v.ServiceDayID = uint(b.serviceDayID.Load())
	return b.db.Create(&v).Error
}

// RecordVehicleStates writes a batch of state rows.
func (b *Backend) RecordVehicleStates(rows []model.VehicleStateRow) error {
	if len(rows) == 0 {
		return nil
	}
	id := uint(b.serviceDayID.Load())
	for i := range rows {
		if rows[i].ServiceDayID == 0 {
			rows[i].ServiceDayID = id
		}
	}
	return b.createInBatches(rows, "vehicle states")
}

// RecordPositions writes a batch of position rows.
func (b *Backend) RecordPositions(rows []model.PositionRecord) error {
	if len(rows) == 0 {
		return nil
	}
	id := uint(b.serviceDayID.Load())
	for i := range rows {
		if rows[i].ServiceDayID == 0 {
			rows[i].ServiceDayID = id
		}
	}
	return b.createInBatches(rows, "positions")
}

// RecordJourneys writes a batch of completed journeys.
func (b *Backend) RecordJourneys(rows []model.Journey) error {
	if len(rows) == 0 {
		return nil
	}
	id := uint(b.serviceDayID.Load())
	for i := range rows {
		if rows[i].ServiceDayID == 0 {
			rows[i].ServiceDayID = id
		}
	}
	return b.createInBatches(rows, "journeys")
}

// RecordBoardings writes a batch of boarding events.
func (b *Backend) RecordBoardings(rows []model.BoardingEvent) error {
	if len(rows) == 0 {
		return nil
	}
	id := uint(b.serviceDayID.Load())
	for i := range rows {
		if rows[i].ServiceDayID == 0 {
			rows[i].ServiceDayID = id
		}
	}
	return b.createInBatches(rows, "boardings")
}

// RecordPerformance writes a batch of performance snapshots.
func (b *Backend) RecordPerformance(rows []model.DepotPerformance) error {
	if len(rows) == 0 {
		return nil
	}
	id := uint(b.serviceDayID.Load())
	for i := range rows {
		if rows[i].ServiceDayID == 0 {
			rows[i].ServiceDayID = id
		}
	}
	return b.createInBatches(rows, "performance")
}

// SaveRoute upserts a route learned from a dispatch and links it to the
// current service day.
func (b *Backend) SaveRoute(route *model.Route) error {
	created, err := route.GetOrInsert(b.db)
	if err != nil {
		return fmt.Errorf("failed to get or insert route: %w", err)
	}
	if created {
		b.logger.Debug().Str("routeId", route.RouteID).Msg("Inserted new route")
	}

	id := uint(b.serviceDayID.Load())
	if id == 0 {
		return nil
	}
	day := model.ServiceDay{Model: gorm.Model{ID: id}}
	return b.db.Model(&day).Association("Routes").Append(route)
}

func (b *Backend) createInBatches(rows interface{}, label string) error {
	start := time.Now()
	tx := b.db.Begin()
	if err := tx.CreateInBatches(rows, 1000).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to write %s: %w", label, err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit %s: %w", label, err)
	}
	b.logger.Trace().
		Str("batch", label).
		Dur("duration", time.Since(start)).
		Msg("Wrote batch")
	return nil
}
