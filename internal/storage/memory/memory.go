// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/zrfleet/depotsim/internal/config"
	"github.com/zrfleet/depotsim/internal/model"
)

// VehicleRecord groups a vehicle with all its time-series data
type VehicleRecord struct {
	Vehicle   model.Vehicle
	States    []model.VehicleStateRow
	Positions []model.PositionRecord
}

// Backend stores service day data in memory and exports to JSON
type Backend struct {
	cfg   config.MemoryConfig
	day   *model.ServiceDay
	depot *model.Depot

	vehicles map[string]*VehicleRecord // keyed by registration

	journeys     []model.Journey
	boardings    []model.BoardingEvent
	performances []model.DepotPerformance

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		vehicles: make(map[string]*VehicleRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartServiceDay begins recording a new service day
func (b *Backend) StartServiceDay(day *model.ServiceDay, depot *model.Depot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	day.ID = b.idCounter
	if depot.ID == 0 {
		b.idCounter++
		depot.ID = b.idCounter
	}
	day.DepotID = depot.ID

	b.day = day
	b.depot = depot

	// Reset all collections
	b.vehicles = make(map[string]*VehicleRecord)
	b.journeys = nil
	b.boardings = nil
	b.performances = nil

	return nil
}

// EndServiceDay finalizes and exports the service day data
func (b *Backend) EndServiceDay() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.day == nil {
		return nil
	}
	return b.exportJSON()
}

// AddVehicle registers a new vehicle
func (b *Backend) AddVehicle(v model.Vehicle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vehicles[v.Registration] = &VehicleRecord{
		Vehicle:   v,
		States:    make([]model.VehicleStateRow, 0),
		Positions: make([]model.PositionRecord, 0),
	}
	return nil
}

// GetVehicle looks up a vehicle by registration
func (b *Backend) GetVehicle(registration string) (*model.Vehicle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.vehicles[registration]; ok {
		return &record.Vehicle, true
	}
	return nil, false
}

// RecordVehicleStates appends state rows to their vehicles
func (b *Backend) RecordVehicleStates(rows []model.VehicleStateRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, row := range rows {
		if record, ok := b.vehicles[row.Registration]; ok {
			record.States = append(record.States, row)
		}
		// silently ignore unknown registrations
	}
	return nil
}

// RecordPositions appends position rows to their vehicles
func (b *Backend) RecordPositions(rows []model.PositionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, row := range rows {
		if record, ok := b.vehicles[row.Registration]; ok {
			record.Positions = append(record.Positions, row)
		}
	}
	return nil
}

// RecordJourneys appends completed journeys
func (b *Backend) RecordJourneys(rows []model.Journey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journeys = append(b.journeys, rows...)
	return nil
}

// RecordBoardings appends boarding events
func (b *Backend) RecordBoardings(rows []model.BoardingEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.boardings = append(b.boardings, rows...)
	return nil
}

// RecordPerformance appends performance snapshots
func (b *Backend) RecordPerformance(rows []model.DepotPerformance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.performances = append(b.performances, rows...)
	return nil
}

// GetExportedFilePath returns the path written by the last export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
