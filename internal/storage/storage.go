// internal/storage/storage.go
package storage

import "github.com/zrfleet/depotsim/internal/model"

// Backend is the interface all storage implementations must satisfy.
// The Record methods take batches; the sink workers drain their queues
// and hand over whole slices per flush.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Service day management. StartServiceDay assigns IDs to the passed
	// pointers.
	StartServiceDay(day *model.ServiceDay, depot *model.Depot) error
	EndServiceDay() error

	// Fleet registration
	AddVehicle(v model.Vehicle) error

	// Batch recording
	RecordVehicleStates(rows []model.VehicleStateRow) error
	RecordPositions(rows []model.PositionRecord) error
	RecordJourneys(rows []model.Journey) error
	RecordBoardings(rows []model.BoardingEvent) error
	RecordPerformance(rows []model.DepotPerformance) error
}

// Exportable is an optional interface for backends that produce a file
// artifact when the service day ends.
type Exportable interface {
	GetExportedFilePath() string
}
