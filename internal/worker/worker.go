// Package worker drains the event bus into the storage backend. Handlers
// convert bus payloads into GORM rows and buffer them; a single flush loop
// writes whole batches on a fixed interval.
package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/zrfleet/depotsim/internal/influx"
	"github.com/zrfleet/depotsim/internal/logging"
	"github.com/zrfleet/depotsim/internal/model"
	"github.com/zrfleet/depotsim/internal/queue"
	"github.com/zrfleet/depotsim/internal/session"
	"github.com/zrfleet/depotsim/internal/storage"
)

// Queues buffers rows between the bus handlers and the flush loop.
type Queues struct {
	VehicleStates *queue.Queue[model.VehicleStateRow]
	Positions     *queue.Queue[model.PositionRecord]
	Journeys      *queue.Queue[model.Journey]
	Boardings     *queue.Queue[model.BoardingEvent]
	Performance   *queue.Queue[model.DepotPerformance]
}

// NewQueues creates empty write buffers.
func NewQueues() *Queues {
	return &Queues{
		VehicleStates: queue.New[model.VehicleStateRow](),
		Positions:     queue.New[model.PositionRecord](),
		Journeys:      queue.New[model.Journey](),
		Boardings:     queue.New[model.BoardingEvent](),
		Performance:   queue.New[model.DepotPerformance](),
	}
}

// Lengths snapshots the buffer depths for the performance monitor.
func (q *Queues) Lengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{
		VehicleStates: uint16(q.VehicleStates.Len()),
		Positions:     uint16(q.Positions.Len()),
		Journeys:      uint16(q.Journeys.Len()),
		Boardings:     uint16(q.Boardings.Len()),
	}
}

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	SessionContext *session.Context
	LogManager     *logging.SlogManager
	Influx         *influx.Manager
	DepotName      string
}

// Manager owns the write buffers and the flush loop.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	queues  *Queues

	writeInterval time.Duration
	lastWriteNs   atomic.Int64

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewManager creates a new worker manager.
func NewManager(deps Dependencies, backend storage.Backend, writeInterval time.Duration) *Manager {
	if writeInterval <= 0 {
		writeInterval = 5 * time.Second
	}
	return &Manager{
		deps:          deps,
		backend:       backend,
		queues:        NewQueues(),
		writeInterval: writeInterval,
	}
}

// Queues exposes the write buffers.
func (m *Manager) Queues() *Queues {
	return m.queues
}

// Start launches the flush loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		return
	}
	m.isRunning = true
	m.stopChan = make(chan struct{})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.writeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Flush()
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Stop halts the flush loop and drains whatever is still buffered.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()
	m.Flush()
}

// Flush writes all buffered rows to the backend.
func (m *Manager) Flush() {
	start := time.Now()
	log := m.deps.LogManager.Logger()

	if rows := m.queues.VehicleStates.GetAndEmpty(); len(rows) > 0 {
		if err := m.backend.RecordVehicleStates(rows); err != nil {
			log.Error("Failed to write vehicle states", "count", len(rows), "error", err)
		}
	}
	if rows := m.queues.Positions.GetAndEmpty(); len(rows) > 0 {
		if err := m.backend.RecordPositions(rows); err != nil {
			log.Error("Failed to write positions", "count", len(rows), "error", err)
		}
	}
	if rows := m.queues.Journeys.GetAndEmpty(); len(rows) > 0 {
		if err := m.backend.RecordJourneys(rows); err != nil {
			log.Error("Failed to write journeys", "count", len(rows), "error", err)
		}
	}
	if rows := m.queues.Boardings.GetAndEmpty(); len(rows) > 0 {
		if err := m.backend.RecordBoardings(rows); err != nil {
			log.Error("Failed to write boardings", "count", len(rows), "error", err)
		}
	}
	if rows := m.queues.Performance.GetAndEmpty(); len(rows) > 0 {
		if err := m.backend.RecordPerformance(rows); err != nil {
			log.Error("Failed to write performance rows", "count", len(rows), "error", err)
		}
	}

	m.lastWriteNs.Store(int64(time.Since(start)))
}

// GetLastDBWriteDuration returns the duration of the last flush cycle.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	return time.Duration(m.lastWriteNs.Load())
}

func (m *Manager) serviceDayID() uint {
	if day := m.deps.SessionContext.GetServiceDay(); day != nil {
		return day.ID
	}
	return 0
}
