// Package monitor periodically snapshots depot health: queue depths, write
// buffer depths, and last flush duration. Snapshots go to status.txt, the
// performance sink, and optionally InfluxDB.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/zrfleet/depotsim/internal/dispatcher"
	"github.com/zrfleet/depotsim/internal/influx"
	"github.com/zrfleet/depotsim/internal/logging"
	"github.com/zrfleet/depotsim/internal/model"
	"github.com/zrfleet/depotsim/internal/session"
	"github.com/zrfleet/depotsim/internal/worker"
	"github.com/zrfleet/depotsim/pkg/core"
)

// StatusProvider supplies the current depot snapshot.
type StatusProvider func() core.DepotStatus

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	DB             *gorm.DB
	LogManager     *logging.SlogManager
	SessionContext *session.Context
	WorkerManager  *worker.Manager
	Bus            *dispatcher.Dispatcher
	Influx         *influx.Manager
	Status         StatusProvider
	StatusDir      string
	Interval       time.Duration
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// BuildSnapshot assembles the status lines written to status.txt and the
// performance row recorded for the service day.
func (s *Service) BuildSnapshot() (output []string, perf model.DepotPerformance) {
	status := s.deps.Status()

	enginesOn := 0
	for _, nav := range status.Navigation {
		if nav.Active() {
			enginesOn++
		}
	}

	var loading uint16
	if status.ActiveLoading != "" {
		loading = 1
	}
	queuesObj := model.QueueLengths{
		DepotQueue:    uint16(status.QueueLength),
		ActiveLoading: loading,
		EnginesOn:     uint16(enginesOn),
	}

	var writeQueuesObj model.WriteQueueLengths
	var lastWriteMs float32
	if s.deps.WorkerManager != nil {
		writeQueuesObj = s.deps.WorkerManager.Queues().Lengths()
		lastWriteMs = float32(s.deps.WorkerManager.GetLastDBWriteDuration().Milliseconds())
	}

	perf = model.DepotPerformance{
		Time:                time.Now().UTC(),
		ServiceDayID:        s.deps.SessionContext.GetServiceDay().ID,
		QueueLengths:        queuesObj,
		WriteQueueLengths:   writeQueuesObj,
		LastWriteDurationMs: lastWriteMs,
	}

	statusStr, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(statusStr))

	writeQueuesStr, err := json.MarshalIndent(writeQueuesObj, "", "  ")
	if err != nil {
		writeQueuesStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(writeQueuesStr))
	output = append(output, fmt.Sprintf(`{"lastWriteDurationMs": %.1f}`, lastWriteMs))

	return output, perf
}

// ValidateHypertables validates and creates TimescaleDB hypertables for the
// time-series tables. Only meaningful on a Postgres connection with the
// TimescaleDB extension installed.
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	functionName := "validateHypertables"

	for table := range tables {
		hypertable := any(nil)
		s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).Scan(&hypertable)
		if hypertable != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Table %s is already configured`, table), "INFO")
			continue
		}

		queryCreateHypertable := fmt.Sprintf(`
				SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true);
			`, table)
		err := s.deps.DB.Exec(queryCreateHypertable).Error
		if err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to create hypertable for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Created hypertable for %s`, table), "INFO")

		queryCompressHypertable := fmt.Sprintf(`
				ALTER TABLE %s SET (
					timescaledb.compress,
					timescaledb.compress_segmentby = ?);
			`, table)
		err = s.deps.DB.Exec(
			queryCompressHypertable,
			strings.Join(tables[table], ","),
		).Error
		if err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to enable compression for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Enabled hypertable compression for %s`, table), "INFO")
	}
	return nil
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		statusFile, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
		}()

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				if s.deps.SessionContext.GetServiceDay().ID == 0 {
					continue
				}

				statusStr, perf := s.BuildSnapshot()

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}

				logger.Info("Depot status",
					"queue", perf.QueueLengths.DepotQueue,
					"loading", perf.QueueLengths.ActiveLoading,
					"enginesOn", perf.QueueLengths.EnginesOn,
					"lastWriteMs", perf.LastWriteDurationMs)

				if s.deps.Bus != nil {
					s.deps.Bus.Publish(worker.TopicPerformance, perf)
				}

				if s.deps.Influx != nil {
					point := influx.QueuePoint(s.deps.Status())
					if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketDepotMetrics, point); err != nil {
						logger.Warn("Failed to write depot metrics point", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		s.isRunning = false
		close(s.stopChan)
	}
}
