// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zrfleet/depotsim/internal/model"
)

// DepotExport is the root JSON structure written when a service day ends.
type DepotExport struct {
	DepotName    string                   `json:"depotName"`
	Terminal     string                   `json:"terminal"`
	StartTime    string                   `json:"startTime"`
	EndTime      string                   `json:"endTime,omitempty"`
	FleetSize    int                      `json:"fleetSize"`
	Capacity     int                      `json:"capacity"`
	Seed         int64                    `json:"seed"`
	Vehicles     []VehicleJSON            `json:"vehicles"`
	Journeys     []model.Journey          `json:"journeys"`
	Boardings    []model.BoardingEvent    `json:"boardings"`
	Performances []model.DepotPerformance `json:"performances"`
}

// VehicleJSON groups one vehicle with its recorded time series.
type VehicleJSON struct {
	Registration string                  `json:"registration"`
	Callsign     string                  `json:"callsign,omitempty"`
	Capacity     int                     `json:"capacity"`
	States       []model.VehicleStateRow `json:"states"`
	Positions    []model.PositionRecord  `json:"positions"`
}

// exportJSON writes the service day data to a (optionally gzipped) JSON
// file. Caller holds the lock.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	depotName := strings.ReplaceAll(b.depot.Name, " ", "_")
	depotName = strings.ReplaceAll(depotName, ":", "_")
	timestamp := b.day.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", depotName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", depotName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() DepotExport {
	export := DepotExport{
		DepotName:    b.depot.Name,
		Terminal:     b.depot.Terminal,
		StartTime:    b.day.StartTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		FleetSize:    b.day.FleetSize,
		Capacity:     b.day.Capacity,
		Seed:         b.day.Seed,
		Vehicles:     make([]VehicleJSON, 0, len(b.vehicles)),
		Journeys:     b.journeys,
		Boardings:    b.boardings,
		Performances: b.performances,
	}
	if b.day.EndTime.Valid {
		export.EndTime = b.day.EndTime.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if export.Journeys == nil {
		export.Journeys = make([]model.Journey, 0)
	}
	if export.Boardings == nil {
		export.Boardings = make([]model.BoardingEvent, 0)
	}
	if export.Performances == nil {
		export.Performances = make([]model.DepotPerformance, 0)
	}

	for _, record := range b.vehicles {
		export.Vehicles = append(export.Vehicles, VehicleJSON{
			Registration: record.Vehicle.Registration,
			Callsign:     record.Vehicle.Callsign,
			Capacity:     record.Vehicle.Capacity,
			States:       record.States,
			Positions:    record.Positions,
		})
	}

	return export
}

func (b *Backend) writeJSON(path string, data DepotExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data DepotExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
