package memory

import (
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrfleet/depotsim/internal/config"
	"github.com/zrfleet/depotsim/internal/model"
)

func testDay(t *testing.T) (*model.ServiceDay, *model.Depot) {
	t.Helper()
	start, err := time.Parse(time.RFC3339, "2026-03-14T06:00:00Z")
	require.NoError(t, err)
	day := &model.ServiceDay{
		StartTime: start,
		FleetSize: 3,
		Capacity:  11,
		Seed:      42,
	}
	depot := &model.Depot{
		Name:     "Bridgetown River Terminal",
		Terminal: "-59.6132,13.0969",
		Parish:   "St. Michael",
	}
	return day, depot
}

func TestStartServiceDayAssignsIDs(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.Init())

	day, depot := testDay(t)
	require.NoError(t, b.StartServiceDay(day, depot))

	assert.NotZero(t, day.ID)
	assert.NotZero(t, depot.ID)
	assert.Equal(t, depot.ID, day.DepotID)
}

func TestRecordsAttachToVehicles(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	day, depot := testDay(t)
	require.NoError(t, b.StartServiceDay(day, depot))

	require.NoError(t, b.AddVehicle(model.Vehicle{
		ServiceDayID: day.ID,
		Registration: "ZR-101",
		Capacity:     11,
	}))

	require.NoError(t, b.RecordVehicleStates([]model.VehicleStateRow{
		{Registration: "ZR-101", State: "QUEUED"},
		{Registration: "ZR-999", State: "QUEUED"}, // unknown, dropped
	}))
	require.NoError(t, b.RecordPositions([]model.PositionRecord{
		{Registration: "ZR-101", Tick: 1},
	}))

	record, ok := b.vehicles["ZR-101"]
	require.True(t, ok)
	assert.Len(t, record.States, 1)
	assert.Len(t, record.Positions, 1)

	_, ok = b.GetVehicle("ZR-999")
	assert.False(t, ok)
}

func TestEndServiceDayWritesJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: false})
	day, depot := testDay(t)
	require.NoError(t, b.StartServiceDay(day, depot))

	require.NoError(t, b.AddVehicle(model.Vehicle{Registration: "ZR-101", Capacity: 11}))
	require.NoError(t, b.RecordJourneys([]model.Journey{
		{Registration: "ZR-101", RouteID: "ZR-11", DurationSec: 1800},
	}))
	require.NoError(t, b.RecordBoardings([]model.BoardingEvent{
		{Registration: "ZR-101", Count: 2, TotalOnBoard: 2, Capacity: 11},
	}))

	day.EndTime = sql.NullTime{Time: day.StartTime.Add(8 * time.Hour), Valid: true}
	require.NoError(t, b.EndServiceDay())

	path := b.GetExportedFilePath()
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".json"))
	assert.Contains(t, filepath.Base(path), "Bridgetown_River_Terminal_20260314_060000")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var export DepotExport
	require.NoError(t, json.Unmarshal(raw, &export))
	assert.Equal(t, "Bridgetown River Terminal", export.DepotName)
	assert.Equal(t, int64(42), export.Seed)
	assert.Equal(t, "2026-03-14T06:00:00Z", export.StartTime)
	assert.Equal(t, "2026-03-14T14:00:00Z", export.EndTime)
	require.Len(t, export.Vehicles, 1)
	assert.Equal(t, "ZR-101", export.Vehicles[0].Registration)
	assert.Len(t, export.Journeys, 1)
	assert.Len(t, export.Boardings, 1)
}

func TestEndServiceDayWritesGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	day, depot := testDay(t)
	require.NoError(t, b.StartServiceDay(day, depot))
	require.NoError(t, b.EndServiceDay())

	path := b.GetExportedFilePath()
	require.True(t, strings.HasSuffix(path, ".json.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export DepotExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "Bridgetown River Terminal", export.DepotName)
	assert.NotNil(t, export.Journeys)
	assert.NotNil(t, export.Boardings)
}

func TestEndServiceDayWithoutStartIsNoop(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.EndServiceDay())
	assert.Empty(t, b.GetExportedFilePath())
}
