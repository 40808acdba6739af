package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/zrfleet/depotsim/internal/logging"
	"github.com/zrfleet/depotsim/internal/model"
	"github.com/zrfleet/depotsim/internal/session"
	"github.com/zrfleet/depotsim/pkg/core"
)

func testStatus() core.DepotStatus {
	return core.DepotStatus{
		Depot:         "Bridgetown River Terminal",
		GeneratedAt:   time.Now().UTC(),
		QueueLength:   4,
		ActiveLoading: "ZR-104",
		Navigation: map[string]core.NavigationState{
			"ZR-101": core.NavEnRoute,
			"ZR-102": core.NavIdle,
			"ZR-103": core.NavReturning,
		},
		TotalBoarded:  22,
		TotalJourneys: 2,
	}
}

func testService(dir string, interval time.Duration) *Service {
	sc := session.NewContext()
	sc.SetServiceDay(
		&model.ServiceDay{Model: gorm.Model{ID: 3}},
		&model.Depot{Name: "Bridgetown River Terminal"},
	)
	return NewService(Dependencies{
		LogManager:     logging.NewSlogManager(),
		SessionContext: sc,
		Status:         testStatus,
		StatusDir:      dir,
		Interval:       interval,
	})
}

func TestBuildSnapshot(t *testing.T) {
	s := testService(t.TempDir(), time.Second)

	lines, perf := s.BuildSnapshot()

	if perf.ServiceDayID != 3 {
		t.Errorf("expected service day 3, got %d", perf.ServiceDayID)
	}
	if perf.QueueLengths.DepotQueue != 4 {
		t.Errorf("expected depot queue 4, got %d", perf.QueueLengths.DepotQueue)
	}
	if perf.QueueLengths.ActiveLoading != 1 {
		t.Errorf("expected active loading 1, got %d", perf.QueueLengths.ActiveLoading)
	}
	// ZR-101 and ZR-103 are active, ZR-102 is idle
	if perf.QueueLengths.EnginesOn != 2 {
		t.Errorf("expected 2 engines on, got %d", perf.QueueLengths.EnginesOn)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 status lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "Bridgetown River Terminal") {
		t.Error("expected depot name in status output")
	}
}

func TestStartWritesStatusFile(t *testing.T) {
	dir := t.TempDir()
	s := testService(dir, 20*time.Millisecond)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("expected monitor running")
	}

	deadline := time.Now().Add(2 * time.Second)
	statusPath := filepath.Join(dir, "status.txt")
	var content []byte
	for time.Now().Before(deadline) {
		content, _ = os.ReadFile(statusPath)
		if len(content) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	if len(content) == 0 {
		t.Fatal("expected status.txt to be written")
	}
	if !strings.Contains(string(content), "Bridgetown River Terminal") {
		t.Error("expected depot name in status file")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := testService(t.TempDir(), time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	s.Stop()
}
