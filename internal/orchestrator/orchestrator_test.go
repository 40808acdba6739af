package orchestrator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zrfleet/depotsim/internal/cache"
	"github.com/zrfleet/depotsim/internal/depot"
	"github.com/zrfleet/depotsim/internal/dispatch"
	"github.com/zrfleet/depotsim/internal/dispatcher"
	"github.com/zrfleet/depotsim/internal/logging"
	"github.com/zrfleet/depotsim/internal/nav"
	"github.com/zrfleet/depotsim/pkg/core"
)

// rampSource advances distance at a fixed rate while running, fast enough
// to finish a route in a few ticks.
type rampSource struct {
	mu       sync.Mutex
	running  bool
	start    time.Time
	base     float64
	kmPerSec float64
}

func (s *rampSource) Latest() core.KinematicSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	dist := s.base
	if s.running {
		dist += time.Since(s.start).Seconds() * s.kmPerSec
	}
	return core.KinematicSample{
		CumulativeDistanceKm: dist,
		SpeedKph:             s.kmPerSec * 3600,
		Timestamp:            time.Now(),
	}
}

func (s *rampSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = 0
	s.running = false
}

func (s *rampSource) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.start = time.Now()
		s.running = true
	}
}

func (s *rampSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.base += time.Since(s.start).Seconds() * s.kmPerSec
		s.running = false
	}
}

// fixedBoarding always boards the same batch size.
type fixedBoarding struct{ n int }

func (f fixedBoarding) PassengerCount() int { return f.n }

func testOrchestrator(t *testing.T, stub *dispatch.Stub) *Orchestrator {
	t.Helper()

	bus, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}

	logManager := logging.NewSlogManager()
	service := dispatch.NewService(stub, dispatch.Policy{}, logManager.Logger())

	return New(Dependencies{
		Depot:      depot.NewManager("Bridgetown River Terminal", logManager.Logger()),
		Dispatch:   service,
		Boarding:   fixedBoarding{n: 2},
		Kinematics: func(string) KinematicSource { return &rampSource{kmPerSec: 1000} },
		Vehicles:   cache.NewVehicleCache(),
		Routes:     cache.NewRouteCache(),
		Bus:        bus,
		LogManager: logManager,
		NavConfig: nav.Config{
			TickInterval:   2 * time.Millisecond,
			LoiterDuration: 10 * time.Millisecond,
			SettleDelay:    5 * time.Millisecond,
			StopTimeout:    time.Second,
		},
		BoardingMinInterval: time.Millisecond,
		BoardingMaxInterval: 2 * time.Millisecond,
		DispatchTimeout:     time.Second,
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestFullCycle(t *testing.T) {
	stub := dispatch.NewStub(nil)
	o := testOrchestrator(t, stub)

	for _, reg := range []string{"ZR-101", "ZR-102"} {
		if !o.AddVehicle(core.Vehicle{Registration: reg, Capacity: 4}) {
			t.Fatalf("failed to add %s", reg)
		}
	}

	o.Start()
	defer o.Stop()

	waitFor(t, 10*time.Second, func() bool {
		return o.TotalJourneys() >= 1
	}, "expected at least one completed journey")

	// The dispatched vehicle must rejoin the queue tail.
	waitFor(t, 5*time.Second, func() bool {
		return o.deps.Depot.QueueLength() == 2
	}, "expected both vehicles queued again after completion")

	if stub.CallCount("NotifyVehicleFull") == 0 {
		t.Error("expected full notice sent to authority")
	}
	if stub.CallCount("NotifyJourneyCompleted") == 0 {
		t.Error("expected journey report sent to authority")
	}

	status := o.DepotStatus()
	if status.Depot != "Bridgetown River Terminal" {
		t.Errorf("unexpected depot name %q", status.Depot)
	}
	if status.TotalBoarded < 4 {
		t.Errorf("expected at least 4 boarded passengers, got %d", status.TotalBoarded)
	}
	if len(status.Navigation) != 2 {
		t.Errorf("expected 2 navigation entries, got %d", len(status.Navigation))
	}
	if len(status.Positions) == 0 {
		t.Error("expected a tracked position after a completed journey")
	}
}

func TestAddVehicleRejectsDuplicates(t *testing.T) {
	o := testOrchestrator(t, dispatch.NewStub(nil))

	if !o.AddVehicle(core.Vehicle{Registration: "ZR-101", Capacity: 4}) {
		t.Fatal("first add should succeed")
	}
	if o.AddVehicle(core.Vehicle{Registration: "ZR-101", Capacity: 4}) {
		t.Error("duplicate registration should be rejected")
	}
	if o.AddVehicle(core.Vehicle{Registration: "ZR-102", Capacity: 0}) {
		t.Error("non-positive capacity should be rejected")
	}

	o.Start()
	o.Stop()
}

func TestTransportFailureLeavesVehicleFull(t *testing.T) {
	stub := dispatch.NewStub(nil)
	stub.FailWith("NotifyVehicleFull", errors.New("authority unreachable"))
	o := testOrchestrator(t, stub)

	o.AddVehicle(core.Vehicle{Registration: "ZR-101", Capacity: 2})
	o.Start()
	defer o.Stop()

	waitFor(t, 5*time.Second, func() bool {
		status, ok := o.deps.Depot.Status("ZR-101")
		return ok && status.State == core.StateFull
	}, "expected vehicle to reach FULL")

	// Give the boarding loop a few more rounds; the vehicle must stay put.
	time.Sleep(50 * time.Millisecond)
	status, _ := o.deps.Depot.Status("ZR-101")
	if status.State != core.StateFull {
		t.Errorf("expected vehicle to stay FULL, got %s", status.State)
	}
	if nav := o.navState("ZR-101"); nav != core.NavIdle {
		t.Errorf("expected engine IDLE, got %s", nav)
	}
	if o.TotalJourneys() != 0 {
		t.Errorf("expected no journeys, got %d", o.TotalJourneys())
	}
}

func TestDeferredAssignmentDispatchesLater(t *testing.T) {
	stub := dispatch.NewStub(nil)
	stub.SetInlineAssignment(false)
	o := testOrchestrator(t, stub)

	o.AddVehicle(core.Vehicle{Registration: "ZR-101", Capacity: 2})
	o.Start()
	defer o.Stop()

	waitFor(t, 5*time.Second, func() bool {
		status, ok := o.deps.Depot.Status("ZR-101")
		return ok && status.State == core.StateFull
	}, "expected vehicle to reach FULL")

	// Authority pushes the assignment out of band.
	route := dispatch.DefaultRoutes[0]
	if !o.deps.Dispatch.DeliverRoute("ZR-101", &route) {
		t.Fatal("expected armed callback to accept pushed route")
	}

	waitFor(t, 10*time.Second, func() bool {
		return o.TotalJourneys() >= 1
	}, "expected pushed assignment to complete a journey")
}
