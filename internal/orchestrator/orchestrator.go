// Package orchestrator wires the depot queue, the dispatch protocol, and
// the per-vehicle navigation engines into one running depot. It owns the
// boarding generator and one event-drain goroutine per vehicle; all
// cross-component effects (dispatch, re-queue, telemetry) happen here.
package orchestrator

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zrfleet/depotsim/internal/boarding"
	"github.com/zrfleet/depotsim/internal/cache"
	"github.com/zrfleet/depotsim/internal/depot"
	"github.com/zrfleet/depotsim/internal/dispatch"
	"github.com/zrfleet/depotsim/internal/dispatcher"
	"github.com/zrfleet/depotsim/internal/kinematic"
	"github.com/zrfleet/depotsim/internal/logging"
	"github.com/zrfleet/depotsim/internal/nav"
	"github.com/zrfleet/depotsim/internal/queue"
	"github.com/zrfleet/depotsim/internal/util"
	"github.com/zrfleet/depotsim/internal/worker"
	"github.com/zrfleet/depotsim/pkg/core"
)

const defaultDispatchTimeout = 10 * time.Second

// KinematicSource is a kinematic source the orchestrator can drive through
// a cycle: reset before dispatch, started with the engine, stopped when the
// vehicle is back at the depot.
type KinematicSource interface {
	kinematic.Source
	Reset()
	Start()
	Stop()
}

// KinematicFactory builds one kinematic source per vehicle.
type KinematicFactory func(registration string) KinematicSource

// Dependencies holds all collaborators. Everything is injected; the
// orchestrator keeps no package-level state.
type Dependencies struct {
	Depot      *depot.Manager
	Dispatch   *dispatch.Service
	Boarding   boarding.Source
	Kinematics KinematicFactory
	Vehicles   *cache.VehicleCache
	Routes     *cache.RouteCache
	Bus        *dispatcher.Dispatcher
	LogManager *logging.SlogManager
	NavConfig  nav.Config

	// Boarding loop sleep bounds.
	BoardingMinInterval time.Duration
	BoardingMaxInterval time.Duration
	DispatchTimeout     time.Duration
	Rand                *rand.Rand
}

// vehicleRuntime groups one vehicle's engine, its kinematic source, the
// tick-keyed position track for the current cycle, and the drain
// goroutine's stop channel.
type vehicleRuntime struct {
	engine   *nav.Engine
	source   KinematicSource
	track    *queue.Timeline[core.PositionSample]
	lastTick atomic.Uint64
	stop     chan struct{}
}

// Orchestrator runs one depot.
type Orchestrator struct {
	deps Dependencies

	mu       sync.Mutex
	runtimes map[string]*vehicleRuntime

	totalBoarded  cache.SafeCounter
	totalJourneys cache.SafeCounter

	runMu     sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
	drainWg   sync.WaitGroup
}

// New creates an orchestrator. Zero interval/timeout fields fall back to
// the depot defaults (3-8s boarding, 10s dispatch timeout).
func New(deps Dependencies) *Orchestrator {
	if deps.BoardingMinInterval <= 0 {
		deps.BoardingMinInterval = 3 * time.Second
	}
	if deps.BoardingMaxInterval < deps.BoardingMinInterval {
		deps.BoardingMaxInterval = deps.BoardingMinInterval + 5*time.Second
	}
	if deps.DispatchTimeout <= 0 {
		deps.DispatchTimeout = defaultDispatchTimeout
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Orchestrator{
		deps:     deps,
		runtimes: make(map[string]*vehicleRuntime),
	}
}

// AddVehicle registers a vehicle: depot enqueue, cache entry, navigation
// engine and kinematic source, armed route-dispatch callback, and the
// event-drain goroutine.
func (o *Orchestrator) AddVehicle(v core.Vehicle) bool {
	log := o.deps.LogManager.Logger()

	if _, ok := o.deps.Depot.AddVehicle(v.Registration, v.Capacity); !ok {
		return false
	}
	o.deps.Vehicles.Add(v)

	source := o.deps.Kinematics(v.Registration)
	engine := nav.NewEngine(v.Registration, o.deps.NavConfig, source, log)

	rt := &vehicleRuntime{
		engine: engine,
		source: source,
		track:  queue.NewTimeline[core.PositionSample](),
		stop:   make(chan struct{}),
	}
	o.mu.Lock()
	o.runtimes[v.Registration] = rt
	o.mu.Unlock()

	o.deps.Dispatch.RegisterRouteDispatchCallback(v.Registration, o.onRouteDispatched)

	o.drainWg.Add(1)
	go o.drainEvents(rt)

	o.publishState(v.Registration, engine.State())
	return true
}

// onRouteDispatched is the armed callback: route in, vehicle out. Any
// failure leaves the vehicle FULL with the callback re-armed so a later
// assignment can still move it.
func (o *Orchestrator) onRouteDispatched(vehicleID string, route *core.RouteDescriptor) {
	log := o.deps.LogManager.Logger()

	o.mu.Lock()
	rt, ok := o.runtimes[vehicleID]
	o.mu.Unlock()
	if !ok {
		log.Warn("Route assigned to unknown vehicle", "vehicle", vehicleID)
		return
	}

	if !rt.engine.LoadRoute(route) {
		log.Error("Route load rejected, vehicle stays full",
			"vehicle", vehicleID,
			"route", route.RouteID)
		o.deps.Dispatch.RegisterRouteDispatchCallback(vehicleID, o.onRouteDispatched)
		return
	}
	if !o.deps.Depot.DispatchVehicle(vehicleID, route) {
		log.Error("Depot dispatch refused, vehicle stays full",
			"vehicle", vehicleID,
			"route", route.RouteID)
		o.deps.Dispatch.RegisterRouteDispatchCallback(vehicleID, o.onRouteDispatched)
		return
	}

	if o.deps.Routes != nil {
		o.deps.Routes.Add(*route)
	}

	status, _ := o.deps.Depot.Status(vehicleID)
	rt.engine.SetPassengers(status.Passengers)
	// Tick counters are cycle-local, so the track restarts with the engine.
	rt.track.Reset()
	rt.source.Reset()
	rt.source.Start()
	if !rt.engine.StartEngine() {
		log.Error("Engine start failed after dispatch", "vehicle", vehicleID)
		rt.source.Stop()
		return
	}

	o.publishState(vehicleID, rt.engine.State())
}

// drainEvents forwards one engine's event streams into the depot state,
// the dispatch telemetry, and the bus. Runs until Stop.
func (o *Orchestrator) drainEvents(rt *vehicleRuntime) {
	defer o.drainWg.Done()
	id := rt.engine.VehicleID()

	for {
		select {
		case <-rt.stop:
			return

		case tr := <-rt.engine.Transitions().Receive():
			o.handleTransition(id, tr)

		case sample := <-rt.engine.Positions().Receive():
			rt.track.Set(sample.Tick, sample)
			rt.lastTick.Store(sample.Tick)
			routeID := ""
			if route := rt.engine.Route(); route != nil {
				routeID = route.RouteID
			}
			o.deps.Bus.Publish(worker.TopicPositions, worker.PositionUpdate{
				Sample:  sample,
				RouteID: routeID,
				Nav:     rt.engine.State(),
			})

		case summary := <-rt.engine.Completions().Receive():
			o.handleCompletion(rt, summary)
		}
	}
}

func (o *Orchestrator) handleTransition(id string, tr core.StateTransition) {
	o.deps.Depot.ApplyNavigationState(id, tr.To)
	if tr.To == core.NavAtDestination {
		o.deps.Depot.DestinationArrived(id)
	}

	if status, ok := o.deps.Depot.Status(id); ok {
		ctx, cancel := context.WithTimeout(context.Background(), o.deps.DispatchTimeout)
		o.deps.Dispatch.UpdateVehicleState(ctx, id, status.State, tr.To)
		cancel()

		o.deps.Bus.Publish(worker.TopicVehicleState, worker.StateUpdate{
			Status: status,
			Nav:    tr.To,
		})
	}
}

func (o *Orchestrator) handleCompletion(rt *vehicleRuntime, summary core.JourneySummary) {
	id := rt.engine.VehicleID()
	log := o.deps.LogManager.Logger()

	rt.source.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), o.deps.DispatchTimeout)
	o.deps.Dispatch.NotifyJourneyCompleted(ctx, core.JourneyReport{
		VehicleID:   summary.VehicleID,
		Status:      string(core.StateCompleting),
		RouteID:     summary.RouteID,
		Passengers:  summary.Passengers,
		DepartedAt:  summary.DepartedAt,
		CompletedAt: summary.CompletedAt,
		Timestamp:   time.Now().UTC(),
	})
	cancel()

	if !o.deps.Depot.VehicleCompletedJourney(id) {
		log.Warn("Completion refused by depot", "vehicle", id)
	}
	o.totalJourneys.Inc()

	// Re-arm for the next cycle.
	o.deps.Dispatch.RegisterRouteDispatchCallback(id, o.onRouteDispatched)

	o.deps.Bus.Publish(worker.TopicJourneys, summary)
	o.publishState(id, rt.engine.State())
}

// boardingLoop is the depot's single passenger source: sleep a jittered
// interval, board a batch onto the loading vehicle, notify the authority
// when that fills it.
func (o *Orchestrator) boardingLoop(stop chan struct{}) {
	defer o.wg.Done()
	log := o.deps.LogManager.Logger()

	for {
		interval := util.Jitter(o.deps.Rand, o.deps.BoardingMinInterval, o.deps.BoardingMaxInterval)
		select {
		case <-stop:
			return
		case <-time.After(interval):
		}

		id := o.deps.Depot.ActiveLoadingVehicle()
		if id == "" {
			continue
		}

		count := o.deps.Boarding.PassengerCount()
		if count <= 0 {
			continue
		}

		before, _ := o.deps.Depot.Status(id)
		becameFull := o.deps.Depot.BoardPassengers(id, count)
		after, ok := o.deps.Depot.Status(id)
		if !ok {
			continue
		}

		boarded := after.Passengers - before.Passengers
		if boarded <= 0 {
			continue
		}
		o.totalBoarded.Add(boarded)

		o.deps.Bus.Publish(worker.TopicBoardings, worker.Boarding{
			VehicleID:    id,
			Count:        boarded,
			TotalOnBoard: after.Passengers,
			Capacity:     after.Capacity,
		})
		o.deps.Bus.Publish(worker.TopicVehicleState, worker.StateUpdate{
			Status: after,
			Nav:    o.navState(id),
		})

		if becameFull {
			ctx, cancel := context.WithTimeout(context.Background(), o.deps.DispatchTimeout)
			delivered := o.deps.Dispatch.NotifyVehicleFull(ctx, id, after.Passengers, after.Capacity)
			cancel()
			if !delivered {
				log.Warn("Full notice undeliverable, vehicle stays full", "vehicle", id)
			}
		}
	}
}

func (o *Orchestrator) navState(id string) core.NavigationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rt, ok := o.runtimes[id]; ok {
		return rt.engine.State()
	}
	return core.NavIdle
}

func (o *Orchestrator) publishState(id string, navState core.NavigationState) {
	if status, ok := o.deps.Depot.Status(id); ok {
		o.deps.Bus.Publish(worker.TopicVehicleState, worker.StateUpdate{
			Status: status,
			Nav:    navState,
		})
	}
}

// DepotStatus aggregates the queue snapshot, the navigation map, the last
// known fix per moving vehicle, and the running tallies.
func (o *Orchestrator) DepotStatus() core.DepotStatus {
	navStates := make(map[string]core.NavigationState)
	positions := make(map[string]core.PositionSample)
	o.mu.Lock()
	for id, rt := range o.runtimes {
		navStates[id] = rt.engine.State()
		if rt.track.Len() > 0 {
			tick := rt.lastTick.Load()
			if sample, err := rt.track.At(tick, tick); err == nil {
				positions[id] = sample
			}
		}
	}
	o.mu.Unlock()

	return core.DepotStatus{
		Depot:         o.deps.Depot.Name(),
		GeneratedAt:   time.Now().UTC(),
		QueueLength:   o.deps.Depot.QueueLength(),
		ActiveLoading: o.deps.Depot.ActiveLoadingVehicle(),
		Vehicles:      o.deps.Depot.Snapshot(),
		Navigation:    navStates,
		Positions:     positions,
		TotalBoarded:  o.totalBoarded.Value(),
		TotalJourneys: o.totalJourneys.Value(),
	}
}

// TotalJourneys returns the completed-journey tally.
func (o *Orchestrator) TotalJourneys() int {
	return o.totalJourneys.Value()
}

// Start launches the boarding generator.
func (o *Orchestrator) Start() {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	if o.isRunning {
		return
	}
	o.isRunning = true
	o.stopChan = make(chan struct{})

	o.wg.Add(1)
	go o.boardingLoop(o.stopChan)
}

// Stop halts boarding, stops every engine with its bounded join, stops the
// kinematic sources, and closes the event drains.
func (o *Orchestrator) Stop() {
	o.runMu.Lock()
	if !o.isRunning {
		o.runMu.Unlock()
		return
	}
	o.isRunning = false
	close(o.stopChan)
	o.runMu.Unlock()
	o.wg.Wait()

	o.mu.Lock()
	runtimes := make([]*vehicleRuntime, 0, len(o.runtimes))
	for _, rt := range o.runtimes {
		runtimes = append(runtimes, rt)
	}
	o.mu.Unlock()

	for _, rt := range runtimes {
		rt.engine.StopEngine()
		rt.source.Stop()
	}
	for _, rt := range runtimes {
		close(rt.stop)
	}
	o.drainWg.Wait()
}
