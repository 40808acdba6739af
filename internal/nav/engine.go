// Package nav drives one vehicle through a depot-to-depot route cycle. A
// single worker goroutine owns every state transition; the outside world
// talks to it through LoadRoute/StartEngine/StopEngine and drains typed
// event channels.
package nav

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zrfleet/depotsim/internal/channel"
	"github.com/zrfleet/depotsim/internal/geo"
	"github.com/zrfleet/depotsim/internal/kinematic"
	"github.com/zrfleet/depotsim/pkg/core"
)

const (
	defaultTickInterval   = 100 * time.Millisecond
	defaultLoiterDuration = 5 * time.Minute
	defaultSettleDelay    = 1 * time.Second
	defaultStopTimeout    = 3 * time.Second
	eventBufferSize       = 256
)

// Config tunes one engine. Zero fields fall back to the defaults above.
type Config struct {
	TickInterval   time.Duration
	LoiterDuration time.Duration
	SettleDelay    time.Duration
	StopTimeout    time.Duration
	StopRadiusM    float64
	StopDwell      time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.LoiterDuration <= 0 {
		c.LoiterDuration = defaultLoiterDuration
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = defaultSettleDelay
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = defaultStopTimeout
	}
	return c
}

// Engine is the navigation state machine for one vehicle.
type Engine struct {
	vehicleID string
	cfg       Config
	source    kinematic.Source
	logger    *slog.Logger

	mu         sync.Mutex
	state      core.NavigationState
	route      *core.RouteDescriptor
	outbound   *geo.Path
	inbound    *geo.Path
	passengers int
	departedAt time.Time
	arrivedAt  time.Time

	stopChan   chan struct{}
	stopOnce   *sync.Once
	workerDone chan struct{}
	summarize  *sync.Once

	tick uint64

	transitions channel.Channel[core.StateTransition]
	positions   channel.Channel[core.PositionSample]
	completions channel.Channel[core.JourneySummary]
	dropped     atomic.Uint64
}

// NewEngine creates an IDLE engine reading distance from source.
func NewEngine(vehicleID string, cfg Config, source kinematic.Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		vehicleID:   vehicleID,
		cfg:         cfg.withDefaults(),
		source:      source,
		logger:      logger,
		state:       core.NavIdle,
		transitions: channel.New[core.StateTransition](eventBufferSize),
		positions:   channel.New[core.PositionSample](eventBufferSize),
		completions: channel.New[core.JourneySummary](8),
	}
}

// VehicleID returns the owning vehicle's registration.
func (e *Engine) VehicleID() string {
	return e.vehicleID
}

// State returns the current navigation state.
func (e *Engine) State() core.NavigationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Route returns the loaded route, nil when none.
func (e *Engine) Route() *core.RouteDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.route
}

// SetPassengers records the passenger count carried this cycle, reported in
// the journey summary.
func (e *Engine) SetPassengers(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passengers = n
}

// Transitions is the state-change event stream.
func (e *Engine) Transitions() channel.Receiver[core.StateTransition] {
	return e.transitions
}

// Positions is the interpolated GPS sample stream.
func (e *Engine) Positions() channel.Receiver[core.PositionSample] {
	return e.positions
}

// Completions carries exactly one summary per cycle.
func (e *Engine) Completions() channel.Receiver[core.JourneySummary] {
	return e.completions
}

// DroppedEvents returns how many events were discarded because a consumer
// fell behind.
func (e *Engine) DroppedEvents() uint64 {
	return e.dropped.Load()
}

// LoadRoute stages a route for the next cycle. Only valid while IDLE;
// degenerate polylines are rejected and leave the engine unchanged.
func (e *Engine) LoadRoute(route *core.RouteDescriptor) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != core.NavIdle || route == nil {
		return false
	}
	outbound, err := geo.NewPath(route.Coordinates)
	if err != nil {
		e.logger.Warn("Route rejected", "vehicle", e.vehicleID, "route", route.RouteID, "error", err)
		return false
	}

	e.route = route
	e.outbound = outbound
	e.inbound = outbound.Reverse()
	e.logger.Info("Route loaded",
		"vehicle", e.vehicleID,
		"route", route.RouteID,
		"distanceKm", outbound.TotalKm())
	return true
}

// StartEngine spawns the cycle worker. Fails unless the engine is IDLE with
// a loaded route.
func (e *Engine) StartEngine() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != core.NavIdle || e.route == nil {
		return false
	}

	e.stopChan = make(chan struct{})
	e.stopOnce = &sync.Once{}
	e.workerDone = make(chan struct{})
	e.summarize = &sync.Once{}
	e.departedAt = time.Now()
	e.arrivedAt = time.Time{}
	e.tick = 0

	e.transitionLocked(core.NavEngineStarting)

	go e.run(e.stopChan, e.workerDone, e.summarize)
	return true
}

// StopEngine requests cooperative shutdown and joins the worker with a
// bounded timeout. On timeout the forced-close path resets the engine
// instead of blocking. Idempotent: a stopped engine returns true without a
// second completion event.
func (e *Engine) StopEngine() bool {
	e.mu.Lock()
	if e.state == core.NavIdle {
		e.mu.Unlock()
		return true
	}
	stopOnce := e.stopOnce
	stopChan := e.stopChan
	workerDone := e.workerDone
	summarize := e.summarize
	e.mu.Unlock()

	if stopChan == nil {
		return true
	}
	stopOnce.Do(func() { close(stopChan) })

	select {
	case <-workerDone:
		return true
	case <-time.After(e.cfg.StopTimeout):
	}

	// Worker did not exit in time. Abandon it and force the terminal
	// state; the summarize Once keeps the abandoned worker from emitting
	// a second summary if it ever wakes up.
	e.logger.Error("Engine worker join timed out, forcing close",
		"vehicle", e.vehicleID,
		"timeout", e.cfg.StopTimeout)

	e.mu.Lock()
	if e.state != core.NavIdle && e.state != core.NavEngineStopping {
		e.transitionLocked(core.NavEngineStopping)
	}
	if e.state == core.NavEngineStopping {
		e.transitionLocked(core.NavIdle)
	}
	e.emitSummaryLocked(summarize, true)
	e.route = nil
	e.outbound = nil
	e.inbound = nil
	e.mu.Unlock()
	return true
}

// run is the per-cycle worker. It owns all transitions after
// ENGINE_STARTING and exits once the engine returns to IDLE.
func (e *Engine) run(stop chan struct{}, done chan struct{}, summarize *sync.Once) {
	defer close(done)

	// Engine settle before pulling out of the loading bay.
	select {
	case <-stop:
		e.shutdown(summarize, stop)
		return
	case <-time.After(e.cfg.SettleDelay):
	}

	e.mu.Lock()
	e.transitionLocked(core.NavDeparting)
	e.mu.Unlock()

	departBase := e.source.Latest().CumulativeDistanceKm
	var returnBase float64
	var loiterStart time.Time
	var stopEntered time.Time
	visitedStops := make(map[int]bool)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			e.shutdown(summarize, stop)
			return
		case <-ticker.C:
		}

		sample := e.source.Latest()
		e.mu.Lock()
		state := e.state
		tick := e.tick
		e.tick++

		switch state {
		case core.NavDeparting:
			e.transitionLocked(core.NavEnRoute)
			e.emitPositionLocked(tick, sample, sample.CumulativeDistanceKm-departBase, e.outbound, core.LegOutbound)

		case core.NavEnRoute:
			dist := sample.CumulativeDistanceKm - departBase
			pos, _, _, complete := e.outbound.Locate(dist)
			e.emitPositionLocked(tick, sample, dist, e.outbound, core.LegOutbound)
			if complete {
				e.arrivedAt = time.Now()
				e.transitionLocked(core.NavAtDestination)
				break
			}
			if idx, ok := e.stopInRadiusLocked(pos, visitedStops); ok {
				visitedStops[idx] = true
				stopEntered = time.Now()
				e.transitionLocked(core.NavAtStop)
			}

		case core.NavAtStop:
			dist := sample.CumulativeDistanceKm - departBase
			e.emitPositionLocked(tick, sample, dist, e.outbound, core.LegOutbound)
			if time.Since(stopEntered) >= e.cfg.StopDwell {
				e.transitionLocked(core.NavEnRoute)
			}

		case core.NavAtDestination:
			loiterStart = e.arrivedAt
			e.transitionLocked(core.NavLoitering)

		case core.NavLoitering:
			if time.Since(loiterStart) >= e.cfg.LoiterDuration {
				returnBase = sample.CumulativeDistanceKm
				e.transitionLocked(core.NavReturning)
			}

		case core.NavReturning:
			dist := sample.CumulativeDistanceKm - returnBase
			_, _, _, complete := e.inbound.Locate(dist)
			e.emitPositionLocked(tick, sample, dist, e.inbound, core.LegReturn)
			if complete {
				e.transitionLocked(core.NavApproachingDepot)
				// Back at the depot gate; stop immediately.
				e.transitionLocked(core.NavEngineStopping)
				e.transitionLocked(core.NavIdle)
				e.emitSummaryLocked(summarize, false)
				e.route = nil
				e.outbound = nil
				e.inbound = nil
				e.mu.Unlock()
				return
			}
		}
		e.mu.Unlock()
	}
}

// shutdown handles a cooperative stop request mid-cycle.
func (e *Engine) shutdown(summarize *sync.Once, stop chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// The forced-close path may already have reset the engine.
	if e.stopChan != stop {
		return
	}
	if e.state != core.NavIdle {
		e.transitionLocked(core.NavEngineStopping)
		e.transitionLocked(core.NavIdle)
	}
	e.emitSummaryLocked(summarize, true)
	e.route = nil
	e.outbound = nil
	e.inbound = nil
}

// transitionLocked moves to next and emits the transition event. Caller
// holds mu.
func (e *Engine) transitionLocked(next core.NavigationState) {
	if !e.state.CanTransitionTo(next) {
		e.logger.Error("Illegal navigation transition",
			"vehicle", e.vehicleID,
			"from", e.state,
			"to", next)
		return
	}
	ev := core.StateTransition{
		VehicleID: e.vehicleID,
		From:      e.state,
		To:        next,
		At:        time.Now(),
	}
	e.state = next
	if !e.transitions.TrySend(ev) {
		e.dropped.Add(1)
	}
	e.logger.Debug("Navigation transition",
		"vehicle", e.vehicleID,
		"from", ev.From,
		"to", ev.To)
}

// emitPositionLocked interpolates the position at dist along path and
// pushes a sample. Caller holds mu.
func (e *Engine) emitPositionLocked(tick uint64, sample core.KinematicSample, dist float64, path *geo.Path, leg string) {
	if path == nil {
		return
	}
	if dist < 0 {
		dist = 0
	}
	pos, bearing, _, _ := path.Locate(dist)
	p := core.PositionSample{
		VehicleID:  e.vehicleID,
		Tick:       tick,
		Lat:        pos.Lat,
		Lon:        pos.Lon,
		BearingDeg: bearing,
		Progress:   path.Progress(dist),
		SpeedKph:   sample.SpeedKph,
		DistanceKm: dist,
		Leg:        leg,
		Time:       time.Now(),
	}
	if !e.positions.TrySend(p) {
		e.dropped.Add(1)
	}
}

// stopInRadiusLocked reports the nearest unvisited stop within the
// configured radius of pos. Caller holds mu.
func (e *Engine) stopInRadiusLocked(pos core.LonLat, visited map[int]bool) (int, bool) {
	if e.cfg.StopRadiusM <= 0 || e.route == nil || len(e.route.Stops) == 0 {
		return 0, false
	}
	idx, distKm := geo.NearestStop(pos, e.route.Stops)
	if idx < 0 || visited[idx] {
		return 0, false
	}
	if distKm*1000 <= e.cfg.StopRadiusM {
		return idx, true
	}
	return 0, false
}

// emitSummaryLocked pushes the cycle summary exactly once. Caller holds mu.
func (e *Engine) emitSummaryLocked(once *sync.Once, forced bool) {
	if once == nil || e.route == nil {
		return
	}
	route := e.route
	summary := core.JourneySummary{
		VehicleID:   e.vehicleID,
		RouteID:     route.RouteID,
		RouteName:   route.RouteName,
		Destination: route.Destination,
		DepartedAt:  e.departedAt,
		ArrivedAt:   e.arrivedAt,
		CompletedAt: time.Now(),
		Passengers:  e.passengers,
		DistanceKm:  route.DistanceKm,
		Forced:      forced,
	}
	once.Do(func() {
		if !e.completions.TrySend(summary) {
			e.dropped.Add(1)
		}
		e.logger.Info("Journey complete",
			"vehicle", e.vehicleID,
			"route", summary.RouteID,
			"passengers", summary.Passengers,
			"forced", summary.Forced)
	})
}
