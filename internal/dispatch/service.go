package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zrfleet/depotsim/internal/config"
	"github.com/zrfleet/depotsim/pkg/core"
)

// RouteDispatchCallback is invoked when a route assignment arrives for a
// vehicle, whether inline with the full notice or pushed over the stream.
type RouteDispatchCallback func(vehicleID string, route *core.RouteDescriptor)

// Policy controls retry behavior for route acquisition. Disabled by
// default: a failed full notice is surfaced immediately and the vehicle
// stays where it is until the next attempt.
type Policy struct {
	Enabled     bool
	MaxAttempts int
	Backoff     time.Duration
}

// PolicyFromConfig maps the config retry block onto a Policy.
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		Enabled:     cfg.Enabled,
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.Backoff,
	}
}

func (p Policy) attempts() int {
	if !p.Enabled || p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Service sits between the depot and the route authority. It owns the
// per-vehicle route-dispatch callback registry and applies the retry
// policy to route acquisition. Telemetry methods are best-effort: errors
// are logged, never propagated.
type Service struct {
	authority Authority
	policy    Policy
	logger    *slog.Logger

	mu        sync.Mutex
	callbacks map[string]RouteDispatchCallback
}

// NewService wraps an authority. A nil logger falls back to slog.Default.
func NewService(authority Authority, policy Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		authority: authority,
		policy:    policy,
		logger:    logger,
		callbacks: make(map[string]RouteDispatchCallback),
	}
}

// RegisterRouteDispatchCallback arms the callback for one assignment. It
// fires at most once, then must be re-armed for the vehicle's next cycle.
func (s *Service) RegisterRouteDispatchCallback(vehicleID string, fn RouteDispatchCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[vehicleID] = fn
}

// takeCallback disarms and returns the vehicle's callback, if armed.
func (s *Service) takeCallback(vehicleID string) RouteDispatchCallback {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn := s.callbacks[vehicleID]
	delete(s.callbacks, vehicleID)
	return fn
}

// DeliverRoute fires the vehicle's armed callback with the given route.
// Used for inline assignments and by the stream subscriber for pushed
// ones. An unarmed vehicle drops the assignment with a warning.
func (s *Service) DeliverRoute(vehicleID string, route *core.RouteDescriptor) bool {
	fn := s.takeCallback(vehicleID)
	if fn == nil {
		s.logger.Warn("Dropping route assignment for vehicle without armed callback",
			"vehicle", vehicleID,
			"route", route.RouteID)
		return false
	}
	fn(vehicleID, route)
	return true
}

// NotifyVehicleFull reports a full vehicle to the authority. When the
// response carries an inline route the armed callback fires before this
// method returns. Returns false when the notice could not be delivered;
// the caller leaves the vehicle in place and may retry later.
func (s *Service) NotifyVehicleFull(ctx context.Context, vehicleID string, passengers, capacity int) bool {
	notice := core.VehicleFullNotice{
		VehicleID:  vehicleID,
		Passengers: passengers,
		Capacity:   capacity,
		Status:     string(core.StateFull),
		Timestamp:  time.Now().UTC(),
	}

	var route *core.RouteDescriptor
	var err error
	attempts := s.policy.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		route, err = s.authority.NotifyVehicleFull(ctx, notice)
		if err == nil {
			break
		}
		s.logger.Warn("Full notice failed",
			"vehicle", vehicleID,
			"attempt", attempt,
			"error", err)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(s.policy.Backoff):
			}
		}
	}
	if err != nil {
		return false
	}

	if route != nil {
		s.DeliverRoute(vehicleID, route)
	}
	return true
}

// RequestRouteAssignment pulls a route for a vehicle of the given type,
// applying the retry policy, and fires the armed callback on success.
// Returns the assigned route, or nil when none could be acquired.
func (s *Service) RequestRouteAssignment(ctx context.Context, vehicleID, vehicleType string) *core.RouteDescriptor {
	req := core.RouteRequest{
		VehicleID:   vehicleID,
		VehicleType: vehicleType,
		Timestamp:   time.Now().UTC(),
	}

	var route *core.RouteDescriptor
	var err error
	attempts := s.policy.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		route, err = s.authority.RequestRouteAssignment(ctx, req)
		if err == nil {
			break
		}
		s.logger.Warn("Route request failed",
			"vehicle", vehicleID,
			"attempt", attempt,
			"error", err)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.policy.Backoff):
			}
		}
	}
	if err != nil || route == nil {
		return nil
	}

	s.DeliverRoute(vehicleID, route)
	return route
}

// UpdateVehicleState pushes state telemetry, best-effort.
func (s *Service) UpdateVehicleState(ctx context.Context, vehicleID string, state core.VehicleState, nav core.NavigationState) {
	update := core.StateUpdate{
		VehicleID: vehicleID,
		State:     state,
		NavState:  nav,
		Timestamp: time.Now().UTC(),
	}
	if err := s.authority.UpdateVehicleState(ctx, update); err != nil {
		s.logger.Warn("State update failed",
			"vehicle", vehicleID,
			"state", state,
			"error", err)
	}
}

// NotifyJourneyCompleted pushes a completed-journey report, best-effort.
func (s *Service) NotifyJourneyCompleted(ctx context.Context, report core.JourneyReport) {
	if err := s.authority.NotifyJourneyCompleted(ctx, report); err != nil {
		s.logger.Warn("Journey report failed",
			"vehicle", report.VehicleID,
			"route", report.RouteID,
			"error", err)
	}
}

// AvailableRoutes lists the authority's assignable routes.
func (s *Service) AvailableRoutes(ctx context.Context) ([]core.RouteDescriptor, error) {
	return s.authority.AvailableRoutes(ctx)
}
