package dispatch

import (
	"context"
	"sync"

	"github.com/zrfleet/depotsim/pkg/core"
)

// DefaultRoutes is the built-in catalog the stub authority assigns from:
// the two classic ZR corridors out of Bridgetown.
var DefaultRoutes = []core.RouteDescriptor{
	{
		RouteID:     "ZR-11",
		RouteName:   "Bridgetown - Oistins",
		Origin:      "Bridgetown River Terminal",
		Destination: "Oistins",
		Coordinates: []core.LonLat{
			{Lon: -59.6132, Lat: 13.0969},
			{Lon: -59.6010, Lat: 13.0880},
			{Lon: -59.5900, Lat: 13.0810},
			{Lon: -59.5770, Lat: 13.0760},
			{Lon: -59.5620, Lat: 13.0700},
			{Lon: -59.5430, Lat: 13.0670},
		},
		Stops: []core.Stop{
			{Name: "Hastings", Lat: 13.0810, Lon: -59.5900},
			{Name: "Worthing", Lat: 13.0760, Lon: -59.5770},
			{Name: "St. Lawrence Gap", Lat: 13.0700, Lon: -59.5620},
		},
		DistanceKm: 9.1,
	},
	{
		RouteID:     "ZR-1",
		RouteName:   "Bridgetown - Holetown",
		Origin:      "Bridgetown River Terminal",
		Destination: "Holetown",
		Coordinates: []core.LonLat{
			{Lon: -59.6132, Lat: 13.0969},
			{Lon: -59.6230, Lat: 13.1210},
			{Lon: -59.6330, Lat: 13.1480},
			{Lon: -59.6380, Lat: 13.1700},
			{Lon: -59.6420, Lat: 13.1870},
		},
		Stops: []core.Stop{
			{Name: "Brandons", Lat: 13.1210, Lon: -59.6230},
			{Name: "Batts Rock", Lat: 13.1480, Lon: -59.6330},
			{Name: "Paynes Bay", Lat: 13.1700, Lon: -59.6380},
		},
		DistanceKm: 11.3,
	},
}

// StubCall records one method invocation on the stub.
type StubCall struct {
	Method      string
	VehicleID   string
	VehicleType string
}

// Stub is a deterministic in-process authority: routes are assigned
// round-robin from a fixed catalog. Per-method failures can be injected
// and every call is recorded. Safe for concurrent use.
type Stub struct {
	mu     sync.Mutex
	routes []core.RouteDescriptor
	next   int
	fail   map[string]error
	calls  []StubCall
	inline bool // answer full notices with an inline route
}

// NewStub creates a stub over the given catalog; an empty catalog falls
// back to DefaultRoutes. Inline assignment is on by default.
func NewStub(routes []core.RouteDescriptor) *Stub {
	if len(routes) == 0 {
		routes = DefaultRoutes
	}
	return &Stub{
		routes: routes,
		fail:   make(map[string]error),
		inline: true,
	}
}

// FailWith injects an error for the named method ("NotifyVehicleFull",
// "RequestRouteAssignment", ...). A nil error clears the injection.
func (s *Stub) FailWith(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

// SetInlineAssignment controls whether full notices return a route in the
// same response.
func (s *Stub) SetInlineAssignment(inline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inline = inline
}

// Calls returns a copy of the recorded invocations.
func (s *Stub) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StubCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (s *Stub) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// nextRouteLocked advances the round-robin cursor. Caller holds mu.
func (s *Stub) nextRouteLocked() *core.RouteDescriptor {
	route := s.routes[s.next%len(s.routes)]
	s.next++
	return &route
}

// NotifyVehicleFull records the notice and, when inline assignment is on,
// returns the next catalog route.
func (s *Stub) NotifyVehicleFull(ctx context.Context, notice core.VehicleFullNotice) (*core.RouteDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StubCall{Method: "NotifyVehicleFull", VehicleID: notice.VehicleID})
	if err := s.fail["NotifyVehicleFull"]; err != nil {
		return nil, err
	}
	if !s.inline {
		return nil, nil
	}
	return s.nextRouteLocked(), nil
}

// RequestRouteAssignment returns the next catalog route.
func (s *Stub) RequestRouteAssignment(ctx context.Context, req core.RouteRequest) (*core.RouteDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StubCall{Method: "RequestRouteAssignment", VehicleID: req.VehicleID, VehicleType: req.VehicleType})
	if err := s.fail["RequestRouteAssignment"]; err != nil {
		return nil, err
	}
	return s.nextRouteLocked(), nil
}

// UpdateVehicleState records the telemetry call.
func (s *Stub) UpdateVehicleState(ctx context.Context, update core.StateUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StubCall{Method: "UpdateVehicleState", VehicleID: update.VehicleID})
	return s.fail["UpdateVehicleState"]
}

// NotifyJourneyCompleted records the report call.
func (s *Stub) NotifyJourneyCompleted(ctx context.Context, report core.JourneyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StubCall{Method: "NotifyJourneyCompleted", VehicleID: report.VehicleID})
	return s.fail["NotifyJourneyCompleted"]
}

// AvailableRoutes returns the whole catalog.
func (s *Stub) AvailableRoutes(ctx context.Context) ([]core.RouteDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StubCall{Method: "AvailableRoutes"})
	if err := s.fail["AvailableRoutes"]; err != nil {
		return nil, err
	}
	out := make([]core.RouteDescriptor, len(s.routes))
	copy(out, s.routes)
	return out, nil
}
