// Package dispatch speaks the fleet dispatch protocol: reporting full
// vehicles to the route authority, receiving route assignments (inline or
// pushed out-of-band), and forwarding best-effort telemetry.
package dispatch

import (
	"context"

	"github.com/zrfleet/depotsim/pkg/core"
)

// Authority is the request/response surface of the dispatch authority.
// Client implements it over HTTP; Stub implements it in-process for tests
// and offline runs.
type Authority interface {
	// NotifyVehicleFull reports a vehicle at capacity. The authority may
	// return an inline route assignment in the same response.
	NotifyVehicleFull(ctx context.Context, notice core.VehicleFullNotice) (*core.RouteDescriptor, error)

	// RequestRouteAssignment is the pull alternative to the full notice.
	RequestRouteAssignment(ctx context.Context, req core.RouteRequest) (*core.RouteDescriptor, error)

	// UpdateVehicleState pushes state telemetry, best-effort.
	UpdateVehicleState(ctx context.Context, update core.StateUpdate) error

	// NotifyJourneyCompleted pushes a completed-journey report, best-effort.
	NotifyJourneyCompleted(ctx context.Context, report core.JourneyReport) error

	// AvailableRoutes lists the routes the authority can assign.
	AvailableRoutes(ctx context.Context) ([]core.RouteDescriptor, error)
}
