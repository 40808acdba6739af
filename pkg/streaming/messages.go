package streaming

import (
	"encoding/json"

	"github.com/zrfleet/depotsim/pkg/core"
)

// Message type constants for the dispatch stream protocol.
const (
	TypeSubscribe     = "subscribe"
	TypeAck           = "ack"
	TypeRouteDispatch = "route_dispatch"
	TypeDepotStatus   = "depot_status"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SubscribePayload registers a depot for out-of-band route pushes.
type SubscribePayload struct {
	DepotID string `json:"depot_id"`
	Secret  string `json:"secret"`
}

// RouteDispatchPayload carries a route assignment pushed by the authority.
type RouteDispatchPayload struct {
	VehicleID string               `json:"vehicle_id"`
	Route     core.RouteDescriptor `json:"route"`
}

// DepotStatusPayload carries a best-effort depot snapshot pushed to the
// authority.
type DepotStatusPayload struct {
	Status core.DepotStatus `json:"status"`
}
