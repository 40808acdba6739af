package worker

import (
	"context"
	"fmt"

	"github.com/zrfleet/depotsim/internal/dispatcher"
	"github.com/zrfleet/depotsim/internal/influx"
	"github.com/zrfleet/depotsim/internal/model"
	"github.com/zrfleet/depotsim/internal/model/convert"
	"github.com/zrfleet/depotsim/pkg/core"
)

// Bus topics consumed by the worker.
const (
	TopicVehicleState = "vehicle.state"
	TopicPositions    = "vehicle.positions"
	TopicJourneys     = "journeys"
	TopicBoardings    = "boardings"
	TopicPerformance  = "depot.performance"
)

// StateUpdate is the vehicle.state payload.
type StateUpdate struct {
	Status core.VehicleStatus
	Nav    core.NavigationState
}

// PositionUpdate is the vehicle.positions payload.
type PositionUpdate struct {
	Sample  core.PositionSample
	RouteID string
	Nav     core.NavigationState
}

// Boarding is the boardings payload.
type Boarding struct {
	VehicleID    string
	Count        int
	TotalOnBoard int
	Capacity     int
}

// RegisterHandlers registers all sink handlers with the bus. Positions are
// the high-volume topic and get the deepest buffer.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(TopicVehicleState, m.handleVehicleState, dispatcher.Buffered(2000), dispatcher.Logged())
	d.Register(TopicPositions, m.handlePosition, dispatcher.Buffered(10000), dispatcher.Logged())
	d.Register(TopicJourneys, m.handleJourney, dispatcher.Buffered(500), dispatcher.Logged())
	d.Register(TopicBoardings, m.handleBoarding, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(TopicPerformance, m.handlePerformance, dispatcher.Buffered(100), dispatcher.Logged())
}

func (m *Manager) handleVehicleState(e dispatcher.Event) (any, error) {
	payload, ok := e.Payload.(StateUpdate)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T on %s", e.Payload, e.Topic)
	}

	row := convert.StatusToStateRow(payload.Status, payload.Nav, m.serviceDayID())
	row.Time = e.Timestamp
	m.queues.VehicleStates.Push(row)
	return nil, nil
}

func (m *Manager) handlePosition(e dispatcher.Event) (any, error) {
	payload, ok := e.Payload.(PositionUpdate)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T on %s", e.Payload, e.Topic)
	}

	row, err := convert.SampleToPositionRecord(payload.Sample, payload.RouteID, payload.Nav, m.serviceDayID())
	if err != nil {
		return nil, fmt.Errorf("failed to convert position sample: %w", err)
	}
	m.queues.Positions.Push(row)

	if m.deps.Influx != nil {
		point := influx.PositionPoint(m.deps.DepotName, payload.Sample, string(payload.Nav))
		if err := m.deps.Influx.WritePoint(context.Background(), influx.BucketVehiclePositions, point); err != nil {
			m.deps.LogManager.Logger().Warn("Failed to write position point", "error", err)
		}
	}
	return nil, nil
}

func (m *Manager) handleJourney(e dispatcher.Event) (any, error) {
	summary, ok := e.Payload.(core.JourneySummary)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T on %s", e.Payload, e.Topic)
	}

	m.queues.Journeys.Push(convert.SummaryToJourney(summary, m.serviceDayID()))

	if m.deps.Influx != nil {
		point := influx.JourneyPoint(m.deps.DepotName, summary)
		if err := m.deps.Influx.WritePoint(context.Background(), influx.BucketJourneys, point); err != nil {
			m.deps.LogManager.Logger().Warn("Failed to write journey point", "error", err)
		}
	}
	return nil, nil
}

func (m *Manager) handleBoarding(e dispatcher.Event) (any, error) {
	payload, ok := e.Payload.(Boarding)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T on %s", e.Payload, e.Topic)
	}

	row := convert.BoardingToModel(payload.VehicleID, payload.Count, payload.TotalOnBoard, payload.Capacity, m.serviceDayID())
	row.Time = e.Timestamp
	m.queues.Boardings.Push(row)
	return nil, nil
}

func (m *Manager) handlePerformance(e dispatcher.Event) (any, error) {
	row, ok := e.Payload.(model.DepotPerformance)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T on %s", e.Payload, e.Topic)
	}

	if row.ServiceDayID == 0 {
		row.ServiceDayID = m.serviceDayID()
	}
	m.queues.Performance.Push(row)
	return nil, nil
}
