package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&DepotInfo{},
	&Depot{},
	&ServiceDay{},
	&Vehicle{},
	&Route{},
	&VehicleStateRow{},
	&PositionRecord{},
	&Journey{},
	&BoardingEvent{},
	&DepotPerformance{},
}

var DatabaseModelsSQLite = []interface{}{
	&DepotInfo{},
	&Depot{},
	&ServiceDay{},
	&Vehicle{},
	&Route{},
	&VehicleStateRow{},
	&PositionRecord{},
	&Journey{},
	&BoardingEvent{},
	&DepotPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// DepotInfo contains operator information about the instance
type DepotInfo struct {
	gorm.Model
	OperatorName    string `json:"operatorName" gorm:"size:127"` // primary key
	OperatorWebsite string `json:"operatorURL" gorm:"size:255"`
	Island          string `json:"island" gorm:"size:64"`
}

func (*DepotInfo) TableName() string {
	return "depot_infos"
}

// DepotPerformance is the model for simulation performance metrics
type DepotPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_time"`
	ServiceDayID        uint              `json:"serviceDayId" gorm:"index:idx_depotperformance_service_day_id"`
	ServiceDay          ServiceDay        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ServiceDayID;"`
	QueueLengths        QueueLengths      `json:"queueLengths" gorm:"embedded;embeddedPrefix:queue_"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*DepotPerformance) TableName() string {
	return "depot_performances"
}

// QueueLengths snapshots the depot FIFO and loading slot
type QueueLengths struct {
	DepotQueue    uint16 `json:"depotQueue"`
	ActiveLoading uint16 `json:"activeLoading"` // 0 or 1
	EnginesOn     uint16 `json:"enginesOn"`
}

// WriteQueueLengths is the model for the sink write queue lengths
type WriteQueueLengths struct {
	VehicleStates uint16 `json:"vehicleStates"`
	Positions     uint16 `json:"positions"`
	Journeys      uint16 `json:"journeys"`
	Boardings     uint16 `json:"boardings"`
}

////////////////////////
// SIMULATION MODELS
////////////////////////

// Depot is the main model for a depot
type Depot struct {
	gorm.Model
	Name        string     `json:"name" gorm:"size:127"`
	Terminal    string     `json:"terminal" gorm:"size:127"`
	Parish      string     `json:"parish" gorm:"size:64"`
	Latitude    float32    `json:"latitude" gorm:"-"`
	Longitude   float32    `json:"longitude" gorm:"-"`
	Location    geom.Point `json:"location"`
	ServiceDays []ServiceDay
}

func (*Depot) TableName() string {
	return "depots"
}

func (d *Depot) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existingDepot Depot
	err = db.Where("name = ?", d.Name).First(&existingDepot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// insert
			err = db.Create(d).Error
			return true, err
		}
		return false, err
	}
	// overwrite with db record if found
	*d = existingDepot
	return false, nil
}

// ServiceDay is one simulation run at a depot
type ServiceDay struct {
	gorm.Model
	DepotID   uint         `json:"depotId"`
	Depot     Depot        `gorm:"foreignkey:DepotID"`
	StartTime time.Time    `json:"startTime" gorm:"type:timestamptz;index:idx_service_day_start"`
	EndTime   sql.NullTime `json:"endTime" gorm:"type:timestamptz"`
	FleetSize int          `json:"fleetSize"`
	Capacity  int          `json:"capacity"`
	Seed      int64        `json:"seed"`
	EngineTag string       `json:"engineTag" gorm:"size:64;default:1.0.0"`
	Tag       string       `json:"tag" gorm:"size:127"`

	Vehicles       []Vehicle
	Routes         []Route `gorm:"many2many:service_day_routes;"`
	Journeys       []Journey
	BoardingEvents []BoardingEvent
}

func (*ServiceDay) TableName() string {
	return "service_days"
}

// Vehicle is a ZR van registered for a service day
// Uses composite primary key (ServiceDayID, Registration)
type Vehicle struct {
	ServiceDayID uint           `json:"serviceDayId" gorm:"primaryKey;autoIncrement:false"`
	Registration string         `json:"registration" gorm:"primaryKey;size:16"` // plate, e.g. ZR-101
	ServiceDay   ServiceDay     `gorm:"foreignkey:ServiceDayID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"deletedAt" gorm:"index"`
	JoinTime     time.Time      `json:"joinTime" gorm:"type:timestamptz;NOT NULL;index:idx_vehicle_join_time"` // when the van entered the queue
	Callsign     string         `json:"callsign" gorm:"size:64"`
	Capacity     int            `json:"capacity" gorm:"default:14"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

func (v *Vehicle) Get(db *gorm.DB) (err error) {
	err = db.Where(&v).Order(
		"join_time DESC",
	).First(&v).Error
	return err
}

// Route is an authority route as learned from a dispatch
type Route struct {
	gorm.Model
	RouteID     string         `json:"routeId" gorm:"size:32;index:idx_route_route_id"`
	RouteName   string         `json:"routeName" gorm:"size:127"`
	Origin      string         `json:"origin" gorm:"size:127"`
	Destination string         `json:"destination" gorm:"size:127"`
	Polyline    datatypes.JSON `json:"polyline" gorm:"type:jsonb;default:'[]'"` // [[lon,lat],...]
	Stops       datatypes.JSON `json:"stops" gorm:"type:jsonb;default:'[]'"`
	DistanceKm  float64        `json:"distanceKm"`
}

func (*Route) TableName() string {
	return "routes"
}

func (r *Route) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existingRoute Route
	err = db.Where("route_id = ?", r.RouteID).First(&existingRoute).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(r).Error
			return true, err
		}
		return false, err
	}
	*r = existingRoute
	return false, nil
}

// VehicleStateRow tracks vehicle lifecycle state at a point in time
type VehicleStateRow struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"`
	ServiceDayID uint       `json:"serviceDayId" gorm:"index:idx_vehiclestate_service_day_id"`
	ServiceDay   ServiceDay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ServiceDayID;"`
	Registration string     `json:"registration" gorm:"size:16;index:idx_vehiclestate_registration"`

	State         string `json:"state" gorm:"size:32"`    // lifecycle state, e.g. LOADING
	NavState      string `json:"navState" gorm:"size:32"` // navigation state, e.g. EN_ROUTE
	Passengers    int    `json:"passengers"`
	EngineOn      bool   `json:"engineOn" gorm:"default:false"`
	QueuePosition int    `json:"queuePosition" gorm:"default:-1"` // -1 when not queued
	RouteID       string `json:"routeId" gorm:"size:32"`
}

func (*VehicleStateRow) TableName() string {
	return "vehicle_states"
}

// PositionRecord is one navigation position sample
type PositionRecord struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"`
	ServiceDayID uint       `json:"serviceDayId" gorm:"index:idx_position_service_day_id"`
	ServiceDay   ServiceDay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ServiceDayID;"`
	Registration string     `json:"registration" gorm:"size:16;index:idx_position_registration"`
	Tick         uint64     `json:"tick" gorm:"index:idx_position_tick"`

	Position   geom.Point `json:"position"` // EPSG:3857
	BearingDeg uint16     `json:"bearing" gorm:"default:0"`
	SpeedKph   float32    `json:"speedKph"`
	DistanceKm float32    `json:"distanceKm"`         // along the active leg
	Progress   float32    `json:"progress"`           // 0..1 along the active leg
	Leg        string     `json:"leg" gorm:"size:16"` // outbound or return
	RouteID    string     `json:"routeId" gorm:"size:32"`
	NavState   string     `json:"navState" gorm:"size:32"`
}

func (*PositionRecord) TableName() string {
	return "position_records"
}

// Journey is one completed depot-to-depot cycle
type Journey struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"`
	ServiceDayID uint       `json:"serviceDayId" gorm:"index:idx_journey_service_day_id"`
	ServiceDay   ServiceDay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ServiceDayID;"`
	Registration string     `json:"registration" gorm:"size:16;index:idx_journey_registration"`

	RouteID     string    `json:"routeId" gorm:"size:32"`
	Passengers  int       `json:"passengers"`
	DepartedAt  time.Time `json:"departedAt" gorm:"type:timestamptz"`
	CompletedAt time.Time `json:"completedAt" gorm:"type:timestamptz"`
	DurationSec float64   `json:"durationSec"`
	Forced      bool      `json:"forced" gorm:"default:false"` // ended by forced engine stop
}

func (*Journey) TableName() string {
	return "journeys"
}

// BoardingEvent records passengers boarding the loading vehicle
type BoardingEvent struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"`
	ServiceDayID uint       `json:"serviceDayId" gorm:"index:idx_boarding_service_day_id"`
	ServiceDay   ServiceDay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ServiceDayID;"`
	Registration string     `json:"registration" gorm:"size:16;index:idx_boarding_registration"`

	Count        int  `json:"count"`
	TotalOnBoard int  `json:"totalOnBoard"`
	Capacity     int  `json:"capacity"`
	BecameFull   bool `json:"becameFull" gorm:"default:false"`
}

func (*BoardingEvent) TableName() string {
	return "boarding_events"
}
