package model

import (
	"fmt"
	"time"
)

// Holds all external facing types and constants.

type Agency struct {
	ID       string `json:"agency_id,omitempty"`
	Name     string `json:"agency_name"`
	URL      string `json:"agency_url,omitempty"`
	Timezone string `json:"agency_timezone"`
}

type Route struct {
	ID        string `json:"route_id"`
	ShortName string `json:"route_short_name,omitempty"`
	LongName  string `json:"route_long_name,omitempty"`
	Type      string `json:"route_type,omitempty"`
	Color     string `json:"route_color,omitempty"`
	TextColor string `json:"route_text_color,omitempty"`
}

// Short name if present, long name otherwise.
func (r *Route) DisplayName() string {
	if r.ShortName != "" {
		return r.ShortName
	}
	return r.LongName
}

type Stop struct {
	ID   string  `json:"stop_id"`
	Code string  `json:"stop_code,omitempty"`
	Name string  `json:"stop_name"`
	Desc string  `json:"stop_desc,omitempty"`
	Lat  float64 `json:"stop_lat"`
	Lon  float64 `json:"stop_lon"`
}

type Trip struct {
	ID          string `json:"trip_id"`
	RouteID     string `json:"route_id"`
	ServiceID   string `json:"service_id,omitempty"`
	Headsign    string `json:"trip_headsign,omitempty"`
	DirectionID string `json:"direction_id,omitempty"`
	ShapeID     string `json:"shape_id,omitempty"`
}

// A scheduled visit of a trip to a stop. Arrival and Departure are
// offsets from the start of the service day and may exceed 24h.
type StopTime struct {
	TripID       string        `json:"trip_id"`
	StopID       string        `json:"stop_id"`
	StopSequence uint32        `json:"stop_sequence"`
	Arrival      time.Duration `json:"-"`
	Departure    time.Duration `json:"-"`
	PickupType   string        `json:"pickup_type,omitempty"`
	DropOffType  string        `json:"drop_off_type,omitempty"`
}

func (st *StopTime) ArrivalClock() string {
	return FormatClock(st.Arrival)
}

func (st *StopTime) DepartureClock() string {
	return FormatClock(st.Departure)
}

type ShapePoint struct {
	ShapeID  string  `json:"shape_id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lng"`
	Sequence int     `json:"sequence"`
}

// Translates a service day offset into a GTFS style HH:MM:SS string.
func FormatClock(offset time.Duration) string {
	h := int(offset.Hours())
	m := int(offset.Minutes()) - h*60
	s := int(offset.Seconds()) - h*3600 - m*60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Occupancy level of a vehicle, in increasing order of crowding. The
// numeric values of the known levels match the GTFS-rt wire codes.
type OccupancyStatus int8

const (
	OccupancyUnknown OccupancyStatus = -1

	OccupancyEmpty                   OccupancyStatus = 0
	OccupancyManySeatsAvailable      OccupancyStatus = 1
	OccupancyFewSeatsAvailable       OccupancyStatus = 2
	OccupancyStandingRoomOnly        OccupancyStatus = 3
	OccupancyCrushedStandingRoomOnly OccupancyStatus = 4
	OccupancyFull                    OccupancyStatus = 5
	OccupancyNotAcceptingPassengers  OccupancyStatus = 6
)

var occupancyLabels = map[OccupancyStatus]string{
	OccupancyEmpty:                   "EMPTY",
	OccupancyManySeatsAvailable:      "MANY_SEATS_AVAILABLE",
	OccupancyFewSeatsAvailable:       "FEW_SEATS_AVAILABLE",
	OccupancyStandingRoomOnly:        "STANDING_ROOM_ONLY",
	OccupancyCrushedStandingRoomOnly: "CRUSHED_STANDING_ROOM_ONLY",
	OccupancyFull:                    "FULL",
	OccupancyNotAcceptingPassengers:  "NOT_ACCEPTING_PASSENGERS",
}

// Maps a wire code to an OccupancyStatus. Codes outside the seven
// known levels are unknown.
func OccupancyFromCode(code int32) OccupancyStatus {
	status := OccupancyStatus(code)
	if _, ok := occupancyLabels[status]; !ok {
		return OccupancyUnknown
	}
	return status
}

func (o OccupancyStatus) Known() bool {
	_, ok := occupancyLabels[o]
	return ok
}

func (o OccupancyStatus) String() string {
	if label, ok := occupancyLabels[o]; ok {
		return label
	}
	return "UNKNOWN"
}

func (o OccupancyStatus) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

type VehiclePosition struct {
	VehicleID    string          `json:"vehicle_id"`
	Label        string          `json:"label,omitempty"`
	TripID       string          `json:"trip_id"`
	RouteID      string          `json:"route_id"`
	Lat          float64         `json:"latitude"`
	Lon          float64         `json:"longitude"`
	Bearing      *float32        `json:"bearing,omitempty"`
	Speed        *float32        `json:"speed,omitempty"`
	StopSequence *uint32         `json:"current_stop_sequence,omitempty"`
	Status       string          `json:"current_status,omitempty"`
	Occupancy    OccupancyStatus `json:"occupancy_status"`
	Timestamp    int64           `json:"timestamp"`
}

// A vehicle joined with static route and trip data. Unmatched
// vehicles keep their raw identifiers as display fallbacks.
type EnrichedVehicle struct {
	VehiclePosition
	RouteName  string `json:"route_name"`
	RouteColor string `json:"route_color,omitempty"`
	Headsign   string `json:"headsign,omitempty"`
}

type StopTimeUpdateRelationship int

const (
	StopTimeUpdateScheduled StopTimeUpdateRelationship = iota
	StopTimeUpdateSkipped
	StopTimeUpdateNoData
)

// Predicted arrival or departure at a stop. Absent fields are flagged,
// not zeroed.
type StopTimeEvent struct {
	Delay          time.Duration `json:"delay"`
	HasDelay       bool          `json:"-"`
	Time           int64         `json:"time,omitempty"`
	HasTime        bool          `json:"-"`
	Uncertainty    int32         `json:"uncertainty,omitempty"`
	HasUncertainty bool          `json:"-"`
}

type StopTimeUpdate struct {
	StopSequence    uint32                     `json:"stop_sequence"`
	HasStopSequence bool                       `json:"-"`
	StopID          string                     `json:"stop_id,omitempty"`
	Arrival         *StopTimeEvent             `json:"arrival,omitempty"`
	Departure       *StopTimeEvent             `json:"departure,omitempty"`
	Relationship    StopTimeUpdateRelationship `json:"schedule_relationship"`
}

type TripUpdate struct {
	TripID          string           `json:"trip_id"`
	RouteID         string           `json:"route_id,omitempty"`
	Canceled        bool             `json:"canceled,omitempty"`
	Timestamp       int64            `json:"timestamp"`
	StopTimeUpdates []StopTimeUpdate `json:"stop_time_updates"`
}

type InformedEntity struct {
	RouteID string `json:"route_id,omitempty"`
	StopID  string `json:"stop_id,omitempty"`
	TripID  string `json:"trip_id,omitempty"`
}

type ServiceAlert struct {
	ID               string           `json:"id"`
	Header           string           `json:"header_text"`
	Description      string           `json:"description_text,omitempty"`
	Cause            string           `json:"cause,omitempty"`
	Effect           string           `json:"effect,omitempty"`
	InformedEntities []InformedEntity `json:"informed_entities"`
	Start            int64            `json:"start_time,omitempty"`
	End              int64            `json:"end_time,omitempty"`
}

// True if the alert names the route or stop. Blank arguments never
// match.
func (a *ServiceAlert) Affects(routeID string, stopID string) bool {
	for _, ie := range a.InformedEntities {
		if routeID != "" && ie.RouteID == routeID {
			return true
		}
		if stopID != "" && ie.StopID == stopID {
			return true
		}
	}
	return false
}

// True if the alert's active window contains t. Open ends are
// unbounded.
func (a *ServiceAlert) ActiveAt(t time.Time) bool {
	unix := t.Unix()
	if a.Start != 0 && unix < a.Start {
		return false
	}
	if a.End != 0 && unix > a.End {
		return false
	}
	return true
}

type PriorityMode string

const (
	PriorityTime      PriorityMode = "time"
	PriorityOccupancy PriorityMode = "occupancy"
)

func (p PriorityMode) Valid() bool {
	return p == PriorityTime || p == PriorityOccupancy
}

// A boarding option, scored. Lower scores are better.
type RankedOption struct {
	TripID           string          `json:"trip_id"`
	RouteID          string          `json:"route_id"`
	RouteName        string          `json:"route_name"`
	Headsign         string          `json:"headsign,omitempty"`
	StopID           string          `json:"stop_id"`
	StopName         string          `json:"stop_name"`
	EstimatedArrival time.Time       `json:"estimated_arrival"`
	ScheduledArrival string          `json:"scheduled_arrival"`
	Delay            time.Duration   `json:"delay"`
	Occupancy        OccupancyStatus `json:"occupancy_status"`
	OccupancyScore   float64         `json:"occupancy_score"`
	TimeScore        float64         `json:"time_score"`
	CombinedScore    float64         `json:"combined_score"`
}

// An arrival at a stop, adjusted by live delay.
type ScheduleEntry struct {
	StopID           string          `json:"stop_id"`
	StopName         string          `json:"stop_name"`
	RouteID          string          `json:"route_id"`
	RouteName        string          `json:"route_name"`
	TripID           string          `json:"trip_id"`
	Headsign         string          `json:"headsign,omitempty"`
	ScheduledArrival string          `json:"scheduled_arrival"`
	EstimatedArrival time.Time       `json:"estimated_arrival"`
	Delay            time.Duration   `json:"delay"`
	Occupancy        OccupancyStatus `json:"occupancy_status"`
}

// A saved origin/destination pair.
type Favorite struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	FromStopID      string       `json:"from_stop_id"`
	ToStopID        string       `json:"to_stop_id"`
	PreferredRoutes []string     `json:"preferred_routes"`
	PriorityMode    PriorityMode `json:"priority_mode"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// The best option with runners-up and a human readable reason. Best
// is nil when there are no options.
type Recommendation struct {
	Best         *RankedOption  `json:"recommendation"`
	Alternatives []RankedOption `json:"alternatives"`
	Reason       string         `json:"reason"`
}
