package transit

import (
	"fmt"
	"sort"
	"time"

	"campustransit.dev/transit/model"
	"campustransit.dev/transit/parse"
)

// An immutable snapshot of the static schedule. Slices returned by
// its methods are shared and must not be modified.
type Catalog struct {
	Location *time.Location
	Metadata *parse.Metadata

	agencies []*model.Agency
	routes   []*model.Route
	stops    []*model.Stop
	trips    []*model.Trip

	routeByID map[string]*model.Route
	stopByID  map[string]*model.Stop
	tripByID  map[string]*model.Trip

	// Sorted by stop_sequence
	stopTimesByTrip map[string][]*model.StopTime

	// In archive order
	stopTimesByStop map[string][]*model.StopTime

	// Sorted by shape_pt_sequence
	shapes map[string][]*model.ShapePoint
}

// Parses a static archive into a Catalog. The catalog's Location is
// location if non-nil, else the archive's agency timezone, else
// time.Local.
func ParseCatalog(buf []byte, location *time.Location) (*Catalog, error) {
	c := &Catalog{
		routeByID:       map[string]*model.Route{},
		stopByID:        map[string]*model.Stop{},
		tripByID:        map[string]*model.Trip{},
		stopTimesByTrip: map[string][]*model.StopTime{},
		stopTimesByStop: map[string][]*model.StopTime{},
		shapes:          map[string][]*model.ShapePoint{},
	}

	metadata, err := parse.ParseStatic(c, buf)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	c.Metadata = metadata

	switch {
	case location != nil:
		c.Location = location
	case metadata.Timezone != "":
		c.Location, err = time.LoadLocation(metadata.Timezone)
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("loading timezone: %w", err)}
		}
	default:
		c.Location = time.Local
	}

	return c, nil
}

func (c *Catalog) WriteAgency(agency *model.Agency) error {
	c.agencies = append(c.agencies, agency)
	return nil
}

func (c *Catalog) WriteRoute(route *model.Route) error {
	c.routes = append(c.routes, route)
	c.routeByID[route.ID] = route
	return nil
}

func (c *Catalog) WriteStop(stop *model.Stop) error {
	c.stops = append(c.stops, stop)
	c.stopByID[stop.ID] = stop
	return nil
}

func (c *Catalog) WriteTrip(trip *model.Trip) error {
	c.trips = append(c.trips, trip)
	c.tripByID[trip.ID] = trip
	return nil
}

func (c *Catalog) WriteStopTime(stopTime *model.StopTime) error {
	c.stopTimesByTrip[stopTime.TripID] = append(c.stopTimesByTrip[stopTime.TripID], stopTime)
	c.stopTimesByStop[stopTime.StopID] = append(c.stopTimesByStop[stopTime.StopID], stopTime)
	return nil
}

func (c *Catalog) WriteShapePoint(point *model.ShapePoint) error {
	c.shapes[point.ShapeID] = append(c.shapes[point.ShapeID], point)
	return nil
}

// Finalizes indexes once all records are written.
func (c *Catalog) Close() error {
	for _, stopTimes := range c.stopTimesByTrip {
		sort.SliceStable(stopTimes, func(i, j int) bool {
			return stopTimes[i].StopSequence < stopTimes[j].StopSequence
		})
	}
	for _, points := range c.shapes {
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Sequence < points[j].Sequence
		})
	}
	return nil
}

func (c *Catalog) Agencies() []*model.Agency {
	return c.agencies
}

// Routes in archive order.
func (c *Catalog) Routes() []*model.Route {
	return c.routes
}

// Stops in archive order.
func (c *Catalog) Stops() []*model.Stop {
	return c.stops
}

// Trips in archive order.
func (c *Catalog) Trips() []*model.Trip {
	return c.trips
}

func (c *Catalog) Route(routeID string) (*model.Route, bool) {
	r, ok := c.routeByID[routeID]
	return r, ok
}

func (c *Catalog) Stop(stopID string) (*model.Stop, bool) {
	s, ok := c.stopByID[stopID]
	return s, ok
}

func (c *Catalog) Trip(tripID string) (*model.Trip, bool) {
	t, ok := c.tripByID[tripID]
	return t, ok
}

// Stop times visiting a stop, in archive order.
func (c *Catalog) StopTimesForStop(stopID string) []*model.StopTime {
	return c.stopTimesByStop[stopID]
}

// Stop times of a trip, ordered by stop_sequence.
func (c *Catalog) StopTimesForTrip(tripID string) []*model.StopTime {
	return c.stopTimesByTrip[tripID]
}

// Points of a shape, ordered by sequence.
func (c *Catalog) Shape(shapeID string) []*model.ShapePoint {
	return c.shapes[shapeID]
}

// The shape of a route's representative trip: the first trip of the
// route that references a shape. Nil if there is none.
func (c *Catalog) RouteShape(routeID string) []*model.ShapePoint {
	for _, trip := range c.trips {
		if trip.RouteID == routeID && trip.ShapeID != "" {
			return c.shapes[trip.ShapeID]
		}
	}
	return nil
}

// Display name of a route, falling back to its ID.
func (c *Catalog) RouteName(routeID string) string {
	if r, ok := c.routeByID[routeID]; ok {
		if name := r.DisplayName(); name != "" {
			return name
		}
	}
	return routeID
}
