package transit

import (
	"time"

	"campustransit.dev/transit/model"
)

// Finds single trip itineraries from one stop to another, boarding
// within [now, now+maxWait]. Trips are considered in catalog order,
// which is the order of the returned options. A trip qualifies only if
// it visits the destination after the origin. If routes is non-empty,
// only trips on those routes are considered.
//
// Options carry the estimated boarding time but are not yet scored.
// No service between the stops yields an empty slice.
func FindItineraries(
	c *Catalog,
	rt *Realtime,
	fromStopID string,
	toStopID string,
	routes []string,
	maxWait time.Duration,
	now time.Time,
) []model.RankedOption {
	options := []model.RankedOption{}

	allowed := map[string]bool{}
	for _, r := range routes {
		allowed[r] = true
	}

	fromStop, _ := c.Stop(fromStopID)

	for _, trip := range c.Trips() {
		if len(allowed) > 0 && !allowed[trip.RouteID] {
			continue
		}

		origin := boardingStopTime(c.StopTimesForTrip(trip.ID), fromStopID, toStopID)
		if origin == nil {
			continue
		}

		est := Reconcile(rt, origin, Departure, now)
		if est.Canceled || est.Skipped {
			continue
		}

		wait := est.Estimated.Sub(now)
		if wait < 0 || wait > maxWait {
			continue
		}

		option := model.RankedOption{
			TripID:           trip.ID,
			RouteID:          trip.RouteID,
			RouteName:        c.RouteName(trip.RouteID),
			Headsign:         trip.Headsign,
			StopID:           fromStopID,
			EstimatedArrival: est.Estimated,
			ScheduledArrival: origin.DepartureClock(),
			Delay:            est.Delay,
			Occupancy:        rt.OccupancyForTrip(trip.ID),
		}
		if fromStop != nil {
			option.StopName = fromStop.Name
		}

		options = append(options, option)
	}

	return options
}

// Returns the first visit to from that is followed by a visit to to,
// or nil. stopTimes must be sorted by stop sequence.
func boardingStopTime(stopTimes []*model.StopTime, from string, to string) *model.StopTime {
	var origin *model.StopTime
	for _, st := range stopTimes {
		if origin == nil {
			if st.StopID == from {
				origin = st
			}
			continue
		}
		if st.StopID == to {
			return origin
		}
	}
	return nil
}
