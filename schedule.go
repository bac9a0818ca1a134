package transit

import (
	"sort"
	"time"

	"campustransit.dev/transit/model"
)

// Lists arrivals at a stop within [now, now+window], adjusted by live
// delay, ordered by estimated arrival and truncated to limit. Canceled
// trips and skipped stops are left out. An empty routeID matches all
// routes.
func StopSchedule(
	c *Catalog,
	rt *Realtime,
	stopID string,
	routeID string,
	window time.Duration,
	limit int,
	now time.Time,
) []model.ScheduleEntry {
	entries := []model.ScheduleEntry{}

	stop, found := c.Stop(stopID)
	if !found {
		return entries
	}

	end := now.Add(window)

	for _, st := range c.StopTimesForStop(stopID) {
		trip, found := c.Trip(st.TripID)
		if !found {
			continue
		}
		if routeID != "" && trip.RouteID != routeID {
			continue
		}

		est := Reconcile(rt, st, Arrival, now)
		if est.Canceled || est.Skipped {
			continue
		}
		if est.Estimated.Before(now) || est.Estimated.After(end) {
			continue
		}

		entries = append(entries, model.ScheduleEntry{
			StopID:           stop.ID,
			StopName:         stop.Name,
			RouteID:          trip.RouteID,
			RouteName:        c.RouteName(trip.RouteID),
			TripID:           trip.ID,
			Headsign:         trip.Headsign,
			ScheduledArrival: st.ArrivalClock(),
			EstimatedArrival: est.Estimated,
			Delay:            est.Delay,
			Occupancy:        rt.OccupancyForTrip(trip.ID),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EstimatedArrival.Before(entries[j].EstimatedArrival)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries
}
