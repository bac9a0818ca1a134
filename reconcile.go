package transit

import (
	"time"

	"campustransit.dev/transit/model"
)

// Which scheduled event of a stop time to estimate.
type EventKind int

const (
	Arrival EventKind = iota
	Departure
)

// An adjusted stop time.
type Estimate struct {
	Scheduled time.Time
	Estimated time.Time
	Delay     time.Duration

	// A realtime annotation matched this stop time.
	Live bool

	// The trip is canceled, or this stop is skipped.
	Canceled bool
	Skipped  bool
}

// Projects a service day offset onto the first instant at or after
// now with that time of day, in now's location. Offsets past 24h wrap
// onto the following clock day.
func NextOccurrence(offset time.Duration, now time.Time) time.Time {
	day := offset / (24 * time.Hour)
	offset -= day * 24 * time.Hour

	year, month, date := now.Date()
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	s := int(offset % time.Minute / time.Second)

	t := time.Date(year, month, date, h, m, s, 0, now.Location())
	if t.Before(now) {
		t = time.Date(year, month, date+1, h, m, s, 0, now.Location())
	}
	return t
}

// Estimates when a stop time's event occurs next, correcting the
// schedule with any matching trip update in rt. Without a match the
// estimate is the schedule projection with zero delay.
func Reconcile(rt *Realtime, st *model.StopTime, kind EventKind, now time.Time) Estimate {
	offset, otherOffset := st.Arrival, st.Departure
	if kind == Departure {
		offset, otherOffset = st.Departure, st.Arrival
	}

	scheduled := NextOccurrence(offset, now)
	est := Estimate{
		Scheduled: scheduled,
		Estimated: scheduled,
	}

	update := rt.TripUpdate(st.TripID)
	if update == nil {
		return est
	}
	if update.Canceled {
		est.Canceled = true
		est.Live = true
		return est
	}

	stu := matchStopTimeUpdate(update, st)
	if stu == nil {
		return est
	}
	est.Live = true

	switch stu.Relationship {
	case model.StopTimeUpdateSkipped:
		est.Skipped = true
		return est
	case model.StopTimeUpdateNoData:
		return est
	}

	primary, other := stu.Arrival, stu.Departure
	if kind == Departure {
		primary, other = stu.Departure, stu.Arrival
	}

	if delay, ok := eventDelay(primary, scheduled); ok {
		est.Delay = delay
	} else if delay, ok := eventDelay(other, scheduled.Add(otherOffset-offset)); ok {
		// A departure can't be earlier than scheduled just
		// because the vehicle arrived early.
		if kind == Departure && delay < 0 {
			delay = 0
		}
		est.Delay = delay
	}

	est.Estimated = scheduled.Add(est.Delay)
	return est
}

// Finds the update for a stop time: by stop sequence, then by stop ID
// among updates that carry no sequence.
func matchStopTimeUpdate(update *model.TripUpdate, st *model.StopTime) *model.StopTimeUpdate {
	for i := range update.StopTimeUpdates {
		stu := &update.StopTimeUpdates[i]
		if stu.HasStopSequence && stu.StopSequence == st.StopSequence {
			return stu
		}
	}
	for i := range update.StopTimeUpdates {
		stu := &update.StopTimeUpdates[i]
		if !stu.HasStopSequence && stu.StopID != "" && stu.StopID == st.StopID {
			return stu
		}
	}
	return nil
}

// Delay carried by an event, either explicit or derived from its
// absolute time relative to the projection.
func eventDelay(e *model.StopTimeEvent, projection time.Time) (time.Duration, bool) {
	if e == nil {
		return 0, false
	}
	if e.HasDelay {
		return e.Delay, true
	}
	if e.HasTime {
		return time.Unix(e.Time, 0).Sub(projection), true
	}
	return 0, false
}

// Joins live vehicles with the catalog. A vehicle's own route ID takes
// precedence over the route of its trip; unmatched vehicles fall back
// to their raw route ID for display.
func EnrichVehicles(c *Catalog, vehicles []model.VehiclePosition) []model.EnrichedVehicle {
	enriched := make([]model.EnrichedVehicle, 0, len(vehicles))

	for _, v := range vehicles {
		ev := model.EnrichedVehicle{VehiclePosition: v}

		var trip *model.Trip
		if c != nil && v.TripID != "" {
			trip, _ = c.Trip(v.TripID)
		}
		if trip != nil {
			ev.Headsign = trip.Headsign
			if ev.RouteID == "" {
				ev.RouteID = trip.RouteID
			}
		}

		ev.RouteName = ev.RouteID
		if c != nil {
			if route, ok := c.Route(ev.RouteID); ok {
				if name := route.DisplayName(); name != "" {
					ev.RouteName = name
				}
				ev.RouteColor = route.Color
			}
		}

		enriched = append(enriched, ev)
	}

	return enriched
}
