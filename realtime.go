package transit

import (
	"context"
	"sync"

	"campustransit.dev/transit/downloader"
	"campustransit.dev/transit/model"
	"campustransit.dev/transit/parse"
)

// Names of the realtime feeds, as reported to metrics.
const (
	FeedVehiclePositions = "vehicle_positions"
	FeedTripUpdates      = "trip_updates"
	FeedAlerts           = "alerts"
)

// A point in time view of the realtime feeds. Methods are safe to
// call on a nil *Realtime, which behaves as if all feeds were empty.
type Realtime struct {
	Vehicles    []model.VehiclePosition
	TripUpdates []model.TripUpdate
	Alerts      []model.ServiceAlert

	vehicleByTrip map[string]*model.VehiclePosition
	updateByTrip  map[string]*model.TripUpdate
}

func NewRealtime(
	vehicles []model.VehiclePosition,
	updates []model.TripUpdate,
	alerts []model.ServiceAlert,
) *Realtime {
	rt := &Realtime{
		Vehicles:      vehicles,
		TripUpdates:   updates,
		Alerts:        alerts,
		vehicleByTrip: map[string]*model.VehiclePosition{},
		updateByTrip:  map[string]*model.TripUpdate{},
	}

	// First record wins when a feed repeats a trip.
	for i := range vehicles {
		v := &vehicles[i]
		if v.TripID == "" {
			continue
		}
		if _, found := rt.vehicleByTrip[v.TripID]; !found {
			rt.vehicleByTrip[v.TripID] = v
		}
	}
	for i := range updates {
		u := &updates[i]
		if _, found := rt.updateByTrip[u.TripID]; !found {
			rt.updateByTrip[u.TripID] = u
		}
	}

	return rt
}

func (rt *Realtime) TripUpdate(tripID string) *model.TripUpdate {
	if rt == nil {
		return nil
	}
	return rt.updateByTrip[tripID]
}

func (rt *Realtime) VehicleForTrip(tripID string) *model.VehiclePosition {
	if rt == nil {
		return nil
	}
	return rt.vehicleByTrip[tripID]
}

// Occupancy of the vehicle serving a trip, unknown if no vehicle
// reports it.
func (rt *Realtime) OccupancyForTrip(tripID string) model.OccupancyStatus {
	if v := rt.VehicleForTrip(tripID); v != nil {
		return v.Occupancy
	}
	return model.OccupancyUnknown
}

// Fetches and decodes all three realtime feeds concurrently. A feed
// that is unconfigured, unreachable or malformed contributes an empty
// collection; the error is logged and reported, never returned.
func (m *Manager) Realtime(ctx context.Context) *Realtime {
	var (
		wg       sync.WaitGroup
		vehicles []model.VehiclePosition
		updates  []model.TripUpdate
		alerts   []model.ServiceAlert
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		buf := m.fetchFeed(ctx, FeedVehiclePositions, m.VehiclePositionsURL)
		if buf == nil {
			return
		}
		v, err := parse.ParseVehiclePositions(buf)
		m.feedDecoded(FeedVehiclePositions, len(v), err)
		if err == nil {
			vehicles = v
		}
	}()
	go func() {
		defer wg.Done()
		buf := m.fetchFeed(ctx, FeedTripUpdates, m.TripUpdatesURL)
		if buf == nil {
			return
		}
		u, err := parse.ParseTripUpdates(buf)
		m.feedDecoded(FeedTripUpdates, len(u), err)
		if err == nil {
			updates = u
		}
	}()
	go func() {
		defer wg.Done()
		buf := m.fetchFeed(ctx, FeedAlerts, m.AlertsURL)
		if buf == nil {
			return
		}
		a, err := parse.ParseAlerts(buf)
		m.feedDecoded(FeedAlerts, len(a), err)
		if err == nil {
			alerts = a
		}
	}()
	wg.Wait()

	return NewRealtime(vehicles, updates, alerts)
}

// Returns nil if the feed is unconfigured or could not be retrieved.
func (m *Manager) fetchFeed(ctx context.Context, feed string, url string) []byte {
	if url == "" {
		return nil
	}

	buf, err := m.Downloader.Get(ctx, url, m.RealtimeHeaders, downloader.GetOptions{
		MaxSize: m.RealtimeMaxSize,
		Timeout: m.RealtimeTimeout,
	})
	if err != nil {
		m.logger().Warn("realtime feed unavailable", "feed", feed, "url", url, "error", err)
		if m.Metrics != nil {
			m.Metrics.FeedFetched(feed, 0, err)
		}
		return nil
	}

	return buf
}

func (m *Manager) feedDecoded(feed string, entities int, err error) {
	if err != nil {
		m.logger().Warn("realtime feed malformed", "feed", feed, "error", err)
	} else {
		m.logger().Debug("realtime feed decoded", "feed", feed, "entities", entities)
	}
	if m.Metrics != nil {
		m.Metrics.FeedFetched(feed, entities, err)
	}
}
