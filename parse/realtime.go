package parse

import (
	"fmt"
	"math"
	"strings"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	proto "google.golang.org/protobuf/proto"

	"campustransit.dev/transit/model"
)

// Unmarshals a GTFS-rt feed and validates its header.
func parseFeedMessage(buf []byte) (*gtfsproto.FeedMessage, error) {
	f := &gtfsproto.FeedMessage{}
	err := proto.Unmarshal(buf, f)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling protobuf: %w", err)
	}

	header := f.GetHeader()

	version := header.GetGtfsRealtimeVersion()
	major, _, _ := strings.Cut(version, ".")
	if major != "1" && major != "2" {
		return nil, fmt.Errorf("version %q not supported", version)
	}

	if header.GetIncrementality() != gtfsproto.FeedHeader_FULL_DATASET {
		return nil, fmt.Errorf("feed incrementality %s not supported", header.GetIncrementality())
	}

	return f, nil
}

// Normalizes a 64 bit wire timestamp to Unix seconds. Values that
// don't fit are treated as absent.
func UnixSeconds(ts uint64) int64 {
	if ts > math.MaxInt64 {
		return 0
	}
	return int64(ts)
}

func ParseVehiclePositions(buf []byte) ([]model.VehiclePosition, error) {
	f, err := parseFeedMessage(buf)
	if err != nil {
		return nil, err
	}
	headerTimestamp := UnixSeconds(f.GetHeader().GetTimestamp())

	vehicles := []model.VehiclePosition{}
	for _, entity := range f.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil {
			continue
		}

		// Nothing to show without a position
		if vp.Position == nil {
			continue
		}

		v := model.VehiclePosition{
			VehicleID: vp.GetVehicle().GetId(),
			Label:     vp.GetVehicle().GetLabel(),
			TripID:    vp.GetTrip().GetTripId(),
			RouteID:   vp.GetTrip().GetRouteId(),
			Lat:       float64(vp.GetPosition().GetLatitude()),
			Lon:       float64(vp.GetPosition().GetLongitude()),
			Bearing:   vp.GetPosition().Bearing,
			Speed:     vp.GetPosition().Speed,
			Occupancy: model.OccupancyUnknown,
			Timestamp: headerTimestamp,
		}
		if v.VehicleID == "" {
			v.VehicleID = entity.GetId()
		}
		if vp.CurrentStopSequence != nil {
			seq := vp.GetCurrentStopSequence()
			v.StopSequence = &seq
		}
		if vp.CurrentStatus != nil {
			v.Status = vp.GetCurrentStatus().String()
		}
		if vp.OccupancyStatus != nil {
			v.Occupancy = model.OccupancyFromCode(int32(vp.GetOccupancyStatus()))
		}
		if vp.Timestamp != nil {
			v.Timestamp = UnixSeconds(vp.GetTimestamp())
		}

		vehicles = append(vehicles, v)
	}

	return vehicles, nil
}

func ParseTripUpdates(buf []byte) ([]model.TripUpdate, error) {
	f, err := parseFeedMessage(buf)
	if err != nil {
		return nil, err
	}
	headerTimestamp := UnixSeconds(f.GetHeader().GetTimestamp())

	updates := []model.TripUpdate{}
	for _, entity := range f.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}

		trip := tu.GetTrip()
		if trip == nil {
			return nil, fmt.Errorf("trip_update %q missing trip", entity.GetId())
		}

		// Blank trip ID is allowed when (route_id,
		// direction_id, start_time, start_date) uniquely
		// identifies the trip. We don't support it.
		if trip.GetTripId() == "" {
			continue
		}

		update := model.TripUpdate{
			TripID:          trip.GetTripId(),
			RouteID:         trip.GetRouteId(),
			Timestamp:       headerTimestamp,
			StopTimeUpdates: []model.StopTimeUpdate{},
		}
		if tu.Timestamp != nil {
			update.Timestamp = UnixSeconds(tu.GetTimestamp())
		}

		switch trip.GetScheduleRelationship() {
		case gtfsproto.TripDescriptor_SCHEDULED:
			for _, stu := range tu.GetStopTimeUpdate() {
				parsed, ok, err := parseStopTimeUpdate(stu)
				if err != nil {
					return nil, fmt.Errorf("trip_id '%s': %w", update.TripID, err)
				}
				if ok {
					update.StopTimeUpdates = append(update.StopTimeUpdates, parsed)
				}
			}

		case gtfsproto.TripDescriptor_CANCELED:
			update.Canceled = true

		default:
			// ADDED, UNSCHEDULED and DUPLICATED trips aren't
			// in the static schedule. Not supported.
			continue
		}

		updates = append(updates, update)
	}

	return updates, nil
}

func parseStopTimeEvent(e *gtfsproto.TripUpdate_StopTimeEvent) *model.StopTimeEvent {
	if e == nil {
		return nil
	}
	event := &model.StopTimeEvent{}
	if e.Delay != nil {
		event.HasDelay = true
		event.Delay = time.Duration(e.GetDelay()) * time.Second
	}
	if e.Time != nil && e.GetTime() != 0 {
		event.HasTime = true
		event.Time = e.GetTime()
	}
	if e.Uncertainty != nil {
		event.HasUncertainty = true
		event.Uncertainty = e.GetUncertainty()
	}
	return event
}

func parseStopTimeUpdate(update *gtfsproto.TripUpdate_StopTimeUpdate) (model.StopTimeUpdate, bool, error) {
	stu := model.StopTimeUpdate{
		StopID:    update.GetStopId(),
		Arrival:   parseStopTimeEvent(update.Arrival),
		Departure: parseStopTimeEvent(update.Departure),
	}
	if update.StopSequence != nil {
		stu.HasStopSequence = true
		stu.StopSequence = update.GetStopSequence()
	}

	if !stu.HasStopSequence && stu.StopID == "" {
		return stu, false, fmt.Errorf("stop_time_update missing stop_id and stop_sequence")
	}

	switch update.GetScheduleRelationship() {
	case gtfsproto.TripUpdate_StopTimeUpdate_SCHEDULED:
		stu.Relationship = model.StopTimeUpdateScheduled
	case gtfsproto.TripUpdate_StopTimeUpdate_SKIPPED:
		stu.Relationship = model.StopTimeUpdateSkipped
	case gtfsproto.TripUpdate_StopTimeUpdate_NO_DATA:
		stu.Relationship = model.StopTimeUpdateNoData
	default:
		// For frequency based trips. Not supported!
		return stu, false, nil
	}

	return stu, true, nil
}

func translatedText(ts *gtfsproto.TranslatedString) string {
	for _, t := range ts.GetTranslation() {
		if t.GetText() != "" {
			return t.GetText()
		}
	}
	return ""
}

func ParseAlerts(buf []byte) ([]model.ServiceAlert, error) {
	f, err := parseFeedMessage(buf)
	if err != nil {
		return nil, err
	}

	alerts := []model.ServiceAlert{}
	for _, entity := range f.GetEntity() {
		a := entity.GetAlert()
		if a == nil {
			continue
		}

		alert := model.ServiceAlert{
			ID:               entity.GetId(),
			Header:           translatedText(a.GetHeaderText()),
			Description:      translatedText(a.GetDescriptionText()),
			InformedEntities: []model.InformedEntity{},
		}
		if a.Cause != nil {
			alert.Cause = a.GetCause().String()
		}
		if a.Effect != nil {
			alert.Effect = a.GetEffect().String()
		}
		for _, ie := range a.GetInformedEntity() {
			alert.InformedEntities = append(alert.InformedEntities, model.InformedEntity{
				RouteID: ie.GetRouteId(),
				StopID:  ie.GetStopId(),
				TripID:  ie.GetTrip().GetTripId(),
			})
		}
		if periods := a.GetActivePeriod(); len(periods) > 0 {
			alert.Start = UnixSeconds(periods[0].GetStart())
			alert.End = UnixSeconds(periods[0].GetEnd())
		}

		alerts = append(alerts, alert)
	}

	return alerts, nil
}
