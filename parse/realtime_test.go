package parse

import (
	"testing"
	"time"

	p "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	proto "google.golang.org/protobuf/proto"

	"campustransit.dev/transit/model"
)

func marshalFeed(t *testing.T, entities ...*p.FeedEntity) []byte {
	data, err := proto.Marshal(&p.FeedMessage{
		Header: &p.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      p.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(1702473763),
		},
		Entity: entities,
	})
	require.NoError(t, err)
	return data
}

func TestParseRealtimeBadHeader(t *testing.T) {
	for _, tc := range []struct {
		name           string
		version        string
		incrementality p.FeedHeader_Incrementality
		err            bool
	}{
		{"v2", "2.0", p.FeedHeader_FULL_DATASET, false},
		{"v1", "1.0", p.FeedHeader_FULL_DATASET, false},
		{"v2_minor", "2.1", p.FeedHeader_FULL_DATASET, false},
		{"v3", "3.0", p.FeedHeader_FULL_DATASET, true},
		{"no_version", "", p.FeedHeader_FULL_DATASET, true},
		{"differential", "2.0", p.FeedHeader_DIFFERENTIAL, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data, err := proto.Marshal(&p.FeedMessage{
				Header: &p.FeedHeader{
					GtfsRealtimeVersion: proto.String(tc.version),
					Incrementality:      tc.incrementality.Enum(),
					Timestamp:           proto.Uint64(1702473763),
				},
			})
			require.NoError(t, err)

			_, err = ParseVehiclePositions(data)
			assert.Equal(t, tc.err, err != nil)
			_, err = ParseTripUpdates(data)
			assert.Equal(t, tc.err, err != nil)
			_, err = ParseAlerts(data)
			assert.Equal(t, tc.err, err != nil)
		})
	}
}

func TestParseRealtimeGarbage(t *testing.T) {
	_, err := ParseVehiclePositions([]byte("definitely not protobuf"))
	assert.Error(t, err)
}

func TestParseVehiclePositions(t *testing.T) {
	data := marshalFeed(t,
		&p.FeedEntity{
			Id: proto.String("e1"),
			Vehicle: &p.VehiclePosition{
				Trip:    &p.TripDescriptor{TripId: proto.String("t1"), RouteId: proto.String("east")},
				Vehicle: &p.VehicleDescriptor{Id: proto.String("bus-12"), Label: proto.String("12")},
				Position: &p.Position{
					Latitude:  proto.Float32(33.5),
					Longitude: proto.Float32(-83.25),
					Bearing:   proto.Float32(90),
					Speed:     proto.Float32(8.5),
				},
				CurrentStopSequence: proto.Uint32(4),
				CurrentStatus:       p.VehiclePosition_STOPPED_AT.Enum(),
				OccupancyStatus:     p.VehiclePosition_EMPTY.Enum(),
				Timestamp:           proto.Uint64(1702473700),
			},
		},
		// No vehicle descriptor, no occupancy, no timestamp
		&p.FeedEntity{
			Id: proto.String("e2"),
			Vehicle: &p.VehiclePosition{
				Trip: &p.TripDescriptor{TripId: proto.String("t2")},
				Position: &p.Position{
					Latitude:  proto.Float32(33.25),
					Longitude: proto.Float32(-83.5),
				},
			},
		},
		// No position: skipped
		&p.FeedEntity{
			Id: proto.String("e3"),
			Vehicle: &p.VehiclePosition{
				Vehicle: &p.VehicleDescriptor{Id: proto.String("bus-13")},
			},
		},
		// Not a vehicle: ignored
		&p.FeedEntity{
			Id:    proto.String("e4"),
			Alert: &p.Alert{},
		},
	)

	vehicles, err := ParseVehiclePositions(data)
	require.NoError(t, err)
	require.Equal(t, 2, len(vehicles))

	bearing := float32(90)
	speed := float32(8.5)
	seq := uint32(4)
	assert.Equal(t, model.VehiclePosition{
		VehicleID:    "bus-12",
		Label:        "12",
		TripID:       "t1",
		RouteID:      "east",
		Lat:          33.5,
		Lon:          -83.25,
		Bearing:      &bearing,
		Speed:        &speed,
		StopSequence: &seq,
		Status:       "STOPPED_AT",
		Occupancy:    model.OccupancyEmpty,
		Timestamp:    1702473700,
	}, vehicles[0])

	assert.Equal(t, model.VehiclePosition{
		VehicleID: "e2",
		TripID:    "t2",
		Lat:       33.25,
		Lon:       -83.5,
		Occupancy: model.OccupancyUnknown,
		Timestamp: 1702473763,
	}, vehicles[1])
}

func TestParseVehicleOccupancyCodes(t *testing.T) {
	for code, expected := range map[p.VehiclePosition_OccupancyStatus]model.OccupancyStatus{
		p.VehiclePosition_EMPTY:                      model.OccupancyEmpty,
		p.VehiclePosition_MANY_SEATS_AVAILABLE:       model.OccupancyManySeatsAvailable,
		p.VehiclePosition_FEW_SEATS_AVAILABLE:        model.OccupancyFewSeatsAvailable,
		p.VehiclePosition_STANDING_ROOM_ONLY:         model.OccupancyStandingRoomOnly,
		p.VehiclePosition_CRUSHED_STANDING_ROOM_ONLY: model.OccupancyCrushedStandingRoomOnly,
		p.VehiclePosition_FULL:                       model.OccupancyFull,
		p.VehiclePosition_NOT_ACCEPTING_PASSENGERS:   model.OccupancyNotAcceptingPassengers,
		p.VehiclePosition_OccupancyStatus(42):        model.OccupancyUnknown,
	} {
		data := marshalFeed(t, &p.FeedEntity{
			Id: proto.String("e"),
			Vehicle: &p.VehiclePosition{
				Position:        &p.Position{Latitude: proto.Float32(1), Longitude: proto.Float32(1)},
				OccupancyStatus: code.Enum(),
			},
		})
		vehicles, err := ParseVehiclePositions(data)
		require.NoError(t, err)
		require.Equal(t, 1, len(vehicles))
		assert.Equal(t, expected, vehicles[0].Occupancy, "code %d", code)
	}
}

func TestParseTripUpdates(t *testing.T) {
	data := marshalFeed(t,
		&p.FeedEntity{
			Id: proto.String("e1"),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{
					TripId:               proto.String("t1"),
					RouteId:              proto.String("east"),
					ScheduleRelationship: p.TripDescriptor_SCHEDULED.Enum(),
				},
				Timestamp: proto.Uint64(1702473000),
				StopTimeUpdate: []*p.TripUpdate_StopTimeUpdate{
					// Both arrival and departure set
					{
						StopSequence: proto.Uint32(3),
						StopId:       proto.String("a"),
						Arrival: &p.TripUpdate_StopTimeEvent{
							Delay: proto.Int32(60),
						},
						Departure: &p.TripUpdate_StopTimeEvent{
							Delay:       proto.Int32(120),
							Time:        proto.Int64(time.Date(2024, 3, 1, 8, 2, 0, 0, time.UTC).Unix()),
							Uncertainty: proto.Int32(30),
						},
					},
					// Only stop_id, skipped
					{
						StopId:               proto.String("b"),
						ScheduleRelationship: p.TripUpdate_StopTimeUpdate_SKIPPED.Enum(),
					},
					// No data
					{
						StopSequence:         proto.Uint32(9),
						ScheduleRelationship: p.TripUpdate_StopTimeUpdate_NO_DATA.Enum(),
					},
					// Frequency based: dropped
					{
						StopSequence:         proto.Uint32(10),
						ScheduleRelationship: p.TripUpdate_StopTimeUpdate_UNSCHEDULED.Enum(),
					},
				},
			},
		},
		&p.FeedEntity{
			Id: proto.String("e2"),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{
					TripId:               proto.String("t2"),
					ScheduleRelationship: p.TripDescriptor_CANCELED.Enum(),
				},
			},
		},
		// Added trips aren't in the schedule
		&p.FeedEntity{
			Id: proto.String("e3"),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{
					TripId:               proto.String("t3"),
					ScheduleRelationship: p.TripDescriptor_ADDED.Enum(),
				},
			},
		},
		// Blank trip_id
		&p.FeedEntity{
			Id: proto.String("e4"),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{RouteId: proto.String("east")},
			},
		},
	)

	updates, err := ParseTripUpdates(data)
	require.NoError(t, err)
	require.Equal(t, 2, len(updates))

	assert.Equal(t, model.TripUpdate{
		TripID:    "t1",
		RouteID:   "east",
		Timestamp: 1702473000,
		StopTimeUpdates: []model.StopTimeUpdate{
			{
				StopSequence:    3,
				HasStopSequence: true,
				StopID:          "a",
				Arrival:         &model.StopTimeEvent{Delay: 60 * time.Second, HasDelay: true},
				Departure: &model.StopTimeEvent{
					Delay:          120 * time.Second,
					HasDelay:       true,
					Time:           time.Date(2024, 3, 1, 8, 2, 0, 0, time.UTC).Unix(),
					HasTime:        true,
					Uncertainty:    30,
					HasUncertainty: true,
				},
				Relationship: model.StopTimeUpdateScheduled,
			},
			{
				StopID:       "b",
				Relationship: model.StopTimeUpdateSkipped,
			},
			{
				StopSequence:    9,
				HasStopSequence: true,
				Relationship:    model.StopTimeUpdateNoData,
			},
		},
	}, updates[0])

	assert.Equal(t, model.TripUpdate{
		TripID:          "t2",
		Canceled:        true,
		Timestamp:       1702473763,
		StopTimeUpdates: []model.StopTimeUpdate{},
	}, updates[1])
}

func TestParseTripUpdatesStopTimeUpdateWithoutStop(t *testing.T) {
	data := marshalFeed(t, &p.FeedEntity{
		Id: proto.String("e1"),
		TripUpdate: &p.TripUpdate{
			Trip: &p.TripDescriptor{TripId: proto.String("t1")},
			StopTimeUpdate: []*p.TripUpdate_StopTimeUpdate{{
				Arrival: &p.TripUpdate_StopTimeEvent{Delay: proto.Int32(60)},
			}},
		},
	})

	_, err := ParseTripUpdates(data)
	assert.Error(t, err)
}

func TestParseAlerts(t *testing.T) {
	data := marshalFeed(t,
		&p.FeedEntity{
			Id: proto.String("alert-1"),
			Alert: &p.Alert{
				ActivePeriod: []*p.TimeRange{
					{Start: proto.Uint64(1702400000), End: proto.Uint64(1702500000)},
					{Start: proto.Uint64(1702600000)},
				},
				InformedEntity: []*p.EntitySelector{
					{RouteId: proto.String("east")},
					{StopId: proto.String("a")},
					{Trip: &p.TripDescriptor{TripId: proto.String("t1")}},
				},
				Cause:  p.Alert_CONSTRUCTION.Enum(),
				Effect: p.Alert_DETOUR.Enum(),
				HeaderText: &p.TranslatedString{
					Translation: []*p.TranslatedString_Translation{
						{Text: proto.String("Detour on East"), Language: proto.String("en")},
						{Text: proto.String("Desvío"), Language: proto.String("es")},
					},
				},
				DescriptionText: &p.TranslatedString{
					Translation: []*p.TranslatedString_Translation{
						{Text: proto.String("Stop A closed")},
					},
				},
			},
		},
		&p.FeedEntity{
			Id:    proto.String("alert-2"),
			Alert: &p.Alert{},
		},
	)

	alerts, err := ParseAlerts(data)
	require.NoError(t, err)
	require.Equal(t, 2, len(alerts))

	assert.Equal(t, model.ServiceAlert{
		ID:          "alert-1",
		Header:      "Detour on East",
		Description: "Stop A closed",
		Cause:       "CONSTRUCTION",
		Effect:      "DETOUR",
		InformedEntities: []model.InformedEntity{
			{RouteID: "east"},
			{StopID: "a"},
			{TripID: "t1"},
		},
		Start: 1702400000,
		End:   1702500000,
	}, alerts[0])

	assert.Equal(t, model.ServiceAlert{
		ID:               "alert-2",
		InformedEntities: []model.InformedEntity{},
	}, alerts[1])
}

func TestUnixSeconds(t *testing.T) {
	assert.Equal(t, int64(1702473763), UnixSeconds(1702473763))
	assert.Equal(t, int64(0), UnixSeconds(0))
	assert.Equal(t, int64(0), UnixSeconds(1<<63))
}
