package transit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campustransit.dev/transit"
	"campustransit.dev/transit/model"
	"campustransit.dev/transit/testutil"
)

// A small campus. Trip t1 on route east visits a (seq 3, 08:00) then
// b (seq 7, 08:10). Trip t2 on the loop visits b before a. Trip t3 on
// the loop visits a, b and a again.
func campusFiles() map[string][]string {
	return map[string][]string{
		"routes.txt": {
			"route_id,route_short_name,route_long_name,route_type,route_color",
			"east,E,East Campus,3,BA0C2F",
			"loop,,Campus Loop,3,",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"a,Arch,33.9558,-83.3753",
			"b,Boyd,33.9465,-83.3756",
			"c,Coliseum,33.9422,-83.3727",
		},
		"trips.txt": {
			"trip_id,route_id,trip_headsign,shape_id",
			"t1,east,Boyd,sh1",
			"t2,loop,Arch,",
			"t3,loop,Arch,",
		},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,arrival_time,departure_time",
			"t1,b,7,08:10:00,08:10:00",
			"t1,a,3,08:00:00,08:00:00",
			"t2,b,1,08:05:00,08:05:00",
			"t2,a,2,08:15:00,08:15:00",
			"t3,a,1,08:20:00,08:20:00",
			"t3,b,2,08:25:00,08:26:00",
			"t3,a,3,08:35:00,08:35:00",
		},
		"shapes.txt": {
			"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence",
			"sh1,33.9465,-83.3756,2",
			"sh1,33.9558,-83.3753,1",
		},
	}
}

func campusCatalog(t *testing.T) *transit.Catalog {
	return testutil.BuildCatalog(t, campusFiles())
}

// 2024-03-01 at the given time of day, UTC.
func at(hour, minute, second int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, second, 0, time.UTC)
}

func stopTime(t *testing.T, c *transit.Catalog, tripID string, seq uint32) *model.StopTime {
	for _, st := range c.StopTimesForTrip(tripID) {
		if st.StopSequence == seq {
			return st
		}
	}
	require.FailNow(t, "no such stop time", "%s/%d", tripID, seq)
	return nil
}

func delayed(tripID string, seq uint32, departure time.Duration) model.TripUpdate {
	return model.TripUpdate{
		TripID: tripID,
		StopTimeUpdates: []model.StopTimeUpdate{{
			StopSequence:    seq,
			HasStopSequence: true,
			Departure:       &model.StopTimeEvent{Delay: departure, HasDelay: true},
		}},
	}
}
