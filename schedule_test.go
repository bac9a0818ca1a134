package transit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustransit.dev/transit"
	"campustransit.dev/transit/model"
)

func TestStopScheduleOrderedByEstimate(t *testing.T) {
	c := campusCatalog(t)

	// t1 reaches a at 08:00, t2 at 08:15 and t3 at 08:20 and 08:35.
	// A 21 minute delay on t1 pushes it behind t2 and t3's first visit.
	rt := transit.NewRealtime(
		[]model.VehiclePosition{{VehicleID: "v", TripID: "t2", Occupancy: model.OccupancyEmpty}},
		[]model.TripUpdate{{
			TripID: "t1",
			StopTimeUpdates: []model.StopTimeUpdate{{
				StopSequence:    3,
				HasStopSequence: true,
				Arrival:         &model.StopTimeEvent{Delay: 21 * time.Minute, HasDelay: true},
			}},
		}},
		nil,
	)

	entries := transit.StopSchedule(c, rt, "a", "", 4*time.Hour, 20, at(7, 0, 0))
	require.Len(t, entries, 4)

	assert.Equal(t, "t2", entries[0].TripID)
	assert.Equal(t, model.OccupancyEmpty, entries[0].Occupancy)
	assert.Equal(t, "Campus Loop", entries[0].RouteName)
	assert.Equal(t, "Arch", entries[0].StopName)

	assert.Equal(t, "t3", entries[1].TripID)
	assert.Equal(t, "08:20:00", entries[1].ScheduledArrival)

	assert.Equal(t, "t1", entries[2].TripID)
	assert.Equal(t, "08:00:00", entries[2].ScheduledArrival)
	assert.Equal(t, at(8, 21, 0), entries[2].EstimatedArrival)
	assert.Equal(t, 21*time.Minute, entries[2].Delay)
	assert.Equal(t, model.OccupancyUnknown, entries[2].Occupancy)

	assert.Equal(t, "t3", entries[3].TripID)
	assert.Equal(t, at(8, 35, 0), entries[3].EstimatedArrival)
}

func TestStopScheduleWindowAndLimit(t *testing.T) {
	c := campusCatalog(t)

	// Window
	entries := transit.StopSchedule(c, nil, "a", "", 16*time.Minute, 20, at(8, 0, 0))
	require.Len(t, entries, 2)
	assert.Equal(t, "t1", entries[0].TripID)
	assert.Equal(t, "t2", entries[1].TripID)

	// Limit
	entries = transit.StopSchedule(c, nil, "a", "", 4*time.Hour, 1, at(8, 0, 0))
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].TripID)

	// Route filter
	entries = transit.StopSchedule(c, nil, "a", "loop", 4*time.Hour, 20, at(8, 0, 0))
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "loop", e.RouteID)
	}

	// Passed arrivals roll over to tomorrow, outside the window
	entries = transit.StopSchedule(c, nil, "a", "", 4*time.Hour, 20, at(9, 0, 0))
	assert.Empty(t, entries)

	// Unknown stop and a stop without service
	assert.Empty(t, transit.StopSchedule(c, nil, "zzz", "", 4*time.Hour, 20, at(8, 0, 0)))
	assert.Empty(t, transit.StopSchedule(c, nil, "c", "", 4*time.Hour, 20, at(8, 0, 0)))
}

func TestStopScheduleOmitsCanceled(t *testing.T) {
	c := campusCatalog(t)

	rt := transit.NewRealtime(nil, []model.TripUpdate{
		{TripID: "t1", Canceled: true},
		{
			TripID: "t3",
			StopTimeUpdates: []model.StopTimeUpdate{
				{StopSequence: 3, HasStopSequence: true, Relationship: model.StopTimeUpdateSkipped},
			},
		},
	}, nil)

	entries := transit.StopSchedule(c, rt, "a", "", 4*time.Hour, 20, at(7, 0, 0))
	require.Len(t, entries, 2)
	assert.Equal(t, "t2", entries[0].TripID)
	assert.Equal(t, "t3", entries[1].TripID)
	assert.Equal(t, "08:20:00", entries[1].ScheduledArrival)
}
