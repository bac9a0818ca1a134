package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"campustransit.dev/transit/model"
)

var stopsCmd = &cobra.Command{
	Use:   "stops [stop_id | lat lng [limit]]",
	Short: "Lists stops, stops near a geographical location, or a single stop",
	Args:  cobra.RangeArgs(0, 3),
	RunE:  stops,
}

func init() {
	rootCmd.AddCommand(stopsCmd)
}

func stops(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	if len(args) == 1 {
		detail, err := a.manager.Stop(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s (%f, %f)\n", detail.Stop.ID, detail.Stop.Name, detail.Stop.Lat, detail.Stop.Lon)
		for _, st := range detail.StopTimes {
			fmt.Printf("  %s trip %s seq %d\n", st.DepartureClock(), st.TripID, st.StopSequence)
		}
		return nil
	}

	var lat, lng float64
	var limit int

	if len(args) >= 2 {
		lat, err = strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid lat: %w", err)
		}
		lng, err = strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid lng: %w", err)
		}
	}
	if len(args) == 3 {
		limit, err = strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid limit: %w", err)
		}
		if limit < 0 {
			return fmt.Errorf("limit must be >= 0")
		}
	}

	var stops []*model.Stop
	if len(args) >= 2 {
		stops, err = a.manager.NearbyStops(ctx, lat, lng, limit)
		if err != nil {
			return err
		}
	} else {
		all, err := a.manager.ListStops(ctx)
		if err != nil {
			return err
		}

		// sort by name
		stops = append(stops, all...)
		sort.Slice(stops, func(i, j int) bool {
			return stops[i].Name < stops[j].Name
		})
	}

	for _, stop := range stops {
		fmt.Printf("%s: %s\n", stop.ID, stop.Name)
	}

	return nil
}
