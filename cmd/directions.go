package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"campustransit.dev/transit"
	"campustransit.dev/transit/model"
)

var directionsCmd = &cobra.Command{
	Use:   "directions <from_stop_id> <to_stop_id>",
	Short: "Ranks single trip options between two stops",
	Args:  cobra.ExactArgs(2),
	RunE:  directions,
}

var (
	priority     string
	maxWait      time.Duration
	timeWeight   float64
	maxOccupancy float64
	routeIDs     []string
)

func init() {
	directionsCmd.Flags().StringVarP(&priority, "priority", "p", "time", "Priority mode (time, occupancy)")
	directionsCmd.Flags().DurationVarP(&maxWait, "max-wait", "w", transit.DefaultMaxWait, "Longest acceptable wait")
	directionsCmd.Flags().Float64VarP(&timeWeight, "time-weight", "", 0, "Weight of wait time against crowding, in [0, 1]")
	directionsCmd.Flags().Float64VarP(&maxOccupancy, "max-occupancy", "", 0, "Drop options with a higher occupancy score")
	directionsCmd.Flags().StringSliceVarP(&routeIDs, "route", "r", []string{}, "Restrict to specific routes")
	rootCmd.AddCommand(directionsCmd)
}

func printDirections(result *transit.DirectionsResult) {
	fmt.Printf(
		"%s -> %s (%.2f km, %s priority)\n",
		result.From.Name,
		result.To.Name,
		result.DistanceKm,
		result.Mode,
	)
	fmt.Println(result.Recommendation.Reason)

	for i, o := range result.Options {
		fmt.Printf(
			"%d. %s %s %s (%s scheduled, %+ds) %s [%s] score %.1f\n",
			i+1,
			o.EstimatedArrival.Format(time.Kitchen),
			o.RouteName,
			o.TripID,
			o.ScheduledArrival,
			int(o.Delay.Seconds()),
			o.Headsign,
			o.Occupancy,
			o.CombinedScore,
		)
	}

	for _, alert := range result.Alerts {
		fmt.Printf("! %s\n", alert.Header)
	}
}

func directions(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	req := transit.DirectionsRequest{
		FromStopID: args[0],
		ToStopID:   args[1],
		Mode:       model.PriorityMode(priority),
		MaxWait:    maxWait,
		Routes:     routeIDs,
	}
	if cmd.Flags().Changed("time-weight") {
		req.TimeWeight = &timeWeight
	}
	if cmd.Flags().Changed("max-occupancy") {
		req.MaxOccupancyScore = &maxOccupancy
	}

	result, err := a.manager.Directions(context.Background(), req)
	if err != nil {
		return err
	}

	printDirections(result)

	return nil
}
