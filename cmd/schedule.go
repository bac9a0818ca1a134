package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"campustransit.dev/transit/model"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <stop_id>",
	Short: "Lists upcoming arrivals at a stop",
	Args:  cobra.ExactArgs(1),
	RunE:  schedule,
}

var scheduleRouteID string

func init() {
	scheduleCmd.Flags().StringVarP(&scheduleRouteID, "route", "r", "", "Restrict to a specific route")
	rootCmd.AddCommand(scheduleCmd)
}

func printSchedule(entries []model.ScheduleEntry) {
	for _, e := range entries {
		delay := ""
		if e.Delay != 0 {
			delay = fmt.Sprintf(" (%+ds)", int(e.Delay.Seconds()))
		}
		fmt.Printf(
			"%s %s %s%s %s [%s]\n",
			e.EstimatedArrival.Format(time.Kitchen),
			e.RouteName,
			e.ScheduledArrival,
			delay,
			e.Headsign,
			e.Occupancy,
		)
	}
}

func schedule(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.manager.Schedule(context.Background(), args[0], scheduleRouteID)
	if err != nil {
		return err
	}

	printSchedule(entries)

	return nil
}
