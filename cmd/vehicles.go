package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "Lists live vehicles",
	Args:  cobra.NoArgs,
	RunE:  vehicles,
}

var vehiclesRouteID string

func init() {
	vehiclesCmd.Flags().StringVarP(&vehiclesRouteID, "route", "r", "", "Restrict to a specific route")
	rootCmd.AddCommand(vehiclesCmd)
}

func vehicles(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	vehicles, err := a.manager.Vehicles(context.Background(), vehiclesRouteID)
	if err != nil {
		return err
	}

	for _, v := range vehicles {
		fmt.Printf(
			"%s %s %s (%f, %f) [%s] %s\n",
			v.VehicleID,
			v.RouteName,
			v.Headsign,
			v.Lat,
			v.Lon,
			v.Occupancy,
			time.Unix(v.Timestamp, 0).Format(time.RFC3339),
		)
	}

	return nil
}
