package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Lists active service alerts",
	Args:  cobra.NoArgs,
	RunE:  alerts,
}

var (
	alertsRouteID string
	alertsStopID  string
)

func init() {
	alertsCmd.Flags().StringVarP(&alertsRouteID, "route", "r", "", "Only alerts naming this route")
	alertsCmd.Flags().StringVarP(&alertsStopID, "stop", "s", "", "Only alerts naming this stop")
	rootCmd.AddCommand(alertsCmd)
}

func alerts(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	alerts, err := a.manager.Alerts(context.Background(), alertsRouteID, alertsStopID)
	if err != nil {
		return err
	}

	for _, alert := range alerts {
		fmt.Printf("%s: %s\n", alert.ID, alert.Header)
		if alert.Description != "" {
			fmt.Printf("  %s\n", alert.Description)
		}
		if alert.Effect != "" {
			fmt.Printf("  %s / %s\n", alert.Cause, alert.Effect)
		}
	}

	return nil
}
