package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes [route_id]",
	Short: "Lists routes, or shows a single route with its shape",
	Args:  cobra.MaximumNArgs(1),
	RunE:  routes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func routes(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	if len(args) == 1 {
		detail, err := a.manager.Route(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s %s #%s\n", detail.Route.ID, detail.Route.ShortName, detail.Route.LongName, detail.Route.Color)
		for _, p := range detail.Shape {
			fmt.Printf("  %d %f,%f\n", p.Sequence, p.Lat, p.Lon)
		}
		return nil
	}

	routes, err := a.manager.ListRoutes(ctx)
	if err != nil {
		return err
	}
	for _, r := range routes {
		fmt.Printf("%s: %s\n", r.ID, r.DisplayName())
	}

	return nil
}
