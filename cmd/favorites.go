package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"campustransit.dev/transit"
	"campustransit.dev/transit/model"
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manages saved trips",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists saved trips",
	Args:  cobra.NoArgs,
	RunE:  favoritesList,
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <name> <from_stop_id> <to_stop_id>",
	Short: "Saves a trip",
	Args:  cobra.ExactArgs(3),
	RunE:  favoritesAdd,
}

var favoritesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Deletes a saved trip",
	Args:  cobra.ExactArgs(1),
	RunE:  favoritesRm,
}

var favoritesGoCmd = &cobra.Command{
	Use:   "go <id>",
	Short: "Ranks options for a saved trip",
	Args:  cobra.ExactArgs(1),
	RunE:  favoritesGo,
}

var (
	favoriteRoutes   []string
	favoritePriority string
	favoriteMaxWait  time.Duration
)

func init() {
	favoritesAddCmd.Flags().StringSliceVarP(&favoriteRoutes, "route", "r", []string{}, "Preferred routes")
	favoritesAddCmd.Flags().StringVarP(&favoritePriority, "priority", "p", "time", "Priority mode (time, occupancy)")
	favoritesGoCmd.Flags().DurationVarP(&favoriteMaxWait, "max-wait", "w", transit.DefaultMaxWait, "Longest acceptable wait")

	favoritesCmd.AddCommand(favoritesListCmd, favoritesAddCmd, favoritesRmCmd, favoritesGoCmd)
	rootCmd.AddCommand(favoritesCmd)
}

func parseFavoriteID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid favorite id: %w", err)
	}
	return id, nil
}

func favoritesList(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	favs, err := a.manager.ListFavorites()
	if err != nil {
		return err
	}

	for _, f := range favs {
		routes := "any route"
		if len(f.PreferredRoutes) > 0 {
			routes = strings.Join(f.PreferredRoutes, ",")
		}
		fmt.Printf("%d: %s %s -> %s (%s, %s)\n", f.ID, f.Name, f.FromStopID, f.ToStopID, routes, f.PriorityMode)
	}

	return nil
}

func favoritesAdd(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	fav := &model.Favorite{
		Name:            args[0],
		FromStopID:      args[1],
		ToStopID:        args[2],
		PreferredRoutes: favoriteRoutes,
		PriorityMode:    model.PriorityMode(favoritePriority),
	}
	if err := a.manager.CreateFavorite(fav); err != nil {
		return err
	}

	slog.Info("favorite saved", "id", fav.ID, "name", fav.Name)
	fmt.Println(fav.ID)

	return nil
}

func favoritesRm(cmd *cobra.Command, args []string) error {
	id, err := parseFavoriteID(args[0])
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.manager.DeleteFavorite(id); err != nil {
		return err
	}

	slog.Info("favorite deleted", "id", id)

	return nil
}

func favoritesGo(cmd *cobra.Command, args []string) error {
	id, err := parseFavoriteID(args[0])
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.manager.FavoriteDirections(context.Background(), id, favoriteMaxWait)
	if err != nil {
		return err
	}

	printDirections(result)

	return nil
}
