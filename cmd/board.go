package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var boardCmd = &cobra.Command{
	Use:   "board <stop_id>",
	Short: "Repeatedly shows upcoming arrivals at a stop",
	Long:  "Refreshes the schedule for a stop until interrupted, serving /metrics if a metrics address is configured",
	Args:  cobra.ExactArgs(1),
	RunE:  board,
}

var (
	boardInterval time.Duration
	boardRouteID  string
)

func init() {
	boardCmd.Flags().DurationVarP(&boardInterval, "interval", "i", 30*time.Second, "Refresh interval")
	boardCmd.Flags().StringVarP(&boardRouteID, "route", "r", "", "Restrict to a specific route")
	rootCmd.AddCommand(boardCmd)
}

func board(cmd *cobra.Command, args []string) error {
	if boardInterval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.collector != nil {
		srv := a.collector.Serve(a.cfg.MetricsAddr)
		defer srv.Close()
	}

	ticker := time.NewTicker(boardInterval)
	defer ticker.Stop()

	for {
		entries, err := a.manager.Schedule(ctx, args[0], boardRouteID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("refreshing board", "stop", args[0], "error", err)
		} else {
			fmt.Printf("--- %s\n", time.Now().Format(time.Kitchen))
			printSchedule(entries)
		}

		if _, err := a.manager.ClearExpired(); err != nil {
			slog.Warn("clearing expired cache entries", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
