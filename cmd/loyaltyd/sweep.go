package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmgreenstreet/current-cats-iframe/internal/gateway"
	"github.com/rmgreenstreet/current-cats-iframe/internal/reconcile"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one reconciliation pass over all loyalty accounts",
	Long: `Recompute each loyalty account's expected lifetime points from purchase
history and credit any shortfall. Interruptible with SIGINT/SIGTERM; the sweep
stops cleanly between accounts.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := gateway.NewClient(cfg.SquareBaseURL, cfg.SquareAccessToken)
	report, err := reconcile.New(client).Run(ctx)

	if report != nil {
		fmt.Printf("Accounts processed: %d\n", report.Accounts)
		fmt.Printf("Adjusted:           %d (+%d points)\n", report.Adjusted, report.PointsAdded)
		fmt.Printf("Up to date:         %d\n", report.UpToDate)
		fmt.Printf("Failed:             %d\n", report.Failed)
		fmt.Printf("Duration:           %s\n", report.Duration.Round(time.Millisecond))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweep did not complete: %v\n", err)
		return err
	}
	return nil
}
