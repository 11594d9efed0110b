package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmgreenstreet/current-cats-iframe/internal/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show audit ledger statistics",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := ledger.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer store.Close()

	receipts, err := store.CountReceipts()
	if err != nil {
		return err
	}
	counts, err := store.CountOutcomesByStatus()
	if err != nil {
		return err
	}

	fmt.Println("Ledger Status")
	fmt.Println("=============")
	fmt.Printf("Receipts:           %d\n", receipts)
	fmt.Printf("Outcomes COMPLETED: %d\n", counts[ledger.StatusCompleted])
	fmt.Printf("Outcomes FAILED:    %d\n", counts[ledger.StatusFailed])
	return nil
}
