package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/rmgreenstreet/current-cats-iframe/internal/gateway"
	"github.com/rmgreenstreet/current-cats-iframe/internal/grant"
	"github.com/rmgreenstreet/current-cats-iframe/internal/ledger"
	"github.com/rmgreenstreet/current-cats-iframe/internal/reconcile"
	"github.com/rmgreenstreet/current-cats-iframe/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook and reconciliation web server",
	Long: `Run the loyaltyd web server.

Endpoints:
  POST /webhooks/payments   payment webhook intake
  GET  /reconcile           trigger a reconciliation sweep
  GET  /api/...             read-only audit ledger`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	store, err := ledger.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer store.Close()

	client := gateway.NewClient(cfg.SquareBaseURL, cfg.SquareAccessToken)
	flow := grant.New(grant.Deps{
		Gateway:        client,
		Recorder:       store,
		ProgramID:      cfg.ProgramID,
		ExpectedSource: cfg.ExpectedSource,
	})
	sweeper := reconcile.New(client)

	server := web.NewServer(store, flow, sweeper)
	log.Printf("loyaltyd %s listening on %s", Version, cfg.Addr)
	return server.Run(cfg.Addr)
}
