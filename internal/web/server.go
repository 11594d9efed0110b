// Package web exposes the HTTP surface: webhook intake, the on-demand
// reconciliation trigger, and a read-only audit API over the ledger.
package web

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/rmgreenstreet/current-cats-iframe/internal/gateway"
	"github.com/rmgreenstreet/current-cats-iframe/internal/ledger"
	"github.com/rmgreenstreet/current-cats-iframe/internal/reconcile"
)

// Ledger is the audit-trail surface the handlers use.
// Implementations: ledger.Store.
type Ledger interface {
	RecordReceipt(paymentID string) (*ledger.Receipt, error)
	ListReceipts(paymentID string) ([]*ledger.Receipt, error)
	GetOutcome(paymentID string) (*ledger.Outcome, error)
	ListOutcomes(status string, limit, offset int) ([]*ledger.Outcome, error)
	CountOutcomesByStatus() (map[string]int, error)
	CountReceipts() (int, error)
}

// GrantFlow processes one webhook-delivered payment to a terminal outcome.
// Implementations: grant.Flow.
type GrantFlow interface {
	Process(ctx context.Context, p gateway.Payment) *ledger.Outcome
}

// Sweeper runs the batch reconciliation pass.
// Implementations: reconcile.Sweeper.
type Sweeper interface {
	Run(ctx context.Context) (*reconcile.Report, error)
	EstimateAccounts(ctx context.Context) (int, error)
}

// Server is the loyaltyd web server.
type Server struct {
	ledger  Ledger
	flow    GrantFlow
	sweeper Sweeper
	router  *gin.Engine

	// background tracks in-flight grant flows and sweeps so tests and
	// shutdown can wait for them.
	background   sync.WaitGroup
	sweepRunning atomic.Bool
}

// NewServer creates the web server and registers its routes.
func NewServer(l Ledger, flow GrantFlow, sweeper Sweeper) *Server {
	router := gin.Default()

	s := &Server{
		ledger:  l,
		flow:    flow,
		sweeper: sweeper,
		router:  router,
	}

	router.POST("/webhooks/payments", s.handleWebhook)
	router.GET("/reconcile", s.handleReconcile)
	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/outcomes", s.handleListOutcomes)
		api.GET("/outcomes/:payment_id", s.handleGetOutcome)
		api.GET("/receipts/:payment_id", s.handleListReceipts)
		api.GET("/stats", s.handleStats)
	}

	return s
}

// Run starts the web server.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Wait blocks until all background processing has finished.
func (s *Server) Wait() {
	s.background.Wait()
}
