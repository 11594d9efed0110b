// Package reconcile implements the batch sweep that repairs loyalty-point
// drift left behind by missed or failed webhooks. For every enrolled account
// it recomputes the expected lifetime points from purchase history and
// credits any shortfall.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rmgreenstreet/current-cats-iframe/internal/gateway"
	"github.com/rmgreenstreet/current-cats-iframe/internal/pagination"
)

const (
	accountPageSize = 200
	orderPageSize   = 5

	// minorUnitsPerPoint is the fixed exchange rate: one point per whole
	// currency unit spent, computed on minor units (cents).
	minorUnitsPerPoint = 100

	// interAccountDelay bounds the aggregate request rate against the
	// payments service. It is part of the sweep contract, not tunable.
	interAccountDelay = 100 * time.Millisecond

	adjustReason = "Acuity Scheduling Points"

	// accountsPerMinute is the observed processing rate used for the
	// completion estimate shown by the on-demand trigger.
	accountsPerMinute = 30
)

// Gateway is the slice of the payments service the sweep depends on.
// Implementations: gateway.Client.
type Gateway interface {
	ListLocations(ctx context.Context) ([]gateway.Location, error)
	SearchAccounts(ctx context.Context, req gateway.SearchAccountsRequest) (*gateway.SearchAccountsResponse, error)
	SearchOrders(ctx context.Context, req gateway.SearchOrdersRequest) (*gateway.SearchOrdersResponse, error)
	AdjustPoints(ctx context.Context, req gateway.AdjustPointsRequest) error
}

// Report summarizes one sweep run.
type Report struct {
	Accounts    int           `json:"accounts"`
	Adjusted    int           `json:"adjusted"`
	PointsAdded int           `json:"points_added"`
	UpToDate    int           `json:"up_to_date"`
	Failed      int           `json:"failed"`
	Started     time.Time     `json:"started"`
	Duration    time.Duration `json:"duration"`
}

// Sweeper runs the reconciliation pass. Accounts are processed sequentially
// on purpose: concurrency is traded for a bounded request rate upstream.
type Sweeper struct {
	gw    Gateway
	delay time.Duration
}

// New creates a Sweeper.
func New(gw Gateway) *Sweeper {
	return &Sweeper{gw: gw, delay: interAccountDelay}
}

// Run executes one full sweep. Failure to resolve the operative location
// aborts the run; per-account failures are logged, counted, and skipped so
// one bad account never blocks the rest. Cancellation is honored between
// accounts and between pages.
func (s *Sweeper) Run(ctx context.Context) (*Report, error) {
	report := &Report{Started: time.Now()}
	defer func() { report.Duration = time.Since(report.Started) }()

	locations, err := s.gw.ListLocations(ctx)
	if err != nil {
		return report, fmt.Errorf("resolve location: %w", err)
	}
	if len(locations) == 0 {
		return report, fmt.Errorf("resolve location: no locations configured")
	}
	locationID := locations[0].ID
	log.Printf("reconcile: sweeping accounts at location %s", locationID)

	accounts := pagination.NewWalker(func(ctx context.Context, cursor string) (pagination.Page[gateway.LoyaltyAccount], error) {
		resp, err := s.gw.SearchAccounts(ctx, gateway.SearchAccountsRequest{
			Cursor: cursor,
			Limit:  accountPageSize,
		})
		if err != nil {
			return pagination.Page[gateway.LoyaltyAccount]{}, err
		}
		return pagination.Page[gateway.LoyaltyAccount]{Items: resp.Accounts, Cursor: resp.Cursor}, nil
	})

	for !accounts.Done() {
		page, err := accounts.Next(ctx)
		if err != nil {
			return report, fmt.Errorf("list loyalty accounts: %w", err)
		}

		for _, account := range page.Items {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			report.Accounts++
			added, err := s.reconcileAccount(ctx, locationID, account)
			if err != nil {
				report.Failed++
				log.Printf("reconcile: account %s skipped: %v", account.ID, err)
			} else if added > 0 {
				report.Adjusted++
				report.PointsAdded += added
			} else {
				report.UpToDate++
			}

			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
	}

	log.Printf("reconcile: swept %d accounts, adjusted %d (+%d points), %d failed",
		report.Accounts, report.Adjusted, report.PointsAdded, report.Failed)
	return report, nil
}

// reconcileAccount computes the account's expected lifetime points from its
// order history and credits the shortfall, if any. Returns the points added.
func (s *Sweeper) reconcileAccount(ctx context.Context, locationID string, account gateway.LoyaltyAccount) (int, error) {
	expected, err := s.expectedPoints(ctx, locationID, account)
	if err != nil {
		return 0, err
	}

	if expected <= account.LifetimePoints {
		return 0, nil
	}

	shortfall := expected - account.LifetimePoints
	log.Printf("reconcile: account %s missing %d points (expected %d, recorded %d)",
		account.ID, shortfall, expected, account.LifetimePoints)

	err = s.gw.AdjustPoints(ctx, gateway.AdjustPointsRequest{
		AccountID:      account.ID,
		ProgramID:      account.ProgramID,
		Points:         shortfall,
		Reason:         adjustReason,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return 0, fmt.Errorf("adjust points: %w", err)
	}
	return shortfall, nil
}

// expectedPoints walks every order for the account's customer since
// enrollment and converts total spend to points. Minor units are accumulated
// across all pages and floored exactly once, so per-page rounding can never
// compound.
func (s *Sweeper) expectedPoints(ctx context.Context, locationID string, account gateway.LoyaltyAccount) (int, error) {
	var totalMinorUnits int64

	orders := pagination.NewWalker(func(ctx context.Context, cursor string) (pagination.Page[gateway.Order], error) {
		resp, err := s.gw.SearchOrders(ctx, gateway.SearchOrdersRequest{
			LocationIDs: []string{locationID},
			CustomerIDs: []string{account.CustomerID},
			StartAt:     account.EnrolledAt,
			Cursor:      cursor,
			Limit:       orderPageSize,
		})
		if err != nil {
			return pagination.Page[gateway.Order]{}, err
		}
		return pagination.Page[gateway.Order]{Items: resp.Orders, Cursor: resp.Cursor}, nil
	})

	for !orders.Done() {
		page, err := orders.Next(ctx)
		if err != nil {
			return 0, fmt.Errorf("order history: %w", err)
		}
		for _, order := range page.Items {
			totalMinorUnits += order.TotalMoney.Amount
		}
	}

	return int(totalMinorUnits / minorUnitsPerPoint), nil
}

// EstimateAccounts counts enrolled accounts for the trigger page's completion
// estimate.
func (s *Sweeper) EstimateAccounts(ctx context.Context) (int, error) {
	accounts, err := pagination.Collect(ctx, func(ctx context.Context, cursor string) (pagination.Page[gateway.LoyaltyAccount], error) {
		resp, err := s.gw.SearchAccounts(ctx, gateway.SearchAccountsRequest{
			Cursor: cursor,
			Limit:  accountPageSize,
		})
		if err != nil {
			return pagination.Page[gateway.LoyaltyAccount]{}, err
		}
		return pagination.Page[gateway.LoyaltyAccount]{Items: resp.Accounts, Cursor: resp.Cursor}, nil
	})
	if err != nil {
		return 0, fmt.Errorf("count loyalty accounts: %w", err)
	}
	return len(accounts), nil
}

// EstimateMinutes converts an account count to the expected sweep duration in
// whole minutes.
func EstimateMinutes(accounts int) int {
	return int(math.Round(float64(accounts) / accountsPerMinute))
}
