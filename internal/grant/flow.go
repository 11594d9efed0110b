// Package grant implements the real-time point-grant flow: given a completed
// payment delivered by webhook, resolve (or provision) the customer's loyalty
// account and grant points for the associated order.
package grant

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/rmgreenstreet/current-cats-iframe/internal/gateway"
	"github.com/rmgreenstreet/current-cats-iframe/internal/ledger"
)

// State identifies where the flow is in its lifecycle. COMPLETED and FAILED
// are terminal; exactly one of them is reached per invocation.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateValidating       State = "VALIDATING"
	StateResolvingAccount State = "RESOLVING_ACCOUNT"
	StateGranting         State = "GRANTING"
	StateCompleted        State = "COMPLETED"
	StateFailed           State = "FAILED"
)

// Terminal reasons. Validation rejections keep the wording of the audit
// records the service has always produced.
const (
	ReasonNoCustomerID = "No Customer ID"
	ReasonNotCompleted = "Transaction Not Yet Completed"
	ReasonNoOrder      = "No order found"
	ReasonWrongSource  = "Not From Acuity"
	ReasonSuccess      = "Points Successfully Added"
)

const completedStatus = "COMPLETED"

// Tender types that cannot originate from the booking system.
const tenderCash = "CASH"

// Gateway is the slice of the payments service the flow depends on.
// Implementations: gateway.Client.
type Gateway interface {
	RetrieveOrder(ctx context.Context, orderID string) (*gateway.Order, error)
	RetrieveCustomer(ctx context.Context, customerID string) (*gateway.Customer, error)
	RetrieveProgram(ctx context.Context, programID string) (*gateway.Program, error)
	SearchAccounts(ctx context.Context, req gateway.SearchAccountsRequest) (*gateway.SearchAccountsResponse, error)
	CreateAccount(ctx context.Context, req gateway.CreateAccountRequest) (*gateway.LoyaltyAccount, error)
	AccumulatePoints(ctx context.Context, req gateway.AccumulatePointsRequest) error
	RetrieveAccount(ctx context.Context, accountID string) (*gateway.LoyaltyAccount, error)
}

// OutcomeRecorder persists the terminal audit record.
// Implementations: ledger.Store.
type OutcomeRecorder interface {
	RecordOutcome(o *ledger.Outcome) error
}

// Deps holds dependencies for constructing a Flow.
type Deps struct {
	Gateway  Gateway
	Recorder OutcomeRecorder

	// ProgramID is the loyalty program new accounts enroll under.
	ProgramID string
	// ExpectedSource is the order source attribution that qualifies for points.
	ExpectedSource string
}

// Flow runs the point-grant state machine for one payment at a time. It is
// stateless between invocations and safe for concurrent use.
type Flow struct {
	gw             Gateway
	recorder       OutcomeRecorder
	programID      string
	expectedSource string
}

// New creates a Flow.
func New(deps Deps) *Flow {
	programID := deps.ProgramID
	if programID == "" {
		programID = "main"
	}
	return &Flow{
		gw:             deps.Gateway,
		recorder:       deps.Recorder,
		programID:      programID,
		expectedSource: deps.ExpectedSource,
	}
}

// Process runs the flow for one payment. Every invocation reaches exactly one
// terminal state and writes exactly one outcome record; failures downstream of
// the webhook acknowledgment, including panics inside the flow, are captured
// in the record, never returned or propagated. The flow is re-entrant for the
// same payment: the grant's idempotency token is derived from the order
// reference, so redelivery cannot double-grant.
func (f *Flow) Process(ctx context.Context, p gateway.Payment) (out *ledger.Outcome) {
	out = &ledger.Outcome{
		Payment: ledger.PaymentSnapshot{
			ID:         p.ID,
			Status:     p.Status,
			LocationID: p.LocationID,
			OrderID:    p.OrderID,
		},
	}

	// The terminal write is deferred so it happens on every path, a panic
	// somewhere in the flow included.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("grant: payment %s panicked: %v", p.ID, r)
			out.Result = ledger.Result{
				Status: ledger.StatusFailed,
				Reason: fmt.Sprintf("internal error: %v", r),
			}
		}
		if err := f.recorder.RecordOutcome(out); err != nil {
			log.Printf("grant: failed to record outcome for payment %s: %v", p.ID, err)
		}
	}()

	out.Result = f.execute(ctx, p, out)
	return out
}

func (f *Flow) execute(ctx context.Context, p gateway.Payment, out *ledger.Outcome) ledger.Result {
	log.Printf("grant: payment %s %s", p.ID, StateReceived)

	state := StateValidating
	if p.CustomerID == "" {
		return f.fail(p, state, ReasonNoCustomerID)
	}

	order, err := f.gw.RetrieveOrder(ctx, p.OrderID)
	if err != nil {
		if gateway.IsNotFound(err) || errors.Is(err, gateway.ErrNoOrder) {
			return f.fail(p, state, ReasonNoOrder)
		}
		return f.fail(p, state, err.Error())
	}

	if len(order.Tenders) > 0 && order.Tenders[0].Type == tenderCash {
		return f.fail(p, state, ReasonWrongSource)
	}
	if order.Source.Name != f.expectedSource {
		return f.fail(p, state, ReasonWrongSource)
	}

	if p.Status != completedStatus {
		return f.fail(p, state, ReasonNotCompleted)
	}

	state = StateResolvingAccount
	customer, err := f.gw.RetrieveCustomer(ctx, p.CustomerID)
	if err != nil {
		return f.fail(p, state, err.Error())
	}
	out.GivenName = customer.GivenName
	out.FamilyName = customer.FamilyName

	account, err := f.resolveAccount(ctx, customer)
	if err != nil {
		return f.fail(p, state, err.Error())
	}

	state = StateGranting
	err = f.gw.AccumulatePoints(ctx, gateway.AccumulatePointsRequest{
		AccountID:      account.ID,
		OrderID:        p.OrderID,
		LocationID:     p.LocationID,
		IdempotencyKey: grantToken(p.OrderID),
	})
	if err != nil {
		return f.fail(p, state, err.Error())
	}

	// Re-read for the post-grant balance snapshot.
	updated, err := f.gw.RetrieveAccount(ctx, account.ID)
	if err != nil {
		return f.fail(p, state, err.Error())
	}

	out.Account = &ledger.AccountSnapshot{
		ID:             account.ID,
		Balance:        updated.Balance,
		LifetimePoints: updated.LifetimePoints,
		CreatedAt:      account.CreatedAt,
		UpdatedAt:      updated.UpdatedAt,
	}

	log.Printf("grant: payment %s completed, account %s balance %d", p.ID, account.ID, updated.Balance)
	return ledger.Result{Status: ledger.StatusCompleted, Reason: ReasonSuccess}
}

// resolveAccount finds the customer's loyalty account, provisioning one under
// the active program when none exists. Search-before-create preserves the
// one-account-per-customer invariant.
func (f *Flow) resolveAccount(ctx context.Context, customer *gateway.Customer) (*gateway.LoyaltyAccount, error) {
	resp, err := f.gw.SearchAccounts(ctx, gateway.SearchAccountsRequest{
		CustomerIDs: []string{customer.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("search loyalty accounts for customer %s: %w", customer.ID, err)
	}
	if len(resp.Accounts) > 0 {
		return &resp.Accounts[0], nil
	}

	log.Printf("grant: no loyalty account for customer %s, provisioning one", customer.ID)
	program, err := f.gw.RetrieveProgram(ctx, f.programID)
	if err != nil {
		return nil, fmt.Errorf("retrieve loyalty program: %w", err)
	}

	account, err := f.gw.CreateAccount(ctx, gateway.CreateAccountRequest{
		ProgramID:      program.ID,
		PhoneNumber:    customer.PhoneNumber,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("create loyalty account for customer %s: %w", customer.ID, err)
	}
	return account, nil
}

func (f *Flow) fail(p gateway.Payment, state State, reason string) ledger.Result {
	log.Printf("grant: payment %s failed in %s: %s", p.ID, state, reason)
	return ledger.Result{Status: ledger.StatusFailed, Reason: reason}
}

// grantToken derives a stable idempotency key from the order reference so
// that webhook redelivery of the same payment reuses the same key.
func grantToken(orderID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("loyalty/grant/"+orderID)).String()
}
