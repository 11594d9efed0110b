package grant

import (
	"context"
	"errors"
	"sync"

	"github.com/rmgreenstreet/current-cats-iframe/internal/gateway"
	"github.com/rmgreenstreet/current-cats-iframe/internal/ledger"
)

// Common test errors
var (
	ErrMockGateway  = errors.New("mock gateway error")
	ErrMockRecorder = errors.New("mock recorder error")
)

// MockGateway implements Gateway for testing. Each call is counted and the
// last request captured so tests can assert on idempotency keys.
type MockGateway struct {
	mu sync.Mutex

	RetrieveOrderFunc    func(ctx context.Context, orderID string) (*gateway.Order, error)
	RetrieveCustomerFunc func(ctx context.Context, customerID string) (*gateway.Customer, error)
	RetrieveProgramFunc  func(ctx context.Context, programID string) (*gateway.Program, error)
	SearchAccountsFunc   func(ctx context.Context, req gateway.SearchAccountsRequest) (*gateway.SearchAccountsResponse, error)
	CreateAccountFunc    func(ctx context.Context, req gateway.CreateAccountRequest) (*gateway.LoyaltyAccount, error)
	AccumulateFunc       func(ctx context.Context, req gateway.AccumulatePointsRequest) error
	RetrieveAccountFunc  func(ctx context.Context, accountID string) (*gateway.LoyaltyAccount, error)

	SearchCalls     int
	AccumulateCalls int
	CreateCalls     int
	LastAccumulate  gateway.AccumulatePointsRequest
	LastCreate      gateway.CreateAccountRequest
}

func (m *MockGateway) RetrieveOrder(ctx context.Context, orderID string) (*gateway.Order, error) {
	if m.RetrieveOrderFunc != nil {
		return m.RetrieveOrderFunc(ctx, orderID)
	}
	return nil, ErrMockGateway
}

func (m *MockGateway) RetrieveCustomer(ctx context.Context, customerID string) (*gateway.Customer, error) {
	if m.RetrieveCustomerFunc != nil {
		return m.RetrieveCustomerFunc(ctx, customerID)
	}
	return &gateway.Customer{ID: customerID}, nil
}

func (m *MockGateway) RetrieveProgram(ctx context.Context, programID string) (*gateway.Program, error) {
	if m.RetrieveProgramFunc != nil {
		return m.RetrieveProgramFunc(ctx, programID)
	}
	return &gateway.Program{ID: "prog_1"}, nil
}

func (m *MockGateway) SearchAccounts(ctx context.Context, req gateway.SearchAccountsRequest) (*gateway.SearchAccountsResponse, error) {
	m.mu.Lock()
	m.SearchCalls++
	m.mu.Unlock()
	if m.SearchAccountsFunc != nil {
		return m.SearchAccountsFunc(ctx, req)
	}
	return &gateway.SearchAccountsResponse{}, nil
}

func (m *MockGateway) CreateAccount(ctx context.Context, req gateway.CreateAccountRequest) (*gateway.LoyaltyAccount, error) {
	m.mu.Lock()
	m.CreateCalls++
	m.LastCreate = req
	m.mu.Unlock()
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, req)
	}
	return &gateway.LoyaltyAccount{ID: "acct_new", ProgramID: req.ProgramID}, nil
}

func (m *MockGateway) AccumulatePoints(ctx context.Context, req gateway.AccumulatePointsRequest) error {
	m.mu.Lock()
	m.AccumulateCalls++
	m.LastAccumulate = req
	m.mu.Unlock()
	if m.AccumulateFunc != nil {
		return m.AccumulateFunc(ctx, req)
	}
	return nil
}

func (m *MockGateway) RetrieveAccount(ctx context.Context, accountID string) (*gateway.LoyaltyAccount, error) {
	if m.RetrieveAccountFunc != nil {
		return m.RetrieveAccountFunc(ctx, accountID)
	}
	return &gateway.LoyaltyAccount{ID: accountID}, nil
}

// MockRecorder implements OutcomeRecorder for testing.
type MockRecorder struct {
	mu       sync.Mutex
	Outcomes []*ledger.Outcome
	Err      error
}

func (m *MockRecorder) RecordOutcome(o *ledger.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, o)
	return m.Err
}

func (m *MockRecorder) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Outcomes)
}
