package gateway

import (
	"context"
	"fmt"
	"net/http"
)

// RetrieveProgram fetches the loyalty program. The payments service accepts
// the keyword "main" for the single active program.
func (c *Client) RetrieveProgram(ctx context.Context, programID string) (*Program, error) {
	var resp struct {
		Program Program `json:"program"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/loyalty/programs/"+programID, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("retrieve program %s: %w", programID, err)
	}
	return &resp.Program, nil
}

// SearchAccountsRequest queries loyalty accounts. With CustomerIDs set it
// filters to those customers; without, it pages through every account.
type SearchAccountsRequest struct {
	CustomerIDs []string
	Cursor      string
	Limit       int
}

// SearchAccountsResponse is one page of loyalty accounts.
type SearchAccountsResponse struct {
	Accounts []LoyaltyAccount `json:"loyalty_accounts"`
	Cursor   string           `json:"cursor"`
}

// SearchAccounts queries loyalty accounts by customer or pages through all of them.
func (c *Client) SearchAccounts(ctx context.Context, req SearchAccountsRequest) (*SearchAccountsResponse, error) {
	body := map[string]any{}
	if len(req.CustomerIDs) > 0 {
		body["query"] = map[string]any{
			"customer_ids": req.CustomerIDs,
		}
	}
	if req.Cursor != "" {
		body["cursor"] = req.Cursor
	}
	if req.Limit > 0 {
		body["limit"] = req.Limit
	}

	var resp SearchAccountsResponse
	if err := c.do(ctx, http.MethodPost, "/v2/loyalty/accounts/search", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("search loyalty accounts: %w", err)
	}
	return &resp, nil
}

// CreateAccountRequest enrolls a customer in the loyalty program. The
// idempotency key must be unique per logical enrollment attempt.
type CreateAccountRequest struct {
	ProgramID      string
	PhoneNumber    string
	IdempotencyKey string
}

// CreateAccount provisions a loyalty account keyed by the customer's phone number.
func (c *Client) CreateAccount(ctx context.Context, req CreateAccountRequest) (*LoyaltyAccount, error) {
	body := map[string]any{
		"loyalty_account": map[string]any{
			"program_id": req.ProgramID,
			"mapping": map[string]any{
				"phone_number": req.PhoneNumber,
			},
		},
		"idempotency_key": req.IdempotencyKey,
	}

	var resp struct {
		Account LoyaltyAccount `json:"loyalty_account"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/loyalty/accounts", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("create loyalty account: %w", err)
	}
	return &resp.Account, nil
}

// RetrieveAccount fetches a loyalty account by id.
func (c *Client) RetrieveAccount(ctx context.Context, accountID string) (*LoyaltyAccount, error) {
	var resp struct {
		Account LoyaltyAccount `json:"loyalty_account"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/loyalty/accounts/"+accountID, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("retrieve loyalty account %s: %w", accountID, err)
	}
	return &resp.Account, nil
}

// AccumulatePointsRequest grants points for an order. The idempotency key must
// be stable across redeliveries of the same payment so the grant applies once.
type AccumulatePointsRequest struct {
	AccountID      string
	OrderID        string
	LocationID     string
	IdempotencyKey string
}

// AccumulatePoints grants the points earned by an order to a loyalty account.
func (c *Client) AccumulatePoints(ctx context.Context, req AccumulatePointsRequest) error {
	body := map[string]any{
		"accumulate_points": map[string]any{
			"order_id": req.OrderID,
		},
		"location_id":     req.LocationID,
		"idempotency_key": req.IdempotencyKey,
	}
	if err := c.do(ctx, http.MethodPost, "/v2/loyalty/accounts/"+req.AccountID+"/accumulate", nil, body, nil); err != nil {
		return fmt.Errorf("accumulate points for account %s: %w", req.AccountID, err)
	}
	return nil
}

// AdjustPointsRequest manually credits points outside the order flow.
type AdjustPointsRequest struct {
	AccountID      string
	ProgramID      string
	Points         int
	Reason         string
	IdempotencyKey string
}

// AdjustPoints applies a manual point adjustment to a loyalty account.
func (c *Client) AdjustPoints(ctx context.Context, req AdjustPointsRequest) error {
	body := map[string]any{
		"adjust_points": map[string]any{
			"loyalty_program_id": req.ProgramID,
			"points":             req.Points,
			"reason":             req.Reason,
		},
		"idempotency_key": req.IdempotencyKey,
	}
	if err := c.do(ctx, http.MethodPost, "/v2/loyalty/accounts/"+req.AccountID+"/adjust", nil, body, nil); err != nil {
		return fmt.Errorf("adjust points for account %s: %w", req.AccountID, err)
	}
	return nil
}
