package gateway

import (
	"context"
	"fmt"
	"net/http"
)

// RetrieveCustomer fetches a customer identity by id.
func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var resp struct {
		Customer Customer `json:"customer"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/customers/"+customerID, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("retrieve customer %s: %w", customerID, err)
	}
	return &resp.Customer, nil
}
