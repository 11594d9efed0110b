package gateway

// Money is an amount in minor currency units (cents).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// Payment is the payment object carried by the webhook envelope.
type Payment struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	LocationID string `json:"location_id"`
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
}

// Tender is one payment method applied to an order.
type Tender struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
}

// OrderSource attributes an order to the system that produced it.
type OrderSource struct {
	Name string `json:"name"`
}

// Order is a purchase record owned by the payments service.
type Order struct {
	ID         string      `json:"id"`
	LocationID string      `json:"location_id,omitempty"`
	CustomerID string      `json:"customer_id,omitempty"`
	Source     OrderSource `json:"source"`
	Tenders    []Tender    `json:"tenders"`
	TotalMoney Money       `json:"total_money"`
	CreatedAt  string      `json:"created_at,omitempty"`
}

// AccountMapping links a loyalty account to a customer identity.
type AccountMapping struct {
	PhoneNumber string `json:"phone_number"`
}

// LoyaltyAccount is an enrollment in the loyalty program.
type LoyaltyAccount struct {
	ID             string         `json:"id"`
	ProgramID      string         `json:"program_id"`
	CustomerID     string         `json:"customer_id,omitempty"`
	Mapping        AccountMapping `json:"mapping"`
	Balance        int            `json:"balance"`
	LifetimePoints int            `json:"lifetime_points"`
	EnrolledAt     string         `json:"enrolled_at,omitempty"`
	CreatedAt      string         `json:"created_at,omitempty"`
	UpdatedAt      string         `json:"updated_at,omitempty"`
}

// Customer is a customer identity owned by the payments service.
type Customer struct {
	ID          string `json:"id"`
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
	PhoneNumber string `json:"phone_number"`
}

// Program is the loyalty program accounts are enrolled under.
type Program struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// Location is a business location registered with the payments service.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
