package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed audit ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the ledger database at dbPath.
func Open(dbPath string) (*Store, error) {
	// Expand ~ in path
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// migrate creates the necessary tables
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS receipts (
			id TEXT PRIMARY KEY,
			payment_id TEXT NOT NULL,
			received_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS outcomes (
			id TEXT PRIMARY KEY,
			payment_id TEXT NOT NULL,
			payment_status TEXT,
			location_id TEXT,
			order_id TEXT,
			given_name TEXT,
			family_name TEXT,
			account_id TEXT,
			account_balance INTEGER,
			account_lifetime_points INTEGER,
			account_created_at TEXT,
			account_updated_at TEXT,
			result_status TEXT NOT NULL CHECK (result_status IN ('COMPLETED', 'FAILED')),
			result_reason TEXT,
			recorded_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_receipts_payment ON receipts(payment_id);
		CREATE INDEX IF NOT EXISTS idx_outcomes_payment ON outcomes(payment_id);
		CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(result_status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordReceipt writes the immutable arrival record for a webhook event.
func (s *Store) RecordReceipt(paymentID string) (*Receipt, error) {
	r := &Receipt{
		ID:         uuid.NewString(),
		PaymentID:  paymentID,
		ReceivedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`
		INSERT INTO receipts (id, payment_id, received_at)
		VALUES (?, ?, ?)
	`, r.ID, r.PaymentID, r.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("record receipt for payment %s: %w", paymentID, err)
	}
	return r, nil
}

// ListReceipts returns every receipt recorded for a payment id, oldest first.
// Duplicate webhook delivery produces one receipt per delivery.
func (s *Store) ListReceipts(paymentID string) ([]*Receipt, error) {
	rows, err := s.db.Query(`
		SELECT id, payment_id, received_at
		FROM receipts
		WHERE payment_id = ?
		ORDER BY received_at ASC
	`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []*Receipt
	for rows.Next() {
		var r Receipt
		if err := rows.Scan(&r.ID, &r.PaymentID, &r.ReceivedAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, &r)
	}
	return receipts, rows.Err()
}

// CountReceipts returns the total number of receipts recorded.
func (s *Store) CountReceipts() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM receipts`).Scan(&n)
	return n, err
}

// RecordOutcome writes the terminal audit record for a processed payment.
// The caller guarantees exactly one call per flow invocation.
func (s *Store) RecordOutcome(o *Outcome) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}

	var accountID, accountCreated, accountUpdated any
	var accountBalance, accountLifetime any
	if o.Account != nil {
		accountID = o.Account.ID
		accountBalance = o.Account.Balance
		accountLifetime = o.Account.LifetimePoints
		accountCreated = o.Account.CreatedAt
		accountUpdated = o.Account.UpdatedAt
	}

	_, err := s.db.Exec(`
		INSERT INTO outcomes (
			id, payment_id, payment_status, location_id, order_id,
			given_name, family_name,
			account_id, account_balance, account_lifetime_points,
			account_created_at, account_updated_at,
			result_status, result_reason, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.Payment.ID, o.Payment.Status, o.Payment.LocationID, o.Payment.OrderID,
		o.GivenName, o.FamilyName,
		accountID, accountBalance, accountLifetime, accountCreated, accountUpdated,
		o.Result.Status, o.Result.Reason, o.RecordedAt)
	if err != nil {
		return fmt.Errorf("record outcome for payment %s: %w", o.Payment.ID, err)
	}
	return nil
}

// GetOutcome returns the most recent outcome recorded for a payment id.
func (s *Store) GetOutcome(paymentID string) (*Outcome, error) {
	row := s.db.QueryRow(`
		SELECT id, payment_id, payment_status, location_id, order_id,
		       given_name, family_name,
		       account_id, account_balance, account_lifetime_points,
		       account_created_at, account_updated_at,
		       result_status, result_reason, recorded_at
		FROM outcomes
		WHERE payment_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1
	`, paymentID)

	o, err := scanOutcome(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("outcome not found for payment %s", paymentID)
	}
	return o, err
}

// ListOutcomes returns outcomes newest first, optionally filtered by result status.
func (s *Store) ListOutcomes(status string, limit, offset int) ([]*Outcome, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, payment_id, payment_status, location_id, order_id,
		       given_name, family_name,
		       account_id, account_balance, account_lifetime_points,
		       account_created_at, account_updated_at,
		       result_status, result_reason, recorded_at
		FROM outcomes
	`
	args := []any{}
	if status != "" {
		query += ` WHERE result_status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY recorded_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// CountOutcomesByStatus returns outcome counts keyed by result status.
func (s *Store) CountOutcomesByStatus() (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT result_status, COUNT(*)
		FROM outcomes
		GROUP BY result_status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOutcome(row scanner) (*Outcome, error) {
	var o Outcome
	var givenName, familyName sql.NullString
	var accountID, accountCreated, accountUpdated sql.NullString
	var accountBalance, accountLifetime sql.NullInt64

	err := row.Scan(&o.ID, &o.Payment.ID, &o.Payment.Status, &o.Payment.LocationID, &o.Payment.OrderID,
		&givenName, &familyName,
		&accountID, &accountBalance, &accountLifetime, &accountCreated, &accountUpdated,
		&o.Result.Status, &o.Result.Reason, &o.RecordedAt)
	if err != nil {
		return nil, err
	}

	o.GivenName = givenName.String
	o.FamilyName = familyName.String
	if accountID.Valid {
		o.Account = &AccountSnapshot{
			ID:             accountID.String,
			Balance:        int(accountBalance.Int64),
			LifetimePoints: int(accountLifetime.Int64),
			CreatedAt:      accountCreated.String,
			UpdatedAt:      accountUpdated.String,
		}
	}

	return &o, nil
}
