package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Receipts(t *testing.T) {
	store := newTestStore(t)

	r, err := store.RecordReceipt("pay_123")
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "pay_123", r.PaymentID)
	assert.False(t, r.ReceivedAt.IsZero())

	// Duplicate delivery gets its own receipt.
	_, err = store.RecordReceipt("pay_123")
	require.NoError(t, err)

	receipts, err := store.ListReceipts("pay_123")
	require.NoError(t, err)
	assert.Len(t, receipts, 2)

	n, err := store.CountReceipts()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	none, err := store.ListReceipts("pay_other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_RecordOutcome(t *testing.T) {
	store := newTestStore(t)

	completed := &Outcome{
		Payment: PaymentSnapshot{
			ID:         "pay_123",
			Status:     "COMPLETED",
			LocationID: "loc_1",
			OrderID:    "ord_1",
		},
		GivenName:  "Ada",
		FamilyName: "Lovelace",
		Account: &AccountSnapshot{
			ID:             "acct_1",
			Balance:        12,
			LifetimePoints: 39,
			CreatedAt:      "2024-01-01T00:00:00Z",
			UpdatedAt:      "2024-06-01T00:00:00Z",
		},
		Result: Result{Status: StatusCompleted, Reason: "Points Successfully Added"},
	}
	require.NoError(t, store.RecordOutcome(completed))
	assert.NotEmpty(t, completed.ID, "RecordOutcome should assign an id")

	got, err := store.GetOutcome("pay_123")
	require.NoError(t, err)
	assert.Equal(t, "pay_123", got.Payment.ID)
	assert.Equal(t, "Ada", got.GivenName)
	require.NotNil(t, got.Account)
	assert.Equal(t, 39, got.Account.LifetimePoints)
	assert.Equal(t, StatusCompleted, got.Result.Status)
}

func TestStore_RecordOutcome_NoAccount(t *testing.T) {
	store := newTestStore(t)

	failed := &Outcome{
		Payment: PaymentSnapshot{ID: "pay_456", Status: "COMPLETED", OrderID: "ord_2"},
		Result:  Result{Status: StatusFailed, Reason: "No Customer ID"},
	}
	require.NoError(t, store.RecordOutcome(failed))

	got, err := store.GetOutcome("pay_456")
	require.NoError(t, err)
	assert.Nil(t, got.Account, "failed outcome should carry no account snapshot")
	assert.Equal(t, "No Customer ID", got.Result.Reason)
}

func TestStore_GetOutcome_Latest(t *testing.T) {
	store := newTestStore(t)

	first := &Outcome{
		Payment:    PaymentSnapshot{ID: "pay_789"},
		Result:     Result{Status: StatusFailed, Reason: "Transaction Not Yet Completed"},
		RecordedAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, store.RecordOutcome(first))

	second := &Outcome{
		Payment: PaymentSnapshot{ID: "pay_789"},
		Result:  Result{Status: StatusCompleted, Reason: "Points Successfully Added"},
	}
	require.NoError(t, store.RecordOutcome(second))

	got, err := store.GetOutcome("pay_789")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Result.Status, "should return the most recent outcome")
}

func TestStore_GetOutcome_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetOutcome("pay_missing")
	assert.Error(t, err)
}

func TestStore_ListOutcomes(t *testing.T) {
	store := newTestStore(t)

	for i, status := range []string{StatusCompleted, StatusFailed, StatusFailed} {
		require.NoError(t, store.RecordOutcome(&Outcome{
			Payment:    PaymentSnapshot{ID: "pay_" + string(rune('a'+i))},
			Result:     Result{Status: status},
			RecordedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	all, err := store.ListOutcomes("", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "pay_c", all[0].Payment.ID, "newest first")

	failed, err := store.ListOutcomes(StatusFailed, 10, 0)
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	paged, err := store.ListOutcomes("", 2, 2)
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}

func TestStore_CountOutcomesByStatus(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordOutcome(&Outcome{
		Payment: PaymentSnapshot{ID: "pay_1"},
		Result:  Result{Status: StatusCompleted},
	}))
	require.NoError(t, store.RecordOutcome(&Outcome{
		Payment: PaymentSnapshot{ID: "pay_2"},
		Result:  Result{Status: StatusFailed},
	}))

	counts, err := store.CountOutcomesByStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[StatusCompleted])
	assert.Equal(t, 1, counts[StatusFailed])
}

func TestStore_RecordOutcome_RejectsBadStatus(t *testing.T) {
	store := newTestStore(t)

	err := store.RecordOutcome(&Outcome{
		Payment: PaymentSnapshot{ID: "pay_bad"},
		Result:  Result{Status: "PENDING"},
	})
	assert.Error(t, err, "schema only admits terminal statuses")
}
