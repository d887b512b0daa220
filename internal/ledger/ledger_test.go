package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	dbpkg "github.com/vendstars/VendStarsEconomy/internal/db"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/gorm"
)

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	require.NoError(t, errOpen, "open sqlite")
	require.NoError(t, dbpkg.Migrate(conn), "migrate")
	return New(conn), conn
}

func TestAppendAndBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	steps := []AppendInput{
		{UserID: 7, Kind: models.TransactionKindEarning, Category: CategoryVoting, Amount: 10},
		{UserID: 7, Kind: models.TransactionKindBonus, Category: CategorySpinReward, Amount: 5},
		{UserID: 7, Kind: models.TransactionKindSpending, Category: CategoryStorePurchase, Amount: -8},
		{UserID: 7, Kind: models.TransactionKindRefund, Category: CategoryPurchaseRefund, Amount: 8},
		{UserID: 9, Kind: models.TransactionKindEarning, Category: CategoryVoting, Amount: 100},
	}

	var want int64
	for _, in := range steps {
		_, errAppend := l.Append(ctx, in)
		require.NoError(t, errAppend)
		if in.UserID == 7 {
			want += in.Amount

			// Balance must equal the running sum after every append.
			got, errBalance := l.Balance(ctx, 7)
			require.NoError(t, errBalance)
			require.Equal(t, want, got)
		}
	}

	other, errBalance := l.Balance(ctx, 9)
	require.NoError(t, errBalance)
	require.EqualValues(t, 100, other)

	// Balance of a user with no rows is zero, not an error.
	empty, errBalance := l.Balance(ctx, 12345)
	require.NoError(t, errBalance)
	require.EqualValues(t, 0, empty)
}

func TestBalanceMatchesHistorySum(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	amounts := []int64{40, -15, 25, -30, 3}
	kinds := []string{
		models.TransactionKindEarning,
		models.TransactionKindSpending,
		models.TransactionKindBonus,
		models.TransactionKindSpending,
		models.TransactionKindRefund,
	}
	for i, amount := range amounts {
		_, errAppend := l.Append(ctx, AppendInput{UserID: 3, Kind: kinds[i], Category: "t", Amount: amount})
		require.NoError(t, errAppend)
	}

	rows, errHistory := l.History(ctx, 3, HistoryFilter{})
	require.NoError(t, errHistory)
	require.Len(t, rows, len(amounts))

	var sum int64
	for _, row := range rows {
		sum += row.Amount
	}
	balance, errBalance := l.Balance(ctx, 3)
	require.NoError(t, errBalance)
	require.Equal(t, balance, sum)
}

func TestBalanceCacheTracksSum(t *testing.T) {
	l, conn := newTestLedger(t)
	ctx := context.Background()

	for _, amount := range []int64{50, -20, 7} {
		kind := models.TransactionKindEarning
		if amount < 0 {
			kind = models.TransactionKindSpending
		}
		_, errAppend := l.Append(ctx, AppendInput{UserID: 4, Kind: kind, Category: "t", Amount: amount})
		require.NoError(t, errAppend)
	}

	var account models.LedgerAccount
	require.NoError(t, conn.Where("user_id = ?", 4).First(&account).Error)

	balance, errBalance := l.Balance(ctx, 4)
	require.NoError(t, errBalance)
	require.Equal(t, balance, account.CachedBalance)
	require.NotZero(t, account.LastTransactionID)
}

func TestHistoryOrderFiltersAndPaging(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, errAppend := l.Append(ctx, AppendInput{UserID: 1, Kind: models.TransactionKindEarning, Category: CategoryVoting, Amount: int64(i + 1)})
		require.NoError(t, errAppend)
	}
	_, errAppend := l.Append(ctx, AppendInput{UserID: 1, Kind: models.TransactionKindSpending, Category: CategoryStorePurchase, Amount: -3})
	require.NoError(t, errAppend)

	// Newest first.
	rows, errHistory := l.History(ctx, 1, HistoryFilter{})
	require.NoError(t, errHistory)
	require.Len(t, rows, 6)
	for i := 1; i < len(rows); i++ {
		require.Greater(t, rows[i-1].ID, rows[i].ID)
	}

	// Kind filter.
	spends, errHistory := l.History(ctx, 1, HistoryFilter{Kinds: []string{models.TransactionKindSpending}})
	require.NoError(t, errHistory)
	require.Len(t, spends, 1)
	require.EqualValues(t, -3, spends[0].Amount)

	// Category filter.
	votes, errHistory := l.History(ctx, 1, HistoryFilter{Categories: []string{CategoryVoting}})
	require.NoError(t, errHistory)
	require.Len(t, votes, 5)

	// Restartable paging.
	page1, errHistory := l.History(ctx, 1, HistoryFilter{Limit: 4})
	require.NoError(t, errHistory)
	page2, errHistory := l.History(ctx, 1, HistoryFilter{Limit: 4, Offset: 4})
	require.NoError(t, errHistory)
	require.Len(t, page1, 4)
	require.Len(t, page2, 2)
	require.Greater(t, page1[3].ID, page2[0].ID)
}

func TestHistoryTimeWindow(t *testing.T) {
	l, conn := newTestLedger(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	row := models.Transaction{UserID: 2, Kind: models.TransactionKindEarning, Category: "t", Amount: 1, CreatedAt: old}
	require.NoError(t, conn.Create(&row).Error)
	_, errAppend := l.Append(ctx, AppendInput{UserID: 2, Kind: models.TransactionKindEarning, Category: "t", Amount: 2})
	require.NoError(t, errAppend)

	since := time.Now().Add(-time.Hour)
	recent, errHistory := l.History(ctx, 2, HistoryFilter{Since: &since})
	require.NoError(t, errHistory)
	require.Len(t, recent, 1)
	require.EqualValues(t, 2, recent[0].Amount)
}

func TestAppendRejectsUnknownKind(t *testing.T) {
	l, _ := newTestLedger(t)

	_, errAppend := l.Append(context.Background(), AppendInput{UserID: 1, Kind: "transfer", Amount: 1})
	require.ErrorIs(t, errAppend, ErrUnknownKind)
}

func TestCountSince(t *testing.T) {
	l, conn := newTestLedger(t)
	ctx := context.Background()

	yesterday := time.Now().Add(-25 * time.Hour)
	stale := models.Transaction{UserID: 5, Kind: models.TransactionKindEarning, Category: CategoryVoting, Amount: 1, CreatedAt: yesterday}
	require.NoError(t, conn.Create(&stale).Error)

	for i := 0; i < 2; i++ {
		_, errAppend := l.Append(ctx, AppendInput{UserID: 5, Kind: models.TransactionKindEarning, Category: CategoryVoting, Amount: 1})
		require.NoError(t, errAppend)
	}

	count, errCount := l.CountSince(ctx, 5, CategoryVoting, time.Now().Add(-time.Hour))
	require.NoError(t, errCount)
	require.EqualValues(t, 2, count)
}
