package balance

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	dbpkg "github.com/vendstars/VendStarsEconomy/internal/db"
	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	require.NoError(t, errOpen, "open sqlite")
	require.NoError(t, dbpkg.Migrate(conn), "migrate")
	return NewService(conn)
}

// newFileService opens a file-backed database. A :memory: DSN is scoped to a
// single connection, so concurrency tests need a real file.
func newFileService(t *testing.T) *Service {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "economy.db")
	conn, errOpen := dbpkg.Open(dsn)
	require.NoError(t, errOpen, "open sqlite")
	require.NoError(t, dbpkg.Migrate(conn), "migrate")
	return NewService(conn)
}

func TestCreditDebitRefundRoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, errCredit := s.Credit(ctx, 1, 100, Entry{Category: ledger.CategoryVoting, Description: "vote reward"})
	require.NoError(t, errCredit)

	row, errDebit := s.Debit(ctx, 1, 60, Entry{Category: ledger.CategoryStorePurchase})
	require.NoError(t, errDebit)
	require.EqualValues(t, -60, row.Amount)
	require.Equal(t, models.TransactionKindSpending, row.Kind)

	_, errRefund := s.Refund(ctx, 1, 60, Entry{Category: ledger.CategoryPurchaseRefund})
	require.NoError(t, errRefund)

	got, errBalance := s.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, 100, got)
}

func TestDebitRejectsOverdraft(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, errCredit := s.Credit(ctx, 1, 50, Entry{Category: "t"})
	require.NoError(t, errCredit)

	_, errDebit := s.Debit(ctx, 1, 51, Entry{Category: "t"})
	require.ErrorIs(t, errDebit, ErrInsufficientFunds)

	// A rejected debit leaves no trace in the ledger.
	got, errBalance := s.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, 50, got)
	rows, errHistory := s.Ledger().History(ctx, 1, ledger.HistoryFilter{})
	require.NoError(t, errHistory)
	require.Len(t, rows, 1)
}

func TestInvalidAmounts(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for _, amount := range []int64{0, -5} {
		_, errCredit := s.Credit(ctx, 1, amount, Entry{})
		require.ErrorIs(t, errCredit, ErrInvalidAmount)
		_, errDebit := s.Debit(ctx, 1, amount, Entry{})
		require.ErrorIs(t, errDebit, ErrInvalidAmount)
		_, errRefund := s.Refund(ctx, 1, amount, Entry{})
		require.ErrorIs(t, errRefund, ErrInvalidAmount)
	}
}

func TestAwardPrizeSkipsSufficiencyCheck(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// A losing prize may push the balance negative; the wheel outcome is
	// guaranteed, not user-initiated.
	row, errAward := s.AwardPrize(ctx, 1, -25, Entry{Category: ledger.CategorySpinning})
	require.NoError(t, errAward)
	require.EqualValues(t, -25, row.Amount)

	got, errBalance := s.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, -25, got)

	// Zero deltas append nothing.
	none, errAward := s.AwardPrize(ctx, 1, 0, Entry{})
	require.NoError(t, errAward)
	require.Nil(t, none)
}

func TestNoOverdraftUnderConcurrentDebits(t *testing.T) {
	s := newFileService(t)
	ctx := context.Background()

	const (
		startingBalance = 100
		debitAmount     = 30
		workers         = 8
	)
	_, errCredit := s.Credit(ctx, 1, startingBalance, Entry{Category: "t"})
	require.NoError(t, errCredit)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errDebit := s.Debit(ctx, 1, debitAmount, Entry{Category: "t"})
			results <- errDebit
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for errDebit := range results {
		switch {
		case errDebit == nil:
			succeeded++
		default:
			require.ErrorIs(t, errDebit, ErrInsufficientFunds)
			rejected++
		}
	}

	// floor(100/30) = 3 debits fit; the rest must be rejected.
	require.Equal(t, startingBalance/debitAmount, succeeded)
	require.Equal(t, workers-succeeded, rejected)

	got, errBalance := s.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, startingBalance-succeeded*debitAmount, got)
	require.GreaterOrEqual(t, got, int64(0))
}

func TestConcurrentMixedTrafficKeepsCacheExact(t *testing.T) {
	s := newFileService(t)
	ctx := context.Background()

	_, errCredit := s.Credit(ctx, 9, 1000, Entry{Category: "t"})
	require.NoError(t, errCredit)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = s.Credit(ctx, 9, 10, Entry{Category: "t"})
			} else {
				_, _ = s.Debit(ctx, 9, 10, Entry{Category: "t"})
			}
		}(i)
	}
	wg.Wait()

	sum, errBalance := s.GetBalance(ctx, 9)
	require.NoError(t, errBalance)

	var account models.LedgerAccount
	require.NoError(t, s.db.Where("user_id = ?", 9).First(&account).Error)
	require.Equal(t, sum, account.CachedBalance)
}
