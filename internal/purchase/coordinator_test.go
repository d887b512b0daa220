package purchase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vendstars/VendStarsEconomy/internal/balance"
	dbpkg "github.com/vendstars/VendStarsEconomy/internal/db"
	"github.com/vendstars/VendStarsEconomy/internal/entitlement"
	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/gorm"
)

type stubArtifacts struct {
	ref string
	err error
}

func (s *stubArtifacts) Generate(_ context.Context, _ *models.PurchaseAttempt) (string, error) {
	return s.ref, s.err
}

type failingPartners struct{}

func (failingPartners) Credit(_ context.Context, _ string, _ int64, _ string) error {
	return errors.New("partner ledger offline")
}

func newTestCoordinator(t *testing.T, artifacts ArtifactGenerator, partners PartnerCreditor) (*Coordinator, *balance.Service, *gorm.DB) {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	require.NoError(t, errOpen, "open sqlite")
	require.NoError(t, dbpkg.Migrate(conn), "migrate")
	balances := balance.NewService(conn)
	tracker := entitlement.NewTracker(conn)
	if partners == nil {
		partners = NewWalletCreditor(conn)
	}
	return NewCoordinator(conn, balances, tracker, artifacts, partners), balances, conn
}

func seedCoins(t *testing.T, balances *balance.Service, userID uint64, amount int64) {
	t.Helper()
	_, errCredit := balances.Credit(context.Background(), userID, amount, balance.Entry{
		Category: ledger.CategoryVoting, Description: "seed",
	})
	require.NoError(t, errCredit)
}

func TestPurchaseItemHappyPath(t *testing.T) {
	coord, balances, conn := newTestCoordinator(t, &stubArtifacts{ref: "qr-abc123"}, nil)
	ctx := context.Background()
	seedCoins(t, balances, 1, 1000)

	outcome, errBuy := coord.PurchaseItem(ctx, Request{
		UserID: 1, ItemRef: "soda_discount_20", Cost: 500, PartnerCode: "vend-berlin-07",
	})
	require.NoError(t, errBuy)
	require.Equal(t, "qr-abc123", outcome.ArtifactRef)
	require.Equal(t, models.PurchaseStatusCompleted, outcome.Attempt.Status)
	require.True(t, outcome.PartnerCredited)

	got, errBalance := balances.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, 500, got)

	var wallet models.PartnerWallet
	require.NoError(t, conn.Where("partner_code = ?", "vend-berlin-07").First(&wallet).Error)
	require.EqualValues(t, 50, wallet.Balance, "10 percent of 500")

	var stored models.PurchaseAttempt
	require.NoError(t, conn.First(&stored, outcome.Attempt.ID).Error)
	require.Equal(t, "qr-abc123", stored.ArtifactRef)
}

func TestPurchaseItemInsufficientFundsLeavesNoTrace(t *testing.T) {
	coord, balances, conn := newTestCoordinator(t, &stubArtifacts{ref: "qr"}, nil)
	ctx := context.Background()
	seedCoins(t, balances, 1, 100)

	_, errBuy := coord.PurchaseItem(ctx, Request{UserID: 1, ItemRef: "snack", Cost: 500})
	require.ErrorIs(t, errBuy, balance.ErrInsufficientFunds)

	got, errBalance := balances.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, 100, got)

	var attempt models.PurchaseAttempt
	require.NoError(t, conn.Where("user_id = ?", 1).First(&attempt).Error)
	require.Equal(t, models.PurchaseStatusFailed, attempt.Status)

	var refunds int64
	require.NoError(t, conn.Model(&models.Transaction{}).
		Where("kind = ?", models.TransactionKindRefund).Count(&refunds).Error)
	require.Zero(t, refunds, "no debit means no compensation")
}

func TestPurchaseItemArtifactFailureRefundsExactlyOnce(t *testing.T) {
	coord, balances, conn := newTestCoordinator(t, &stubArtifacts{err: errors.New("renderer down")}, nil)
	ctx := context.Background()
	seedCoins(t, balances, 1, 800)

	_, errBuy := coord.PurchaseItem(ctx, Request{UserID: 1, ItemRef: "snack", Cost: 500})
	require.ErrorIs(t, errBuy, ErrArtifactFailed)

	got, errBalance := balances.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, 800, got, "debit fully compensated")

	var attempt models.PurchaseAttempt
	require.NoError(t, conn.Where("user_id = ?", 1).First(&attempt).Error)
	require.Equal(t, models.PurchaseStatusRefunded, attempt.Status)

	var refunds []models.Transaction
	require.NoError(t, conn.
		Where("reference_id = ? AND kind = ?", attempt.ReferenceID, models.TransactionKindRefund).
		Find(&refunds).Error)
	require.Len(t, refunds, 1)
	require.EqualValues(t, 500, refunds[0].Amount)
	require.Equal(t, ledger.CategoryPurchaseRefund, refunds[0].Category)
}

func TestPurchaseItemPartnerFailureDoesNotBlockPurchase(t *testing.T) {
	coord, balances, _ := newTestCoordinator(t, &stubArtifacts{ref: "qr"}, failingPartners{})
	ctx := context.Background()
	seedCoins(t, balances, 1, 1000)

	outcome, errBuy := coord.PurchaseItem(ctx, Request{
		UserID: 1, ItemRef: "snack", Cost: 500, PartnerCode: "vend-berlin-07",
	})
	require.NoError(t, errBuy)
	require.Equal(t, models.PurchaseStatusCompleted, outcome.Attempt.Status)
	require.False(t, outcome.PartnerCredited)

	got, errBalance := balances.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, 500, got, "buyer keeps the purchase")
}

func TestPurchaseItemRejectsNonPositiveCost(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, &stubArtifacts{ref: "qr"}, nil)
	_, errBuy := coord.PurchaseItem(context.Background(), Request{UserID: 1, ItemRef: "snack", Cost: 0})
	require.ErrorIs(t, errBuy, ErrInvalidRequest)
}

func TestPurchasePackDebitsAndGrants(t *testing.T) {
	coord, balances, conn := newTestCoordinator(t, &stubArtifacts{ref: "qr"}, nil)
	ctx := context.Background()
	seedCoins(t, balances, 1, 300)

	pack, errBuy := coord.PurchasePack(ctx, 1, models.PackTypeSpin, 2, 7, 200)
	require.NoError(t, errBuy)
	require.Equal(t, models.PackStatusActive, pack.Status)
	require.Equal(t, 2, pack.UnitsPerDay)

	got, errBalance := balances.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, 100, got)

	var attempt models.PurchaseAttempt
	require.NoError(t, conn.Where("item_kind = ?", models.PurchaseItemPack).First(&attempt).Error)
	require.Equal(t, models.PurchaseStatusCompleted, attempt.Status)
}

func TestPurchasePackGrantFailureRefunds(t *testing.T) {
	coord, balances, conn := newTestCoordinator(t, &stubArtifacts{ref: "qr"}, nil)
	ctx := context.Background()
	seedCoins(t, balances, 1, 300)

	_, errBuy := coord.PurchasePack(ctx, 1, "lottery", 2, 7, 200)
	require.ErrorIs(t, errBuy, entitlement.ErrUnknownPackType)

	got, errBalance := balances.GetBalance(ctx, 1)
	require.NoError(t, errBalance)
	require.EqualValues(t, 300, got, "debit fully compensated")

	var attempt models.PurchaseAttempt
	require.NoError(t, conn.Where("item_kind = ?", models.PurchaseItemPack).First(&attempt).Error)
	require.Equal(t, models.PurchaseStatusRefunded, attempt.Status)
}

func TestPartnerShareFloors(t *testing.T) {
	require.EqualValues(t, 50, PartnerShare(500))
	require.EqualValues(t, 0, PartnerShare(9), "10 percent of 9 floors to zero")
	require.EqualValues(t, 12, PartnerShare(125))
}
