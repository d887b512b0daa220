package entitlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	dbpkg "github.com/vendstars/VendStarsEconomy/internal/db"
	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/gorm"
)

func newTestTracker(t *testing.T, at *time.Time) (*Tracker, *gorm.DB) {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	require.NoError(t, errOpen, "open sqlite")
	require.NoError(t, dbpkg.Migrate(conn), "migrate")
	tracker := NewTracker(conn).WithClock(func() time.Time { return *at })
	return tracker, conn
}

func recordSpins(t *testing.T, conn *gorm.DB, userID uint64, at time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		event := models.SpinEvent{UserID: userID, PrizeName: "test", CreatedAt: at.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, conn.Create(&event).Error)
	}
}

func TestGrantValidation(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, &now)
	ctx := context.Background()

	_, errGrant := tracker.Grant(ctx, 1, "lottery", 1, 1)
	require.ErrorIs(t, errGrant, ErrUnknownPackType)

	_, errGrant = tracker.Grant(ctx, 1, models.PackTypeSpin, 0, 7)
	require.ErrorIs(t, errGrant, ErrPackGrantFailed)

	pack, errGrant := tracker.Grant(ctx, 1, models.PackTypeSpin, 3, 7)
	require.NoError(t, errGrant)
	require.Equal(t, models.PackStatusActive, pack.Status)
	require.Equal(t, now.AddDate(0, 0, 7), pack.ExpiresAt)
}

func TestQuotaWithoutPacks(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	tracker, conn := newTestTracker(t, &now)
	ctx := context.Background()

	quota, errQuota := tracker.CurrentQuota(ctx, 1, models.PackTypeSpin)
	require.NoError(t, errQuota)
	require.Equal(t, Quota{Base: 1, Remaining: 1}, quota)

	recordSpins(t, conn, 1, now, 1)
	quota, errQuota = tracker.CurrentQuota(ctx, 1, models.PackTypeSpin)
	require.NoError(t, errQuota)
	require.Equal(t, 1, quota.UsedToday)
	require.Equal(t, 0, quota.Remaining)
}

func TestPackFIFOAndDailyReset(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	tracker, conn := newTestTracker(t, &now)
	ctx := context.Background()

	// P1: 2/day for 3 days, then P2: 1/day for 5 days.
	_, errGrant := tracker.Grant(ctx, 1, models.PackTypeSpin, 2, 3)
	require.NoError(t, errGrant)
	now = now.Add(time.Minute)
	p2, errGrant := tracker.Grant(ctx, 1, models.PackTypeSpin, 1, 5)
	require.NoError(t, errGrant)

	// While P1 is active only P1 contributes: 1 base + 2, never 1 + 2 + 1.
	quota, errQuota := tracker.CurrentQuota(ctx, 1, models.PackTypeSpin)
	require.NoError(t, errQuota)
	require.Equal(t, 3, quota.Base+quota.PackUnits)
	require.Equal(t, 3, quota.Remaining)

	// Spend the full allotment today.
	recordSpins(t, conn, 1, now, 3)
	quota, errQuota = tracker.CurrentQuota(ctx, 1, models.PackTypeSpin)
	require.NoError(t, errQuota)
	require.Equal(t, 0, quota.Remaining)

	// Next day the same pack grants its per-day units again: 3/day for the
	// window, not a lifetime pool.
	now = now.AddDate(0, 0, 1)
	quota, errQuota = tracker.CurrentQuota(ctx, 1, models.PackTypeSpin)
	require.NoError(t, errQuota)
	require.Equal(t, 3, quota.Remaining)

	// After P1's 3-day window elapses, P2 takes over without any explicit
	// switching: quota becomes 1 base + 1.
	now = now.AddDate(0, 0, 3)
	quota, errQuota = tracker.CurrentQuota(ctx, 1, models.PackTypeSpin)
	require.NoError(t, errQuota)
	require.Equal(t, p2.ID, quota.ActivePackID)
	require.Equal(t, 2, quota.Remaining)

	// P1 was not fully consumed on its final day, so it expired.
	var p1 models.EntitlementPack
	require.NoError(t, conn.Where("user_id = ? AND units_per_day = 2", 1).First(&p1).Error)
	require.Equal(t, models.PackStatusExpired, p1.Status)
}

func TestLapsedPackFullyConsumedOnFinalDayIsUsed(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	tracker, conn := newTestTracker(t, &now)
	ctx := context.Background()

	_, errGrant := tracker.Grant(ctx, 1, models.PackTypeSpin, 2, 1)
	require.NoError(t, errGrant)

	// Consume the full 1+2 allotment on the pack's only day.
	recordSpins(t, conn, 1, now.Add(time.Hour), 3)

	now = now.AddDate(0, 0, 1).Add(time.Hour)
	_, errQuota := tracker.CurrentQuota(ctx, 1, models.PackTypeSpin)
	require.NoError(t, errQuota)

	var pack models.EntitlementPack
	require.NoError(t, conn.Where("user_id = ?", 1).First(&pack).Error)
	require.Equal(t, models.PackStatusUsed, pack.Status)
}

func TestVoteQuotaCountsVotingLedgerRows(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tracker, conn := newTestTracker(t, &now)
	ctx := context.Background()

	_, errGrant := tracker.Grant(ctx, 1, models.PackTypeVote, 2, 2)
	require.NoError(t, errGrant)

	// Two votes recorded today, one yesterday. Only today's count.
	for _, at := range []time.Time{now.Add(-26 * time.Hour), now.Add(-2 * time.Hour), now.Add(-time.Hour)} {
		row := models.Transaction{
			UserID:    1,
			Kind:      models.TransactionKindEarning,
			Category:  ledger.CategoryVoting,
			Amount:    5,
			CreatedAt: at,
		}
		require.NoError(t, conn.Create(&row).Error)
	}

	quota, errQuota := tracker.CurrentQuota(ctx, 1, models.PackTypeVote)
	require.NoError(t, errQuota)
	require.Equal(t, 2, quota.UsedToday)
	require.Equal(t, 1, quota.Remaining)
}

func TestExpireDueSweep(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	tracker, conn := newTestTracker(t, &now)
	ctx := context.Background()

	_, errGrant := tracker.Grant(ctx, 1, models.PackTypeSpin, 1, 1)
	require.NoError(t, errGrant)
	_, errGrant = tracker.Grant(ctx, 2, models.PackTypeVote, 1, 5)
	require.NoError(t, errGrant)

	now = now.AddDate(0, 0, 2)
	settled, errSweep := tracker.ExpireDue(ctx)
	require.NoError(t, errSweep)
	require.Equal(t, 1, settled)

	var remainingActive int64
	require.NoError(t, conn.Model(&models.EntitlementPack{}).
		Where("status = ?", models.PackStatusActive).
		Count(&remainingActive).Error)
	require.EqualValues(t, 1, remainingActive)
}
