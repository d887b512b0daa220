package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrPackGrantFailed marks a grant that could not be persisted. Fatal:
	// when it happens after a debit, money is stuck until compensation runs.
	ErrPackGrantFailed = errors.New("entitlement: pack grant failed")
	// ErrUnknownPackType marks an unsupported pack type. Programming error.
	ErrUnknownPackType = errors.New("entitlement: unknown pack type")
)

// BaseDailyAllotment is the free daily allotment every user has before any
// pack is applied.
const BaseDailyAllotment = 1

// Tracker manages time-boxed bonus packs. Quota is recomputed fresh on every
// call from the pack table and the day's recorded actions; nothing is
// cached. Packs are consumed FIFO: only the single oldest still-active pack
// contributes units, never a pool of all packs.
type Tracker struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTracker constructs a Tracker over the given connection.
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db, now: time.Now}
}

// WithClock overrides the tracker's clock. Tests use this to step through
// calendar days.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	return &Tracker{db: t.db, now: now}
}

// Grant creates an active pack expiring durationDays from now. It writes on
// the connection it was built over, so a coordinator can run it inside the
// same transaction as the funding debit.
func (t *Tracker) Grant(ctx context.Context, userID uint64, packType string, unitsPerDay, durationDays int) (*models.EntitlementPack, error) {
	if packType != models.PackTypeSpin && packType != models.PackTypeVote {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPackType, packType)
	}
	if unitsPerDay <= 0 || durationDays <= 0 {
		return nil, fmt.Errorf("%w: units_per_day=%d duration_days=%d", ErrPackGrantFailed, unitsPerDay, durationDays)
	}

	now := t.now()
	pack := models.EntitlementPack{
		UserID:       userID,
		PackType:     packType,
		UnitsPerDay:  unitsPerDay,
		DurationDays: durationDays,
		GrantedAt:    now,
		ExpiresAt:    now.AddDate(0, 0, durationDays),
		Status:       models.PackStatusActive,
	}
	if errCreate := t.db.WithContext(ctx).Create(&pack).Error; errCreate != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackGrantFailed, errCreate)
	}
	return &pack, nil
}

// WithConn returns a Tracker bound to a different connection, typically a
// transaction handle.
func (t *Tracker) WithConn(conn *gorm.DB) *Tracker {
	return &Tracker{db: conn, now: t.now}
}

// Quota is the result of a quota computation. Remaining is what the caller
// may still do today.
type Quota struct {
	Base         int
	PackUnits    int
	UsedToday    int
	Remaining    int
	ActivePackID uint64
}

// CurrentQuota computes today's quota for one action type: the base
// allotment plus the units of the single oldest still-active pack, minus
// the actions already recorded since local midnight. Lapsed packs are
// settled on the way, so the next-oldest pack takes over without any
// explicit switching by the caller.
func (t *Tracker) CurrentQuota(ctx context.Context, userID uint64, packType string) (Quota, error) {
	if packType != models.PackTypeSpin && packType != models.PackTypeVote {
		return Quota{}, fmt.Errorf("%w: %q", ErrUnknownPackType, packType)
	}

	now := t.now()
	if errSettle := t.settleLapsed(ctx, userID, packType, now); errSettle != nil {
		return Quota{}, errSettle
	}

	var pack models.EntitlementPack
	havePack := true
	errFind := t.db.WithContext(ctx).
		Where("user_id = ? AND pack_type = ? AND status = ?", userID, packType, models.PackStatusActive).
		Order("granted_at ASC, id ASC").
		First(&pack).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return Quota{}, fmt.Errorf("%w: find pack: %v", ledger.ErrStorageUnavailable, errFind)
		}
		havePack = false
	}

	used, errUsed := t.usedSince(ctx, userID, packType, startOfDay(now))
	if errUsed != nil {
		return Quota{}, errUsed
	}

	quota := Quota{Base: BaseDailyAllotment, UsedToday: used}
	if havePack {
		quota.PackUnits = pack.UnitsPerDay
		quota.ActivePackID = pack.ID
	}
	quota.Remaining = quota.Base + quota.PackUnits - used
	if quota.Remaining < 0 {
		quota.Remaining = 0
	}
	return quota, nil
}

// settleLapsed finalizes this user's lapsed packs for one action type.
func (t *Tracker) settleLapsed(ctx context.Context, userID uint64, packType string, now time.Time) error {
	var lapsed []models.EntitlementPack
	if errFind := t.db.WithContext(ctx).
		Where("user_id = ? AND pack_type = ? AND status = ? AND expires_at <= ?",
			userID, packType, models.PackStatusActive, now).
		Find(&lapsed).Error; errFind != nil {
		return fmt.Errorf("%w: find lapsed packs: %v", ledger.ErrStorageUnavailable, errFind)
	}
	for i := range lapsed {
		if errSettle := t.settlePack(ctx, &lapsed[i]); errSettle != nil {
			return errSettle
		}
	}
	return nil
}

// settlePack marks one lapsed pack used or expired. "Used" means the
// allotment of the pack's last day of validity was fully consumed;
// otherwise the pack simply expired.
func (t *Tracker) settlePack(ctx context.Context, pack *models.EntitlementPack) error {
	finalDayStart := pack.ExpiresAt.Add(-24 * time.Hour)
	usedFinalDay, errUsed := t.usedBetween(ctx, pack.UserID, pack.PackType, finalDayStart, pack.ExpiresAt)
	if errUsed != nil {
		return errUsed
	}

	status := models.PackStatusExpired
	if usedFinalDay >= BaseDailyAllotment+pack.UnitsPerDay {
		status = models.PackStatusUsed
	}
	if errUpdate := t.db.WithContext(ctx).Model(pack).
		Update("status", status).Error; errUpdate != nil {
		return fmt.Errorf("%w: settle pack %d: %v", ledger.ErrStorageUnavailable, pack.ID, errUpdate)
	}
	return nil
}

// usedSince counts recorded actions of one type since a point in time.
// Spins are counted from spin events, votes from voting ledger rows; respins
// never created a spin event, so they never count.
func (t *Tracker) usedSince(ctx context.Context, userID uint64, packType string, since time.Time) (int, error) {
	used, err := t.usedBetween(ctx, userID, packType, since, time.Time{})
	return used, err
}

func (t *Tracker) usedBetween(ctx context.Context, userID uint64, packType string, since, until time.Time) (int, error) {
	query := t.db.WithContext(ctx)
	var count int64
	switch packType {
	case models.PackTypeSpin:
		query = query.Model(&models.SpinEvent{}).
			Where("user_id = ? AND created_at >= ?", userID, since)
	case models.PackTypeVote:
		query = query.Model(&models.Transaction{}).
			Where("user_id = ? AND category = ? AND created_at >= ?", userID, ledger.CategoryVoting, since)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPackType, packType)
	}
	if !until.IsZero() {
		query = query.Where("created_at < ?", until)
	}
	if errCount := query.Count(&count).Error; errCount != nil {
		return 0, fmt.Errorf("%w: count usage: %v", ledger.ErrStorageUnavailable, errCount)
	}
	return int(count), nil
}

// ExpireDue settles lapsed packs across all users. The app runs this from a
// periodic sweeper so audit listings do not show long-dead packs as active.
func (t *Tracker) ExpireDue(ctx context.Context) (int, error) {
	now := t.now()
	var lapsed []models.EntitlementPack
	if errFind := t.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.PackStatusActive, now).
		Find(&lapsed).Error; errFind != nil {
		return 0, fmt.Errorf("%w: find lapsed packs: %v", ledger.ErrStorageUnavailable, errFind)
	}
	settled := 0
	for i := range lapsed {
		if errSettle := t.settlePack(ctx, &lapsed[i]); errSettle != nil {
			log.WithError(errSettle).WithField("pack_id", lapsed[i].ID).Error("settle lapsed pack")
			continue
		}
		settled++
	}
	return settled, nil
}

// ListPacks returns all of a user's packs newest first, for audit display.
func (t *Tracker) ListPacks(ctx context.Context, userID uint64) ([]models.EntitlementPack, error) {
	var packs []models.EntitlementPack
	if errFind := t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&packs).Error; errFind != nil {
		return nil, fmt.Errorf("%w: list packs: %v", ledger.ErrStorageUnavailable, errFind)
	}
	return packs, nil
}

// startOfDay returns local midnight for the day containing ts.
func startOfDay(ts time.Time) time.Time {
	year, month, day := ts.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, ts.Location())
}
