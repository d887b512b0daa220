package reward

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/vendstars/VendStarsEconomy/internal/balance"
	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"github.com/vendstars/VendStarsEconomy/internal/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrQuotaExhausted rejects a spin when the caller has no quota left today.
// User-facing and recoverable.
var ErrQuotaExhausted = errors.New("reward: spin quota exhausted")

// maxConsecutiveRespins bounds the internal respin retry. A pathological
// weight table (respin-heavy) would otherwise loop unbounded; after the cap
// the draw falls back to a neutral zero-delta outcome.
const maxConsecutiveRespins = 50

// fallbackPrizeName names the neutral outcome used when the respin cap is hit.
const fallbackPrizeName = "consolation"

// Engine draws weighted-random prizes for the spin wheel and applies the
// outcome to the ledger. The prize table is a validated configuration value
// passed in at construction; there is no process-wide table.
type Engine struct {
	db       *gorm.DB
	balances *balance.Service
	table    *PrizeTable
	rng      func(n int) int
	now      func() time.Time
}

// NewEngine constructs an Engine over the given connection and prize table.
func NewEngine(db *gorm.DB, balances *balance.Service, table *PrizeTable) *Engine {
	return &Engine{
		db:       db,
		balances: balances,
		table:    table,
		rng:      rand.Intn,
		now:      time.Now,
	}
}

// WithRand overrides the random source. Tests use a seeded generator.
func (e *Engine) WithRand(rng func(n int) int) *Engine {
	clone := *e
	clone.rng = rng
	return &clone
}

// WithClock overrides the engine's clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	clone := *e
	clone.now = now
	return &clone
}

// SpinResult reports one spin to the caller.
type SpinResult struct {
	PrizeName       string   `json:"prize_name"`
	Rarity          string   `json:"rarity"`
	PointDelta      int64    `json:"point_delta"`
	Special         string   `json:"special"`
	QuotaConsumed   bool     `json:"quota_consumed"`
	BaseReward      int64    `json:"base_reward"`
	FirstOfDayBonus int64    `json:"first_of_day_bonus"`
	Unlocked        []string `json:"unlocked,omitempty"`
	Respins         int      `json:"respins"`
}

// Spin draws one outcome for the user and applies it: the prize delta, the
// guaranteed base reward (plus the day's first-spin bonus), the spin event
// that counts against quota, and any unlock grants collected from special
// outcomes along the way. Everything is applied in one transaction, so a
// storage failure leaves no partial side effects.
//
// quotaRemaining comes from the entitlement tracker; the engine trusts it
// and fails with ErrQuotaExhausted when it is not positive.
func (e *Engine) Spin(ctx context.Context, userID uint64, quotaRemaining int) (*SpinResult, error) {
	if quotaRemaining <= 0 {
		return nil, fmt.Errorf("%w: user %d", ErrQuotaExhausted, userID)
	}

	selected, unlocked, respins := e.draw()

	result := &SpinResult{
		PrizeName:     selected.Name,
		Rarity:        selected.Rarity,
		PointDelta:    selected.PointDelta,
		Special:       selected.Special,
		QuotaConsumed: true,
		Unlocked:      unlocked,
		Respins:       respins,
	}

	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range unlocked {
			if errUnlock := grantUnlock(ctx, tx, userID, key); errUnlock != nil {
				return errUnlock
			}
		}

		first, errFirst := e.isFirstSpinOfDay(ctx, tx, userID)
		if errFirst != nil {
			return errFirst
		}

		event := models.SpinEvent{
			UserID:     userID,
			PrizeName:  selected.Name,
			PointDelta: selected.PointDelta,
			CreatedAt:  e.now(),
		}
		if errCreate := tx.Create(&event).Error; errCreate != nil {
			return fmt.Errorf("%w: record spin: %v", ledger.ErrStorageUnavailable, errCreate)
		}

		scoped := e.balances.WithConn(tx)
		eventRef := strconv.FormatUint(event.ID, 10)

		if selected.PointDelta != 0 {
			if _, errAward := scoped.AwardPrize(ctx, userID, selected.PointDelta, balance.Entry{
				Category:      ledger.CategorySpinning,
				Description:   "spin prize: " + selected.Name,
				Metadata:      map[string]any{"prize": selected.Name, "rarity": selected.Rarity},
				ReferenceID:   eventRef,
				ReferenceType: "spin_event",
			}); errAward != nil {
				return errAward
			}
		}

		baseReward := int64(settings.IntValue(settings.BaseSpinRewardKey, settings.DefaultBaseSpinReward))
		bonus := baseReward
		if first {
			firstBonus := int64(settings.IntValue(settings.FirstSpinBonusKey, settings.DefaultFirstSpinBonus))
			bonus += firstBonus
			result.FirstOfDayBonus = firstBonus
		}
		result.BaseReward = baseReward

		if bonus > 0 {
			if _, errBonus := scoped.Bonus(ctx, userID, bonus, balance.Entry{
				Category:      ledger.CategorySpinReward,
				Description:   "spin base reward",
				ReferenceID:   eventRef,
				ReferenceType: "spin_event",
			}); errBonus != nil {
				return errBonus
			}
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return result, nil
}

// draw runs the bounded respin loop and returns the settled outcome, the
// unlock keys collected from unlock specials, and the respin count.
func (e *Engine) draw() (PrizeEntry, []string, int) {
	var unlocked []string
	respins := 0
	for i := 0; i <= maxConsecutiveRespins; i++ {
		entry := e.table.pick(e.rng(e.table.totalWeight) + 1)
		switch entry.Special {
		case SpecialRespin:
			respins++
		case SpecialUnlock:
			unlocked = append(unlocked, entry.UnlockKey)
			respins++
		default:
			return entry, unlocked, respins
		}
	}
	return PrizeEntry{Name: fallbackPrizeName, Rarity: "common"}, unlocked, respins
}

// grantUnlock records a one-time unlock. The unique index on
// (user_id, unlock_key) plus DO NOTHING makes a repeat grant a no-op.
func grantUnlock(ctx context.Context, tx *gorm.DB, userID uint64, key string) error {
	grant := models.UnlockGrant{UserID: userID, UnlockKey: key}
	if errCreate := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "unlock_key"}},
		DoNothing: true,
	}).Create(&grant).Error; errCreate != nil {
		return fmt.Errorf("%w: grant unlock: %v", ledger.ErrStorageUnavailable, errCreate)
	}
	return nil
}

// isFirstSpinOfDay reports whether no spin event exists for the user since
// local midnight.
func (e *Engine) isFirstSpinOfDay(ctx context.Context, tx *gorm.DB, userID uint64) (bool, error) {
	now := e.now()
	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	var count int64
	if errCount := tx.WithContext(ctx).Model(&models.SpinEvent{}).
		Where("user_id = ? AND created_at >= ?", userID, midnight).
		Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("%w: count spins: %v", ledger.ErrStorageUnavailable, errCount)
	}
	return count == 0, nil
}

// Odds returns each entry's selection probability as a percentage, in
// declaration order. Display data for the wheel page.
func (e *Engine) Odds() []PrizeOdds {
	entries := e.table.Entries()
	out := make([]PrizeOdds, 0, len(entries))
	for _, entry := range entries {
		out = append(out, PrizeOdds{
			Name:       entry.Name,
			Rarity:     entry.Rarity,
			PointDelta: entry.PointDelta,
			Special:    entry.Special,
			Percent:    float64(entry.Weight) / float64(e.table.totalWeight) * 100,
		})
	}
	return out
}

// PrizeOdds is one row of the public prize list.
type PrizeOdds struct {
	Name       string  `json:"name"`
	Rarity     string  `json:"rarity"`
	PointDelta int64   `json:"point_delta"`
	Special    string  `json:"special"`
	Percent    float64 `json:"percent"`
}
