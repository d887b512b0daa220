package models

import "time"

// Entitlement pack types.
const (
	// PackTypeSpin grants extra spin-wheel uses per calendar day.
	PackTypeSpin = "spin"
	// PackTypeVote grants extra vote uses per calendar day.
	PackTypeVote = "vote"
)

// Entitlement pack statuses.
const (
	// PackStatusActive means the pack still contributes to the daily quota.
	PackStatusActive = "active"
	// PackStatusUsed means the pack's allotment was fully consumed.
	PackStatusUsed = "used"
	// PackStatusExpired means the pack's duration elapsed.
	PackStatusExpired = "expired"
)

// EntitlementPack is a purchased, time-boxed grant of extra daily actions.
// UnitsPerDay is scoped to the calendar day, not a lifetime total: a
// "3/day for 7 days" pack permits 3 extra uses on each of 7 days. Packs are
// consumed FIFO, oldest active pack first, and are never deleted.
type EntitlementPack struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   uint64 `gorm:"not null;index:idx_packs_user_type"`           // Owning user ID.
	PackType string `gorm:"type:text;not null;index:idx_packs_user_type"` // Pack type (spin/vote).

	UnitsPerDay  int `gorm:"not null"` // Extra uses granted per calendar day.
	DurationDays int `gorm:"not null"` // Validity window in days.

	GrantedAt time.Time `gorm:"not null"` // Purchase/grant timestamp.
	ExpiresAt time.Time `gorm:"not null"` // GrantedAt + DurationDays.

	Status string `gorm:"type:text;not null;default:'active';index"` // Lifecycle status.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (EntitlementPack) TableName() string {
	return "entitlement_packs"
}
