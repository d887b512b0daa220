package models

import "time"

// UnlockGrant records a one-time cosmetic unlock won on the wheel. The
// (user_id, unlock_key) unique index makes applying the same unlock twice a
// no-op instead of a duplicate.
type UnlockGrant struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID    uint64 `gorm:"not null;uniqueIndex:idx_unlock_grants_user_key"`           // Owning user ID.
	UnlockKey string `gorm:"type:text;not null;uniqueIndex:idx_unlock_grants_user_key"` // Unlocked item key.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // First grant timestamp.
}

// TableName overrides the default table name.
func (UnlockGrant) TableName() string {
	return "unlock_grants"
}
