package models

import "time"

// PartnerWallet holds a machine operator's revenue-share balance. It is an
// independently-owned resource: crediting it is the decoupled final step of
// a purchase and its failure never rolls back the buyer's purchase.
type PartnerWallet struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PartnerCode string `gorm:"type:text;not null;uniqueIndex"` // Stable partner identifier.
	Name        string `gorm:"type:text;not null"`             // Partner display name.

	Balance int64 `gorm:"not null;default:0"` // Accumulated revenue share in coins.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (PartnerWallet) TableName() string {
	return "partner_wallets"
}
