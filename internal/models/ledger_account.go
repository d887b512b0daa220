package models

import "time"

// LedgerAccount is the per-user balance marker row. Debits lock this row FOR
// UPDATE so the balance check and the ledger append are serialized per user.
// CachedBalance is maintained in the same transaction as every append and is
// a read optimization only; the transaction sum stays the source of truth.
type LedgerAccount struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex"` // Owning user ID.

	CachedBalance     int64  `gorm:"not null;default:0"` // Balance after the last applied transaction.
	LastTransactionID uint64 `gorm:"not null;default:0"` // ID of the last transaction folded into the cache.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (LedgerAccount) TableName() string {
	return "ledger_accounts"
}
