package models

import (
	"time"

	"gorm.io/datatypes"
)

// Transaction kinds. Earning, bonus, and refund rows carry positive amounts;
// spending rows carry negative magnitudes.
const (
	// TransactionKindEarning marks coins earned by a user action.
	TransactionKindEarning = "earning"
	// TransactionKindSpending marks coins spent by the user.
	TransactionKindSpending = "spending"
	// TransactionKindRefund marks a compensating credit issued after a failed purchase.
	TransactionKindRefund = "refund"
	// TransactionKindBonus marks system-granted coins (base spin reward, daily bonus).
	TransactionKindBonus = "bonus"
)

// Transaction is one append-only ledger row. Rows are never updated or
// deleted; corrections are new refund rows. A user's balance is the sum of
// Amount over all of their rows.
type Transaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key, monotonic.

	UserID uint64 `gorm:"not null;index:idx_transactions_user_created"` // Owning user ID.

	Kind     string `gorm:"type:text;not null;index"` // Transaction kind (earning/spending/refund/bonus).
	Category string `gorm:"type:text;not null;index"` // Free-text activity tag, e.g. "spinning".

	Amount int64 `gorm:"not null"` // Signed coin amount; positive = credit, negative = debit.

	Description string         `gorm:"type:text"`  // Human-readable audit description.
	Metadata    datatypes.JSON `gorm:"type:jsonb"` // Opaque key/value attributes for audit display.

	ReferenceID   string `gorm:"type:text;index"` // Optional causing-entity identifier.
	ReferenceType string `gorm:"type:text"`       // Optional causing-entity type, e.g. "purchase_attempt".

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_transactions_user_created"` // Creation timestamp.
}

// TableName overrides the default table name.
func (Transaction) TableName() string {
	return "transactions"
}
