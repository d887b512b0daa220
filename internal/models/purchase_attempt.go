package models

import "time"

// Purchase attempt states. A purchase advances debited → recorded →
// artifact_generated → completed; a failure after the debit moves it to
// failed and, once the compensating credit lands, refunded.
const (
	// PurchaseStatusPending is set before the coin debit.
	PurchaseStatusPending = "pending"
	// PurchaseStatusDebited means coins were taken from the buyer.
	PurchaseStatusDebited = "debited"
	// PurchaseStatusRecorded means the purchase record step completed.
	PurchaseStatusRecorded = "recorded"
	// PurchaseStatusArtifactGenerated means the side artifact step completed.
	PurchaseStatusArtifactGenerated = "artifact_generated"
	// PurchaseStatusCompleted is the terminal success state.
	PurchaseStatusCompleted = "completed"
	// PurchaseStatusFailed means a post-debit step failed irrecoverably.
	PurchaseStatusFailed = "failed"
	// PurchaseStatusRefunded means the compensating refund was issued.
	PurchaseStatusRefunded = "refunded"
)

// Purchase item kinds.
const (
	// PurchaseItemStore is a store item bought with coins (e.g. a discount code).
	PurchaseItemStore = "store_item"
	// PurchaseItemPack is an entitlement pack bought with coins.
	PurchaseItemPack = "entitlement_pack"
)

// PurchaseAttempt tracks one multi-step purchase through its saga states.
// ReferenceID links the debit and any compensating refund back to this row.
type PurchaseAttempt struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Buying user ID.

	ReferenceID string `gorm:"type:text;not null;uniqueIndex"` // Stable UUID linking ledger rows to this attempt.

	ItemKind string `gorm:"type:text;not null"` // What was bought (store_item/entitlement_pack).
	ItemRef  string `gorm:"type:text"`          // Item identifier in the caller's catalog.

	CostCoins int64 `gorm:"not null"` // Coins debited for this purchase.

	PartnerCode string `gorm:"type:text"` // Revenue-share partner, when any.

	Status     string `gorm:"type:text;not null;default:'pending';index"` // Saga state.
	FailReason string `gorm:"type:text"`                                  // Failure detail for failed attempts.

	ArtifactRef string `gorm:"type:text"` // Identifier of the generated side artifact.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (PurchaseAttempt) TableName() string {
	return "purchase_attempts"
}
