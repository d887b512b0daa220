package ledger

// Activity categories recorded on ledger rows. Categories are free text;
// these are the ones the engine itself writes.
const (
	// CategorySpinning tags prize awards and deductions from the wheel.
	CategorySpinning = "spinning"
	// CategorySpinReward tags the guaranteed base reward per spin.
	CategorySpinReward = "spin_reward"
	// CategoryVoting tags coins earned by voting.
	CategoryVoting = "voting"
	// CategoryStorePurchase tags store item purchases (e.g. QR discount codes).
	CategoryStorePurchase = "qr_store_purchase"
	// CategoryPackPurchase tags entitlement pack purchases.
	CategoryPackPurchase = "pack_purchase"
	// CategoryPurchaseRefund tags compensating refunds for failed purchases.
	CategoryPurchaseRefund = "purchase_refund"
)
