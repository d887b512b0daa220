package models

import "time"

// SpinEvent records one quota-consuming spin. Respin outcomes do not create
// a row, which is what makes them free: daily usage is counted from these
// rows since local midnight.
type SpinEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index:idx_spin_events_user_time"` // Owning user ID.

	PrizeName  string `gorm:"type:text;not null"` // Name of the drawn prize.
	PointDelta int64  `gorm:"not null"`           // Coins awarded or deducted by the prize.

	CreatedAt time.Time `gorm:"not null;index:idx_spin_events_user_time"` // Spin timestamp.
}

// TableName overrides the default table name.
func (SpinEvent) TableName() string {
	return "spin_events"
}
