package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrStorageUnavailable wraps any storage-level failure. The core never
// retries; the caller applies its own retry policy.
var ErrStorageUnavailable = errors.New("ledger: storage unavailable")

// ErrUnknownKind is returned when Append receives an unknown transaction kind.
var ErrUnknownKind = errors.New("ledger: unknown transaction kind")

// History pagination bounds.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Ledger is the append-only transaction store. Rows are inserted, never
// updated or deleted; a user's balance is the sum of their rows.
type Ledger struct {
	db *gorm.DB
}

// New constructs a Ledger over the given connection.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithConn returns a Ledger bound to a different connection, typically a
// transaction handle. The balance service uses this to append rows inside
// the same transaction that holds the per-user account lock.
func (l *Ledger) WithConn(conn *gorm.DB) *Ledger {
	return &Ledger{db: conn}
}

// AppendInput describes one ledger row to insert. The caller determines the
// sign of Amount from Kind; Append does not infer it.
type AppendInput struct {
	UserID        uint64
	Kind          string
	Category      string
	Amount        int64
	Description   string
	Metadata      map[string]any
	ReferenceID   string
	ReferenceType string
}

// Append inserts one transaction row and folds it into the user's cached
// balance in the same unit of work. It fails only on storage errors.
func (l *Ledger) Append(ctx context.Context, in AppendInput) (*models.Transaction, error) {
	switch in.Kind {
	case models.TransactionKindEarning, models.TransactionKindSpending,
		models.TransactionKindRefund, models.TransactionKindBonus:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, in.Kind)
	}

	var metadata datatypes.JSON
	if len(in.Metadata) > 0 {
		raw, errMarshal := json.Marshal(in.Metadata)
		if errMarshal != nil {
			return nil, fmt.Errorf("ledger: marshal metadata: %w", errMarshal)
		}
		metadata = datatypes.JSON(raw)
	}

	row := models.Transaction{
		UserID:        in.UserID,
		Kind:          in.Kind,
		Category:      in.Category,
		Amount:        in.Amount,
		Description:   in.Description,
		Metadata:      metadata,
		ReferenceID:   in.ReferenceID,
		ReferenceType: in.ReferenceType,
	}
	if errCreate := l.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, storageErr("append", errCreate)
	}

	if errCache := l.foldIntoCache(ctx, &row); errCache != nil {
		return nil, errCache
	}

	return &row, nil
}

// foldIntoCache advances the user's LedgerAccount cache row. The cache is an
// optimization only; Balance still sums the rows.
func (l *Ledger) foldIntoCache(ctx context.Context, row *models.Transaction) error {
	res := l.db.WithContext(ctx).Model(&models.LedgerAccount{}).
		Where("user_id = ?", row.UserID).
		Updates(map[string]any{
			"cached_balance":      gorm.Expr("cached_balance + ?", row.Amount),
			"last_transaction_id": row.ID,
		})
	if res.Error != nil {
		return storageErr("update balance cache", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	account := models.LedgerAccount{
		UserID:            row.UserID,
		CachedBalance:     row.Amount,
		LastTransactionID: row.ID,
	}
	if errCreate := l.db.WithContext(ctx).Create(&account).Error; errCreate != nil {
		return storageErr("create balance cache", errCreate)
	}
	return nil
}

// Balance returns the user's balance as a single-statement sum over their
// transactions.
func (l *Ledger) Balance(ctx context.Context, userID uint64) (int64, error) {
	var total int64
	if errSum := l.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; errSum != nil {
		return 0, storageErr("balance", errSum)
	}
	return total, nil
}

// HistoryFilter narrows and pages a history query.
type HistoryFilter struct {
	Kinds      []string
	Categories []string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// History returns the user's transactions newest first. Limit defaults to 50
// and is capped at 200; Offset makes the listing restartable.
func (l *Ledger) History(ctx context.Context, userID uint64, filter HistoryFilter) ([]models.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := l.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ?", userID)
	if len(filter.Kinds) > 0 {
		query = query.Where("kind IN ?", filter.Kinds)
	}
	if len(filter.Categories) > 0 {
		query = query.Where("category IN ?", filter.Categories)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("created_at < ?", *filter.Until)
	}

	var rows []models.Transaction
	if errFind := query.Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		return nil, storageErr("history", errFind)
	}
	return rows, nil
}

// CountSince counts a user's rows for a category at or after a point in
// time. The entitlement tracker uses this to compute usage since midnight
// for vote-type actions.
func (l *Ledger) CountSince(ctx context.Context, userID uint64, category string, since time.Time) (int64, error) {
	var count int64
	if errCount := l.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND category = ? AND created_at >= ?", userID, category, since).
		Count(&count).Error; errCount != nil {
		return 0, storageErr("count since", errCount)
	}
	return count, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}
