package balance

import (
	"context"
	"errors"
	"fmt"

	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInsufficientFunds rejects a debit that would overdraw the account.
	// User-facing and recoverable; no state change occurs.
	ErrInsufficientFunds = errors.New("balance: insufficient funds")
	// ErrInvalidAmount marks a non-positive amount. Programming error.
	ErrInvalidAmount = errors.New("balance: invalid amount")
)

// Service wraps the ledger with atomic credit/debit/refund operations. Every
// mutation runs inside a transaction that locks the user's LedgerAccount
// row, so the balance check, the append, and the cache update are serialized
// per user while unrelated users proceed in parallel.
type Service struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

// NewService constructs a Service over the given connection.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, ledger: ledger.New(db)}
}

// WithConn returns a Service bound to a different connection, typically a
// transaction handle. Mutations still take the per-user account lock; on a
// transaction handle the inner gorm transaction degrades to a savepoint.
func (s *Service) WithConn(conn *gorm.DB) *Service {
	return &Service{db: conn, ledger: s.ledger.WithConn(conn)}
}

// Ledger exposes the underlying ledger for read-only callers (history pages,
// audit listings).
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// Entry carries the audit fields shared by all ledger mutations.
type Entry struct {
	Category      string
	Description   string
	Metadata      map[string]any
	ReferenceID   string
	ReferenceType string
}

// Credit appends an earning transaction. Amount must be positive.
func (s *Service) Credit(ctx context.Context, userID uint64, amount int64, entry Entry) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credit of %d", ErrInvalidAmount, amount)
	}
	return s.appendLocked(ctx, userID, models.TransactionKindEarning, amount, entry)
}

// Debit checks the balance and appends a spending transaction with the
// negated amount, all under the per-user account lock. Two racing debits
// that each individually pass the balance check can never both commit.
func (s *Service) Debit(ctx context.Context, userID uint64, amount int64, entry Entry) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit of %d", ErrInvalidAmount, amount)
	}

	var row *models.Transaction
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errLock := lockAccount(tx, userID); errLock != nil {
			return errLock
		}

		scoped := s.ledger.WithConn(tx)
		current, errBalance := scoped.Balance(ctx, userID)
		if errBalance != nil {
			return errBalance
		}
		if current < amount {
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, current, amount)
		}

		appended, errAppend := scoped.Append(ctx, ledger.AppendInput{
			UserID:        userID,
			Kind:          models.TransactionKindSpending,
			Category:      entry.Category,
			Amount:        -amount,
			Description:   entry.Description,
			Metadata:      entry.Metadata,
			ReferenceID:   entry.ReferenceID,
			ReferenceType: entry.ReferenceType,
		})
		if errAppend != nil {
			return errAppend
		}
		row = appended
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return row, nil
}

// Refund appends a compensating refund credit. It never checks the balance;
// only the compensation coordinator calls it.
func (s *Service) Refund(ctx context.Context, userID uint64, amount int64, entry Entry) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund of %d", ErrInvalidAmount, amount)
	}
	return s.appendLocked(ctx, userID, models.TransactionKindRefund, amount, entry)
}

// AwardPrize applies a guaranteed game outcome. A negative delta is a
// debit-like adjustment that skips the insufficient-funds check: the user
// did not initiate a spend, the wheel did. Zero deltas append nothing.
func (s *Service) AwardPrize(ctx context.Context, userID uint64, delta int64, entry Entry) (*models.Transaction, error) {
	if delta == 0 {
		return nil, nil
	}
	kind := models.TransactionKindEarning
	if delta < 0 {
		kind = models.TransactionKindSpending
	}
	return s.appendLocked(ctx, userID, kind, delta, entry)
}

// Bonus appends a system-granted bonus credit (base spin reward, first-spin
// daily bonus). Amount must be positive.
func (s *Service) Bonus(ctx context.Context, userID uint64, amount int64, entry Entry) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: bonus of %d", ErrInvalidAmount, amount)
	}
	return s.appendLocked(ctx, userID, models.TransactionKindBonus, amount, entry)
}

// GetBalance returns the derived balance (sum over the user's rows).
func (s *Service) GetBalance(ctx context.Context, userID uint64) (int64, error) {
	return s.ledger.Balance(ctx, userID)
}

// appendLocked appends one row under the per-user account lock so the cached
// balance stays exact under concurrent writers.
func (s *Service) appendLocked(ctx context.Context, userID uint64, kind string, amount int64, entry Entry) (*models.Transaction, error) {
	var row *models.Transaction
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errLock := lockAccount(tx, userID); errLock != nil {
			return errLock
		}
		appended, errAppend := s.ledger.WithConn(tx).Append(ctx, ledger.AppendInput{
			UserID:        userID,
			Kind:          kind,
			Category:      entry.Category,
			Amount:        amount,
			Description:   entry.Description,
			Metadata:      entry.Metadata,
			ReferenceID:   entry.ReferenceID,
			ReferenceType: entry.ReferenceType,
		})
		if errAppend != nil {
			return errAppend
		}
		row = appended
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return row, nil
}

// lockAccount takes the per-user lock inside tx. The insert attempt both
// creates the marker row on first touch and forces the write lock on SQLite,
// where SELECT ... FOR UPDATE is a no-op; on PostgreSQL the subsequent
// locking read holds the row until commit.
func lockAccount(tx *gorm.DB, userID uint64) error {
	marker := models.LedgerAccount{UserID: userID}
	if errEnsure := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&marker).Error; errEnsure != nil {
		return fmt.Errorf("%w: ensure account: %v", ledger.ErrStorageUnavailable, errEnsure)
	}

	var account models.LedgerAccount
	if errLock := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&account).Error; errLock != nil {
		return fmt.Errorf("%w: lock account: %v", ledger.ErrStorageUnavailable, errLock)
	}
	return nil
}
