package purchase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"github.com/vendstars/VendStarsEconomy/internal/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PartnerShare computes the operator's cut of a purchase in whole coins,
// rounded down. The percentage is a runtime setting.
func PartnerShare(cost int64) int64 {
	percent := settings.IntValue(settings.PartnerSharePercentKey, settings.DefaultPartnerSharePercent)
	if percent <= 0 {
		return 0
	}
	share := decimal.NewFromInt(cost).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100))
	return share.Floor().IntPart()
}

// WalletCreditor credits partner wallets stored alongside the ledger.
type WalletCreditor struct {
	db *gorm.DB
}

// NewWalletCreditor constructs a WalletCreditor.
func NewWalletCreditor(db *gorm.DB) *WalletCreditor {
	return &WalletCreditor{db: db}
}

// Credit adds amount to the partner's wallet, creating the wallet row on the
// partner's first sale.
func (w *WalletCreditor) Credit(ctx context.Context, partnerCode string, amount int64, reference string) error {
	if amount <= 0 {
		return nil
	}
	wallet := models.PartnerWallet{PartnerCode: partnerCode}
	conn := w.db.WithContext(ctx)
	if errEnsure := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "partner_code"}},
		DoNothing: true,
	}).Create(&wallet).Error; errEnsure != nil {
		return fmt.Errorf("%w: ensure wallet: %v", ledger.ErrStorageUnavailable, errEnsure)
	}
	result := conn.Model(&models.PartnerWallet{}).
		Where("partner_code = ?", partnerCode).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("%w: credit wallet: %v", ledger.ErrStorageUnavailable, result.Error)
	}
	return nil
}
