package db

import (
	"fmt"

	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the schema for all economy tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errMigrate := conn.AutoMigrate(
		&models.Transaction{},
		&models.LedgerAccount{},
		&models.EntitlementPack{},
		&models.SpinEvent{},
		&models.UnlockGrant{},
		&models.PurchaseAttempt{},
		&models.PartnerWallet{},
		&models.Setting{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}

	return nil
}
