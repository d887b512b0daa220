package purchase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vendstars/VendStarsEconomy/internal/models"
)

// QRCodeGenerator issues the redemption code a store purchase resolves to.
// The portal renders the code as a QR image; this service only owns the
// code itself.
type QRCodeGenerator struct{}

// NewQRCodeGenerator constructs a QRCodeGenerator.
func NewQRCodeGenerator() *QRCodeGenerator {
	return &QRCodeGenerator{}
}

// Generate returns a fresh redemption code bound to the attempt's item.
func (QRCodeGenerator) Generate(_ context.Context, attempt *models.PurchaseAttempt) (string, error) {
	if attempt == nil || attempt.ItemRef == "" {
		return "", fmt.Errorf("%w: attempt has no item", ErrInvalidRequest)
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("VSE-%s-%s", strings.ToUpper(attempt.ItemRef), token[:16]), nil
}
