package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vendstars/VendStarsEconomy/internal/balance"
	"github.com/vendstars/VendStarsEconomy/internal/entitlement"
	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrRefundFailed means a compensating refund could not be written after
	// a failed purchase: the user's coins are stuck until operations
	// intervene. The single most dangerous condition in the engine; it is
	// always logged with full context before being returned.
	ErrRefundFailed = errors.New("purchase: refund failed")
	// ErrArtifactFailed marks a failed artifact-generation step. The debit
	// has been compensated when this is returned.
	ErrArtifactFailed = errors.New("purchase: artifact generation failed")
	// ErrInvalidRequest marks a malformed purchase request. Programming error.
	ErrInvalidRequest = errors.New("purchase: invalid request")
)

// ArtifactGenerator produces the purchase's side artifact, e.g. the discount
// code behind a QR image. The image itself is rendered by the web layer; the
// coordinator only needs a stable reference, or an error.
type ArtifactGenerator interface {
	Generate(ctx context.Context, attempt *models.PurchaseAttempt) (string, error)
}

// PartnerCreditor credits a machine operator's revenue-share wallet. It is
// an independently-owned resource: a failure here never rolls back or blocks
// the buyer's purchase.
type PartnerCreditor interface {
	Credit(ctx context.Context, partnerCode string, amount int64, reference string) error
}

// Coordinator runs multi-step purchases as a saga: debit → record → artifact
// → partner credit. Any irrecoverable failure after the debit triggers a
// single compensating refund of the exact debited amount, tagged with the
// attempt's reference id. The partner credit is an independently-owned
// resource, so the flow compensates instead of spanning one transaction.
type Coordinator struct {
	db       *gorm.DB
	balances *balance.Service
	tracker  *entitlement.Tracker
	artifact ArtifactGenerator
	partners PartnerCreditor
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(db *gorm.DB, balances *balance.Service, tracker *entitlement.Tracker, artifact ArtifactGenerator, partners PartnerCreditor) *Coordinator {
	return &Coordinator{
		db:       db,
		balances: balances,
		tracker:  tracker,
		artifact: artifact,
		partners: partners,
	}
}

// Request describes one store purchase.
type Request struct {
	UserID      uint64
	ItemRef     string
	Cost        int64
	PartnerCode string
}

// Outcome reports a completed purchase.
type Outcome struct {
	Attempt         *models.PurchaseAttempt
	ArtifactRef     string
	PartnerShare    int64
	PartnerCredited bool
}

// PurchaseItem executes the store-item saga. On success the attempt is
// completed and the artifact reference is returned; on a post-debit failure
// the debit is compensated and the attempt ends refunded.
func (c *Coordinator) PurchaseItem(ctx context.Context, req Request) (*Outcome, error) {
	if req.Cost <= 0 {
		return nil, fmt.Errorf("%w: cost %d", ErrInvalidRequest, req.Cost)
	}

	attempt, errOpen := c.openAttempt(ctx, req.UserID, models.PurchaseItemStore, req.ItemRef, req.Cost, req.PartnerCode)
	if errOpen != nil {
		return nil, errOpen
	}

	if errDebit := c.debitStep(ctx, attempt, ledger.CategoryStorePurchase, "store purchase: "+req.ItemRef); errDebit != nil {
		return nil, errDebit
	}

	if errRecord := c.advance(ctx, attempt, models.PurchaseStatusRecorded, nil); errRecord != nil {
		return nil, c.compensate(ctx, attempt, errRecord)
	}

	artifactRef, errGenerate := c.artifact.Generate(ctx, attempt)
	if errGenerate != nil {
		stepErr := fmt.Errorf("%w: %v", ErrArtifactFailed, errGenerate)
		return nil, c.compensate(ctx, attempt, stepErr)
	}
	if errAdvance := c.advance(ctx, attempt, models.PurchaseStatusArtifactGenerated, map[string]any{
		"artifact_ref": artifactRef,
	}); errAdvance != nil {
		return nil, c.compensate(ctx, attempt, errAdvance)
	}
	attempt.ArtifactRef = artifactRef

	outcome := &Outcome{Attempt: attempt, ArtifactRef: artifactRef}
	outcome.PartnerShare = PartnerShare(req.Cost)
	if req.PartnerCode != "" && outcome.PartnerShare > 0 && c.partners != nil {
		if errCredit := c.partners.Credit(ctx, req.PartnerCode, outcome.PartnerShare, attempt.ReferenceID); errCredit != nil {
			// The buyer keeps the purchase; the share is reconciled out
			// of band.
			log.WithError(errCredit).WithFields(log.Fields{
				"user_id":      req.UserID,
				"partner_code": req.PartnerCode,
				"share":        outcome.PartnerShare,
				"reference_id": attempt.ReferenceID,
			}).Warn("partner revenue-share credit failed")
		} else {
			outcome.PartnerCredited = true
		}
	}

	if errComplete := c.advance(ctx, attempt, models.PurchaseStatusCompleted, nil); errComplete != nil {
		// The purchase itself is done; a failed status write is a storage
		// problem, not grounds for compensation.
		return nil, errComplete
	}
	return outcome, nil
}

// PurchasePack buys an entitlement pack: debit plus grant as one
// failure-atomic pair. If the grant fails after the debit, the coordinator
// refunds the exact amount.
func (c *Coordinator) PurchasePack(ctx context.Context, userID uint64, packType string, unitsPerDay, durationDays int, cost int64) (*models.EntitlementPack, error) {
	if cost <= 0 {
		return nil, fmt.Errorf("%w: cost %d", ErrInvalidRequest, cost)
	}

	itemRef := fmt.Sprintf("%s_pack_%dx%d", packType, unitsPerDay, durationDays)
	attempt, errOpen := c.openAttempt(ctx, userID, models.PurchaseItemPack, itemRef, cost, "")
	if errOpen != nil {
		return nil, errOpen
	}

	if errDebit := c.debitStep(ctx, attempt, ledger.CategoryPackPurchase, "pack purchase: "+itemRef); errDebit != nil {
		return nil, errDebit
	}

	pack, errGrant := c.tracker.Grant(ctx, userID, packType, unitsPerDay, durationDays)
	if errGrant != nil {
		return nil, c.compensate(ctx, attempt, errGrant)
	}

	if errComplete := c.advance(ctx, attempt, models.PurchaseStatusCompleted, nil); errComplete != nil {
		return nil, errComplete
	}
	return pack, nil
}

// openAttempt persists a new pending attempt with a fresh reference id.
func (c *Coordinator) openAttempt(ctx context.Context, userID uint64, itemKind, itemRef string, cost int64, partnerCode string) (*models.PurchaseAttempt, error) {
	attempt := models.PurchaseAttempt{
		UserID:      userID,
		ReferenceID: uuid.NewString(),
		ItemKind:    itemKind,
		ItemRef:     itemRef,
		CostCoins:   cost,
		PartnerCode: partnerCode,
		Status:      models.PurchaseStatusPending,
	}
	if errCreate := c.db.WithContext(ctx).Create(&attempt).Error; errCreate != nil {
		return nil, fmt.Errorf("%w: open attempt: %v", ledger.ErrStorageUnavailable, errCreate)
	}
	return &attempt, nil
}

// debitStep takes the buyer's coins. A rejected debit fails the attempt with
// no compensation: nothing was taken.
func (c *Coordinator) debitStep(ctx context.Context, attempt *models.PurchaseAttempt, category, description string) error {
	_, errDebit := c.balances.Debit(ctx, attempt.UserID, attempt.CostCoins, balance.Entry{
		Category:      category,
		Description:   description,
		ReferenceID:   attempt.ReferenceID,
		ReferenceType: "purchase_attempt",
	})
	if errDebit != nil {
		if errMark := c.advance(ctx, attempt, models.PurchaseStatusFailed, map[string]any{
			"fail_reason": errDebit.Error(),
		}); errMark != nil {
			log.WithError(errMark).WithField("reference_id", attempt.ReferenceID).Error("mark attempt failed")
		}
		return errDebit
	}
	return c.advance(ctx, attempt, models.PurchaseStatusDebited, nil)
}

// compensate refunds the debited amount and marks the attempt refunded. It
// returns the original step error, or ErrRefundFailed if the refund itself
// could not be written.
func (c *Coordinator) compensate(ctx context.Context, attempt *models.PurchaseAttempt, stepErr error) error {
	_, errRefund := c.balances.Refund(ctx, attempt.UserID, attempt.CostCoins, balance.Entry{
		Category:    ledger.CategoryPurchaseRefund,
		Description: "refund for failed purchase",
		Metadata: map[string]any{
			"reason": stepErr.Error(),
		},
		ReferenceID:   attempt.ReferenceID,
		ReferenceType: "purchase_attempt",
	})
	if errRefund != nil {
		log.WithError(errRefund).WithFields(log.Fields{
			"user_id":      attempt.UserID,
			"amount":       attempt.CostCoins,
			"reference_id": attempt.ReferenceID,
			"step_error":   stepErr.Error(),
		}).Error("compensating refund failed; coins are stuck")
		if errMark := c.advance(ctx, attempt, models.PurchaseStatusFailed, map[string]any{
			"fail_reason": stepErr.Error(),
		}); errMark != nil {
			log.WithError(errMark).WithField("reference_id", attempt.ReferenceID).Error("mark attempt failed")
		}
		return fmt.Errorf("%w: user %d amount %d: %v", ErrRefundFailed, attempt.UserID, attempt.CostCoins, errRefund)
	}

	if errMark := c.advance(ctx, attempt, models.PurchaseStatusRefunded, map[string]any{
		"fail_reason": stepErr.Error(),
	}); errMark != nil {
		log.WithError(errMark).WithField("reference_id", attempt.ReferenceID).Error("mark attempt refunded")
	}
	return stepErr
}

// advance moves the attempt to the next saga state.
func (c *Coordinator) advance(ctx context.Context, attempt *models.PurchaseAttempt, status string, extra map[string]any) error {
	updates := map[string]any{"status": status}
	for k, v := range extra {
		updates[k] = v
	}
	if errUpdate := c.db.WithContext(ctx).Model(attempt).Updates(updates).Error; errUpdate != nil {
		return fmt.Errorf("%w: advance to %s: %v", ledger.ErrStorageUnavailable, status, errUpdate)
	}
	attempt.Status = status
	return nil
}
