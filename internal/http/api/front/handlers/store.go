package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/balance"
	"github.com/vendstars/VendStarsEconomy/internal/entitlement"
	"github.com/vendstars/VendStarsEconomy/internal/purchase"
	log "github.com/sirupsen/logrus"
)

// StoreHandler serves coin purchases: store items and entitlement packs.
type StoreHandler struct {
	coordinator *purchase.Coordinator
	tracker     *entitlement.Tracker
}

// NewStoreHandler constructs a StoreHandler.
func NewStoreHandler(coordinator *purchase.Coordinator, tracker *entitlement.Tracker) *StoreHandler {
	return &StoreHandler{coordinator: coordinator, tracker: tracker}
}

// purchaseItemRequest defines the request body for a store purchase.
type purchaseItemRequest struct {
	ItemRef     string `json:"item_ref"`
	Cost        int64  `json:"cost"`
	PartnerCode string `json:"partner_code"`
}

// purchasePackRequest defines the request body for a pack purchase.
type purchasePackRequest struct {
	PackType     string `json:"pack_type"`
	UnitsPerDay  int    `json:"units_per_day"`
	DurationDays int    `json:"duration_days"`
	Cost         int64  `json:"cost"`
}

// packDTO defines the pack response payload.
type packDTO struct {
	ID           uint64    `json:"id"`
	PackType     string    `json:"pack_type"`
	UnitsPerDay  int       `json:"units_per_day"`
	DurationDays int       `json:"duration_days"`
	Status       string    `json:"status"`
	GrantedAt    time.Time `json:"granted_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// PurchaseItem buys a store item with coins and returns the generated
// artifact reference.
func (h *StoreHandler) PurchaseItem(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body purchaseItemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	itemRef := strings.TrimSpace(body.ItemRef)
	if itemRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_ref is required"})
		return
	}

	outcome, errBuy := h.coordinator.PurchaseItem(c.Request.Context(), purchase.Request{
		UserID:      userID,
		ItemRef:     itemRef,
		Cost:        body.Cost,
		PartnerCode: strings.TrimSpace(body.PartnerCode),
	})
	if errBuy != nil {
		h.renderPurchaseError(c, userID, errBuy)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference_id": outcome.Attempt.ReferenceID,
		"artifact_ref": outcome.ArtifactRef,
		"cost":         outcome.Attempt.CostCoins,
	})
}

// PurchasePack buys an entitlement pack with coins.
func (h *StoreHandler) PurchasePack(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body purchasePackRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	pack, errBuy := h.coordinator.PurchasePack(c.Request.Context(), userID,
		strings.TrimSpace(body.PackType), body.UnitsPerDay, body.DurationDays, body.Cost)
	if errBuy != nil {
		if errors.Is(errBuy, entitlement.ErrUnknownPackType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown pack type"})
			return
		}
		h.renderPurchaseError(c, userID, errBuy)
		return
	}
	c.JSON(http.StatusOK, toPackDTO(*pack))
}

// ListPacks returns the user's entitlement packs, newest grant first.
func (h *StoreHandler) ListPacks(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	packs, errList := h.tracker.ListPacks(c.Request.Context(), userID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query packs failed"})
		return
	}
	items := make([]packDTO, 0, len(packs))
	for _, pack := range packs {
		items = append(items, toPackDTO(pack))
	}
	c.JSON(http.StatusOK, gin.H{"packs": items})
}

func (h *StoreHandler) renderPurchaseError(c *gin.Context, userID uint64, errBuy error) {
	switch {
	case errors.Is(errBuy, balance.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient coins"})
	case errors.Is(errBuy, balance.ErrInvalidAmount), errors.Is(errBuy, purchase.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase"})
	case errors.Is(errBuy, purchase.ErrArtifactFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "purchase failed, coins refunded"})
	case errors.Is(errBuy, purchase.ErrRefundFailed):
		log.WithError(errBuy).WithField("user_id", userID).Error("purchase compensation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purchase failed"})
	default:
		log.WithError(errBuy).WithField("user_id", userID).Error("purchase failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purchase failed"})
	}
}
