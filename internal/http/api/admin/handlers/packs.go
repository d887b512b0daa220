package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/entitlement"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/gorm"
)

// PacksHandler handles admin entitlement pack endpoints.
type PacksHandler struct {
	db      *gorm.DB
	tracker *entitlement.Tracker
}

// NewPacksHandler constructs a PacksHandler.
func NewPacksHandler(db *gorm.DB, tracker *entitlement.Tracker) *PacksHandler {
	return &PacksHandler{db: db, tracker: tracker}
}

// grantPackRequest defines the request body for a free admin pack grant.
type grantPackRequest struct {
	PackType     string `json:"pack_type"`
	UnitsPerDay  int    `json:"units_per_day"`
	DurationDays int    `json:"duration_days"`
}

// ListForUser returns one user's packs, any status.
func (h *PacksHandler) ListForUser(c *gin.Context) {
	userID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	packs, errList := h.tracker.ListPacks(c.Request.Context(), userID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query packs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"packs": packs})
}

// GrantForUser grants a user a pack without a coin debit. Support tool for
// goodwill credits and promotions.
func (h *PacksHandler) GrantForUser(c *gin.Context) {
	userID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var body grantPackRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	pack, errGrant := h.tracker.Grant(c.Request.Context(), userID,
		strings.TrimSpace(body.PackType), body.UnitsPerDay, body.DurationDays)
	if errGrant != nil {
		if errors.Is(errGrant, entitlement.ErrUnknownPackType) || errors.Is(errGrant, entitlement.ErrPackGrantFailed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errGrant.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "grant pack failed"})
		return
	}
	c.JSON(http.StatusOK, pack)
}

// ListPartnerWallets returns all partner revenue-share wallets.
func (h *PacksHandler) ListPartnerWallets(c *gin.Context) {
	var rows []models.PartnerWallet
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("partner_code ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query partner wallets failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"partner_wallets": rows})
}
