package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/entitlement"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"github.com/vendstars/VendStarsEconomy/internal/reward"
	log "github.com/sirupsen/logrus"
)

// SpinHandler serves the spin wheel: drawing, quota and the public prize
// list.
type SpinHandler struct {
	engine  *reward.Engine
	tracker *entitlement.Tracker
}

// NewSpinHandler constructs a SpinHandler.
func NewSpinHandler(engine *reward.Engine, tracker *entitlement.Tracker) *SpinHandler {
	return &SpinHandler{engine: engine, tracker: tracker}
}

// quotaDTO defines the quota response payload.
type quotaDTO struct {
	Base         int    `json:"base"`
	PackUnits    int    `json:"pack_units"`
	UsedToday    int    `json:"used_today"`
	Remaining    int    `json:"remaining"`
	ActivePackID uint64 `json:"active_pack_id,omitempty"`
}

// Spin draws one wheel outcome for the current user.
func (h *SpinHandler) Spin(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	quota, errQuota := h.tracker.CurrentQuota(c.Request.Context(), userID, models.PackTypeSpin)
	if errQuota != nil {
		log.WithError(errQuota).WithField("user_id", userID).Error("compute spin quota")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "compute quota failed"})
		return
	}

	result, errSpin := h.engine.Spin(c.Request.Context(), userID, quota.Remaining)
	if errSpin != nil {
		if errors.Is(errSpin, reward.ErrQuotaExhausted) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "spin quota exhausted"})
			return
		}
		log.WithError(errSpin).WithField("user_id", userID).Error("spin failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "spin failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Quota returns the user's remaining spins for today.
func (h *SpinHandler) Quota(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	quota, errQuota := h.tracker.CurrentQuota(c.Request.Context(), userID, models.PackTypeSpin)
	if errQuota != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "compute quota failed"})
		return
	}
	c.JSON(http.StatusOK, quotaDTO{
		Base:         quota.Base,
		PackUnits:    quota.PackUnits,
		UsedToday:    quota.UsedToday,
		Remaining:    quota.Remaining,
		ActivePackID: quota.ActivePackID,
	})
}

// Prizes returns the configured wheel entries with their percentage odds.
func (h *SpinHandler) Prizes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prizes": h.engine.Odds()})
}
