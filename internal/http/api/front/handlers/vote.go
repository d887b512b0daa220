package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/balance"
	"github.com/vendstars/VendStarsEconomy/internal/entitlement"
	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"github.com/vendstars/VendStarsEconomy/internal/settings"
	log "github.com/sirupsen/logrus"
)

// VoteHandler records product votes and credits the vote reward.
type VoteHandler struct {
	balances *balance.Service
	tracker  *entitlement.Tracker
}

// NewVoteHandler constructs a VoteHandler.
func NewVoteHandler(balances *balance.Service, tracker *entitlement.Tracker) *VoteHandler {
	return &VoteHandler{balances: balances, tracker: tracker}
}

// voteRequest defines the request body for a product vote.
type voteRequest struct {
	ProductRef  string `json:"product_ref"`
	MachineCode string `json:"machine_code"`
}

// Vote records one product vote for the current user. Votes are bounded by
// the daily vote quota; each accepted vote earns the configured coin reward.
func (h *VoteHandler) Vote(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body voteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	productRef := strings.TrimSpace(body.ProductRef)
	if productRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_ref is required"})
		return
	}

	quota, errQuota := h.tracker.CurrentQuota(c.Request.Context(), userID, models.PackTypeVote)
	if errQuota != nil {
		log.WithError(errQuota).WithField("user_id", userID).Error("compute vote quota")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "compute quota failed"})
		return
	}
	if quota.Remaining <= 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "vote quota exhausted"})
		return
	}

	rewardCoins := int64(settings.IntValue(settings.VoteRewardKey, settings.DefaultVoteReward))
	row, errCredit := h.balances.Credit(c.Request.Context(), userID, rewardCoins, balance.Entry{
		Category:    ledger.CategoryVoting,
		Description: "product vote: " + productRef,
		Metadata: map[string]any{
			"product_ref":  productRef,
			"machine_code": strings.TrimSpace(body.MachineCode),
		},
	})
	if errCredit != nil {
		log.WithError(errCredit).WithField("user_id", userID).Error("credit vote reward")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record vote failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reward":         row.Amount,
		"transaction_id": row.ID,
		"remaining":      quota.Remaining - 1,
	})
}

// Quota returns the user's remaining votes for today.
func (h *VoteHandler) Quota(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	quota, errQuota := h.tracker.CurrentQuota(c.Request.Context(), userID, models.PackTypeVote)
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
