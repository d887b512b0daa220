package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/balance"
	"github.com/vendstars/VendStarsEconomy/internal/ledger"
	"github.com/vendstars/VendStarsEconomy/internal/models"
)

// WalletHandler serves the user's coin balance and transaction history.
type WalletHandler struct {
	balances *balance.Service
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(balances *balance.Service) *WalletHandler {
	return &WalletHandler{balances: balances}
}

// transactionDTO defines the history response payload.
type transactionDTO struct {
	ID            uint64    `json:"id"`
	Kind          string    `json:"kind"`
	Category      string    `json:"category"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	ReferenceType string    `json:"reference_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// GetBalance returns the user's current coin balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	coins, errBalance := h.balances.GetBalance(c.Request.Context(), userID)
	if errBalance != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query balance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": coins})
}

// ListTransactions returns the user's history newest first with optional
// kind/category/time filters and offset paging.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	filter := ledger.HistoryFilter{}
	if kinds := strings.TrimSpace(c.Query("kind")); kinds != "" {
		filter.Kinds = strings.Split(kinds, ",")
	}
	if categories := strings.TrimSpace(c.Query("category")); categories != "" {
		filter.Categories = strings.Split(categories, ",")
	}
	if fromStr := strings.TrimSpace(c.Query("from")); fromStr != "" {
		if ts, errParse := time.Parse(time.RFC3339, fromStr); errParse == nil {
			utc := ts.UTC()
			filter.Since = &utc
		}
	}
	if toStr := strings.TrimSpace(c.Query("to")); toStr != "" {
		if ts, errParse := time.Parse(time.RFC3339, toStr); errParse == nil {
			utc := ts.UTC()
			filter.Until = &utc
		}
	}
	if limitStr := strings.TrimSpace(c.Query("limit")); limitStr != "" {
		if v, errParse := strconv.Atoi(limitStr); errParse == nil && v > 0 {
			filter.Limit = v
		}
	}
	if offsetStr := strings.TrimSpace(c.Query("offset")); offsetStr != "" {
		if v, errParse := strconv.Atoi(offsetStr); errParse == nil && v > 0 {
			filter.Offset = v
		}
	}

	rows, errHistory := h.balances.Ledger().History(c.Request.Context(), userID, filter)
	if errHistory != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query history failed"})
		return
	}

	items := make([]transactionDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toTransactionDTO(row))
	}
	c.JSON(http.StatusOK, gin.H{"transactions": items})
}

func toTransactionDTO(row models.Transaction) transactionDTO {
	return transactionDTO{
		ID:            row.ID,
		Kind:          row.Kind,
		Category:      row.Category,
		Amount:        row.Amount,
		Description:   row.Description,
		ReferenceID:   row.ReferenceID,
		ReferenceType: row.ReferenceType,
		CreatedAt:     row.CreatedAt,
	}
}
