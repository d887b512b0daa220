package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"gorm.io/gorm"
)

// TransactionsHandler handles the admin ledger audit listing.
type TransactionsHandler struct {
	db *gorm.DB
}

// NewTransactionsHandler constructs a TransactionsHandler.
func NewTransactionsHandler(db *gorm.DB) *TransactionsHandler {
	return &TransactionsHandler{db: db}
}

// List returns ledger rows across users with optional filters, newest first.
func (h *TransactionsHandler) List(c *gin.Context) {
	var (
		userIDStr   = strings.TrimSpace(c.Query("user_id"))
		kind        = strings.TrimSpace(c.Query("kind"))
		category    = strings.TrimSpace(c.Query("category"))
		referenceID = strings.TrimSpace(c.Query("reference_id"))
		fromStr     = strings.TrimSpace(c.Query("from"))
		toStr       = strings.TrimSpace(c.Query("to"))
		limitStr    = strings.TrimSpace(c.Query("limit"))
	)

	limit := 100
	if limitStr != "" {
		if v, errParse := strconv.Atoi(limitStr); errParse == nil && v > 0 {
			if v > 1000 {
				v = 1000
			}
			limit = v
		}
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Transaction{})
	if userIDStr != "" {
		if id, errParseUint := strconv.ParseUint(userIDStr, 10, 64); errParseUint == nil {
			q = q.Where("user_id = ?", id)
		}
	}
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if referenceID != "" {
		q = q.Where("reference_id = ?", referenceID)
	}
	if fromStr != "" {
		if ts, errParse := time.Parse(time.RFC3339, fromStr); errParse == nil {
			q = q.Where("created_at >= ?", ts.UTC())
		}
	}
	if toStr != "" {
		if ts, errParse := time.Parse(time.RFC3339, toStr); errParse == nil {
			q = q.Where("created_at <= ?", ts.UTC())
		}
	}

	var rows []models.Transaction
	if errFind := q.Order("id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query transactions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}
