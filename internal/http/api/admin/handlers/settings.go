package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/models"
	"github.com/vendstars/VendStarsEconomy/internal/settings"
	"gorm.io/gorm"
)

// SettingsHandler handles runtime economy settings for administrators.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// settingDTO defines the settings response payload.
type settingDTO struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// updateSettingRequest defines the request body for a settings update.
type updateSettingRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// List returns all stored settings.
func (h *SettingsHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query settings failed"})
		return
	}
	items := make([]settingDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, settingDTO{Key: row.Key, Value: row.Value})
	}
	c.JSON(http.StatusOK, gin.H{"settings": items})
}

// Update upserts one setting and refreshes the in-memory snapshot, so the
// new value takes effect on the next request.
func (h *SettingsHandler) Update(c *gin.Context) {
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	key := strings.TrimSpace(body.Key)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	if len(body.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}

	if errUpsert := settings.Upsert(c.Request.Context(), h.db, key, body.Value); errUpsert != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save setting failed"})
		return
	}
	c.JSON(http.StatusOK, settingDTO{Key: key, Value: body.Value})
}
