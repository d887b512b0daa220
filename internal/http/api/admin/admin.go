package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/entitlement"
	"github.com/vendstars/VendStarsEconomy/internal/http/api/admin/handlers"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers the operator-facing economy routes. The
// portal gateway restricts this prefix to staff before requests reach the
// service.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, tracker *entitlement.Tracker) {
	if r == nil || db == nil {
		return
	}

	adminGroup := r.Group("/v0/admin")

	settingsHandler := handlers.NewSettingsHandler(db)
	adminGroup.GET("/settings", settingsHandler.List)
	adminGroup.PUT("/settings", settingsHandler.Update)

	transactionsHandler := handlers.NewTransactionsHandler(db)
	adminGroup.GET("/transactions", transactionsHandler.List)

	packsHandler := handlers.NewPacksHandler(db, tracker)
	adminGroup.GET("/users/:id/packs", packsHandler.ListForUser)
	adminGroup.POST("/users/:id/packs", packsHandler.GrantForUser)
	adminGroup.GET("/partner-wallets", packsHandler.ListPartnerWallets)
}
