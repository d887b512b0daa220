package front

import (
	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/balance"
	"github.com/vendstars/VendStarsEconomy/internal/entitlement"
	internalhttp "github.com/vendstars/VendStarsEconomy/internal/http"
	"github.com/vendstars/VendStarsEconomy/internal/http/api/front/handlers"
	"github.com/vendstars/VendStarsEconomy/internal/purchase"
	"github.com/vendstars/VendStarsEconomy/internal/reward"
)

// Deps bundles the services the front routes run on.
type Deps struct {
	Balances    *balance.Service
	Tracker     *entitlement.Tracker
	Engine      *reward.Engine
	Coordinator *purchase.Coordinator
}

// RegisterFrontRoutes registers the user-facing economy routes. The prize
// list is public; everything else requires an identity header.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil {
		return
	}

	front := r.Group("/v0/front")

	spinHandler := handlers.NewSpinHandler(deps.Engine, deps.Tracker)
	front.GET("/spin/prizes", spinHandler.Prizes)

	authed := front.Group("")
	authed.Use(internalhttp.UserIdentityMiddleware())

	walletHandler := handlers.NewWalletHandler(deps.Balances)
	authed.GET("/wallet", walletHandler.GetBalance)
	authed.GET("/wallet/transactions", walletHandler.ListTransactions)

	authed.POST("/spin", spinHandler.Spin)
	authed.GET("/spin/quota", spinHandler.Quota)

	voteHandler := handlers.NewVoteHandler(deps.Balances, deps.Tracker)
	authed.POST("/votes", voteHandler.Vote)
	authed.GET("/votes/quota", voteHandler.Quota)

	storeHandler := handlers.NewStoreHandler(deps.Coordinator, deps.Tracker)
	authed.POST("/store/purchases", storeHandler.PurchaseItem)
	authed.POST("/packs/purchase", storeHandler.PurchasePack)
	authed.GET("/packs", storeHandler.ListPacks)
}
