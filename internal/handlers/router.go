package handlers

import (
	"net/http"

	"binarybets/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts the API on r
func RegisterRoutes(r *gin.Engine, tokens *auth.Manager, log *zap.Logger, bets *BetHandler, users *UserHandler, markets *MarketHandler, resolution *ResolutionHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	authed := api.Group("")
	authed.Use(auth.AuthMiddleware(tokens, log))
	{
		authed.POST("/markets/:id/bets", bets.PlaceBet)
		authed.POST("/bets/:id/cancel", bets.CancelBet)
		authed.GET("/me", users.GetProfile)
	}

	admin := api.Group("/admin")
	admin.Use(auth.AuthMiddleware(tokens, log), auth.AdminMiddleware())
	{
		admin.POST("/markets", markets.CreateMarket)
		admin.PUT("/markets/:id/odds", markets.UpdateOdds)
		admin.POST("/markets/:id/resolve", resolution.ResolveMarket)
		admin.GET("/markets/:id/resolver-logs", resolution.GetResolverLogs)
		admin.GET("/markets/:id/evidence", resolution.GetEvidence)
		admin.POST("/resolver/run", resolution.RunResolver)
	}
}
