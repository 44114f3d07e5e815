package handlers

import (
	"github.com/gin-gonic/gin"

	"stock-game-frontend/middleware"
)

// Router builds the gin engine with every route of the front server.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(h.logger))

	requireLogin := middleware.RequireLogin(h.guard, h.cookies, h.logger, h.forgetSession)

	// Public routes
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signin", h.SignIn)
		authGroup.POST("/signup", h.SignUp)
		authGroup.GET("/logout", h.Logout)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", requireLogin, h.Me)
	}

	router.GET("/news", h.GetNews)

	// Protected routes
	protected := router.Group("/")
	protected.Use(requireLogin)
	{
		protected.GET("/stocks", h.ListStocks)
		protected.GET("/stocks/ws", h.StocksSocket)
		protected.GET("/stocks/:symbol", h.GetStock)

		protected.GET("/trade", h.TradePage)
		protected.POST("/trade/quote", h.SelectSymbol)
		protected.POST("/trade/quantity", h.SetQuantity)
		protected.GET("/trade/history", h.TradeHistory)
		protected.POST("/trade/:side", h.Submit)

		protected.GET("/portfolio", h.GetPortfolio)

		protected.GET("/leaderboard", h.GetLeaderboard)
		protected.GET("/shop", h.ShopPage)
		protected.POST("/shop/purchase", h.PurchaseTitle)
	}

	admin := router.Group("/admin")
	admin.Use(requireLogin, middleware.RequireAdmin(h.guard))
	{
		admin.POST("/stocks/:symbol/volatility", h.UpdateVolatility)
		admin.POST("/news", h.PublishNews)
	}

	return router
}
