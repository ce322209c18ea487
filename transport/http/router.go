package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lunark-labs/drip/service"
)

// SetupRouter sets up the Gin router.
func SetupRouter(auth *service.AuthService, claims *service.ClaimService, log *zap.Logger) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(auth, claims, log)
	authed := AuthMiddleware(auth)

	authGroup := router.Group("/auth")
	{
		authGroup.GET("/nonce", handlers.Nonce)
		authGroup.POST("/connect", handlers.Connect)
		authGroup.POST("/refresh", handlers.Refresh)
		authGroup.POST("/disconnect", authed, handlers.Disconnect)
	}

	rewards := router.Group("/rewards")
	{
		rewards.GET("/pool", handlers.Pool)
		rewards.GET("/available", authed, handlers.Available)
		rewards.POST("/claim", authed, handlers.Claim)
		rewards.POST("/confirm", authed, handlers.Confirm)
	}

	api := router.Group("/api")
	api.Use(authed)
	{
		api.GET("/me", handlers.Me)
		api.PUT("/me", handlers.UpdateMe)
	}

	return router
}
