package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jimmy12-d/rean-ai/internal/middleware"
)

type RouterDeps struct {
	Chat   *ChatHandler
	Models *ModelHandler
	Health *HealthHandler
	// 0 disables rate limiting on /set_model.
	SetModelRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/generate", deps.Chat.Generate)
	api.GET("/current_model", deps.Models.CurrentModel)
	api.GET("/health", deps.Health.Health)

	setModel := api.Group("")
	if deps.SetModelRateLimit > 0 {
		setModel.Use(middleware.RateLimit(deps.SetModelRateLimit))
	}
	setModel.POST("/set_model", deps.Models.SetModel)
}
