package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimmy12-d/rean-ai/internal/engine"
	"github.com/jimmy12-d/rean-ai/internal/service"
)

type HealthHandler struct {
	manager   *engine.Manager
	retriever *service.Retriever
}

func NewHealthHandler(manager *engine.Manager, retriever *service.Retriever) *HealthHandler {
	return &HealthHandler{manager: manager, retriever: retriever}
}

func (h *HealthHandler) Health(c *gin.Context) {
	concepts, exercises := h.retriever.Counts(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"ready":     h.manager.IsReady(),
		"concepts":  concepts,
		"exercises": exercises,
	})
}
