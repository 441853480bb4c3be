package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimmy12-d/rean-ai/internal/engine"
	errs "github.com/jimmy12-d/rean-ai/internal/pkg/errors"
)

type ModelHandler struct {
	manager *engine.Manager
}

func NewModelHandler(manager *engine.Manager) *ModelHandler {
	return &ModelHandler{manager: manager}
}

type setModelRequest struct {
	Model string `json:"model"`
}

func (h *ModelHandler) SetModel(c *gin.Context) {
	var req setModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if err := h.manager.Load(c.Request.Context(), req.Model); err != nil {
		if errs.IsUnknownModel(err) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Model '%s' not found.", req.Model)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	info := h.manager.Current()
	c.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("Switched to %s", info.DisplayName),
		"current_model": info.Key,
	})
}

func (h *ModelHandler) CurrentModel(c *gin.Context) {
	info := h.manager.Current()
	c.JSON(http.StatusOK, gin.H{
		"current_model":    info.Key,
		"alias":            info.DisplayName,
		"available_models": info.Available,
	})
}
