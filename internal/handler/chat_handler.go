package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jimmy12-d/rean-ai/internal/model"
	errs "github.com/jimmy12-d/rean-ai/internal/pkg/errors"
	"github.com/jimmy12-d/rean-ai/internal/service"
)

type ChatHandler struct {
	chat *service.Chat
}

func NewChatHandler(chat *service.Chat) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Generate streams newline-delimited JSON: one info line carrying the
// rendered prompt, then a token line per fragment. Once the first line is
// written the status is committed, so later failures can only end the stream.
func (h *ChatHandler) Generate(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	started := false
	err := h.chat.Stream(c.Request.Context(), req, func(ev service.StreamEvent) error {
		if !started {
			c.Header("Content-Type", "application/x-ndjson")
			c.Status(http.StatusOK)
			started = true
		}
		line, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := c.Writer.Write(append(line, '\n')); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err == nil {
		return
	}
	if started {
		// Tokens already reached the client; nothing to retract.
		logutil.GetLogger(c.Request.Context()).Error("generation aborted mid-stream", zap.Error(err))
		return
	}
	switch {
	case errors.Is(err, errs.ErrModelLoading):
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Model is currently being loaded. Please wait."})
	case errors.Is(err, errs.ErrNoEngine):
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Model is not loaded."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
