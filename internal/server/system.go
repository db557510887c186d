package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/pkg/errors"
)

const aiHealthTimeout = 15 * time.Second

func (h *handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAIHealth pings each AI provider. 503 when none answers.
func (h *handler) handleAIHealth(c *gin.Context) {
	if h.deps.Health == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "providers": gin.H{}})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), aiHealthTimeout)
	defer cancel()

	providers := h.deps.Health.Ping(ctx)
	healthy := false
	for _, ok := range providers {
		if ok {
			healthy = true
			break
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "providers": providers})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "providers": providers})
}

func (h *handler) handleGetSpeechSettings(c *gin.Context) {
	value, err := h.deps.Settings.Load(c.Request.Context())
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, value)
}

func (h *handler) handleSaveSpeechSettings(c *gin.Context) {
	var req domain.SpeechSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.NewValidationError("invalid request body", "body", ""), h.logger)
		return
	}

	if err := h.deps.Settings.Save(c.Request.Context(), req); err != nil {
		abortWithError(c, err, h.logger)
		return
	}

	value, err := h.deps.Settings.Load(c.Request.Context())
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, value)
}
