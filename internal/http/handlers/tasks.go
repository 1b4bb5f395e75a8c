package handlers

import (
	"errors"
	"net/http"

	"boostclics/internal/domain"
	"boostclics/internal/graphql"
	"boostclics/internal/http/middleware"
	"boostclics/internal/logger"

	"github.com/gin-gonic/gin"
)

// ListTasks proxies the active task query with the caller's session.
func (h *Handler) ListTasks(c *gin.Context) {
	ctx := c.Request.Context()

	tasks, err := h.TaskService.ListActive(ctx, middleware.AccessToken(c))
	if err != nil {
		if errors.Is(err, graphql.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		logger.WithContext(ctx).Error("failed to list tasks", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to get tasks"})
		return
	}

	if tasks == nil {
		tasks = []domain.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}
