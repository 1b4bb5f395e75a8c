package handlers

import (
	"errors"
	"net/http"

	"boostclics/internal/identity"
	"boostclics/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"initData" form:"initData"`
}

// Auth verifies Telegram initData and returns a provider session.
// Every verification failure gets the same answer.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBind(&req); err != nil || req.InitData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	if len(req.InitData) > maxInitDataLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "initData too long"})
		return
	}

	res, err := h.AuthService.Login(c.Request.Context(), req.InitData)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrAuthFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	case errors.Is(err, identity.ErrExchangeRejected):
		c.JSON(http.StatusForbidden, gin.H{"error": "session refused"})
		return
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": res.Session,
		"user": gin.H{
			"id":           res.Identity.UserID,
			"display_name": res.Identity.DisplayName,
			"username":     res.Identity.Username,
		},
	})
}
