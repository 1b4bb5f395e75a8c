package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxAccessToken = "access_token"
	ctxSessionKey  = "session_key"
)

// Bearer requires an Authorization: Bearer header and stores the token for
// handlers. The token is validated downstream by the data service.
func Bearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sum := sha256.Sum256([]byte(token))
		c.Set(ctxAccessToken, token)
		c.Set(ctxSessionKey, hex.EncodeToString(sum[:8]))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AccessToken returns the token stored by Bearer.
func AccessToken(c *gin.Context) string {
	return c.GetString(ctxAccessToken)
}

// SessionKey returns a short digest of the bearer token, safe to use in keys.
func SessionKey(c *gin.Context) string {
	return c.GetString(ctxSessionKey)
}
