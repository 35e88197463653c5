package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
)

const userContextKey = "auth.user"

// openPaths are reachable without an API key.
var openPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// APIKeyMiddleware resolves the operator account from the x-api-key header
// (or api_key query parameter, which the websocket feed relies on) and
// aborts unauthorized requests.
func APIKeyMiddleware(repo repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if openPaths[p] || strings.HasPrefix(p, "/swagger") {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader("x-api-key"))
		if key == "" {
			key = strings.TrimSpace(c.Query("api_key"))
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		user, err := repo.GetUserByAPIKey(c.Request.Context(), key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "auth lookup failed"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the account resolved by APIKeyMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
