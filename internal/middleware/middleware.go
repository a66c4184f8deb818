package middleware

import (
	"net/http"
	"strings"

	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Auth verifies the bearer credential (Authorization header, cookie
// fallback) and resolves it to a live user. Handlers read the identity
// from the context keys "userID" and "user".
func Auth(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"message": "Unauthorized", "statusCode": http.StatusUnauthorized}})
			logger.Debug(ctx, "Missing credential on protected route", "path", c.FullPath())
			c.Abort()
			return
		}
		user, err := resolver.Resolve(ctx, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"message": "Unauthorized", "statusCode": http.StatusUnauthorized}})
			logger.Debug(ctx, "Credential resolution failed", "error", err)
			c.Abort()
			return
		}
		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	if token, err := c.Cookie("token"); err == nil {
		return token
	}
	return ""
}

// CORS allows the configured frontend origin with credentials.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := config.Get().FrontendURL
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
