package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	ContextUserID = "userID"
	ContextRole   = "role"
	ContextToken  = "token"
)

// AuthMiddleware validates the Bearer token and stores the identity in the gin context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header must use the Bearer scheme"))
			c.Abort()
			return
		}
		authenticate(c, strings.TrimPrefix(authHeader, "Bearer "))
	}
}

// WebSocketAuthMiddleware accepts the token as a query parameter, since browsers
// cannot set headers on websocket upgrades.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		authenticate(c, token)
	}
}

func authenticate(c *gin.Context, tokenString string) {
	claims, err := utils.ParseToken(tokenString)
	if err != nil || claims == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired token"))
		c.Abort()
		return
	}
	if claims.UserID == "" {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid user ID in token"))
		c.Abort()
		return
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextToken, tokenString)
	c.Next()
}
