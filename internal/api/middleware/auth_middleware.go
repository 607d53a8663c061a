package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"phFolio/internal/auth"
)

const (
	userIDKey   = "userID"
	usernameKey = "username"
)

// TokenValidator 校验访问令牌。
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.TokenClaims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将 userID 注入上下文。
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := validator.ValidateAccessToken(rawToken)
		if err != nil || claims.UserID == 0 {
			LoggerFromContext(c).Debug("access token rejected")
			abortUnauthorized(c)
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// UserID 返回鉴权中间件注入的用户 ID。
func UserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

// Username 返回令牌中的用户名，可能为空。
func Username(c *gin.Context) string {
	return c.GetString(usernameKey)
}
