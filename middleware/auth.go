package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"educonnect/services/session"
	"educonnect/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionResolver is implemented by *session.Manager.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Session, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// SessionAuthMiddleware requires a valid session token. Sessions still in
// profile completion are only let through when allowIncomplete is set.
func SessionAuthMiddleware(sessions SessionResolver, allowIncomplete bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		s, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrInvalidToken) && !errors.Is(err, session.ErrSessionNotFound) {
				zap.L().Error("session lookup failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session store unavailable"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}
		if !s.Active() && !allowIncomplete {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Please complete your profile first"})
			return
		}

		c.Set(utils.SessionContextKey, s)
		c.Next()
	}
}

// CurrentSession returns the session set by SessionAuthMiddleware.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	v, exists := c.Get(utils.SessionContextKey)
	if !exists {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok
}
