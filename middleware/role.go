package middleware

import (
	"net/http"

	"educonnect/services/navigation"

	"github.com/gin-gonic/gin"
)

// RequireDashboard lets through active sessions whose role redirects to
// target, so every redirect lands on a dashboard that answers.
// It must run after SessionAuthMiddleware.
func RequireDashboard(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := CurrentSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if navigation.DashboardFor(s.Role) != target {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "This dashboard is not available for your role"})
			return
		}
		c.Next()
	}
}
