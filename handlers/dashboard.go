package handlers

import (
	"net/http"

	"educonnect/models"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the landing payload for role.
func DashboardHandler(role models.Role) gin.HandlerFunc {
	landing := models.LandingFor(role)
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, landing)
	}
}
