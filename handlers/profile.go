package handlers

import (
	"errors"
	"net/http"

	profileRepo "educonnect/database/repository/profile"
	"educonnect/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetMyProfileHandler returns the signed-in user's profile.
func (hb *HandlerBundle) GetMyProfileHandler(c *gin.Context) {
	s, _ := middleware.CurrentSession(c)

	profile, err := hb.Profiles.GetProfile(c.Request.Context(), s.UID)
	if err != nil {
		if errors.Is(err, profileRepo.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User profile not found"})
			return
		}
		getLogger(c).Error("Failed to fetch profile", zap.String("uid", s.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}
