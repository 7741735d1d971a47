package handlers

import (
	"net/http"

	"educonnect/middleware"
	"educonnect/models"

	"github.com/gin-gonic/gin"
)

// GetFormHandler returns a form descriptor. The profile-completion form is
// prefilled when the caller holds a session in profile completion.
func (hb *HandlerBundle) GetFormHandler(c *gin.Context) {
	desc, ok := models.FormDescriptors[c.Param("form")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown form"})
		return
	}

	if desc.Name == models.ProfileCompletionFormDescriptor.Name {
		if token, ok := middleware.BearerToken(c); ok && hb.Sessions != nil {
			if s, err := hb.Sessions.Resolve(c.Request.Context(), token); err == nil && s.Prefill != nil {
				desc = desc.WithValues(map[string]string{
					"email":    s.Prefill.Email,
					"fullName": s.Prefill.FullName,
				})
			}
		}
	}
	c.JSON(http.StatusOK, desc)
}
