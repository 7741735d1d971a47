package handlers

import (
	"errors"
	"net/http"

	profileRepo "educonnect/database/repository/profile"
	"educonnect/services/identity"
	"educonnect/services/session"
	"educonnect/services/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a workflow result to its HTTP status.
func statusFor(res *workflow.Result, okStatus int) int {
	if res.State != workflow.StateFailed && res.Err == nil {
		return okStatus
	}
	if errors.Is(res.Err, workflow.ErrValidation) {
		return http.StatusUnprocessableEntity
	}

	var authErr *identity.AuthError
	switch {
	case errors.As(res.Err, &authErr):
		return authStatus(authErr.Kind)
	case errors.Is(res.Err, profileRepo.ErrProfileNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func authStatus(kind identity.ErrorKind) int {
	switch kind {
	case identity.KindNotFound, identity.KindWrongPassword, identity.KindInvalidCredential, identity.KindPopupFailed:
		return http.StatusUnauthorized
	case identity.KindEmailInUse:
		return http.StatusConflict
	case identity.KindDisabled:
		return http.StatusForbidden
	case identity.KindRateLimited:
		return http.StatusTooManyRequests
	case identity.KindNetwork:
		return http.StatusBadGateway
	case identity.KindInvalidEmail, identity.KindWeakPassword, identity.KindUnknown:
		return http.StatusBadRequest
	}
	return http.StatusBadRequest
}

func writeResult(c *gin.Context, res *workflow.Result, okStatus int) {
	c.JSON(statusFor(res, okStatus), res)
}

// writeRefusal answers operations that were refused before they started.
func writeRefusal(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrSubmissionInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "A submission is already in progress"})
	case errors.Is(err, workflow.ErrNotAwaitingProfile):
		c.JSON(http.StatusConflict, gin.H{"error": "No profile completion in progress"})
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
	default:
		getLogger(c).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
	}
}
