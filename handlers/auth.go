package handlers

import (
	"net/http"

	"educonnect/middleware"
	"educonnect/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginHandler handles password login.
func (hb *HandlerBundle) LoginHandler(c *gin.Context) {
	logger := getLogger(c)

	var form models.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		logger.Warn("Invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	flow := hb.Workflow.NewFlow(nil)
	defer flow.Teardown()
	res, err := flow.Login(c.Request.Context(), form)
	if err != nil {
		writeRefusal(c, err)
		return
	}
	writeResult(c, res, http.StatusOK)
}

// RegisterHandler handles account creation.
func (hb *HandlerBundle) RegisterHandler(c *gin.Context) {
	logger := getLogger(c)

	var form models.RegistrationForm
	if err := c.ShouldBindJSON(&form); err != nil {
		logger.Warn("Invalid registration request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	flow := hb.Workflow.NewFlow(nil)
	defer flow.Teardown()
	res, err := flow.Register(c.Request.Context(), form)
	if err != nil {
		writeRefusal(c, err)
		return
	}
	writeResult(c, res, http.StatusCreated)
}

// ProviderLoginHandler exchanges a third-party credential for a session.
func (hb *HandlerBundle) ProviderLoginHandler(c *gin.Context) {
	logger := getLogger(c)

	var cred models.ProviderCredential
	if err := c.ShouldBindJSON(&cred); err != nil {
		logger.Warn("Invalid provider login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	flow := hb.Workflow.NewFlow(nil)
	defer flow.Teardown()
	res, err := flow.ProviderLogin(c.Request.Context(), cred)
	if err != nil {
		writeRefusal(c, err)
		return
	}
	writeResult(c, res, http.StatusOK)
}

// CompleteProfileHandler saves the profile for a session in profile completion.
func (hb *HandlerBundle) CompleteProfileHandler(c *gin.Context) {
	logger := getLogger(c)
	s, _ := middleware.CurrentSession(c)

	var form models.ProfileCompletionForm
	if err := c.ShouldBindJSON(&form); err != nil {
		logger.Warn("Invalid profile completion request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	flow := hb.Workflow.NewFlow(nil)
	defer flow.Teardown()
	flow.Resume(s)
	res, err := flow.CompleteProfile(c.Request.Context(), form)
	if err != nil {
		writeRefusal(c, err)
		return
	}
	writeResult(c, res, http.StatusOK)
}

// CancelProfileCompletionHandler abandons profile completion and signs out.
func (hb *HandlerBundle) CancelProfileCompletionHandler(c *gin.Context) {
	s, _ := middleware.CurrentSession(c)

	flow := hb.Workflow.NewFlow(nil)
	defer flow.Teardown()
	flow.Resume(s)
	res, err := flow.CancelProfileCompletion(c.Request.Context())
	if err != nil {
		writeRefusal(c, err)
		return
	}
	writeResult(c, res, http.StatusOK)
}

// LogoutHandler ends the current session.
func (hb *HandlerBundle) LogoutHandler(c *gin.Context) {
	s, _ := middleware.CurrentSession(c)
	if err := hb.Workflow.Logout(c.Request.Context(), s.ID); err != nil {
		writeRefusal(c, err)
		return
	}
	getLogger(c).Info("user logged out", zap.String("uid", s.UID))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// TokenHandler returns the identity service bearer token for the session.
func (hb *HandlerBundle) TokenHandler(c *gin.Context) {
	s, _ := middleware.CurrentSession(c)
	token, err := hb.Workflow.Token(c.Request.Context(), s)
	if err != nil {
		getLogger(c).Info("token unavailable", zap.String("uid", s.UID), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token unavailable. Please sign in again."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
