// Package identity talks to the identity service (Firebase Authentication).
package identity

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"educonnect/models"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
)

// Client is the credential session client used by the auth workflows.
type Client interface {
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	Register(ctx context.Context, email, password, displayName string) (*models.Identity, error)
	SignInWithProvider(ctx context.Context, cred models.ProviderCredential) (*models.Identity, error)
	SignOut(ctx context.Context, identity *models.Identity) error
	Token(ctx context.Context, identity *models.Identity) (string, error)
}

// Toolkit is the subset of the Identity Toolkit REST API this package needs.
type Toolkit interface {
	VerifyPassword(ctx context.Context, email, password string) (*models.Identity, error)
	SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error)
	VerifyAssertion(ctx context.Context, postBody, requestURI string) (*Assertion, error)
}

// Assertion is the outcome of exchanging a provider credential.
type Assertion struct {
	Identity     models.Identity
	ErrorMessage string
}

// TokenAdmin is implemented by *auth.Client.
type TokenAdmin interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// ProviderTokenVerifier checks a provider ID token before it is exchanged.
type ProviderTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleUserInfo, error)
}

// GoogleProviderID is the Firebase provider id for Google sign-in.
const GoogleProviderID = "google.com"

// FirebaseClient implements Client on top of Firebase Authentication.
type FirebaseClient struct {
	Toolkit    Toolkit
	Admin      TokenAdmin
	Verifier   ProviderTokenVerifier // optional
	Refresher  TokenRefresher        // optional
	RequestURI string
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewFirebaseClient wires a FirebaseClient. verifier may be nil.
func NewFirebaseClient(toolkit Toolkit, admin TokenAdmin, verifier ProviderTokenVerifier, requestURI string, logger *zap.Logger) *FirebaseClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirebaseClient{
		Toolkit:    toolkit,
		Admin:      admin,
		Verifier:   verifier,
		RequestURI: requestURI,
		Logger:     logger,
		Now:        time.Now,
	}
}

func (c *FirebaseClient) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	id, err := c.Toolkit.VerifyPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, classify(OpSignIn, err)
	}
	if id.ProviderID == "" {
		id.ProviderID = "password"
	}
	c.Logger.Debug("password sign-in succeeded", zap.String("uid", id.UID))
	return id, nil
}

func (c *FirebaseClient) Register(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	id, err := c.Toolkit.SignUp(ctx, strings.TrimSpace(email), password, strings.TrimSpace(displayName))
	if err != nil {
		return nil, classify(OpRegister, err)
	}
	if id.ProviderID == "" {
		id.ProviderID = "password"
	}
	id.IsNewUser = true
	c.Logger.Debug("password registration succeeded", zap.String("uid", id.UID))
	return id, nil
}

func (c *FirebaseClient) SignInWithProvider(ctx context.Context, cred models.ProviderCredential) (*models.Identity, error) {
	if cred.IDToken == "" && cred.AccessToken == "" {
		return nil, newError(OpProviderSignIn, KindPopupFailed, "provider returned no credential", nil)
	}
	providerID := cred.ProviderID
	if providerID == "" {
		providerID = GoogleProviderID
	}

	if c.Verifier != nil && providerID == GoogleProviderID && cred.IDToken != "" {
		if _, err := c.Verifier.Verify(ctx, cred.IDToken); err != nil {
			return nil, newError(OpProviderSignIn, KindPopupFailed, "provider token rejected", err)
		}
	}

	body := url.Values{}
	body.Set("providerId", providerID)
	if cred.IDToken != "" {
		body.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		body.Set("access_token", cred.AccessToken)
	}
	requestURI := cred.RequestURI
	if requestURI == "" {
		requestURI = c.RequestURI
	}

	assertion, err := c.Toolkit.VerifyAssertion(ctx, body.Encode(), requestURI)
	if err != nil {
		return nil, classify(OpProviderSignIn, err)
	}
	if assertion.ErrorMessage != "" {
		return nil, newError(OpProviderSignIn, KindPopupFailed, assertion.ErrorMessage, nil)
	}
	id := assertion.Identity
	if id.UID == "" {
		return nil, newError(OpProviderSignIn, KindPopupFailed, "provider assertion carried no account", nil)
	}
	if id.ProviderID == "" {
		id.ProviderID = providerID
	}
	c.Logger.Debug("provider sign-in succeeded", zap.String("uid", id.UID), zap.Bool("newUser", id.IsNewUser))
	return &id, nil
}

// SignOut revokes the identity's refresh tokens so the session cannot be renewed.
func (c *FirebaseClient) SignOut(ctx context.Context, identity *models.Identity) error {
	if identity == nil || identity.UID == "" {
		return nil
	}
	if err := c.Admin.RevokeRefreshTokens(ctx, identity.UID); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return classify(OpSignOut, err)
	}
	return nil
}

// Token returns the identity's bearer token once the Admin SDK accepts it.
// An ID token near or past expiry is refreshed first, and the new tokens are
// written back into identity so the caller can persist them.
func (c *FirebaseClient) Token(ctx context.Context, identity *models.Identity) (string, error) {
	if identity == nil || identity.IDToken == "" {
		return "", newError(OpToken, KindInvalidCredential, "no token for this session", nil)
	}
	refreshed := false
	if c.canRefresh(identity) && tokenExpiring(identity.IDToken, c.now()) {
		if err := c.refresh(ctx, identity); err != nil {
			return "", err
		}
		refreshed = true
	}

	_, err := c.Admin.VerifyIDToken(ctx, identity.IDToken)
	if err != nil && !refreshed && auth.IsIDTokenExpired(err) && c.canRefresh(identity) {
		if err := c.refresh(ctx, identity); err != nil {
			return "", err
		}
		_, err = c.Admin.VerifyIDToken(ctx, identity.IDToken)
	}
	if err != nil {
		return "", classify(OpToken, err)
	}
	return identity.IDToken, nil
}

func (c *FirebaseClient) canRefresh(identity *models.Identity) bool {
	return c.Refresher != nil && identity.RefreshToken != ""
}

func (c *FirebaseClient) refresh(ctx context.Context, identity *models.Identity) error {
	tok, err := c.Refresher.Refresh(ctx, identity.RefreshToken)
	if err != nil {
		c.Logger.Info("token refresh failed", zap.String("uid", identity.UID), zap.Error(err))
		return classify(OpToken, err)
	}
	identity.IDToken = tok.IDToken
	if tok.RefreshToken != "" {
		identity.RefreshToken = tok.RefreshToken
	}
	c.Logger.Debug("identity token refreshed", zap.String("uid", identity.UID))
	return nil
}

func (c *FirebaseClient) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// ErrNotConfigured is returned by constructors missing required settings.
var ErrNotConfigured = errors.New("identity: not configured")
