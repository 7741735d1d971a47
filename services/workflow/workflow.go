// Package workflow runs the login, registration, provider sign-in and
// profile-completion flows.
package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	profileRepo "educonnect/database/repository/profile"
	"educonnect/models"
	"educonnect/services/identity"
	"educonnect/services/navigation"
	"educonnect/services/session"
	"educonnect/services/validation"
	"educonnect/utils"

	"go.uber.org/zap"
)

// State is where a flow stands.
type State string

const (
	StateIdle              State = "idle"
	StateSubmitting        State = "submitting"
	StateSuccess           State = "success"
	StateFailed            State = "failed"
	StateProfileIncomplete State = "profile_incomplete"
	StateProfileSubmitting State = "profile_submitting"
)

const (
	MsgFixErrors          = "Please fix the errors above"
	MsgLoginSuccess       = "Login successful! Redirecting..."
	MsgRegisterSuccess    = "Registration successful! Redirecting..."
	MsgCompleteProfile    = "Welcome! Please complete your profile."
	MsgProfileSaved       = "Profile completed! Redirecting..."
	MsgProfileNotFound    = "User profile not found"
	MsgProfileSaveFailed  = "Failed to save your profile. Please try again."
	MsgLoginFailed        = "Login failed. Please try again."
	MsgRegistrationFailed = "Registration failed. Please try again."
)

var (
	// ErrSubmissionInProgress is returned when the same submission is already running.
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	// ErrNotAwaitingProfile is returned by completion operations outside profile completion.
	ErrNotAwaitingProfile = errors.New("no profile completion in progress")
	// ErrValidation marks results rejected before any remote call.
	ErrValidation = errors.New("validation failed")
)

// Result is the outcome of one workflow operation.
type Result struct {
	State    State                  `json:"state"`
	Alert    models.Alert           `json:"alert"`
	Errors   validation.Errors      `json:"errors,omitempty"`
	Redirect *navigation.Plan       `json:"redirect,omitempty"`
	Token    string                 `json:"token,omitempty"`
	Prefill  *models.ProfilePrefill `json:"prefill,omitempty"`
	Profile  *models.UserProfile    `json:"profile,omitempty"`

	// Err is the cause of a failed result.
	Err       error           `json:"-"`
	SessionID string          `json:"-"`
	Session   *session.Issued `json:"-"`
}

// Sessions is implemented by *session.Manager.
type Sessions interface {
	Establish(ctx context.Context, id *models.Identity, profile *models.UserProfile, rememberMe bool) (*session.Issued, error)
	EstablishIncomplete(ctx context.Context, id *models.Identity, prefill models.ProfilePrefill) (*session.Issued, error)
	Activate(ctx context.Context, sessionID string, profile *models.UserProfile) (*session.Issued, error)
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	UpdateTokens(ctx context.Context, sessionID, idToken, refreshToken string) error
	Clear(ctx context.Context, sessionID string) error
}

// Controller wires the identity service, the profile store and the session
// manager into the auth flows. It holds no per-client state.
type Controller struct {
	Identity  identity.Client
	Profiles  profileRepo.ProfileRepository
	Sessions  Sessions
	Scheduler navigation.Scheduler
	Logger    *zap.Logger

	LoginDelay    time.Duration
	RegisterDelay time.Duration
	Now           func() time.Time

	guard inflight
}

func NewController(id identity.Client, profiles profileRepo.ProfileRepository, sessions Sessions, scheduler navigation.Scheduler, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scheduler == nil {
		scheduler = navigation.ClientScheduler{}
	}
	return &Controller{
		Identity:      id,
		Profiles:      profiles,
		Sessions:      sessions,
		Scheduler:     scheduler,
		Logger:        logger,
		LoginDelay:    1500 * time.Millisecond,
		RegisterDelay: 2 * time.Second,
		Now:           time.Now,
	}
}

func (c *Controller) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Login signs in with email and password and lands on the role dashboard.
func (c *Controller) Login(ctx context.Context, form models.LoginForm) (*Result, error) {
	if errs := validation.ValidateLogin(form); !errs.Valid() {
		return invalid(StateIdle, errs), nil
	}
	release, ok := c.guard.acquire("login:" + normalizeEmail(form.Email))
	if !ok {
		return nil, ErrSubmissionInProgress
	}
	defer release()

	id, err := c.Identity.SignIn(ctx, form.Email, form.Password)
	if err != nil {
		c.Logger.Info("sign-in rejected", zap.String("kind", identity.KindOf(err).String()))
		return authFailed(err), nil
	}

	profile, err := c.Profiles.GetProfile(ctx, id.UID)
	if err != nil {
		if errors.Is(err, profileRepo.ErrProfileNotFound) {
			c.Logger.Warn("signed-in user has no profile", zap.String("uid", id.UID))
			return failed(MsgProfileNotFound, err), nil
		}
		c.Logger.Error("failed to load profile", zap.String("uid", id.UID), zap.Error(err))
		return failed(MsgLoginFailed, err), nil
	}

	issued, err := c.Sessions.Establish(ctx, id, profile, form.RememberMe)
	if err != nil {
		c.Logger.Error("failed to establish session", zap.String("uid", id.UID), zap.Error(err))
		return failed(MsgLoginFailed, err), nil
	}
	c.Logger.Info("user logged in", zap.String("uid", id.UID), zap.String("role", string(profile.Role)))
	return succeeded(MsgLoginSuccess, profile, issued, c.LoginDelay), nil
}

// Register creates the account and its profile.
func (c *Controller) Register(ctx context.Context, form models.RegistrationForm) (*Result, error) {
	if errs := validation.ValidateRegistration(form); !errs.Valid() {
		return invalid(StateIdle, errs), nil
	}
	release, ok := c.guard.acquire("register:" + normalizeEmail(form.Email))
	if !ok {
		return nil, ErrSubmissionInProgress
	}
	defer release()

	fullName := strings.TrimSpace(form.FullName)
	id, err := c.Identity.Register(ctx, form.Email, form.Password, fullName)
	if err != nil {
		c.Logger.Info("registration rejected", zap.String("kind", identity.KindOf(err).String()))
		return authFailed(err), nil
	}

	patch := models.ProfilePatch{
		FullName: models.String(fullName),
		Email:    models.String(strings.TrimSpace(form.Email)),
		Role:     models.RolePtr(models.Role(form.Role)),
	}
	profile, err := c.Profiles.UpsertProfile(ctx, id.UID, patch, c.now())
	if err != nil {
		c.Logger.Error("failed to save profile", zap.String("uid", id.UID), zap.Error(err))
		return failed(MsgProfileSaveFailed, err), nil
	}

	issued, err := c.Sessions.Establish(ctx, id, profile, false)
	if err != nil {
		c.Logger.Error("failed to establish session", zap.String("uid", id.UID), zap.Error(err))
		return failed(MsgRegistrationFailed, err), nil
	}
	c.Logger.Info("user registered", zap.String("uid", id.UID), zap.String("role", string(profile.Role)))
	return succeeded(MsgRegisterSuccess, profile, issued, c.RegisterDelay), nil
}

// ProviderLogin signs in with a third-party credential. Users without a
// profile are moved to profile completion instead of a dashboard.
func (c *Controller) ProviderLogin(ctx context.Context, cred models.ProviderCredential) (*Result, error) {
	release, ok := c.guard.acquire("provider:" + utils.HashToken(cred.IDToken+"|"+cred.AccessToken))
	if !ok {
		return nil, ErrSubmissionInProgress
	}
	defer release()

	id, err := c.Identity.SignInWithProvider(ctx, cred)
	if err != nil {
		c.Logger.Info("provider sign-in rejected", zap.String("kind", identity.KindOf(err).String()))
		return authFailed(err), nil
	}

	profile, err := c.Profiles.GetProfile(ctx, id.UID)
	switch {
	case err == nil:
		issued, err := c.Sessions.Establish(ctx, id, profile, false)
		if err != nil {
			c.Logger.Error("failed to establish session", zap.String("uid", id.UID), zap.Error(err))
			return failed(MsgLoginFailed, err), nil
		}
		c.Logger.Info("provider user logged in", zap.String("uid", id.UID))
		return succeeded(MsgLoginSuccess, profile, issued, c.LoginDelay), nil

	case errors.Is(err, profileRepo.ErrProfileNotFound):
		prefill := models.ProfilePrefill{Email: id.Email, FullName: id.DisplayName}
		issued, err := c.Sessions.EstablishIncomplete(ctx, id, prefill)
		if err != nil {
			c.Logger.Error("failed to establish session", zap.String("uid", id.UID), zap.Error(err))
			return failed(MsgLoginFailed, err), nil
		}
		c.Logger.Info("provider user needs a profile", zap.String("uid", id.UID))
		return &Result{
			State:     StateProfileIncomplete,
			Alert:     models.InfoAlert(MsgCompleteProfile),
			Prefill:   &prefill,
			Token:     issued.Token,
			SessionID: issued.Session.ID,
			Session:   issued,
		}, nil

	default:
		c.Logger.Error("failed to load profile", zap.String("uid", id.UID), zap.Error(err))
		return failed(MsgLoginFailed, err), nil
	}
}

// CompleteProfile stores the profile for a session in profile completion and
// activates it. Navigation is immediate.
func (c *Controller) CompleteProfile(ctx context.Context, sessionID string, form models.ProfileCompletionForm) (*Result, error) {
	release, ok := c.guard.acquire("session:" + sessionID)
	if !ok {
		return nil, ErrSubmissionInProgress
	}
	defer release()

	s, err := c.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.State != session.StateProfileIncomplete {
		return nil, ErrNotAwaitingProfile
	}
	if errs := validation.ValidateProfileCompletion(form); !errs.Valid() {
		res := invalid(StateProfileIncomplete, errs)
		res.Prefill = s.Prefill
		return res, nil
	}

	profile, err := c.Profiles.UpsertProfile(ctx, s.UID, form.Patch(), c.now())
	if err != nil {
		c.Logger.Error("failed to save profile", zap.String("uid", s.UID), zap.Error(err))
		return failed(MsgProfileSaveFailed, err), nil
	}

	issued, err := c.Sessions.Activate(ctx, sessionID, profile)
	if err != nil {
		c.Logger.Error("failed to activate session", zap.String("uid", s.UID), zap.Error(err))
		return failed(MsgProfileSaveFailed, err), nil
	}
	c.Logger.Info("profile completed", zap.String("uid", s.UID), zap.String("role", string(profile.Role)))
	return succeeded(MsgProfileSaved, profile, issued, 0), nil
}

// CancelProfileCompletion signs the user out and drops the pending session.
func (c *Controller) CancelProfileCompletion(ctx context.Context, sessionID string) (*Result, error) {
	release, ok := c.guard.acquire("session:" + sessionID)
	if !ok {
		return nil, ErrSubmissionInProgress
	}
	defer release()

	s, err := c.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.State != session.StateProfileIncomplete {
		return nil, ErrNotAwaitingProfile
	}
	c.endSession(ctx, s)
	return &Result{State: StateIdle}, nil
}

// Logout ends an active session.
func (c *Controller) Logout(ctx context.Context, sessionID string) error {
	release, ok := c.guard.acquire("session:" + sessionID)
	if !ok {
		return ErrSubmissionInProgress
	}
	defer release()

	s, err := c.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	c.endSession(ctx, s)
	return nil
}

// Token returns the identity service bearer token behind a session. Tokens
// refreshed on the way are saved back to the session.
func (c *Controller) Token(ctx context.Context, s *session.Session) (string, error) {
	id := s.Identity()
	token, err := c.Identity.Token(ctx, id)
	if err != nil {
		return "", err
	}
	if id.IDToken != s.IDToken || id.RefreshToken != s.RefreshToken {
		if err := c.Sessions.UpdateTokens(ctx, s.ID, id.IDToken, id.RefreshToken); err != nil {
			c.Logger.Warn("failed to save refreshed tokens", zap.String("uid", s.UID), zap.Error(err))
		}
	}
	return token, nil
}

// endSession revokes the identity's tokens and deletes the session; a failed
// revoke does not keep the session alive.
func (c *Controller) endSession(ctx context.Context, s *session.Session) {
	if err := c.Identity.SignOut(ctx, s.Identity()); err != nil {
		c.Logger.Warn("sign-out failed", zap.String("uid", s.UID), zap.Error(err))
	}
	if err := c.Sessions.Clear(ctx, s.ID); err != nil {
		c.Logger.Warn("failed to clear session", zap.String("uid", s.UID), zap.Error(err))
	}
}

func invalid(state State, errs validation.Errors) *Result {
	return &Result{
		State:  state,
		Alert:  models.ErrorAlert(MsgFixErrors),
		Errors: errs,
		Err:    ErrValidation,
	}
}

func failed(msg string, err error) *Result {
	return &Result{State: StateFailed, Alert: models.ErrorAlert(msg), Err: err}
}

func authFailed(err error) *Result {
	var authErr *identity.AuthError
	if errors.As(err, &authErr) {
		return failed(authErr.UserMessage(), err)
	}
	return failed(MsgLoginFailed, err)
}

func succeeded(msg string, profile *models.UserProfile, issued *session.Issued, delay time.Duration) *Result {
	return &Result{
		State:     StateSuccess,
		Alert:     models.SuccessAlert(msg),
		Redirect:  &navigation.Plan{Target: navigation.DashboardFor(profile.Role), Delay: delay},
		Token:     issued.Token,
		Profile:   profile,
		SessionID: issued.Session.ID,
		Session:   issued,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// inflight rejects a second submission for a key while the first runs.
type inflight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (g *inflight) acquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys == nil {
		g.keys = make(map[string]struct{})
	}
	if _, busy := g.keys[key]; busy {
		return nil, false
	}
	g.keys[key] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.keys, key)
		g.mu.Unlock()
	}, true
}
