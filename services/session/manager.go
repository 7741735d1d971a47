package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"educonnect/models"
	"educonnect/utils"

	"github.com/google/uuid"
)

// Options configures a Manager.
type Options struct {
	Secret               []byte
	TTL                  time.Duration
	RememberMeTTL        time.Duration
	ProfileCompletionTTL time.Duration
}

// Manager is the only writer of session state. It pairs every stored session
// with a signed token whose hash is kept on the session, so reissuing a token
// invalidates the previous one.
type Manager struct {
	store Store
	opts  Options

	now   func() time.Time
	newID func() string
}

func NewManager(store Store, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = utils.DefaultSessionTTL
	}
	if opts.RememberMeTTL <= 0 {
		opts.RememberMeTTL = opts.TTL
	}
	if opts.ProfileCompletionTTL <= 0 {
		opts.ProfileCompletionTTL = utils.ProfileCompletionTTL
	}
	return &Manager{
		store: store,
		opts:  opts,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (m *Manager) ttl(s *Session) time.Duration {
	switch {
	case s.State == StateProfileIncomplete:
		return m.opts.ProfileCompletionTTL
	case s.RememberMe:
		return m.opts.RememberMeTTL
	default:
		return m.opts.TTL
	}
}

// Establish opens an active session for a user whose profile exists.
func (m *Manager) Establish(ctx context.Context, id *models.Identity, profile *models.UserProfile, rememberMe bool) (*Issued, error) {
	s := m.newSession(id)
	s.State = StateActive
	s.Role = profile.Role
	s.RememberMe = rememberMe
	return m.issue(ctx, s)
}

// EstablishIncomplete opens a session for a provider sign-in that still needs a profile.
func (m *Manager) EstablishIncomplete(ctx context.Context, id *models.Identity, prefill models.ProfilePrefill) (*Issued, error) {
	s := m.newSession(id)
	s.State = StateProfileIncomplete
	s.Prefill = &prefill
	return m.issue(ctx, s)
}

// Activate moves a profile_incomplete session to active once the profile is saved.
func (m *Manager) Activate(ctx context.Context, sessionID string, profile *models.UserProfile) (*Issued, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.State != StateProfileIncomplete {
		return nil, ErrWrongState
	}
	s.State = StateActive
	s.Role = profile.Role
	s.Prefill = nil
	return m.issue(ctx, s)
}

// UpdateTokens stores refreshed identity tokens on a session, keeping its
// expiry and the issued session token.
func (m *Manager) UpdateTokens(ctx context.Context, sessionID, idToken, refreshToken string) error {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	remaining := s.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		return ErrSessionNotFound
	}
	s.IDToken = idToken
	s.RefreshToken = refreshToken
	s.LastUpdatedAt = m.now()
	return m.store.Save(ctx, s, remaining)
}

// Get loads a session by id.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	return m.store.Get(ctx, sessionID)
}

// Resolve validates a session token and returns the session it refers to.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := utils.ValidateToken(m.opts.Secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	s, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if s.UID != claims.Subject || s.TokenHash != utils.HashToken(token) {
		return nil, ErrInvalidToken
	}
	return s, nil
}

// Clear deletes the session. Missing sessions are not an error.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) newSession(id *models.Identity) *Session {
	now := m.now()
	return &Session{
		ID:           m.newID(),
		UID:          id.UID,
		Email:        id.Email,
		ProviderID:   id.ProviderID,
		IDToken:      id.IDToken,
		RefreshToken: id.RefreshToken,
		CreatedAt:    now,
	}
}

func (m *Manager) issue(ctx context.Context, s *Session) (*Issued, error) {
	ttl := m.ttl(s)
	token, err := utils.GenerateToken(m.opts.Secret, s.UID, s.ID, s.Email, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	now := m.now()
	s.TokenHash = utils.HashToken(token)
	s.LastUpdatedAt = now
	s.ExpiresAt = now.Add(ttl)

	if err := m.store.Save(ctx, s, ttl); err != nil {
		return nil, err
	}
	return &Issued{Session: s, Token: token, ExpiresAt: s.ExpiresAt}, nil
}
