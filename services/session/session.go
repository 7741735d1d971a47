// Package session keeps the signed-in state of each client in Redis.
package session

import (
	"errors"
	"time"

	"educonnect/models"
)

// State is the lifecycle state of a session.
type State string

const (
	StateActive            State = "active"
	StateProfileIncomplete State = "profile_incomplete"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrWrongState      = errors.New("session is not in the expected state")
)

// Session is the server-side record behind a session token.
type Session struct {
	ID         string                 `json:"id"`
	UID        string                 `json:"uid"`
	Email      string                 `json:"email"`
	Role       models.Role            `json:"role,omitempty"`
	State      State                  `json:"state"`
	ProviderID string                 `json:"providerId,omitempty"`
	Prefill    *models.ProfilePrefill `json:"prefill,omitempty"`
	RememberMe bool                   `json:"rememberMe"`

	// Identity service tokens; never logged.
	IDToken      string `json:"idToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenHash    string `json:"tokenHash"`

	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Identity rebuilds the identity the session was established for.
func (s *Session) Identity() *models.Identity {
	return &models.Identity{
		UID:          s.UID,
		Email:        s.Email,
		ProviderID:   s.ProviderID,
		IDToken:      s.IDToken,
		RefreshToken: s.RefreshToken,
	}
}

// Active reports whether the session has a completed profile.
func (s *Session) Active() bool { return s.State == StateActive }

// Issued is a freshly written session and the token that refers to it.
type Issued struct {
	Session   *Session
	Token     string
	ExpiresAt time.Time
}
