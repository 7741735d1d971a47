package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
)

// SecureTokenURL exchanges Firebase refresh tokens for fresh ID tokens.
const SecureTokenURL = "https://securetoken.googleapis.com/v1/token"

// refreshLeeway refreshes ID tokens this close to expiry.
const refreshLeeway = 5 * time.Minute

// TokenRefresher trades a refresh token for a new ID token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error)
}

// RefreshedToken is the outcome of a refresh. RefreshToken may rotate.
type RefreshedToken struct {
	IDToken      string
	RefreshToken string
	Expiry       time.Time
}

// SecureTokenRefresher uses the refresh_token grant against the Secure Token API.
type SecureTokenRefresher struct {
	APIKey     string
	TokenURL   string
	HTTPClient *http.Client
}

func NewSecureTokenRefresher(apiKey string) (*SecureTokenRefresher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: FIREBASE_API_KEY is required", ErrNotConfigured)
	}
	return &SecureTokenRefresher{
		APIKey:     apiKey,
		TokenURL:   SecureTokenURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (r *SecureTokenRefresher) Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token")
	}
	cfg := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.TokenURL + "?key=" + url.QueryEscape(r.APIKey),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}

	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, err
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("refresh response carried no id_token")
	}
	return &RefreshedToken{IDToken: idToken, RefreshToken: tok.RefreshToken, Expiry: tok.Expiry}, nil
}

// tokenExpiring reads the unverified exp claim. Tokens that cannot be read
// are left to the Admin SDK to reject.
func tokenExpiring(idToken string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil || claims.ExpiresAt == nil {
		return false
	}
	return now.Add(refreshLeeway).After(claims.ExpiresAt.Time)
}
