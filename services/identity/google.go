package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const googleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

// GoogleJWK represents a single JSON Web Key from Google's keys endpoint.
type GoogleJWK struct {
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type googleJWKResponse struct {
	Keys []GoogleJWK `json:"keys"`
}

// GoogleUserInfo holds the claims taken from a verified Google ID token.
type GoogleUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// GoogleTokenVerifier validates Google ID tokens against Google's published keys.
type GoogleTokenVerifier struct {
	Audience   string
	CertsURL   string
	HTTPClient *http.Client
	CacheFor   time.Duration

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
	fetched time.Time
	now     func() time.Time
}

// minRefetch bounds key refetches triggered by unknown key ids.
const minRefetch = time.Minute

// NewGoogleTokenVerifier returns a verifier for tokens issued to clientID.
func NewGoogleTokenVerifier(clientID string) *GoogleTokenVerifier {
	return &GoogleTokenVerifier{
		Audience:   clientID,
		CertsURL:   googleCertsURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		// Google rotates keys frequently
		CacheFor: time.Hour,
		now:      time.Now,
	}
}

func (v *GoogleTokenVerifier) clock() time.Time {
	if v.now == nil {
		return time.Now()
	}
	return v.now()
}

// publicKeys fetches and caches Google's public keys. force refetches a
// cached set, at most once per minRefetch, so rotated keys are picked up.
func (v *GoogleTokenVerifier) publicKeys(ctx context.Context, force bool) (map[string]*rsa.PublicKey, error) {
	v.mu.RLock()
	if v.keys != nil && v.clock().Before(v.expires) && (!force || v.clock().Sub(v.fetched) < minRefetch) {
		defer v.mu.RUnlock()
		return v.keys, nil
	}
	v.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.CertsURL, nil)
	if err != nil {
		return nil, err
	}
	client := v.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google certs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch Google certs: status %d", resp.StatusCode)
	}

	var keyResp googleJWKResponse
	if err := json.NewDecoder(resp.Body).Decode(&keyResp); err != nil {
		return nil, fmt.Errorf("failed to decode Google keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(keyResp.Keys))
	for _, key := range keyResp.Keys {
		pubKey, err := convertJWKToPublicKey(key.N, key.E)
		if err != nil {
			return nil, fmt.Errorf("failed to convert JWK to public key: %w", err)
		}
		keys[key.Kid] = pubKey
	}

	v.mu.Lock()
	v.keys = keys
	v.fetched = v.clock()
	v.expires = v.fetched.Add(v.CacheFor)
	v.mu.Unlock()

	return keys, nil
}

// convertJWKToPublicKey converts base64url encoded modulus and exponent to rsa.PublicKey.
func convertJWKToPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var exp int
	for _, b := range eb {
		exp = exp<<8 + int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: exp}, nil
}

// Verify checks signature, audience, issuer and expiry of a Google ID token.
func (v *GoogleTokenVerifier) Verify(ctx context.Context, tokenStr string) (*GoogleUserInfo, error) {
	keys, err := v.publicKeys(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google public keys: %w", err)
	}
	if unverified, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{}); err == nil {
		if kid, ok := unverified.Header["kid"].(string); ok {
			if _, known := keys[kid]; !known {
				if keys, err = v.publicKeys(ctx, true); err != nil {
					return nil, fmt.Errorf("failed to get Google public keys: %w", err)
				}
			}
		}
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("token missing kid header")
		}
		pubKey, exists := keys[kid]
		if !exists {
			return nil, errors.New("no matching Google public key found")
		}
		return pubKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid Google ID token")
	}
	if !claims.VerifyAudience(v.Audience, true) {
		return nil, errors.New("invalid audience in Google ID token")
	}
	if iss, _ := claims["iss"].(string); iss != "accounts.google.com" && iss != "https://accounts.google.com" {
		return nil, errors.New("invalid issuer in Google ID token")
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < v.clock().Unix() {
		return nil, errors.New("google ID token expired")
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return nil, errors.New("email claim not found in Google ID token")
	}
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)

	return &GoogleUserInfo{
		Subject: sub,
		Email:   strings.ToLower(email),
		Name:    name,
	}, nil
}
