package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func newGoogleTestServer(t *testing.T, key *rsa.PublicKey, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		json.NewEncoder(w).Encode(googleJWKResponse{Keys: []GoogleJWK{{
			Kid: "k1",
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signGoogleToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "k1"
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestGoogleTokenVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	hits := 0
	srv := newGoogleTestServer(t, &key.PublicKey, &hits)

	v := NewGoogleTokenVerifier("client-123")
	v.CertsURL = srv.URL

	valid := jwt.MapClaims{
		"iss":   "https://accounts.google.com",
		"aud":   "client-123",
		"sub":   "g-1",
		"email": "Jane@Example.com",
		"name":  "Jane",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}

	info, err := v.Verify(context.Background(), signGoogleToken(t, key, valid))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Email != "jane@example.com" || info.Subject != "g-1" || info.Name != "Jane" {
		t.Fatalf("unexpected info %+v", info)
	}

	cases := map[string]func(jwt.MapClaims){
		"wrong audience": func(c jwt.MapClaims) { c["aud"] = "other" },
		"wrong issuer":   func(c jwt.MapClaims) { c["iss"] = "evil.example" },
		"expired":        func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() },
		"no email":       func(c jwt.MapClaims) { delete(c, "email") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			claims := jwt.MapClaims{}
			for k, val := range valid {
				claims[k] = val
			}
			mutate(claims)
			if _, err := v.Verify(context.Background(), signGoogleToken(t, key, claims)); err == nil {
				t.Fatal("expected verification to fail")
			}
		})
	}

	if hits != 1 {
		t.Fatalf("expected keys to be fetched once and cached, got %d fetches", hits)
	}
}

func TestGoogleTokenVerifierRejectsUnknownKey(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	other, _ := rsa.GenerateKey(rand.Reader, 2048)
	hits := 0
	srv := newGoogleTestServer(t, &key.PublicKey, &hits)

	v := NewGoogleTokenVerifier("client-123")
	v.CertsURL = srv.URL

	tok := signGoogleToken(t, other, jwt.MapClaims{
		"iss": "accounts.google.com", "aud": "client-123", "email": "a@b.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(context.Background(), tok); err == nil {
		t.Fatal("expected signature check to fail")
	}
}

func TestGoogleTokenVerifierRefetchesRotatedKeys(t *testing.T) {
	oldKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	newKey, _ := rsa.GenerateKey(rand.Reader, 2048)

	var mu sync.Mutex
	hits := 0
	served := map[string]*rsa.PublicKey{"k1": &oldKey.PublicKey}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		hits++
		var resp googleJWKResponse
		for kid, key := range served {
			resp.Keys = append(resp.Keys, GoogleJWK{
				Kid: kid,
				N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	now := time.Now()
	v := NewGoogleTokenVerifier("client-123")
	v.CertsURL = srv.URL
	v.now = func() time.Time { return now }

	claims := jwt.MapClaims{
		"iss": "accounts.google.com", "aud": "client-123", "email": "a@b.com",
		"exp": now.Add(time.Hour).Unix(),
	}
	if _, err := v.Verify(context.Background(), signGoogleToken(t, oldKey, claims)); err != nil {
		t.Fatalf("verify with the original key: %v", err)
	}

	mu.Lock()
	served = map[string]*rsa.PublicKey{"k2": &newKey.PublicKey}
	mu.Unlock()
	now = now.Add(2 * time.Minute)
	rotated := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	rotated.Header["kid"] = "k2"
	tok, err := rotated.SignedString(newKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(context.Background(), tok); err != nil {
		t.Fatalf("expected the rotated key to be fetched, got %v", err)
	}
	fetches := func() int {
		mu.Lock()
		defer mu.Unlock()
		return hits
	}
	if got := fetches(); got != 2 {
		t.Fatalf("expected one refetch, got %d fetches", got)
	}

	bogus := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	bogus.Header["kid"] = "k3"
	tok, _ = bogus.SignedString(newKey)
	if _, err := v.Verify(context.Background(), tok); err == nil {
		t.Fatal("expected an unknown key to be rejected")
	}
	if got := fetches(); got != 2 {
		t.Fatalf("refetches must be rate limited, got %d fetches", got)
	}
}
