package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var errSealedValue = errors.New("sealed value is malformed")

// sealer encrypts identity tokens before they reach the session store.
// Output is base64(nonce || ciphertext) under AES-256 GCM.
type sealer struct {
	gcm cipher.AEAD
}

// newSealer derives a 32-byte key from secret with SHA-256.
func newSealer(secret []byte) (*sealer, error) {
	keyHash := sha256.Sum256(secret)
	block, err := aes.NewCipher(keyHash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &sealer{gcm: gcm}, nil
}

func (s *sealer) seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(s.gcm.Seal(nonce, nonce, []byte(plain), nil)), nil
}

func (s *sealer) open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	data, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errSealedValue
	}
	n := s.gcm.NonceSize()
	if len(data) < n {
		return "", errSealedValue
	}
	plain, err := s.gcm.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}

// sealTokens returns a copy of sess with its identity tokens encrypted.
func (s *sealer) sealTokens(sess *Session) (*Session, error) {
	out := *sess
	var err error
	if out.IDToken, err = s.seal(sess.IDToken); err != nil {
		return nil, err
	}
	if out.RefreshToken, err = s.seal(sess.RefreshToken); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *sealer) openTokens(sess *Session) error {
	var err error
	if sess.IDToken, err = s.open(sess.IDToken); err != nil {
		return err
	}
	sess.RefreshToken, err = s.open(sess.RefreshToken)
	return err
}
