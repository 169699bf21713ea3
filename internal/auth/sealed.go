package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

var ErrSealedToken = errors.New("sealed token cannot be opened")

const nonceSize = 24

// SealedSessions encrypts tokens with NaCl secretbox before handing them to
// the wrapped store.
type SealedSessions struct {
	inner SessionStore
	key   [32]byte
}

// NewSealedSessions derives the box key from secret with HKDF-SHA256.
func NewSealedSessions(inner SessionStore, secret []byte) (*SealedSessions, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}
	s := &SealedSessions{inner: inner}
	h := hkdf.New(sha256.New, secret, nil, []byte("nutriplan session token"))
	if _, err := io.ReadFull(h, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return s, nil
}

func (s *SealedSessions) seal(token string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(token), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

func (s *SealedSessions) open(sealed string) (string, error) {
	box, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrSealedToken
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrSealedToken
	}
	return string(plain), nil
}

func (s *SealedSessions) Token(ctx context.Context, sessionID string) (string, error) {
	sealed, err := s.inner.Token(ctx, sessionID)
	if err != nil || sealed == "" {
		return "", err
	}
	return s.open(sealed)
}

func (s *SealedSessions) SaveToken(ctx context.Context, sessionID, token string) error {
	sealed, err := s.seal(token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return s.inner.SaveToken(ctx, sessionID, sealed)
}

func (s *SealedSessions) Delete(ctx context.Context, sessionID string) error {
	return s.inner.Delete(ctx, sessionID)
}
