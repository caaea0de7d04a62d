package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var ErrNotResumable = errors.New("session method is not resumable")

// Service wraps repository operations with expiry handling
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// CreateSession stores a new session for sub and returns its opaque token
func (s *Service) CreateSession(ctx context.Context, sub, method string, ttl time.Duration) (string, error) {
	candidate := Session{Sub: sub, Method: method}
	if !candidate.Resumable() {
		return "", fmt.Errorf("%w: sub=%q method=%q", ErrNotResumable, sub, method)
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	tok := hex.EncodeToString(b)
	now := time.Now().UTC()
	sess := &Session{
		Token:     tok,
		Sub:       sub,
		Method:    method,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return tok, nil
}

// Validate returns the session if token is known, not expired and resumable,
// nil otherwise. Unusable sessions are deleted.
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if time.Now().UTC().After(sess.ExpiresAt) || !sess.Resumable() {
		_ = s.repo.DeleteByToken(ctx, token)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) Delete(ctx context.Context, token string) error {
	return s.repo.DeleteByToken(ctx, token)
}
