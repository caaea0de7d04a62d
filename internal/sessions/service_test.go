package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fake repo for testing
type fakeRepo struct {
	store map[string]*Session
}

func (f *fakeRepo) Create(ctx context.Context, s *Session) error {
	if f.store == nil {
		f.store = map[string]*Session{}
	}
	f.store[s.Token] = s
	return nil
}

func (f *fakeRepo) GetByToken(ctx context.Context, token string) (*Session, error) {
	s, ok := f.store[token]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (f *fakeRepo) DeleteByToken(ctx context.Context, token string) error {
	delete(f.store, token)
	return nil
}

func TestCreateAndValidateSession(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	tok, err := svc.CreateSession(ctx, "sub-1", "bearer", time.Hour)
	require.NoError(t, err)
	require.Len(t, tok, 64)

	sess, err := svc.Validate(ctx, tok)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "sub-1", sess.Sub)
	require.Equal(t, "bearer", sess.Method)

	require.NoError(t, svc.Delete(ctx, tok))
	sess2, err := svc.Validate(ctx, tok)
	require.NoError(t, err)
	require.Nil(t, sess2)
}

func TestValidate_ExpiredSessionIsRemoved(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	tok, err := svc.CreateSession(ctx, "sub-2", "anonymous", -time.Minute)
	require.NoError(t, err)

	sess, err := svc.Validate(ctx, tok)
	require.NoError(t, err)
	require.Nil(t, sess)
	require.NotContains(t, repo.store, tok)
}

func TestValidate_EmptyToken(t *testing.T) {
	svc := NewService(&fakeRepo{})
	sess, err := svc.Validate(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestCreateSession_RejectsUnresumable(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "local-1", "synthesized", time.Hour)
	require.ErrorIs(t, err, ErrNotResumable)
	_, err = svc.CreateSession(ctx, "", "bearer", time.Hour)
	require.ErrorIs(t, err, ErrNotResumable)
	require.Empty(t, repo.store)
}

func TestValidate_DropsUnresumableSession(t *testing.T) {
	repo := &fakeRepo{store: map[string]*Session{
		"stale": {Token: "stale", Sub: "local-9", Method: "synthesized", ExpiresAt: time.Now().Add(time.Hour)},
		"nosub": {Token: "nosub", Method: "bearer", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewService(repo)

	for _, tok := range []string{"stale", "nosub"} {
		sess, err := svc.Validate(context.Background(), tok)
		require.NoError(t, err)
		require.Nil(t, sess, tok)
		require.NotContains(t, repo.store, tok)
	}
}
