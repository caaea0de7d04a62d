package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recitalsite/recital/backend/go-services/internal/sessions"
	"github.com/recitalsite/recital/backend/go-services/pkg/middleware"
)

var errNoSessionStore = errors.New("no session store configured")

// SessionAuthenticator establishes identities for the self-hosted backend.
// Bearer credentials are checked by verifier (HS256 identity tokens, OIDC or
// the insecure dev verifier); sessions are persisted in Redis or Mongo.
type SessionAuthenticator struct {
	sessions    *sessions.Service
	verifier    middleware.Verifier
	resumeToken string
	ttl         time.Duration
}

// NewSessionAuthenticator wires the authenticator. svc may be nil, in which
// case nothing can be resumed and anonymous sign-in is unavailable.
func NewSessionAuthenticator(svc *sessions.Service, verifier middleware.Verifier, resumeToken string, ttl time.Duration) *SessionAuthenticator {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionAuthenticator{sessions: svc, verifier: verifier, resumeToken: resumeToken, ttl: ttl}
}

func (a *SessionAuthenticator) Resume(ctx context.Context) (Identity, error) {
	if a.sessions == nil || a.resumeToken == "" {
		return Identity{}, ErrNoSession
	}
	sess, err := a.sessions.Validate(ctx, a.resumeToken)
	if err != nil {
		return Identity{}, fmt.Errorf("validate session: %w", err)
	}
	if sess == nil {
		return Identity{}, ErrNoSession
	}
	return Identity{ID: sess.Sub, Method: MethodResumed, Token: a.resumeToken}, nil
}

func (a *SessionAuthenticator) SignInWithToken(ctx context.Context, token string) (Identity, error) {
	if a.verifier == nil {
		return Identity{}, errors.New("no token verifier configured")
	}
	tok, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("verify bearer credential: %w", err)
	}
	var claims struct {
		Sub string `json:"sub"`
	}
	if err := tok.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("read claims: %w", err)
	}
	if claims.Sub == "" {
		return Identity{}, errors.New("bearer credential has no subject")
	}
	id := Identity{ID: claims.Sub, Method: MethodBearer}
	if a.sessions != nil {
		// a bearer identity is usable without a session; only resumption is lost
		if handle, err := a.sessions.CreateSession(ctx, id.ID, string(id.Method), a.ttl); err == nil {
			id.Token = handle
		}
	}
	return id, nil
}

func (a *SessionAuthenticator) SignInAnonymously(ctx context.Context) (Identity, error) {
	if a.sessions == nil {
		return Identity{}, errNoSessionStore
	}
	id := Identity{ID: "anon-" + uuid.NewString(), Method: MethodAnonymous}
	handle, err := a.sessions.CreateSession(ctx, id.ID, string(id.Method), a.ttl)
	if err != nil {
		return Identity{}, fmt.Errorf("create session: %w", err)
	}
	id.Token = handle
	return id, nil
}
