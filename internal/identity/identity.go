package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotReady is returned while bootstrap has not resolved an identity.
	ErrNotReady = errors.New("identity not ready")
	// ErrNoSession means there is no previous session to resume.
	ErrNoSession = errors.New("no session to resume")
)

// Method records how an identity was established.
type Method string

const (
	MethodResumed     Method = "resumed"
	MethodBearer      Method = "bearer"
	MethodAnonymous   Method = "anonymous"
	MethodSynthesized Method = "synthesized"
)

// Identity is the caller tag stored on every record this process writes.
// Token is the session handle that lets a later run resume the identity; it
// is empty for synthesized identities, which are never persisted.
type Identity struct {
	ID     string `json:"id"`
	Method Method `json:"method"`
	Token  string `json:"-"`
}

// Degraded reports whether the identity was made up locally after every
// sign-in path failed.
func (i Identity) Degraded() bool { return i.Method == MethodSynthesized }

// State is one element of the bootstrap stream. Identity stays nil until
// Ready becomes true, and neither changes afterwards.
type State struct {
	Identity *Identity `json:"identity"`
	Ready    bool      `json:"ready"`
}

// Authenticator establishes a session with the backend.
type Authenticator interface {
	// Resume returns the previously authenticated caller or ErrNoSession.
	Resume(ctx context.Context) (Identity, error)
	SignInWithToken(ctx context.Context, token string) (Identity, error)
	SignInAnonymously(ctx context.Context) (Identity, error)
}
