package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// FirebaseUsers is the part of *auth.Client the authenticator uses.
type FirebaseUsers interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
}

// FirebaseAuthenticator establishes identities with Firebase Authentication.
// The resume handle is the uid of a user created by an earlier run.
type FirebaseAuthenticator struct {
	users     FirebaseUsers
	resumeUID string
}

func NewFirebaseAuthenticator(users FirebaseUsers, resumeUID string) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{users: users, resumeUID: resumeUID}
}

func (a *FirebaseAuthenticator) Resume(ctx context.Context) (Identity, error) {
	if a.resumeUID == "" {
		return Identity{}, ErrNoSession
	}
	u, err := a.users.GetUser(ctx, a.resumeUID)
	if auth.IsUserNotFound(err) {
		return Identity{}, ErrNoSession
	}
	if err != nil {
		return Identity{}, fmt.Errorf("get user: %w", err)
	}
	if u.Disabled {
		return Identity{}, ErrNoSession
	}
	return Identity{ID: u.UID, Method: MethodResumed, Token: u.UID}, nil
}

func (a *FirebaseAuthenticator) SignInWithToken(ctx context.Context, token string) (Identity, error) {
	tok, err := a.users.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("verify id token: %w", err)
	}
	return Identity{ID: tok.UID, Method: MethodBearer, Token: tok.UID}, nil
}

// SignInAnonymously creates a user with no provider attached, the admin-side
// equivalent of an anonymous account.
func (a *FirebaseAuthenticator) SignInAnonymously(ctx context.Context) (Identity, error) {
	u, err := a.users.CreateUser(ctx, (&auth.UserToCreate{}).DisplayName("Recital visitor"))
	if err != nil {
		return Identity{}, fmt.Errorf("create user: %w", err)
	}
	return Identity{ID: u.UID, Method: MethodAnonymous, Token: u.UID}, nil
}
