package sessions

import "time"

// Methods that persist a session. Synthesized identities are local to one
// process and never reach the store.
const (
	MethodBearer    = "bearer"
	MethodAnonymous = "anonymous"
)

// Resumable reports whether the session can stand in for a previous caller.
func (s *Session) Resumable() bool {
	if s == nil || s.Sub == "" {
		return false
	}
	return s.Method == MethodBearer || s.Method == MethodAnonymous
}

// Session records an identity that may be resumed by presenting Token.
type Session struct {
	Token     string    `bson:"token" json:"token"`
	Sub       string    `bson:"sub" json:"sub"`
	Method    string    `bson:"method" json:"method"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
