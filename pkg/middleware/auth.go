package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	ClaimsKey = "claims"
	TokenKey  = "token"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Revocations reports tokens that were revoked before they expired.
type Revocations interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier []Verifier

func (ch ChainVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	var errs []error
	for _, v := range ch {
		if v == nil {
			continue
		}
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no verifier configured")
	}
	return nil, errors.Join(errs...)
}

var errBadHeader = errors.New("invalid Authorization header")

// bearer extracts the token of an "Authorization: Bearer <token>" header.
// ok is false when the header is absent.
func bearer(c *gin.Context) (token string, ok bool, err error) {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return "", false, nil
	}
	scheme, tok, found := strings.Cut(auth, " ")
	tok = strings.TrimSpace(tok)
	if !found || !strings.EqualFold(scheme, "Bearer") || tok == "" {
		return "", true, errBadHeader
	}
	return tok, true, nil
}

// authenticate verifies raw, rejects revoked tokens and stores claims on c.
// It returns false after aborting the request.
func authenticate(c *gin.Context, ver Verifier, rev Revocations, raw string) bool {
	if rev != nil {
		revoked, err := rev.IsRevoked(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "revocation check failed"})
			return false
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return false
		}
	}

	idToken, err := ver.Verify(c.Request.Context(), raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
		return false
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
		return false
	}

	c.Set(ClaimsKey, claims)
	c.Set(TokenKey, raw)
	return true
}

// AuthMiddleware returns a Gin middleware that requires a valid Bearer token.
// rev may be nil.
func AuthMiddleware(ver Verifier, rev Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, present, err := bearer(c)
		if !present {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if !authenticate(c, ver, rev, raw) {
			return
		}
		c.Next()
	}
}

// OptionalAuth verifies a Bearer token when one is sent and lets anonymous
// requests through untouched. A malformed or invalid token is still rejected.
func OptionalAuth(ver Verifier, rev Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, present, err := bearer(c)
		if !present {
			c.Next()
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if !authenticate(c, ver, rev, raw) {
			return
		}
		c.Next()
	}
}

// Subject returns the "sub" claim of the verified token, if any.
func Subject(c *gin.Context) (string, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return "", false
	}
	cm, ok := v.(map[string]interface{})
	if !ok {
		return "", false
	}
	sub, ok := cm["sub"].(string)
	return sub, ok && sub != ""
}

// rateKey prefers the authenticated subject and falls back to the client IP.
func rateKey(c *gin.Context) string {
	if sub, ok := Subject(c); ok {
		return "sub:" + sub
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
