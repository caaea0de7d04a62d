package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/recitalsite/recital/backend/go-services/internal/sessions"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier accepts a single raw token
type fakeVerifier struct {
	good string
	sub  string
}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	if raw == f.good {
		return &fakeToken{data: map[string]interface{}{"sub": f.sub}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

var goodVerifier = &fakeVerifier{good: "goodtoken", sub: "user1"}

func serve(h gin.HandlerFunc, header string) *httptest.ResponseRecorder {
	g := gin.New()
	g.GET("/", h, func(c *gin.Context) {
		sub, _ := Subject(c)
		c.JSON(http.StatusOK, gin.H{"sub": sub})
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	rw := serve(AuthMiddleware(goodVerifier, nil), "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	rw := serve(AuthMiddleware(goodVerifier, nil), "BadHeader")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	rw = serve(AuthMiddleware(goodVerifier, nil), "Basic goodtoken")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rw := serve(AuthMiddleware(goodVerifier, nil), "Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "user1", got["sub"])
}

func TestAuthMiddleware_RejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))

	require.NoError(t, bl.Revoke(context.Background(), "goodtoken", 5*time.Second))

	rw := serve(AuthMiddleware(goodVerifier, bl), "Bearer goodtoken")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Contains(t, rw.Body.String(), "revoked")
}

func TestOptionalAuth(t *testing.T) {
	rw := serve(OptionalAuth(goodVerifier, nil), "")
	require.Equal(t, http.StatusOK, rw.Code)
	require.JSONEq(t, `{"sub":""}`, rw.Body.String())

	rw = serve(OptionalAuth(goodVerifier, nil), "Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	require.JSONEq(t, `{"sub":"user1"}`, rw.Body.String())

	rw = serve(OptionalAuth(goodVerifier, nil), "Bearer forged")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestChainVerifier(t *testing.T) {
	chain := ChainVerifier{nil, &fakeVerifier{good: "a", sub: "from-a"}, &fakeVerifier{good: "b", sub: "from-b"}}

	tok, err := chain.Verify(context.Background(), "b")
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "from-b", claims["sub"])

	_, err = chain.Verify(context.Background(), "c")
	require.Error(t, err)

	_, err = ChainVerifier{}.Verify(context.Background(), "a")
	require.Error(t, err)
}
