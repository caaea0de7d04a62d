package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func unsigned(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256"}`)) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestInsecureVerifier_ReadsClaims(t *testing.T) {
	v := NewInsecureVerifier()
	raw := unsigned(t, map[string]interface{}{"sub": "parent-of-dancer", "exp": float64(time.Now().Add(time.Hour).Unix())})

	tok, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "parent-of-dancer", claims["sub"])
}

func TestInsecureVerifier_Rejects(t *testing.T) {
	v := NewInsecureVerifier()
	ctx := context.Background()

	_, err := v.Verify(ctx, "nodots")
	require.ErrorIs(t, err, errFormat)

	_, err = v.Verify(ctx, unsigned(t, map[string]interface{}{"name": "x"}))
	require.ErrorIs(t, err, errNoSub)

	_, err = v.Verify(ctx, unsigned(t, map[string]interface{}{"sub": "x", "exp": float64(time.Now().Add(-time.Hour).Unix())}))
	require.ErrorIs(t, err, errExpired)
}

func TestNewVerifier_DiscoveryAndReject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	srv := httptest.NewServer(r)
	defer srv.Close()
	r.GET("/.well-known/openid-configuration", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	r.GET("/keys", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"keys": []interface{}{}}) })

	v, err := NewVerifier(context.Background(), srv.URL, "")
	require.NoError(t, err)
	require.Equal(t, srv.URL, v.Issuer())

	_, err = v.Verify(context.Background(), unsigned(t, map[string]interface{}{"sub": "x", "iss": srv.URL}))
	require.Error(t, err)
}

func TestNewVerifier_DiscoveryFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := NewVerifier(context.Background(), srv.URL, "client")
	require.Error(t, err)
}
